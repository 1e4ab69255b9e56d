package ingest

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/normalize"
	"github.com/gyeh/aihstats/internal/parquetread"
)

// PlanReport is the outcome of a dry-run over a Parquet extract.
type PlanReport struct {
	FilePath   string
	FileSHA256 string
	FileSize   int64
	NumRows    int64
	Columns    model.ColumnSet

	RowsScanned  int64
	RowsValid    int64
	RowsRejected int64
	// RejectsByField counts rejected rows by offending column.
	RejectsByField map[string]int64
	// CompetenceFallbacks counts rows whose period came from competencia.
	CompetenceFallbacks int64

	TotalValue decimal.Decimal
	ByState    []Count
	ByYear     []Count
}

// Count is one row of a distribution.
type Count struct {
	Key  string
	Rows int64
}

// Plan validates the file and normalizes up to limit rows (all when limit
// <= 0) without touching the database.
func Plan(filePath string, limit int64) (*PlanReport, error) {
	sha, err := normalize.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("plan hash: %w", err)
	}
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("plan stat: %w", err)
	}

	reader, err := parquetread.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("plan open: %w", err)
	}
	defer reader.Close()

	if err := parquetread.ValidateSchema(reader.Schema()); err != nil {
		return nil, fmt.Errorf("plan validate: %w", err)
	}

	rep := &PlanReport{
		FilePath:       filePath,
		FileSHA256:     sha,
		FileSize:       stat.Size(),
		NumRows:        reader.NumRows(),
		Columns:        parquetread.OptionalColumns(reader.Schema()),
		RejectsByField: make(map[string]int64),
		TotalValue:     decimal.Zero,
	}
	byState := make(map[string]int64)
	byYear := make(map[string]int64)

	errLimit := errors.New("limit reached")
	err = reader.Each(readBatchSize, func(rowNum int64, row *model.AIHParquetRow) error {
		if limit > 0 && rowNum > limit {
			return errLimit
		}
		rep.RowsScanned++
		lr, normErr := normalize.ToLoadRow(row, uuid.Nil, rowNum)
		if normErr != nil {
			rep.RowsRejected++
			var re *normalize.RejectError
			if errors.As(normErr, &re) {
				rep.RejectsByField[re.Field]++
			}
			return nil
		}
		if row.Year == nil || row.Month == nil {
			rep.CompetenceFallbacks++
		}
		rep.RowsValid++
		rep.TotalValue = rep.TotalValue.Add(decimal.NewFromFloat(lr.Value))
		byState[lr.State]++
		byYear[fmt.Sprintf("%d", lr.Year)]++
		return nil
	})
	if err != nil && !errors.Is(err, errLimit) {
		return nil, fmt.Errorf("plan read: %w", err)
	}

	rep.ByState = sortedCounts(byState)
	rep.ByYear = sortedCounts(byYear)
	return rep, nil
}

func sortedCounts(m map[string]int64) []Count {
	out := make([]Count, 0, len(m))
	for k, v := range m {
		out = append(out, Count{Key: k, Rows: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
