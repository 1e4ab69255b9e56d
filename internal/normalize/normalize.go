package normalize

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/gyeh/aihstats/internal/model"
)

// ErrRejected is matched by every *RejectError.
var ErrRejected = errors.New("row rejected")

// RejectError describes why a source row was not loaded.
type RejectError struct {
	Row    int64
	Field  string // offending source column
	Reason string
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("row %d rejected: %s", e.Row, e.Reason)
}

func (e *RejectError) Is(target error) bool { return target == ErrRejected }

// ToLoadRow converts a Parquet-read AIHParquetRow into a normalized LoadRow.
// Year and month fall back to the competence column when absent. Rows
// without a state, municipality, valid code or valid year/month are rejected
// with a *RejectError.
func ToLoadRow(row *model.AIHParquetRow, loadID uuid.UUID, rowNum int64) (*model.LoadRow, error) {
	reject := func(field, format string, args ...any) error {
		return &RejectError{Row: rowNum, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	state := Name(row.State)
	if state == "" {
		return nil, reject(model.ColState, "missing %s", model.ColState)
	}
	municipality := Name(row.Municipality)
	if municipality == "" {
		return nil, reject(model.ColMunicipality, "missing %s", model.ColMunicipality)
	}
	code, ok := MunicipalityCode(row.MunicipalityCode)
	if !ok {
		return nil, reject(model.ColMunicipalityCode, "invalid %s %q", model.ColMunicipalityCode, row.MunicipalityCode)
	}

	var year, month int32
	switch {
	case row.Year != nil && row.Month != nil:
		year, month = *row.Year, *row.Month
	case row.Competence != nil:
		if year, month, ok = ParseCompetence(*row.Competence); !ok {
			return nil, reject("competencia", "unparseable competencia %q", *row.Competence)
		}
	default:
		return nil, reject(model.ColYear, "missing %s/%s", model.ColYear, model.ColMonth)
	}
	if month < 1 || month > 12 {
		return nil, reject(model.ColMonth, "month %d out of range", month)
	}
	if year <= 0 {
		return nil, reject(model.ColYear, "year %d out of range", year)
	}

	lr := &model.LoadRow{
		LoadID:          loadID,
		SourceRowNumber: rowNum,

		State:             state,
		Municipality:      municipality,
		MunicipalityCode:  code,
		Region:            OptName(row.Region),
		Year:              year,
		Month:             month,
		PopulationBracket: OptName(row.PopulationBracket),

		Value:    Cents(row.Value),
		Quantity: row.Quantity,

		Categories: make(map[string]*float64, len(model.AllCategories())),

		Latitude:   row.Latitude,
		Longitude:  row.Longitude,
		Population: row.Population,
	}
	for col, v := range row.CategoryValues() {
		lr.Categories[col] = OptCents(v)
	}

	if lr.PopulationBracket == nil && lr.Population != nil {
		if b := PopulationBracket(*lr.Population); b != "" {
			lr.PopulationBracket = &b
		}
	}
	return lr, nil
}
