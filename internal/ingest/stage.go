package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/aihstats/internal/db"
	"github.com/gyeh/aihstats/internal/metrics"
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/normalize"
	"github.com/gyeh/aihstats/internal/parquetread"
	embedsql "github.com/gyeh/aihstats/internal/sql"
)

const readBatchSize = 1024

// maxLoggedRejects caps per-row reject warnings; the rest are only counted.
const maxLoggedRejects = 20

// AIHTable is the flat table the dashboard reads.
var AIHTable = pgx.Identifier{"public", "sus_ride_df_aih"}

// StageResult holds metrics from the staging phase.
type StageResult struct {
	RowsRead     int64
	RowsLoaded   int64
	RowsRejected int64
	Duration     time.Duration
}

// Stage streams rows from the Parquet file, normalizes them, and COPY-loads
// them into public.sus_ride_df_aih via a channel-backed CopyFromSource.
func Stage(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, pf *PreflightResult) (*StageResult, error) {
	start := time.Now()

	reader, err := parquetread.Open(pf.FilePath)
	if err != nil {
		return nil, fmt.Errorf("stage open: %w", err)
	}
	defer reader.Close()

	// Cancelled when COPY returns so a producer blocked on send can exit.
	prodCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan *model.LoadRow, readBatchSize)
	errCh := make(chan error, 1)

	var rowsRead, rowsRejected int64

	// Producer goroutine: read Parquet → normalize → push to channel
	go func() {
		defer close(ch)
		errCh <- reader.Each(readBatchSize, func(rowNum int64, row *model.AIHParquetRow) error {
			rowsRead++
			lr, normErr := normalize.ToLoadRow(row, pf.LoadID, rowNum)
			if normErr != nil {
				rowsRejected++
				if rowsRejected <= maxLoggedRejects {
					log.Warn().Err(normErr).Int64("row", rowNum).Msg("row rejected")
				}
				return nil
			}
			select {
			case ch <- lr:
				return nil
			case <-prodCtx.Done():
				return prodCtx.Err()
			}
		})
	}()

	// Consumer: COPY from channel into the AIH table
	source := db.NewLoadRowSource(prodCtx, pf.LoadID, ch)
	rowsLoaded, err := pool.CopyFrom(ctx, AIHTable, model.LoadColumns(), source)
	cancel()

	// Wait for producer to finish. After a failed COPY the producer only
	// reports the cancellation, so the COPY error wins.
	prodErr := <-errCh
	if err != nil {
		return nil, fmt.Errorf("stage copy: %w", err)
	}
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}

	metrics.IngestRowsTotal.WithLabelValues("loaded").Add(float64(rowsLoaded))
	metrics.IngestRowsTotal.WithLabelValues("rejected").Add(float64(rowsRejected))

	dur := time.Since(start)
	log.Info().
		Int64("rows_read", rowsRead).
		Int64("rows_loaded", rowsLoaded).
		Int64("rows_rejected", rowsRejected).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(rowsLoaded)/dur.Seconds()).
		Msg("stage complete")

	return &StageResult{
		RowsRead:     rowsRead,
		RowsLoaded:   rowsLoaded,
		RowsRejected: rowsRejected,
		Duration:     dur,
	}, nil
}

// UpdateStatus sets the status of a load.
func UpdateStatus(ctx context.Context, pool *pgxpool.Pool, loadID uuid.UUID, status string) error {
	_, err := pool.Exec(ctx, embedsql.UpdateLoadStatus, loadID, status)
	return err
}
