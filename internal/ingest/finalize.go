package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/aihstats/internal/sql"
)

// FinalizeResult holds metrics from the finalize phase.
type FinalizeResult struct {
	RowsReplaced int64
	Duration     time.Duration
}

// Finalize marks the load as loaded and, when replace is set, deletes the
// rows of every other load in the same transaction. ANALYZE runs afterwards.
func Finalize(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, loadID uuid.UUID, replace bool, stage *StageResult) (*FinalizeResult, error) {
	start := time.Now()
	var replaced int64

	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if replace {
			tag, err := tx.Exec(ctx, embedsql.DeleteOlderLoads, loadID)
			if err != nil {
				return fmt.Errorf("delete older loads: %w", err)
			}
			replaced = tag.RowsAffected()

			tag, err = tx.Exec(ctx, embedsql.SupersedeOlderLoads, loadID)
			if err != nil {
				return fmt.Errorf("supersede older loads: %w", err)
			}
			log.Info().
				Int64("rows_deleted", replaced).
				Int64("loads_superseded", tag.RowsAffected()).
				Msg("older loads replaced")
		}

		if _, err := tx.Exec(ctx, embedsql.CompleteLoad,
			loadID, stage.RowsRead, stage.RowsLoaded, stage.RowsRejected,
		); err != nil {
			return fmt.Errorf("complete load: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("load_id", loadID.String()).Msg("load marked loaded")

	if _, err := pool.Exec(ctx, embedsql.AnalyzeAIH); err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	log.Info().Msg("ANALYZE complete")

	return &FinalizeResult{RowsReplaced: replaced, Duration: time.Since(start)}, nil
}
