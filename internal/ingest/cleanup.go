package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/aihstats/internal/sql"
)

// Cleanup deletes the rows a load contributed to public.sus_ride_df_aih.
func Cleanup(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, loadID uuid.UUID) error {
	start := time.Now()

	tag, err := pool.Exec(ctx, embedsql.DeleteLoadRows, loadID)
	if err != nil {
		return err
	}

	log.Info().
		Str("load_id", loadID.String()).
		Int64("rows_deleted", tag.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("load rows cleared")

	return nil
}
