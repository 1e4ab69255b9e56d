package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/aihstats/internal/normalize"
	"github.com/gyeh/aihstats/internal/parquetread"
	embedsql "github.com/gyeh/aihstats/internal/sql"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	// FilePath is the original path passed to Preflight, stored as-is.
	FilePath string
	// FileSHA256 is the hex-encoded SHA-256 digest of the file.
	FileSHA256 string
	FileSize   int64
	// LoadID identifies this file in ingest.loads and tags every row it
	// contributes to public.sus_ride_df_aih. A reload of the same file
	// reuses the existing id.
	LoadID  uuid.UUID
	NumRows int64
	// AlreadyLoaded is true when the file's sha256 is already recorded as
	// loaded and force mode is off.
	AlreadyLoaded bool
}

// Preflight hashes the file, validates the Parquet schema and registers the
// load.
func Preflight(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, filePath string, force bool) (*PreflightResult, error) {
	start := time.Now()

	sha, err := normalize.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}

	reader, err := parquetread.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	defer reader.Close()

	if err := parquetread.ValidateSchema(reader.Schema()); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}
	numRows := reader.NumRows()

	log.Info().
		Str("file", filepath.Base(filePath)).
		Str("sha256", sha).
		Int64("rows", numRows).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	loadID, alreadyLoaded, err := registerLoad(ctx, pool, log, filePath, sha, stat.Size(), force)
	if err != nil {
		return nil, fmt.Errorf("preflight register load: %w", err)
	}

	return &PreflightResult{
		FilePath:      filePath,
		FileSHA256:    sha,
		FileSize:      stat.Size(),
		LoadID:        loadID,
		NumRows:       numRows,
		AlreadyLoaded: alreadyLoaded,
	}, nil
}

func registerLoad(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, filePath, sha string, fileSize int64, force bool) (uuid.UUID, bool, error) {
	var id pgtype.UUID
	err := pool.QueryRow(ctx, embedsql.RegisterLoad,
		uuid.New(), filepath.Base(filePath), sha, fileSize,
	).Scan(&id)
	if err == nil {
		return uuid.UUID(id.Bytes), false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, fmt.Errorf("register load: %w", err)
	}

	// Same file seen before (ON CONFLICT DO NOTHING returned no rows).
	var status string
	if err := pool.QueryRow(ctx, embedsql.LookupLoad, sha).Scan(&id, &status); err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup existing load: %w", err)
	}
	loadID := uuid.UUID(id.Bytes)

	if !force && status == StatusLoaded {
		return loadID, true, nil
	}

	// Reset for reload: drop whatever rows the earlier attempt left behind.
	if err := UpdateStatus(ctx, pool, loadID, StatusPending); err != nil {
		return uuid.Nil, false, fmt.Errorf("reset load status: %w", err)
	}
	if err := Cleanup(ctx, pool, log, loadID); err != nil {
		return uuid.Nil, false, fmt.Errorf("clear previous rows: %w", err)
	}
	return loadID, false, nil
}
