package db

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	embedsql "github.com/gyeh/aihstats/internal/sql"
)

// Migration is one embedded DDL file.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded .sql migrations sorted by filename.
func Migrations() ([]Migration, error) {
	entries, err := fs.ReadDir(embedsql.Migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := fs.ReadFile(embedsql.Migrations, "migrations/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{Name: entry.Name(), SQL: string(data)})
	}
	return out, nil
}

// ApplyMigrations runs the embedded migrations in order: the ingest
// bookkeeping schema first, then the flat AIH table the dashboard reads.
// All DDL uses IF NOT EXISTS so re-running is a no-op.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	migrations, err := Migrations()
	if err != nil {
		return err
	}

	for _, m := range migrations {
		start := time.Now()
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("execute migration %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Dur("duration", time.Since(start)).Msg("migration applied")
	}

	log.Info().Int("count", len(migrations)).Msg("migrations applied")
	return nil
}
