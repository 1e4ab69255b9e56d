package main

import (
	"context"
	"errors"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/credentials"
	"github.com/gyeh/aihstats/internal/db"
	"github.com/gyeh/aihstats/internal/exitcode"
	"github.com/gyeh/aihstats/internal/logging"
	"github.com/gyeh/aihstats/internal/refdata"
	"github.com/gyeh/aihstats/internal/store"
)

// setupLogger builds the logger from the persistent flags.
func setupLogger() zerolog.Logger {
	return logging.Setup(cfg.LogFormat, cfg.LogLevel)
}

// loadSettings merges the YAML file into cfg, applies defaults and validates.
func loadSettings(log zerolog.Logger) {
	if cfg.ConfigFile != "" {
		if err := cfg.LoadFromFile(cfg.ConfigFile); err != nil {
			log.Error().Err(err).Str("file", cfg.ConfigFile).Msg("config file invalid")
			os.Exit(exitcode.UsageError)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}
}

// connect resolves credentials and opens a pool, exiting on failure.
func connect(ctx context.Context, log zerolog.Logger) *pgxpool.Pool {
	dsn, src, err := credentials.NewResolver(log).Resolve(ctx, credentials.Options{
		DSN:         cfg.DSN,
		SecretsFile: cfg.SecretsFile,
		SecretName:  cfg.SecretName,
		Region:      cfg.AWSRegion,
	})
	if err != nil {
		log.Error().Err(err).Msg("database credentials unavailable")
		os.Exit(exitcode.CredentialError)
	}
	log.Debug().Str("source", string(src)).Msg("credentials resolved")

	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	return pool
}

// newStore wires the relational source, the reference table and the cache.
func newStore(log zerolog.Logger, pool *pgxpool.Pool) *store.Store {
	var ref *refdata.Table
	if cfg.ReferenceFile != "" {
		var err error
		ref, err = refdata.Load(cfg.ReferenceFile)
		if err != nil {
			log.Error().Err(err).Str("file", cfg.ReferenceFile).Msg("reference data invalid")
			os.Exit(exitcode.ValidationError)
		}
		log.Info().
			Int("municipalities", ref.Len()).
			Int("skipped", ref.Skipped).
			Int("duplicates", ref.Duplicates).
			Msg("reference data loaded")
	}

	s, err := store.New(store.Config{
		Logger:    log,
		Source:    store.NewPGSource(pool, cfg.Query, log),
		Reference: ref,
		CacheKey:  cfg.Query,
		TTL:       cfg.CacheTTL,
	})
	if err != nil {
		log.Error().Err(err).Msg("store setup failed")
		os.Exit(exitcode.UsageError)
	}
	return s
}

// settings converts cfg into the presentation settings.
func settings() aggregate.Settings {
	return aggregate.Settings{
		TopN: cfg.TopN,
		Geo: aggregate.GeoOptions{
			GroupByMunicipality: true,
			MinRadius:           cfg.MinRadius,
			MaxRadius:           cfg.MaxRadius,
		},
		PreviewLimit: cfg.PreviewLimit,
		Procedures:   cfg.ProcedureCategories(),
		Surgeries:    cfg.SurgeryCategories(),
	}
}

// selectionFlags registers the filter flags on cmd.
func selectionFlags(cmd *cobra.Command, sel *aggregate.Selection) {
	f := cmd.Flags()
	f.StringSliceVar(&sel.States, "uf", nil, "Filter by state (repeatable or comma-separated)")
	f.StringSliceVar(&sel.Municipalities, "municipio", nil, "Filter by municipality name")
	f.IntSliceVar(&sel.Years, "ano", nil, "Filter by year")
	f.IntSliceVar(&sel.Months, "mes", nil, "Filter by month (1-12)")
	f.StringSliceVar(&sel.PopulationBrackets, "faixa", nil, "Filter by population bracket")
}

// datasetExitCode maps a dataset load failure to an exit code.
func datasetExitCode(err error) int {
	if errors.Is(err, store.ErrSourceUnavailable) {
		return exitcode.DBConnError
	}
	return exitcode.QueryError
}
