package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/exitcode"
	"github.com/gyeh/aihstats/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard views as a JSON API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&cfg.Listen, "listen", "", "Listen address (default :8080)")
	serveCmd.Flags().StringVar(&cfg.ReferenceFile, "reference", "", "Municipality reference CSV (coordinates, population, capital)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loadSettings(log)

	pool := connect(ctx, log)
	defer pool.Close()

	st := newStore(log, pool)
	// Warm the cache so a broken query fails at startup.
	if _, err := st.Dataset(ctx); err != nil {
		log.Error().Err(err).Msg("loading records failed")
		os.Exit(datasetExitCode(err))
	}

	srv := server.New(log, st, settings())
	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		log.Error().Err(err).Str("addr", cfg.Listen).Msg("server failed")
		os.Exit(exitcode.ServeError)
	}
	return nil
}
