package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/exitcode"
	"github.com/gyeh/aihstats/internal/ingest"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load a Parquet AIH extract into the database",
	RunE:  runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to Parquet file (required)")
	f.BoolVar(&cfg.Force, "force", false, "Reload even if the file SHA was already loaded")
	f.BoolVar(&cfg.Replace, "replace", false, "Delete rows of earlier loads once this load succeeds")
	_ = loadCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()

	if err := cfg.ValidateLoad(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	pool := connect(ctx, log)
	defer pool.Close()

	summary, err := ingest.Run(ctx, pool, log, &cfg)
	if err != nil {
		var pe *ingest.PipelineError
		if errors.As(err, &pe) {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("load failed")
			switch pe.Phase {
			case ingest.PhasePreflight:
				os.Exit(exitcode.ValidationError)
			case ingest.PhaseStage:
				os.Exit(exitcode.CopyError)
			default:
				os.Exit(exitcode.FinalizeError)
			}
		}
		log.Error().Err(err).Msg("load failed")
		os.Exit(exitcode.FinalizeError)
	}

	if summary.Skipped {
		fmt.Printf("Already loaded as %s; nothing to do (use --force to reload)\n", summary.LoadID)
		return nil
	}
	fmt.Printf("Load complete: %d rows read, %d loaded, %d rejected, %d replaced (%.1fs)\n",
		summary.RowsRead, summary.RowsLoaded, summary.RowsRejected, summary.RowsReplaced,
		summary.DurationTotal.Seconds())
	return nil
}
