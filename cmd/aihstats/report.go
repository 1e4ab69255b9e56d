package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/exitcode"
	"github.com/gyeh/aihstats/internal/report"
)

var (
	reportView string
	reportSel  aggregate.Selection
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the dashboard views as tables",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportView, "view", report.ViewAll, "View to print: all, summary, ranking, region, per-capita, timeseries, geo, procedures, surgeries, coverage or records")
	reportCmd.Flags().StringVar(&cfg.ReferenceFile, "reference", "", "Municipality reference CSV (coordinates, population, capital)")
	selectionFlags(reportCmd, &reportSel)
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	log := setupLogger()
	ctx := context.Background()

	if _, err := report.ParseView(reportView); err != nil {
		log.Error().Err(err).Msg("invalid view")
		os.Exit(exitcode.UsageError)
	}
	loadSettings(log)

	pool := connect(ctx, log)
	defer pool.Close()

	ds, err := newStore(log, pool).Dataset(ctx)
	if err != nil {
		log.Error().Err(err).Msg("loading records failed")
		os.Exit(datasetExitCode(err))
	}

	if err := report.New(os.Stdout, settings()).Render(ds, reportSel, reportView); err != nil {
		log.Error().Err(err).Msg("report failed")
		os.Exit(exitcode.UsageError)
	}
	return nil
}
