package main

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/db"
	"github.com/gyeh/aihstats/internal/exitcode"
)

var migrateList bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ingest bookkeeping schema and the AIH table",
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateList, "list", false, "print the embedded migrations without connecting")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := setupLogger()

	migrations, err := db.Migrations()
	if err != nil {
		log.Error().Err(err).Msg("embedded migrations unreadable")
		os.Exit(exitcode.FinalizeError)
	}

	if migrateList {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetAutoFormatHeaders(false)
		table.SetHeader([]string{"Migration", "Statements"})
		table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
		for _, m := range migrations {
			table.Append([]string{m.Name, strconv.Itoa(strings.Count(m.SQL, ";"))})
		}
		table.Render()
		return nil
	}

	ctx := context.Background()
	pool := connect(ctx, log)
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.FinalizeError)
	}

	log.Info().Int("migrations", len(migrations)).Str("table", "public.sus_ride_df_aih").Msg("schema up to date")
	return nil
}
