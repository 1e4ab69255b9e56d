package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gyeh/aihstats/internal/exitcode"
	"github.com/gyeh/aihstats/internal/ingest"
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/report"
)

var planLimit int64

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run validation and stats (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.FilePath, "file", "", "Path to Parquet file (required)")
	planCmd.Flags().Int64Var(&planLimit, "limit", 0, "Scan at most this many rows (0 scans all)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := setupLogger()

	if err := cfg.ValidateLoad(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	rep, err := ingest.Plan(cfg.FilePath, planLimit)
	if err != nil {
		log.Error().Err(err).Msg("plan failed")
		os.Exit(exitcode.ValidationError)
	}

	f := report.NewFormatter()
	fmt.Println("=== aihstats plan ===")
	fmt.Printf("File:       %s\n", rep.FilePath)
	fmt.Printf("SHA-256:    %s\n", rep.FileSHA256)
	fmt.Printf("Size:       %d bytes\n", rep.FileSize)
	fmt.Printf("Total rows: %d\n", rep.NumRows)
	fmt.Printf("Scanned:    %d rows (%d valid, %d rejected, %d from competencia)\n",
		rep.RowsScanned, rep.RowsValid, rep.RowsRejected, rep.CompetenceFallbacks)
	fmt.Printf("Value:      %s\n", f.Money(rep.TotalValue))
	fmt.Printf("Optional:   %s\n", strings.Join(optionalColumns(rep.Columns), ", "))
	fmt.Println()

	printCounts("Rows by state", "UF", rep.ByState)
	printCounts("Rows by year", "Year", rep.ByYear)

	if len(rep.RejectsByField) > 0 {
		fields := make([]ingest.Count, 0, len(rep.RejectsByField))
		for k, v := range rep.RejectsByField {
			fields = append(fields, ingest.Count{Key: k, Rows: v})
		}
		sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
		printCounts("Rejected rows by field", "Field", fields)
	}
	fmt.Println("Schema validation: OK")
	return nil
}

func printCounts(title, keyHeader string, counts []ingest.Count) {
	fmt.Println(title)
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{keyHeader, "Rows"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, c := range counts {
		table.Append([]string{c.Key, strconv.FormatInt(c.Rows, 10)})
	}
	table.Render()
	fmt.Println()
}

func optionalColumns(cols model.ColumnSet) []string {
	var out []string
	if cols.Region {
		out = append(out, model.ColRegion)
	}
	if cols.PopulationBracket {
		out = append(out, model.ColPopulationBracket)
	}
	if cols.Geo {
		out = append(out, model.ColLatitude, model.ColLongitude)
	}
	if cols.Population {
		out = append(out, model.ColPopulation)
	}
	if cols.Capital {
		out = append(out, model.ColCapital)
	}
	for _, c := range model.AllCategories() {
		if cols.HasCategory(c.Column) {
			out = append(out, c.Column)
		}
	}
	if len(out) == 0 {
		out = append(out, "none")
	}
	return out
}
