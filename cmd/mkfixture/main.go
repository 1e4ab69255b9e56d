// mkfixture cuts a small representative Parquet fixture from a full AIH extract.
// Two-pass: first buckets rows by state and year plus a few edge traits, then
// writes up to N rows spread across the buckets.
// Usage: go run ./cmd/mkfixture --in testdata/aih.parquet --out testdata/aih-small.parquet --rows 200
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/normalize"
	"github.com/gyeh/aihstats/internal/parquetread"
)

type bucket struct {
	name string
	rows []model.AIHParquetRow
	want int
}

func main() {
	in := flag.String("in", "testdata/aih.parquet", "input parquet")
	out := flag.String("out", "testdata/aih-small.parquet", "output parquet")
	maxRows := flag.Int("rows", 200, "max rows to output")
	perPeriod := flag.Int("per-period", 10, "max rows per state/year bucket")
	checkOnly := flag.Bool("check", false, "only print stats, don't write")
	flag.Parse()

	reader, err := parquetread.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open input: %v\n", err)
		os.Exit(1)
	}
	defer reader.Close()

	// Edge traits come first so they survive the row cap.
	edges := []*bucket{
		{name: "competence_only", want: 5},
		{name: "rejected", want: 5},
		{name: "geo", want: 10},
		{name: "surgical", want: 10},
	}
	edgeMap := make(map[string]*bucket)
	for _, b := range edges {
		edgeMap[b.name] = b
	}
	periods := make(map[string]*bucket)

	take := func(b *bucket, row *model.AIHParquetRow) bool {
		if len(b.rows) >= b.want {
			return false
		}
		b.rows = append(b.rows, *row)
		return true
	}

	var totalRead int64
	err = reader.Each(1024, func(rowNum int64, row *model.AIHParquetRow) error {
		totalRead++
		if _, err := normalize.ToLoadRow(row, uuid.Nil, rowNum); err != nil {
			take(edgeMap["rejected"], row)
			return nil
		}
		switch {
		case (row.Year == nil || row.Month == nil) && take(edgeMap["competence_only"], row):
			return nil
		case row.Latitude != nil && row.Longitude != nil && take(edgeMap["geo"], row):
			return nil
		case row.VL04 != nil && *row.VL04 > 0 && take(edgeMap["surgical"], row):
			return nil
		}

		year := "?"
		if row.Year != nil {
			year = fmt.Sprint(*row.Year)
		}
		key := row.State + "/" + year
		b, ok := periods[key]
		if !ok {
			b = &bucket{name: key, want: *perPeriod}
			periods[key] = b
		}
		take(b, row)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Scanned %d rows, %d state/year buckets\n", totalRead, len(periods))

	keys := make([]string, 0, len(periods))
	for k := range periods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if *checkOnly {
		for _, b := range edges {
			fmt.Printf("  %-16s %d\n", b.name, len(b.rows))
		}
		for _, k := range keys {
			fmt.Printf("  %-16s %d\n", k, len(periods[k].rows))
		}
		return
	}

	// Merge edge buckets, then round-robin across periods.
	var selected []model.AIHParquetRow
	for _, b := range edges {
		for _, row := range b.rows {
			if len(selected) >= *maxRows {
				break
			}
			selected = append(selected, row)
		}
	}
	for i := 0; len(selected) < *maxRows; i++ {
		added := false
		for _, k := range keys {
			rows := periods[k].rows
			if i < len(rows) && len(selected) < *maxRows {
				selected = append(selected, rows[i])
				added = true
			}
		}
		if !added {
			break
		}
	}

	if err := goparquet.WriteFile(*out, selected); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Wrote %d rows to %s\n", len(selected), *out)
	for _, b := range edges {
		fmt.Printf("  %-16s %d\n", b.name, len(b.rows))
	}
}
