package aggregate

import (
	"sort"

	"github.com/gyeh/aihstats/internal/model"
)

// Options lists the values a user can pick for each filter dimension.
type Options struct {
	States             []string `json:"states"`
	Municipalities     []string `json:"municipalities"`
	Years              []int    `json:"years"`
	Months             []int    `json:"months"`
	PopulationBrackets []string `json:"population_brackets"`
}

// AvailableOptions cascades the filters the way the selection widgets do:
// states come from the full set, municipalities from the state-filtered set,
// years (newest first) after municipalities, months after years, and
// population brackets after months.
func AvailableOptions(records []model.Record, sel Selection) Options {
	var opts Options
	working := records

	opts.States = distinctStrings(working, func(r *model.Record) string { return r.State })
	working = ApplyFilters(working, Selection{States: sel.States})

	opts.Municipalities = distinctStrings(working, func(r *model.Record) string { return r.Municipality })
	working = ApplyFilters(working, Selection{Municipalities: sel.Municipalities})

	opts.Years = distinctInts(working, func(r *model.Record) int { return r.Year })
	sort.Sort(sort.Reverse(sort.IntSlice(opts.Years)))
	working = ApplyFilters(working, Selection{Years: sel.Years})

	opts.Months = distinctInts(working, func(r *model.Record) int { return r.Month })
	working = ApplyFilters(working, Selection{Months: sel.Months})

	opts.PopulationBrackets = distinctStrings(working, func(r *model.Record) string { return r.PopulationBracket })
	return opts
}

func distinctStrings(records []model.Record, get func(*model.Record) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for i := range records {
		v := get(&records[i])
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func distinctInts(records []model.Record, get func(*model.Record) int) []int {
	seen := make(map[int]struct{})
	out := []int{}
	for i := range records {
		v := get(&records[i])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
