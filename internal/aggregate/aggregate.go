// Package aggregate derives the dashboard views from an in-memory AIH record
// set: filtering, rankings, per-capita values, the monthly series, map points
// and the population rate. Nothing here performs I/O or mutates its input.
package aggregate

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/gyeh/aihstats/internal/model"
)

// DefaultTopN is the usual ranking cut applied by callers.
const DefaultTopN = 15

// Entry is one labelled aggregate in an ordered mapping.
type Entry struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// sortEntries orders by value descending, then label ascending.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Value.Cmp(entries[j].Value); c != 0 {
			return c > 0
		}
		return entries[i].Label < entries[j].Label
	})
}

// grouper accumulates per-label values while remembering first-seen order.
type grouper struct {
	index   map[string]int
	entries []Entry
}

func newGrouper() *grouper {
	return &grouper{index: make(map[string]int), entries: []Entry{}}
}

func (g *grouper) add(label string, v decimal.Decimal) {
	i, ok := g.index[label]
	if !ok {
		i = len(g.entries)
		g.index[label] = i
		g.entries = append(g.entries, Entry{Label: label, Value: decimal.Zero})
	}
	g.entries[i].Value = g.entries[i].Value.Add(v)
}

// AggregateByDimension groups records by dim and applies op to measure per
// group. Count ignores the measure. Entries come back ordered by value
// descending with ties broken by label.
func AggregateByDimension(records []model.Record, dim Dimension, measure Measure, op Op) ([]Entry, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return nil, err
	}
	if _, err := ParseMeasure(string(measure)); err != nil {
		return nil, err
	}
	if _, err := ParseOp(string(op)); err != nil {
		return nil, err
	}

	g := newGrouper()
	one := decimal.NewFromInt(1)
	for i := range records {
		r := &records[i]
		switch op {
		case OpCount:
			g.add(dim.label(r), one)
		case OpSum:
			g.add(dim.label(r), measure.of(r))
		}
	}
	sortEntries(g.entries)
	return g.entries, nil
}

// TopN returns at most n leading entries. n <= 0 returns all of them.
func TopN(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return append([]Entry(nil), entries...)
	}
	return append([]Entry(nil), entries[:n]...)
}

// PerCapita sums value per group and divides it by the group's population.
// A group's population is the sum, over the municipalities in it, of the
// first non-missing figure seen for each municipality code (or name when the
// code is blank). Groups whose population is missing or not positive are
// left out.
func PerCapita(records []model.Record, dim Dimension) ([]Entry, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return nil, err
	}

	g := newGrouper()
	seen := make(map[string]map[string]struct{})
	pop := make(map[string]int64)
	for i := range records {
		r := &records[i]
		label := dim.label(r)
		g.add(label, r.Value)
		if r.Population == nil {
			continue
		}
		key := municipalityKey(r)
		if seen[label] == nil {
			seen[label] = make(map[string]struct{})
		}
		if _, dup := seen[label][key]; dup {
			continue
		}
		seen[label][key] = struct{}{}
		pop[label] += *r.Population
	}

	out := make([]Entry, 0, len(g.entries))
	for _, e := range g.entries {
		p := pop[e.Label]
		if p <= 0 {
			continue
		}
		out = append(out, Entry{Label: e.Label, Value: e.Value.Div(decimal.NewFromInt(p))})
	}
	sortEntries(out)
	return out, nil
}

func municipalityKey(r *model.Record) string {
	if r.MunicipalityCode != "" {
		return r.MunicipalityCode
	}
	return r.Municipality
}

// SeriesPoint is one month of the value time series.
type SeriesPoint struct {
	Key   string          `json:"key"` // YYYY-MM
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Value decimal.Decimal `json:"value"`
}

// TimeSeries sums value per year-month and returns points in chronological
// order, unlike the value-ordered rankings.
func TimeSeries(records []model.Record) []SeriesPoint {
	type ym struct{ y, m int }
	index := make(map[ym]int)
	var out []SeriesPoint
	for i := range records {
		r := &records[i]
		k := ym{r.Year, r.Month}
		j, ok := index[k]
		if !ok {
			j = len(out)
			index[k] = j
			out = append(out, SeriesPoint{
				Key:   fmt.Sprintf("%04d-%02d", r.Year, r.Month),
				Year:  r.Year,
				Month: r.Month,
				Value: decimal.Zero,
			})
		}
		out[j].Value = out[j].Value.Add(r.Value)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	if out == nil {
		out = []SeriesPoint{}
	}
	return out
}

// Rate is the number of AIH records per 1,000 inhabitants.
type Rate struct {
	Events      int             `json:"events"`
	Population  int64           `json:"population"`
	PerThousand decimal.Decimal `json:"per_thousand"`
}

// PopulationRate divides the record count by the population summed once per
// municipality code. ok is false when no positive population is known.
func PopulationRate(records []model.Record) (Rate, bool) {
	seen := make(map[string]struct{})
	var total int64
	for i := range records {
		r := &records[i]
		if r.Population == nil {
			continue
		}
		if _, dup := seen[r.MunicipalityCode]; dup {
			continue
		}
		seen[r.MunicipalityCode] = struct{}{}
		total += *r.Population
	}
	if total <= 0 {
		return Rate{Events: len(records)}, false
	}
	per := decimal.NewFromInt(int64(len(records))).
		Div(decimal.NewFromInt(total)).
		Mul(decimal.NewFromInt(1000))
	return Rate{Events: len(records), Population: total, PerThousand: per}, true
}

// Summary is the KPI block shown above the views.
type Summary struct {
	TotalValue    decimal.Decimal `json:"total_value"`
	TotalQuantity int64           `json:"total_quantity"`
	Records       int             `json:"records"`
	FirstYear     int             `json:"first_year,omitempty"`
	LastYear      int             `json:"last_year,omitempty"`
}

// Summarize computes totals over the records. An empty input yields zeros.
func Summarize(records []model.Record) Summary {
	s := Summary{TotalValue: decimal.Zero, Records: len(records)}
	for i := range records {
		r := &records[i]
		s.TotalValue = s.TotalValue.Add(r.Value)
		s.TotalQuantity += r.Quantity
		if s.FirstYear == 0 || r.Year < s.FirstYear {
			s.FirstYear = r.Year
		}
		if r.Year > s.LastYear {
			s.LastYear = r.Year
		}
	}
	return s
}

// CategoryTotals sums each category over the records, labels the result,
// drops non-positive totals and orders by value descending.
func CategoryTotals(records []model.Record, cats []model.Category) []Entry {
	out := make([]Entry, 0, len(cats))
	for _, c := range cats {
		sum := decimal.Zero
		for i := range records {
			sum = sum.Add(records[i].CategoryValue(c.Column))
		}
		if sum.IsPositive() {
			out = append(out, Entry{Label: c.Label, Value: sum})
		}
	}
	sortEntries(out)
	return out
}

// Coverage compares the total value with the sum of a category set. The
// source does not guarantee the categories partition the total, so the
// residual is reported, never enforced.
type Coverage struct {
	Total       decimal.Decimal `json:"total"`
	Categorized decimal.Decimal `json:"categorized"`
	Residual    decimal.Decimal `json:"residual"`
}

// CategoryCoverage reports how much of the total value the categories explain.
func CategoryCoverage(records []model.Record, cats []model.Category) Coverage {
	cov := Coverage{Total: decimal.Zero, Categorized: decimal.Zero}
	for i := range records {
		r := &records[i]
		cov.Total = cov.Total.Add(r.Value)
		for _, c := range cats {
			cov.Categorized = cov.Categorized.Add(r.CategoryValue(c.Column))
		}
	}
	cov.Residual = cov.Total.Sub(cov.Categorized)
	return cov
}

// Preview returns a copy of the first limit records.
func Preview(records []model.Record, limit int) []model.Record {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	return append([]model.Record{}, records[:limit]...)
}
