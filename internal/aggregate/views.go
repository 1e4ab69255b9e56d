package aggregate

import (
	"github.com/gyeh/aihstats/internal/model"
)

// Settings are the presentation knobs shared by the report and the API.
type Settings struct {
	TopN         int
	Geo          GeoOptions
	PreviewLimit int
	Procedures   []model.Category
	Surgeries    []model.Category
}

// DefaultSettings enables every category with the usual ranking cut.
func DefaultSettings() Settings {
	return Settings{
		TopN:         DefaultTopN,
		Geo:          DefaultGeoOptions(),
		PreviewLimit: 100,
		Procedures:   model.ProcedureGroups,
		Surgeries:    model.SurgeryGroups,
	}
}

// The functions below wrap the aggregations with the column checks each view
// needs, so callers get an *UnavailableError instead of a misleading result.

// Ranking groups by dim and keeps the top n entries.
func Ranking(cols model.ColumnSet, records []model.Record, dim Dimension, measure Measure, op Op, n int) ([]Entry, error) {
	if err := Requires(cols, "ranking", dim.Column(), measure.Column()); err != nil {
		return nil, err
	}
	entries, err := AggregateByDimension(records, dim, measure, op)
	if err != nil {
		return nil, err
	}
	return TopN(entries, n), nil
}

// PerCapitaRanking is PerCapita cut to the top n.
func PerCapitaRanking(cols model.ColumnSet, records []model.Record, dim Dimension, n int) ([]Entry, error) {
	if err := Requires(cols, "per-capita", dim.Column(), model.ColPopulation); err != nil {
		return nil, err
	}
	entries, err := PerCapita(records, dim)
	if err != nil {
		return nil, err
	}
	return TopN(entries, n), nil
}

// Geo returns the map points, or an *UnavailableError without coordinates.
func Geo(cols model.ColumnSet, records []model.Record, opts GeoOptions) ([]GeoPoint, error) {
	if err := Requires(cols, "geo", model.ColLatitude, model.ColLongitude); err != nil {
		return nil, err
	}
	return GeoPoints(records, opts), nil
}

// PopulationRateView returns the rate; ok is false when no population is known.
func PopulationRateView(cols model.ColumnSet, records []model.Record) (Rate, bool, error) {
	if err := Requires(cols, "population-rate", model.ColPopulation); err != nil {
		return Rate{}, false, err
	}
	rate, ok := PopulationRate(records)
	return rate, ok, nil
}

// AvailableCategories keeps the categories whose column the source exposes.
func AvailableCategories(cols model.ColumnSet, cats []model.Category) []model.Category {
	out := make([]model.Category, 0, len(cats))
	for _, c := range cats {
		if cols.HasCategory(c.Column) {
			out = append(out, c)
		}
	}
	return out
}

// Categories totals the available categories. It is unavailable only when
// none of the requested columns exist.
func Categories(cols model.ColumnSet, records []model.Record, view string, cats []model.Category) ([]Entry, error) {
	avail := AvailableCategories(cols, cats)
	if len(avail) == 0 && len(cats) > 0 {
		return nil, Requires(cols, view, model.CategoryColumns(cats)...)
	}
	return CategoryTotals(records, avail), nil
}

// CoverageView reports coverage over the available categories.
func CoverageView(cols model.ColumnSet, records []model.Record, cats []model.Category) (Coverage, error) {
	avail := AvailableCategories(cols, cats)
	if len(avail) == 0 && len(cats) > 0 {
		return Coverage{}, Requires(cols, "coverage", model.CategoryColumns(cats)...)
	}
	return CategoryCoverage(records, avail), nil
}
