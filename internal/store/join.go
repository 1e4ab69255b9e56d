package store

import (
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/normalize"
	"github.com/gyeh/aihstats/internal/refdata"
)

// Join left-joins the dataset with the reference table by municipality code.
// Only attributes a record lacks are filled; values from the source win.
// A missing population bracket is derived from the population when one is
// known. The input dataset is not modified.
func Join(ds *model.Dataset, ref *refdata.Table) *model.Dataset {
	if ds == nil {
		return nil
	}
	out := *ds
	out.Records = make([]model.Record, len(ds.Records))
	copy(out.Records, ds.Records)

	if ref != nil {
		out.Columns.Geo = out.Columns.Geo || ref.HasGeo
		out.Columns.Population = out.Columns.Population || ref.HasPopulation
		out.Columns.Capital = out.Columns.Capital || ref.HasCapital
	}

	derived := false
	for i := range out.Records {
		r := &out.Records[i]
		if m, ok := ref.Lookup(r.MunicipalityCode); ok {
			if !r.HasCoordinates() && m.Latitude != nil && m.Longitude != nil {
				r.Latitude, r.Longitude = m.Latitude, m.Longitude
			}
			if r.Population == nil {
				r.Population = m.Population
			}
			if r.Capital == nil {
				r.Capital = m.Capital
			}
		}
		if r.PopulationBracket == "" && r.Population != nil {
			if b := normalize.PopulationBracket(*r.Population); b != "" {
				r.PopulationBracket = b
				derived = true
			}
		}
	}
	out.Columns.PopulationBracket = out.Columns.PopulationBracket || derived
	return &out
}
