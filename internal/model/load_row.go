package model

import (
	"github.com/google/uuid"
)

// LoadRow is the normalized, DB-ready representation of a single AIH row.
type LoadRow struct {
	LoadID          uuid.UUID
	SourceRowNumber int64

	State             string
	Municipality      string
	MunicipalityCode  string
	Region            *string
	Year              int32
	Month             int32
	PopulationBracket *string

	Value    float64
	Quantity int64

	// Categories is keyed by category column; nil entries are stored as NULL.
	Categories map[string]*float64

	Latitude   *float64
	Longitude  *float64
	Population *int64
}

// LoadColumns returns the ordered column names for COPY into public.sus_ride_df_aih.
func LoadColumns() []string {
	cols := []string{
		"carga_id",
		"linha_origem",
		ColState,
		ColMunicipality,
		ColMunicipalityCode,
		ColRegion,
		ColYear,
		ColMonth,
		ColPopulationBracket,
		ColValue,
		ColQuantity,
	}
	cols = append(cols, CategoryColumns(AllCategories())...)
	return append(cols, ColLatitude, ColLongitude, ColPopulation)
}

// CopyValues returns the row values in the same order as LoadColumns(),
// suitable for pgx CopyFromSource.
func (r *LoadRow) CopyValues() []any {
	vals := []any{
		r.LoadID,
		r.SourceRowNumber,
		r.State,
		r.Municipality,
		r.MunicipalityCode,
		r.Region,
		r.Year,
		r.Month,
		r.PopulationBracket,
		r.Value,
		r.Quantity,
	}
	for _, c := range AllCategories() {
		vals = append(vals, r.Categories[c.Column])
	}
	return append(vals, r.Latitude, r.Longitude, r.Population)
}
