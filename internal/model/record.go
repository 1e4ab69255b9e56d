package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Source column names of the flat AIH table.
const (
	ColState             = "uf_nome"
	ColMunicipality      = "nome_municipio"
	ColMunicipalityCode  = "cod_municipio"
	ColRegion            = "regiao_nome"
	ColYear              = "ano_aih"
	ColMonth             = "mes_aih"
	ColPopulationBracket = "faixa_populacional"
	ColValue             = "vl_total"
	ColQuantity          = "qtd_total"
	ColLatitude          = "latitude"
	ColLongitude         = "longitude"
	ColPopulation        = "numero_habitantes"
	ColCapital           = "capital"
)

// RequiredColumns must be present in every record source.
var RequiredColumns = []string{
	ColState,
	ColMunicipality,
	ColMunicipalityCode,
	ColYear,
	ColMonth,
	ColValue,
	ColQuantity,
}

// Record is one admission authorization (AIH) row, already joined with
// geographic and population reference data where available.
type Record struct {
	State             string
	Municipality      string
	MunicipalityCode  string
	Region            string
	Year              int
	Month             int
	PopulationBracket string

	Value    decimal.Decimal
	Quantity int64

	// Categories holds the procedure-group and surgery-group values keyed by
	// source column (vl_02, vl_0401, ...). Absent keys mean the column was missing.
	Categories map[string]decimal.Decimal

	Latitude   *float64
	Longitude  *float64
	Population *int64
	Capital    *bool
}

// HasCoordinates reports whether both latitude and longitude are known.
func (r *Record) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// CategoryValue returns the value for a category column, zero if absent.
func (r *Record) CategoryValue(col string) decimal.Decimal {
	if v, ok := r.Categories[col]; ok {
		return v
	}
	return decimal.Zero
}

// ColumnSet records which optional columns a source exposed.
type ColumnSet struct {
	Region            bool
	PopulationBracket bool
	Geo               bool // latitude and longitude
	Population        bool
	Capital           bool
	Categories        map[string]bool
}

// HasCategory reports whether the given category column is available.
func (c ColumnSet) HasCategory(col string) bool {
	return c.Categories[col]
}

// Dataset is the full record set for one cache window. It is never mutated
// after load; filtering produces new slices.
type Dataset struct {
	Records  []Record
	Columns  ColumnSet
	Query    string
	LoadedAt time.Time
}

// Empty reports whether the dataset carries no records.
func (d *Dataset) Empty() bool {
	return d == nil || len(d.Records) == 0
}
