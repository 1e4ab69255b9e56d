package parquetread

import (
	"fmt"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/aihstats/internal/model"
)

// ValidateSchema checks that the Parquet schema carries the identifying and
// measure columns, and a billing period either as ano_aih + mes_aih or as
// competencia.
func ValidateSchema(schema *parquet.Schema) error {
	columns := Columns(schema)

	required := []string{
		model.ColState,
		model.ColMunicipality,
		model.ColMunicipalityCode,
		model.ColValue,
		model.ColQuantity,
	}
	var missing []string
	for _, col := range required {
		if !columns[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	if !(columns[model.ColYear] && columns[model.ColMonth]) && !columns["competencia"] {
		return fmt.Errorf("no billing period; need %s and %s, or competencia",
			model.ColYear, model.ColMonth)
	}
	return nil
}

// Columns returns the lowercased top-level column names of a schema.
func Columns(schema *parquet.Schema) map[string]bool {
	columns := make(map[string]bool)
	for _, field := range schema.Fields() {
		columns[strings.ToLower(field.Name())] = true
	}
	return columns
}

// OptionalColumns lists which optional AIH columns a schema exposes, in the
// same shape the relational source reports.
func OptionalColumns(schema *parquet.Schema) model.ColumnSet {
	columns := Columns(schema)
	cs := model.ColumnSet{
		Region:            columns[model.ColRegion],
		PopulationBracket: columns[model.ColPopulationBracket],
		Geo:               columns[model.ColLatitude] && columns[model.ColLongitude],
		Population:        columns[model.ColPopulation],
		Categories:        make(map[string]bool),
	}
	for _, c := range model.AllCategories() {
		if columns[c.Column] {
			cs.Categories[c.Column] = true
		}
	}
	return cs
}
