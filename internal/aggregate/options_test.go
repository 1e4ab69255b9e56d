package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gyeh/aihstats/internal/aggregate"
)

func TestAvailableOptions_Unfiltered(t *testing.T) {
	opts := aggregate.AvailableOptions(mixedRecords(), aggregate.Selection{})
	assert.Equal(t, []string{"DF", "GO", "MG"}, opts.States)
	assert.Equal(t, []string{"Brasília", "Formosa", "Luziânia", "Unaí"}, opts.Municipalities)
	assert.Equal(t, []int{2023, 2022, 2021}, opts.Years)
	assert.Equal(t, []int{1, 3, 6, 12}, opts.Months)
	assert.Equal(t, []string{"100 a 500 mil", "50 a 100 mil", "acima de 500 mil"}, opts.PopulationBrackets)
}

func TestAvailableOptions_Cascades(t *testing.T) {
	opts := aggregate.AvailableOptions(mixedRecords(), aggregate.Selection{States: []string{"GO"}, Years: []int{2022}, Months: []int{3}})

	// States are never narrowed by their own selection.
	assert.Equal(t, []string{"DF", "GO", "MG"}, opts.States)
	assert.Equal(t, []string{"Formosa", "Luziânia"}, opts.Municipalities)
	assert.Equal(t, []int{2022}, opts.Years)
	assert.Equal(t, []int{1, 3}, opts.Months)
	assert.Equal(t, []string{"100 a 500 mil"}, opts.PopulationBrackets)
}

func TestAvailableOptions_Empty(t *testing.T) {
	opts := aggregate.AvailableOptions(nil, aggregate.Selection{States: []string{"DF"}})
	assert.Empty(t, opts.States)
	assert.Empty(t, opts.Years)
	assert.NotNil(t, opts.Municipalities)
}
