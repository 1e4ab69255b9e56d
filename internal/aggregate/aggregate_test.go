package aggregate_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
func f64(v float64) *float64 { return &v }
func i64(v int64) *int64 { return &v }

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// scenarioRecords is the DF/GO example: two Brasília months and one Goiânia month.
func scenarioRecords() []model.Record {
	return []model.Record{
		{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Year: 2022, Month: 1, Value: dec("100"), Quantity: 1},
		{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Year: 2022, Month: 2, Value: dec("200"), Quantity: 1},
		{State: "GO", Municipality: "Goiânia", MunicipalityCode: "520870", Year: 2022, Month: 1, Value: dec("50"), Quantity: 1},
	}
}

// mixedRecords spans states, regions, years and brackets for property checks.
func mixedRecords() []model.Record {
	return []model.Record{
		{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Region: "Centro-Oeste", Year: 2021, Month: 12, PopulationBracket: "acima de 500 mil", Value: dec("10.50"), Quantity: 3, Population: i64(2817068), Latitude: f64(-15.79), Longitude: f64(-47.88)},
		{State: "GO", Municipality: "Formosa", MunicipalityCode: "520800", Region: "Centro-Oeste", Year: 2022, Month: 3, PopulationBracket: "100 a 500 mil", Value: dec("7.25"), Quantity: 1, Population: i64(115901), Latitude: f64(-15.54), Longitude: f64(-47.33)},
		{State: "GO", Municipality: "Luziânia", MunicipalityCode: "521250", Region: "Centro-Oeste", Year: 2022, Month: 1, PopulationBracket: "100 a 500 mil", Value: dec("3.00"), Quantity: 2, Population: i64(209129)},
		{State: "MG", Municipality: "Unaí", MunicipalityCode: "317040", Region: "Sudeste", Year: 2023, Month: 6, PopulationBracket: "50 a 100 mil", Value: dec("1.75"), Quantity: 1, Population: i64(86619), Latitude: f64(-16.36), Longitude: f64(-46.90)},
		{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Region: "Centro-Oeste", Year: 2022, Month: 3, PopulationBracket: "acima de 500 mil", Value: dec("20.00"), Quantity: 4, Population: i64(2817068), Latitude: f64(-15.79), Longitude: f64(-47.88)},
	}
}

func sumValue(records []model.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Value)
	}
	return total
}

func TestApplyFilters_Scenario(t *testing.T) {
	out := aggregate.ApplyFilters(scenarioRecords(), aggregate.Selection{States: []string{"DF"}})
	require.Len(t, out, 2)
	assertDec(t, "300", sumValue(out))
}

func TestApplyFilters_Properties(t *testing.T) {
	records := mixedRecords()
	selections := []aggregate.Selection{
		{},
		{States: []string{"GO"}},
		{States: []string{"DF", "MG"}, Years: []int{2022, 2023}},
		{Municipalities: []string{"Brasília"}, Months: []int{3}},
		{PopulationBrackets: []string{"100 a 500 mil"}, Years: []int{2022}},
		{States: []string{"SP"}},
	}

	for _, sel := range selections {
		out := aggregate.ApplyFilters(records, sel)

		// Every retained record satisfies the selection and came from the input.
		for _, r := range out {
			assert.True(t, sel.Matches(&r))
			found := false
			for _, in := range records {
				if in.MunicipalityCode == r.MunicipalityCode && in.Year == r.Year && in.Month == r.Month && in.Value.Equal(r.Value) {
					found = true
				}
			}
			assert.True(t, found, "filtered record not in input: %+v", r)
		}

		// Nothing matching was dropped.
		want := 0
		for i := range records {
			if sel.Matches(&records[i]) {
				want++
			}
		}
		assert.Len(t, out, want)

		// Idempotent.
		again := aggregate.ApplyFilters(out, sel)
		assert.Equal(t, out, again)
	}
}

func TestApplyFilters_DoesNotMutateInput(t *testing.T) {
	records := mixedRecords()
	before := mixedRecords()
	out := aggregate.ApplyFilters(records, aggregate.Selection{States: []string{"GO"}})
	require.Len(t, out, 2)
	out[0].State = "XX"
	assert.Equal(t, before, records)
}

func TestApplyFilters_OrderIndependent(t *testing.T) {
	records := mixedRecords()
	all := aggregate.ApplyFilters(records, aggregate.Selection{States: []string{"DF", "GO"}, Years: []int{2022}})
	stepwise := aggregate.ApplyFilters(aggregate.ApplyFilters(records, aggregate.Selection{Years: []int{2022}}), aggregate.Selection{States: []string{"GO", "DF"}})
	assert.Equal(t, all, stepwise)
}

func TestAggregateByDimension_Scenario(t *testing.T) {
	filtered := aggregate.ApplyFilters(scenarioRecords(), aggregate.Selection{States: []string{"DF"}})
	got, err := aggregate.AggregateByDimension(filtered, aggregate.DimMunicipality, aggregate.MeasureValue, aggregate.OpSum)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Brasília", got[0].Label)
	assertDec(t, "300", got[0].Value)
}

func TestAggregateByDimension_ConservesMass(t *testing.T) {
	records := mixedRecords()
	for _, dim := range []aggregate.Dimension{aggregate.DimMunicipality, aggregate.DimRegion, aggregate.DimState, aggregate.DimPopulationBracket} {
		got, err := aggregate.AggregateByDimension(records, dim, aggregate.MeasureValue, aggregate.OpSum)
		require.NoError(t, err)
		total := decimal.Zero
		for _, e := range got {
			total = total.Add(e.Value)
		}
		assertDec(t, sumValue(records).String(), total)
	}
}

func TestAggregateByDimension_OrderingAndTies(t *testing.T) {
	records := []model.Record{
		{Municipality: "Planaltina", Value: dec("5")},
		{Municipality: "Cristalina", Value: dec("5")},
		{Municipality: "Alexânia", Value: dec("9")},
		{Municipality: "Águas Lindas", Value: dec("5")},
	}
	got, err := aggregate.AggregateByDimension(records, aggregate.DimMunicipality, aggregate.MeasureValue, aggregate.OpSum)
	require.NoError(t, err)

	labels := make([]string, len(got))
	for i, e := range got {
		labels[i] = e.Label
	}
	// Ties fall back to byte-wise label order.
	assert.Equal(t, []string{"Alexânia", "Cristalina", "Planaltina", "Águas Lindas"}, labels)
}

func TestAggregateByDimension_CountAndQuantity(t *testing.T) {
	records := mixedRecords()

	counts, err := aggregate.AggregateByDimension(records, aggregate.DimState, aggregate.MeasureValue, aggregate.OpCount)
	require.NoError(t, err)
	require.Len(t, counts, 3)
	assert.Equal(t, "DF", counts[0].Label)
	assertDec(t, "2", counts[0].Value)
	assert.Equal(t, "GO", counts[1].Label)
	assertDec(t, "2", counts[1].Value)

	qty, err := aggregate.AggregateByDimension(records, aggregate.DimRegion, aggregate.MeasureQuantity, aggregate.OpSum)
	require.NoError(t, err)
	require.Len(t, qty, 2)
	assert.Equal(t, "Centro-Oeste", qty[0].Label)
	assertDec(t, "10", qty[0].Value)
}

func TestAggregateByDimension_CategoryMeasure(t *testing.T) {
	records := []model.Record{
		{Municipality: "A", Value: dec("10"), Categories: map[string]decimal.Decimal{"vl_04": dec("4")}},
		{Municipality: "B", Value: dec("10"), Categories: map[string]decimal.Decimal{"vl_04": dec("6")}},
		{Municipality: "A", Value: dec("10")},
	}
	got, err := aggregate.AggregateByDimension(records, aggregate.DimMunicipality, aggregate.Measure("vl_04"), aggregate.OpSum)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Label)
	assertDec(t, "4", got[1].Value)
}

func TestAggregateByDimension_InvalidArguments(t *testing.T) {
	records := mixedRecords()

	_, err := aggregate.AggregateByDimension(records, aggregate.Dimension("hospital"), aggregate.MeasureValue, aggregate.OpSum)
	assert.True(t, errors.Is(err, aggregate.ErrUnknownDimension))

	_, err = aggregate.AggregateByDimension(records, aggregate.DimState, aggregate.Measure("vl_99"), aggregate.OpSum)
	assert.True(t, errors.Is(err, aggregate.ErrUnknownMeasure))

	_, err = aggregate.AggregateByDimension(records, aggregate.DimState, aggregate.MeasureValue, aggregate.Op("mean"))
	assert.True(t, errors.Is(err, aggregate.ErrUnknownOp))
}

func TestTopN(t *testing.T) {
	entries := []aggregate.Entry{{Label: "a", Value: dec("3")}, {Label: "b", Value: dec("2")}, {Label: "c", Value: dec("1")}}
	assert.Len(t, aggregate.TopN(entries, 2), 2)
	assert.Len(t, aggregate.TopN(entries, 0), 3)
	assert.Len(t, aggregate.TopN(entries, 15), 3)

	top := aggregate.TopN(entries, 1)
	top[0].Label = "z"
	assert.Equal(t, "a", entries[0].Label)
}

func TestPerCapita(t *testing.T) {
	records := []model.Record{
		{Municipality: "Brasília", Value: dec("1000"), Population: i64(100)},
		{Municipality: "Brasília", Value: dec("500"), Population: i64(999)}, // first-seen wins
		{Municipality: "Formosa", Value: dec("300"), Population: i64(10)},
		{Municipality: "Vila Boa", Value: dec("700"), Population: i64(0)},
		{Municipality: "Cabeceiras", Value: dec("50")},
	}
	got, err := aggregate.PerCapita(records, aggregate.DimMunicipality)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Formosa", got[0].Label)
	assertDec(t, "30", got[0].Value)
	assert.Equal(t, "Brasília", got[1].Label)
	assertDec(t, "15", got[1].Value)
}

func TestPerCapita_SkipsMissingBeforeFirstPopulation(t *testing.T) {
	records := []model.Record{
		{Municipality: "Cocalzinho", Value: dec("40")},
		{Municipality: "Cocalzinho", Value: dec("60"), Population: i64(20)},
	}
	got, err := aggregate.PerCapita(records, aggregate.DimMunicipality)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assertDec(t, "5", got[0].Value)
}

func TestPerCapita_ZeroPopulationExcluded(t *testing.T) {
	records := []model.Record{{Municipality: "Água Fria de Goiás", Value: dec("12345.67"), Population: i64(0)}}
	got, err := aggregate.PerCapita(records, aggregate.DimMunicipality)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPerCapita_StateSumsMunicipalityPopulations(t *testing.T) {
	records := []model.Record{
		{State: "GO", Municipality: "Formosa", MunicipalityCode: "520800", Value: dec("50"), Population: i64(500)},
		{State: "GO", Municipality: "Luziânia", MunicipalityCode: "521250", Value: dec("50"), Population: i64(500)},
		{State: "GO", Municipality: "Formosa", MunicipalityCode: "520800", Value: dec("20"), Population: i64(500)},
		{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Value: dec("300"), Population: i64(1000)},
	}
	got, err := aggregate.PerCapita(records, aggregate.DimState)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "DF", got[0].Label)
	assertDec(t, "0.3", got[0].Value)
	assert.Equal(t, "GO", got[1].Label)
	assertDec(t, "0.12", got[1].Value)
}

func TestPerCapita_YearCountsEachMunicipalityOnce(t *testing.T) {
	records := []model.Record{
		{Year: 2022, MunicipalityCode: "520800", Value: dec("50"), Population: i64(500)},
		{Year: 2022, MunicipalityCode: "520800", Value: dec("50"), Population: i64(500)},
		{Year: 2022, MunicipalityCode: "521250", Value: dec("50"), Population: i64(500)},
	}
	got, err := aggregate.PerCapita(records, aggregate.DimYear)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2022", got[0].Label)
	assertDec(t, "0.15", got[0].Value)
}

func TestTimeSeries_Scenario(t *testing.T) {
	got := aggregate.TimeSeries(scenarioRecords()[:2])
	require.Len(t, got, 2)
	assert.Equal(t, "2022-01", got[0].Key)
	assertDec(t, "100", got[0].Value)
	assert.Equal(t, "2022-02", got[1].Key)
	assertDec(t, "200", got[1].Value)
}

func TestTimeSeries_Chronological(t *testing.T) {
	got := aggregate.TimeSeries(mixedRecords())
	require.Len(t, got, 4)
	keys := make([]string, len(got))
	for i, p := range got {
		keys[i] = p.Key
	}
	assert.Equal(t, []string{"2021-12", "2022-01", "2022-03", "2023-06"}, keys)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		assert.True(t, prev.Year < cur.Year || (prev.Year == cur.Year && prev.Month < cur.Month))
	}
	// 2022-03 merges Formosa and Brasília.
	assertDec(t, "27.25", got[2].Value)
}

func TestEmptyInput(t *testing.T) {
	var none []model.Record

	assert.Empty(t, aggregate.ApplyFilters(none, aggregate.Selection{States: []string{"DF"}}))

	ranking, err := aggregate.AggregateByDimension(none, aggregate.DimMunicipality, aggregate.MeasureValue, aggregate.OpSum)
	require.NoError(t, err)
	assert.NotNil(t, ranking)
	assert.Empty(t, ranking)

	perCapita, err := aggregate.PerCapita(none, aggregate.DimMunicipality)
	require.NoError(t, err)
	assert.Empty(t, perCapita)

	assert.Empty(t, aggregate.TimeSeries(none))
	assert.Empty(t, aggregate.GeoPoints(none, aggregate.DefaultGeoOptions()))
	assert.Empty(t, aggregate.CategoryTotals(none, model.ProcedureGroups))

	_, ok := aggregate.PopulationRate(none)
	assert.False(t, ok)

	s := aggregate.Summarize(none)
	assert.Equal(t, 0, s.Records)
	assert.True(t, s.TotalValue.IsZero())
}

func TestPopulationRate_DeduplicatesByCode(t *testing.T) {
	records := []model.Record{
		{MunicipalityCode: "530010", Population: i64(1000)},
		{MunicipalityCode: "530010", Population: i64(1000)},
		{MunicipalityCode: "520800", Population: i64(1000)},
		{MunicipalityCode: "520800", Population: i64(1000)},
	}
	rate, ok := aggregate.PopulationRate(records)
	require.True(t, ok)
	assert.Equal(t, 4, rate.Events)
	assert.Equal(t, int64(2000), rate.Population)
	assertDec(t, "2", rate.PerThousand)
}

func TestPopulationRate_ZeroPopulation(t *testing.T) {
	rate, ok := aggregate.PopulationRate([]model.Record{{MunicipalityCode: "1", Population: i64(0)}})
	assert.False(t, ok)
	assert.Equal(t, 1, rate.Events)
}

func TestSummarize(t *testing.T) {
	s := aggregate.Summarize(mixedRecords())
	assertDec(t, "42.50", s.TotalValue)
	assert.Equal(t, int64(11), s.TotalQuantity)
	assert.Equal(t, 5, s.Records)
	assert.Equal(t, 2021, s.FirstYear)
	assert.Equal(t, 2023, s.LastYear)
}

func TestCategoryTotalsAndCoverage(t *testing.T) {
	records := []model.Record{
		{Value: dec("100"), Categories: map[string]decimal.Decimal{"vl_03": dec("60"), "vl_04": dec("30"), "vl_05": dec("0")}},
		{Value: dec("50"), Categories: map[string]decimal.Decimal{"vl_03": dec("10"), "vl_06": dec("25")}},
	}

	got := aggregate.CategoryTotals(records, model.ProcedureGroups)
	require.Len(t, got, 3)
	assert.Equal(t, "Clínicos", got[0].Label)
	assertDec(t, "70", got[0].Value)
	assert.Equal(t, "Cirúrgicos", got[1].Label)
	assert.Equal(t, "Medicamentos", got[2].Label)

	cov := aggregate.CategoryCoverage(records, model.ProcedureGroups)
	assertDec(t, "150", cov.Total)
	assertDec(t, "125", cov.Categorized)
	assertDec(t, "25", cov.Residual)
}

func TestPreview(t *testing.T) {
	records := mixedRecords()
	assert.Len(t, aggregate.Preview(records, 2), 2)
	assert.Len(t, aggregate.Preview(records, 100), 5)
	assert.Len(t, aggregate.Preview(nil, 100), 0)
}

func TestRequires(t *testing.T) {
	cols := model.ColumnSet{Region: true, Categories: map[string]bool{"vl_02": true}}

	assert.NoError(t, aggregate.Requires(cols, "ranking", model.ColRegion, model.ColValue, "vl_02"))

	err := aggregate.Requires(cols, "geo", model.ColLatitude, model.ColLongitude, "vl_0401")
	require.Error(t, err)
	assert.True(t, errors.Is(err, aggregate.ErrUnavailable))
	var ue *aggregate.UnavailableError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, []string{model.ColLatitude, model.ColLongitude, "vl_0401"}, ue.Missing)
}

func TestEmptyNotice(t *testing.T) {
	assert.Equal(t, aggregate.NoticeNoData, aggregate.EmptyNotice(0, 0))
	assert.Equal(t, aggregate.NoticeNoMatch, aggregate.EmptyNotice(10, 0))
	assert.Equal(t, "", aggregate.EmptyNotice(10, 3))
}
