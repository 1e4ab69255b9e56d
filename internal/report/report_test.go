package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/model"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func reportDataset() *model.Dataset {
	d := decimal.RequireFromString
	return &model.Dataset{
		Records: []model.Record{
			{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Year: 2022, Month: 1, Value: d("1234.50"), Quantity: 2,
				Population: i64(2817068), Latitude: f64(-15.79), Longitude: f64(-47.88),
				Categories: map[string]decimal.Decimal{"vl_03": d("1000")}},
			{State: "GO", Municipality: "Formosa", MunicipalityCode: "520800", Year: 2022, Month: 2, Value: d("85.75"), Quantity: 1,
				Population: i64(115901)},
		},
		Columns: model.ColumnSet{
			Geo:        true,
			Population: true,
			Categories: map[string]bool{"vl_03": true},
		},
	}
}

func render(t *testing.T, ds *model.Dataset, sel aggregate.Selection, view string) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, New(&buf, aggregate.DefaultSettings()).Render(ds, sel, view))
	return buf.String()
}

func TestFormatter(t *testing.T) {
	f := NewFormatter()
	assert.Equal(t, "R$ 85,75", f.Money(decimal.RequireFromString("85.75")))
	assert.Equal(t, "R$ 1.234,50", f.Money(decimal.RequireFromString("1234.5")))
	assert.Equal(t, "2.817.068", f.Int(2817068))
	assert.Equal(t, "01/2022", monthLabel(2022, 1))
}

func TestParseView(t *testing.T) {
	for _, v := range append([]string{ViewAll}, Views...) {
		got, err := ParseView(v)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	_, err := ParseView("pie")
	assert.True(t, errors.Is(err, ErrUnknownView))
}

func TestRender_EmptySelection(t *testing.T) {
	out := render(t, reportDataset(), aggregate.Selection{States: []string{"SP"}}, ViewAll)
	assert.Equal(t, aggregate.NoticeNoMatch+"\n", out)

	out = render(t, &model.Dataset{}, aggregate.Selection{}, ViewSummary)
	assert.Equal(t, aggregate.NoticeNoData+"\n", out)
}

func TestRender_Summary(t *testing.T) {
	out := render(t, reportDataset(), aggregate.Selection{}, ViewSummary)
	assert.Contains(t, out, "Resumo")
	assert.Contains(t, out, "R$ 1.320,25")
	assert.Contains(t, out, "2022 a 2022")
}

func TestRender_RankingFiltered(t *testing.T) {
	out := render(t, reportDataset(), aggregate.Selection{States: []string{"GO"}}, ViewRanking)
	assert.Contains(t, out, "Formosa")
	assert.NotContains(t, out, "Brasília")
	assert.Contains(t, out, "R$ 85,75")
}

func TestRender_AllReportsUnavailableViews(t *testing.T) {
	out := render(t, reportDataset(), aggregate.Selection{}, ViewAll)

	for _, title := range []string{
		"Resumo",
		"Top municípios por valor total",
		"Valor total por UF",
		"Valor per capita por município",
		"Evolução mensal",
		"Distribuição geográfica",
		"Valor por grupo de procedimento",
		"Cobertura dos grupos de procedimento",
		"Registros",
	} {
		assert.Contains(t, out, title)
	}
	// No region or surgery columns in the source.
	assert.Contains(t, out, "ranking: missing columns regiao_nome")
	assert.Contains(t, out, "surgeries: missing columns vl_0401")
	assert.Contains(t, out, "Taxa:")
	assert.True(t, strings.Index(out, "Resumo") < strings.Index(out, "Registros"))
}

func TestRender_GeoWithoutPoints(t *testing.T) {
	ds := reportDataset()
	out := render(t, ds, aggregate.Selection{States: []string{"GO"}}, ViewGeo)
	assert.Contains(t, out, aggregate.NoticeNoGeoData)
}

func TestRender_UnknownView(t *testing.T) {
	var buf bytes.Buffer
	err := New(&buf, aggregate.DefaultSettings()).Render(reportDataset(), aggregate.Selection{}, "pie")
	require.ErrorIs(t, err, ErrUnknownView)
	assert.Empty(t, buf.String())
}
