package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/store"
)

type mockProvider struct {
	DatasetFunc func(ctx context.Context) (*model.Dataset, error)
}

func (m *mockProvider) Dataset(ctx context.Context) (*model.Dataset, error) {
	return m.DatasetFunc(ctx)
}

func returning(ds *model.Dataset) *mockProvider {
	return &mockProvider{DatasetFunc: func(context.Context) (*model.Dataset, error) { return ds, nil }}
}

func failing(err error) *mockProvider {
	return &mockProvider{DatasetFunc: func(context.Context) (*model.Dataset, error) { return nil, err }}
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func testDataset() *model.Dataset {
	d := decimal.RequireFromString
	return &model.Dataset{
		Records: []model.Record{
			{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Year: 2022, Month: 1, Value: d("100"), Quantity: 1,
				Population: i64(1000), Latitude: f64(-15.79), Longitude: f64(-47.88),
				Categories: map[string]decimal.Decimal{"vl_03": d("60"), "vl_04": d("40")}},
			{State: "DF", Municipality: "Brasília", MunicipalityCode: "530010", Year: 2022, Month: 2, Value: d("200"), Quantity: 1,
				Population: i64(1000), Latitude: f64(-15.79), Longitude: f64(-47.88)},
			{State: "GO", Municipality: "Goiânia", MunicipalityCode: "520870", Year: 2023, Month: 1, Value: d("50"), Quantity: 1,
				Population: i64(500)},
		},
		Columns: model.ColumnSet{
			Geo:        true,
			Population: true,
			Categories: map[string]bool{"vl_03": true, "vl_04": true},
		},
	}
}

func newTestServer(p DatasetProvider) *Server {
	return New(zerolog.Nop(), p, aggregate.DefaultSettings())
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	var body map[string]json.RawMessage
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRanking_FilteredByState(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	rec, body := get(t, s, "/api/ranking?uf=DF&dim=state")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.False(t, decode[bool](t, body["empty"]))
	entries := decode[[]aggregate.Entry](t, body["data"])
	require.Len(t, entries, 1)
	assert.Equal(t, "DF", entries[0].Label)
	assert.True(t, decimal.NewFromInt(300).Equal(entries[0].Value))
}

func TestRanking_MultiValueFilters(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	for _, q := range []string{"uf=DF,GO", "uf=DF&uf=GO", "uf={DF,GO}"} {
		t.Run(q, func(t *testing.T) {
			_, body := get(t, s, "/api/ranking?dim=state&"+q)
			entries := decode[[]aggregate.Entry](t, body["data"])
			require.Len(t, entries, 2)
			assert.Equal(t, "DF", entries[0].Label)
			assert.Equal(t, "GO", entries[1].Label)
		})
	}
}

func TestView_EmptySelection(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	rec, body := get(t, s, "/api/summary?uf=SP")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[bool](t, body["empty"]))
	assert.Equal(t, aggregate.NoticeNoMatch, decode[string](t, body["notice"]))
	assert.Equal(t, "null", string(body["data"]))
}

func TestView_EmptySource(t *testing.T) {
	s := newTestServer(returning(&model.Dataset{}))
	_, body := get(t, s, "/api/timeseries")
	assert.True(t, decode[bool](t, body["empty"]))
	assert.Equal(t, aggregate.NoticeNoData, decode[string](t, body["notice"]))
}

func TestView_Unavailable(t *testing.T) {
	ds := testDataset()
	ds.Columns.Geo = false
	s := newTestServer(returning(ds))

	rec, body := get(t, s, "/api/geo")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[bool](t, body["empty"]))
	assert.Contains(t, decode[string](t, body["notice"]), "latitude")
}

func TestBadParameters(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	for _, target := range []string{
		"/api/summary?ano=abc",
		"/api/summary?mes=1,x",
		"/api/ranking?dim=payer",
		"/api/ranking?measure=vl_99",
		"/api/ranking?op=avg",
		"/api/ranking?n=0",
		"/api/geo?grouped=maybe",
		"/api/records?limit=-1",
	} {
		t.Run(target, func(t *testing.T) {
			rec, body := get(t, s, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[string](t, body["error"]))
		})
	}
}

func TestBadParameters_BeforeFiltering(t *testing.T) {
	for _, target := range []string{
		"/api/ranking?uf=XX&dim=bogus",
		"/api/ranking?uf=XX&n=0",
		"/api/per-capita?ano=1900&dim=payer",
		"/api/heatmap?uf=XX&grouped=maybe",
		"/api/records?uf=XX&limit=x",
	} {
		t.Run(target, func(t *testing.T) {
			rec, body := get(t, newTestServer(returning(testDataset())), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[string](t, body["error"]))

			rec, _ = get(t, newTestServer(returning(&model.Dataset{})), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			rec, _ = get(t, newTestServer(failing(store.ErrSourceUnavailable)), target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unavailable", fmt.Errorf("%w: dial", store.ErrSourceUnavailable), http.StatusServiceUnavailable},
		{"query", &store.QueryError{Err: errors.New("syntax")}, http.StatusBadGateway},
		{"schema", &store.SchemaError{Missing: []string{"vl_total"}}, http.StatusBadGateway},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(failing(tt.err))
			rec, _ := get(t, s, "/api/summary")
			assert.Equal(t, tt.want, rec.Code)
			rec, _ = get(t, s, "/api/options")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestOptions_Cascade(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	_, body := get(t, s, "/api/options?uf=GO")
	opts := decode[aggregate.Options](t, body["data"])
	assert.Equal(t, []string{"DF", "GO"}, opts.States)
	assert.Equal(t, []string{"Goiânia"}, opts.Municipalities)
	assert.Equal(t, []int{2023}, opts.Years)
}

func TestPerCapitaAndRate(t *testing.T) {
	s := newTestServer(returning(testDataset()))

	_, body := get(t, s, "/api/per-capita?dim=state")
	entries := decode[[]aggregate.Entry](t, body["data"])
	require.Len(t, entries, 2)
	assert.Equal(t, "DF", entries[0].Label)
	assert.True(t, decimal.RequireFromString("0.3").Equal(entries[0].Value))

	_, body = get(t, s, "/api/population-rate")
	rate := decode[aggregate.Rate](t, body["data"])
	assert.Equal(t, 3, rate.Events)
	assert.Equal(t, int64(1500), rate.Population)
	assert.True(t, decimal.NewFromInt(2).Equal(rate.PerThousand))
}

func TestGeoAndHeatmap(t *testing.T) {
	s := newTestServer(returning(testDataset()))

	_, body := get(t, s, "/api/geo")
	resp := decode[geoResponse](t, body["data"])
	require.Len(t, resp.Points, 1)
	assert.Equal(t, 25.0, resp.Points[0].Radius)
	require.NotNil(t, resp.Viewport)
	assert.Equal(t, 9, resp.Viewport.Zoom)

	_, body = get(t, s, "/api/heatmap?grouped=false")
	heat := decode[[][3]float64](t, body["data"])
	assert.Len(t, heat, 2)
}

func TestGeo_NoLocatedRecords(t *testing.T) {
	s := newTestServer(returning(testDataset()))

	rec, body := get(t, s, "/api/geo?uf=GO")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[bool](t, body["empty"]))
	assert.Equal(t, aggregate.NoticeNoGeoData, decode[string](t, body["notice"]))
	resp := decode[geoResponse](t, body["data"])
	assert.Empty(t, resp.Points)
	assert.Nil(t, resp.Viewport)

	_, body = get(t, s, "/api/heatmap?uf=GO")
	assert.Equal(t, aggregate.NoticeNoGeoData, decode[string](t, body["notice"]))
	assert.Empty(t, decode[[][3]float64](t, body["data"]))

	_, body = get(t, s, "/api/geo?uf=DF")
	_, hasNotice := body["notice"]
	assert.False(t, hasNotice)
}

func TestCategoriesAndCoverage(t *testing.T) {
	s := newTestServer(returning(testDataset()))

	_, body := get(t, s, "/api/procedures")
	entries := decode[[]aggregate.Entry](t, body["data"])
	require.Len(t, entries, 2)
	assert.Equal(t, "Clínicos", entries[0].Label)

	_, body = get(t, s, "/api/surgeries")
	assert.Contains(t, decode[string](t, body["notice"]), "vl_0401")

	_, body = get(t, s, "/api/coverage")
	cov := decode[aggregate.Coverage](t, body["data"])
	assert.True(t, decimal.NewFromInt(250).Equal(cov.Residual))
}

func TestRecordsAndTimeSeries(t *testing.T) {
	s := newTestServer(returning(testDataset()))

	_, body := get(t, s, "/api/records?limit=2")
	rows := decode[[]recordJSON](t, body["data"])
	require.Len(t, rows, 2)
	assert.Equal(t, "100.00", rows[0].Value)
	assert.Equal(t, "60.00", rows[0].Categories["vl_03"])

	_, body = get(t, s, "/api/timeseries?ano=2022")
	series := decode[[]aggregate.SeriesPoint](t, body["data"])
	require.Len(t, series, 2)
	assert.Equal(t, "2022-01", series[0].Key)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(returning(testDataset()))
	rec, _ := get(t, s, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	get(t, s, "/api/summary")
	rec, _ = get(t, s, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "aihstats_http_requests_total")
}
