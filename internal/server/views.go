package server

import (
	"net/http"

	"github.com/gyeh/aihstats/internal/aggregate"
	"github.com/gyeh/aihstats/internal/model"
)

func (s *Server) summary(*http.Request) (computeFunc, error) {
	return func(_ model.ColumnSet, records []model.Record) (any, error) {
		return aggregate.Summarize(records), nil
	}, nil
}

func (s *Server) ranking(r *http.Request) (computeFunc, error) {
	dim, err := parseDimension(r, aggregate.DimMunicipality)
	if err != nil {
		return nil, err
	}
	measure, err := parseMeasure(r)
	if err != nil {
		return nil, err
	}
	op, err := parseOp(r)
	if err != nil {
		return nil, err
	}
	n, err := parsePositive(r, "n", s.settings.TopN)
	if err != nil {
		return nil, err
	}
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		return aggregate.Ranking(cols, records, dim, measure, op, n)
	}, nil
}

func (s *Server) perCapita(r *http.Request) (computeFunc, error) {
	dim, err := parseDimension(r, aggregate.DimMunicipality)
	if err != nil {
		return nil, err
	}
	n, err := parsePositive(r, "n", s.settings.TopN)
	if err != nil {
		return nil, err
	}
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		return aggregate.PerCapitaRanking(cols, records, dim, n)
	}, nil
}

func (s *Server) timeSeries(*http.Request) (computeFunc, error) {
	return func(_ model.ColumnSet, records []model.Record) (any, error) {
		return aggregate.TimeSeries(records), nil
	}, nil
}

type geoResponse struct {
	Points   []aggregate.GeoPoint `json:"points"`
	Viewport *aggregate.Viewport  `json:"viewport,omitempty"`
}

func (s *Server) geoOptions(r *http.Request) (aggregate.GeoOptions, error) {
	opts := s.settings.Geo
	grouped, err := parseBool(r, "grouped", opts.GroupByMunicipality)
	if err != nil {
		return opts, err
	}
	opts.GroupByMunicipality = grouped
	return opts, nil
}

func (s *Server) geo(r *http.Request) (computeFunc, error) {
	opts, err := s.geoOptions(r)
	if err != nil {
		return nil, err
	}
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		points, err := aggregate.Geo(cols, records, opts)
		if err != nil {
			return nil, err
		}
		resp := geoResponse{Points: points}
		if len(points) == 0 {
			return noticed{data: resp, notice: aggregate.NoticeNoGeoData}, nil
		}
		if vp, ok := aggregate.RecordViewport(records); ok {
			resp.Viewport = &vp
		}
		return resp, nil
	}, nil
}

func (s *Server) heatMap(r *http.Request) (computeFunc, error) {
	opts, err := s.geoOptions(r)
	if err != nil {
		return nil, err
	}
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		points, err := aggregate.Geo(cols, records, opts)
		if err != nil {
			return nil, err
		}
		heat := aggregate.HeatMap(points)
		if len(heat) == 0 {
			return noticed{data: heat, notice: aggregate.NoticeNoGeoData}, nil
		}
		return heat, nil
	}, nil
}

func (s *Server) populationRate(*http.Request) (computeFunc, error) {
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		rate, ok, err := aggregate.PopulationRateView(cols, records)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &aggregate.UnavailableError{View: "population-rate", Missing: []string{model.ColPopulation}}
		}
		return rate, nil
	}, nil
}

func (s *Server) categories(view string, cats []model.Category) viewFunc {
	return func(*http.Request) (computeFunc, error) {
		return func(cols model.ColumnSet, records []model.Record) (any, error) {
			return aggregate.Categories(cols, records, view, cats)
		}, nil
	}
}

func (s *Server) coverage(*http.Request) (computeFunc, error) {
	return func(cols model.ColumnSet, records []model.Record) (any, error) {
		return aggregate.CoverageView(cols, records, s.settings.Procedures)
	}, nil
}

// recordJSON is the wire shape of a preview row.
type recordJSON struct {
	State             string            `json:"uf_nome"`
	Municipality      string            `json:"nome_municipio"`
	MunicipalityCode  string            `json:"cod_municipio"`
	Region            string            `json:"regiao_nome,omitempty"`
	Year              int               `json:"ano_aih"`
	Month             int               `json:"mes_aih"`
	PopulationBracket string            `json:"faixa_populacional,omitempty"`
	Value             string            `json:"vl_total"`
	Quantity          int64             `json:"qtd_total"`
	Categories        map[string]string `json:"categorias,omitempty"`
	Latitude          *float64          `json:"latitude,omitempty"`
	Longitude         *float64          `json:"longitude,omitempty"`
	Population        *int64            `json:"numero_habitantes,omitempty"`
	Capital           *bool             `json:"capital,omitempty"`
}

func toRecordJSON(rec *model.Record) recordJSON {
	out := recordJSON{
		State:             rec.State,
		Municipality:      rec.Municipality,
		MunicipalityCode:  rec.MunicipalityCode,
		Region:            rec.Region,
		Year:              rec.Year,
		Month:             rec.Month,
		PopulationBracket: rec.PopulationBracket,
		Value:             rec.Value.StringFixed(2),
		Quantity:          rec.Quantity,
		Latitude:          rec.Latitude,
		Longitude:         rec.Longitude,
		Population:        rec.Population,
		Capital:           rec.Capital,
	}
	if len(rec.Categories) > 0 {
		out.Categories = make(map[string]string, len(rec.Categories))
		for col, v := range rec.Categories {
			out.Categories[col] = v.StringFixed(2)
		}
	}
	return out
}

func (s *Server) records(r *http.Request) (computeFunc, error) {
	limit, err := parsePositive(r, "limit", s.settings.PreviewLimit)
	if err != nil {
		return nil, err
	}
	return func(_ model.ColumnSet, records []model.Record) (any, error) {
		preview := aggregate.Preview(records, limit)
		out := make([]recordJSON, len(preview))
		for i := range preview {
			out[i] = toRecordJSON(&preview[i])
		}
		return out, nil
	}, nil
}
