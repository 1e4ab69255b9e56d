// Package store loads the AIH record set from the relational source, joins
// it with reference data and memoizes the result for a fixed window.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/gyeh/aihstats/internal/model"
	"github.com/gyeh/aihstats/internal/normalize"
)

// ErrSourceUnavailable marks a failure to reach the database at all.
var ErrSourceUnavailable = errors.New("record source unavailable")

// SchemaError reports required columns the query result did not carry.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("query result missing required columns: %s", strings.Join(e.Missing, ", "))
}

// QueryError wraps a failure while running or reading the query.
type QueryError struct {
	Err error
}

func (e *QueryError) Error() string { return "query records: " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// Source yields the full record set for one cache window.
type Source interface {
	Load(ctx context.Context) (*model.Dataset, error)
}

// Querier is the subset of pgxpool.Pool the relational source needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSource runs a single query and maps the result columns by name.
type PGSource struct {
	db    Querier
	query string
	log   zerolog.Logger
}

// NewPGSource returns a Source reading query from db.
func NewPGSource(db Querier, query string, log zerolog.Logger) *PGSource {
	return &PGSource{db: db, query: query, log: log}
}

// Load executes the query and converts every row into a Record. Required
// columns missing from the result yield a *SchemaError; optional ones are
// reported through the dataset's ColumnSet.
func (s *PGSource) Load(ctx context.Context) (*model.Dataset, error) {
	start := time.Now()

	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	names := make([]string, len(rows.FieldDescriptions()))
	for i, fd := range rows.FieldDescriptions() {
		names[i] = strings.ToLower(fd.Name)
	}
	m, err := newRowMapper(names)
	if err != nil {
		return nil, err
	}

	ds := &model.Dataset{Columns: m.columns, Query: s.query}
	for rows.Next() {
		m.reset()
		if err := rows.Scan(m.dest...); err != nil {
			return nil, &QueryError{Err: fmt.Errorf("scan row %d: %w", len(ds.Records)+1, err)}
		}
		ds.Records = append(ds.Records, m.record())
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	ds.LoadedAt = time.Now()

	s.log.Info().
		Int("records", len(ds.Records)).
		Int("columns", len(names)).
		Dur("duration", time.Since(start)).
		Msg("records loaded")
	return ds, nil
}

func classify(err error) error {
	var ce *pgconn.ConnectError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	return &QueryError{Err: err}
}

// rowMapper holds one scan target per result column. Columns the record
// does not use scan into nil and are skipped.
type rowMapper struct {
	dest    []any
	columns model.ColumnSet

	state, municipality, code, region, bracket textCell
	year, month, quantity, population          intCell
	value                                      decimalCell
	latitude, longitude                        floatCell
	capital                                    boolCell
	categories                                 map[string]*decimalCell
}

func newRowMapper(names []string) (*rowMapper, error) {
	m := &rowMapper{
		dest:       make([]any, len(names)),
		categories: make(map[string]*decimalCell),
		columns:    model.ColumnSet{Categories: make(map[string]bool)},
	}
	seen := make(map[string]bool, len(names))
	for i, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		switch n {
		case model.ColState:
			m.dest[i] = &m.state
		case model.ColMunicipality:
			m.dest[i] = &m.municipality
		case model.ColMunicipalityCode:
			m.dest[i] = &m.code
		case model.ColRegion:
			m.dest[i] = &m.region
		case model.ColPopulationBracket:
			m.dest[i] = &m.bracket
		case model.ColYear:
			m.dest[i] = &m.year
		case model.ColMonth:
			m.dest[i] = &m.month
		case model.ColQuantity:
			m.dest[i] = &m.quantity
		case model.ColPopulation:
			m.dest[i] = &m.population
		case model.ColValue:
			m.dest[i] = &m.value
		case model.ColLatitude:
			m.dest[i] = &m.latitude
		case model.ColLongitude:
			m.dest[i] = &m.longitude
		case model.ColCapital:
			m.dest[i] = &m.capital
		default:
			if _, ok := model.CategoryByColumn(n); ok {
				c := &decimalCell{}
				m.categories[n] = c
				m.dest[i] = c
				m.columns.Categories[n] = true
			}
		}
	}

	var missing []string
	for _, req := range model.RequiredColumns {
		if !seen[req] {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	m.columns.Region = seen[model.ColRegion]
	m.columns.PopulationBracket = seen[model.ColPopulationBracket]
	m.columns.Geo = seen[model.ColLatitude] && seen[model.ColLongitude]
	m.columns.Population = seen[model.ColPopulation]
	m.columns.Capital = seen[model.ColCapital]
	return m, nil
}

func (m *rowMapper) reset() {
	m.state, m.municipality, m.code, m.region, m.bracket = textCell{}, textCell{}, textCell{}, textCell{}, textCell{}
	m.year, m.month, m.quantity, m.population = intCell{}, intCell{}, intCell{}, intCell{}
	m.value = decimalCell{}
	m.latitude, m.longitude = floatCell{}, floatCell{}
	m.capital = boolCell{}
	for _, c := range m.categories {
		*c = decimalCell{}
	}
}

// record builds a Record from the current scan. Null required values become
// zero values; the row is kept.
func (m *rowMapper) record() model.Record {
	r := model.Record{
		State:             normalize.Name(m.state.v),
		Municipality:      normalize.Name(m.municipality.v),
		MunicipalityCode:  strings.TrimSpace(m.code.v),
		Region:            normalize.Name(m.region.v),
		Year:              int(m.year.v),
		Month:             int(m.month.v),
		PopulationBracket: normalize.Name(m.bracket.v),
		Value:             decimal.Zero,
		Quantity:          m.quantity.v,
		Population:        m.population.ptr(),
		Capital:           m.capital.ptr(),
	}
	if code, ok := normalize.MunicipalityCode(r.MunicipalityCode); ok {
		r.MunicipalityCode = code
	}
	if v := m.value.ptr(); v != nil {
		r.Value = *v
	}
	if m.columns.Geo {
		r.Latitude, r.Longitude = m.latitude.ptr(), m.longitude.ptr()
		if r.Latitude == nil || r.Longitude == nil {
			r.Latitude, r.Longitude = nil, nil
		}
	}
	if len(m.categories) > 0 {
		r.Categories = make(map[string]decimal.Decimal, len(m.categories))
		for col, c := range m.categories {
			if v := c.ptr(); v != nil {
				r.Categories[col] = *v
			}
		}
	}
	return r
}
