package aggregate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gyeh/aihstats/internal/model"
)

var (
	// ErrUnknownDimension, ErrUnknownMeasure and ErrUnknownOp signal a caller
	// asking for something the record schema does not define.
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownMeasure   = errors.New("unknown measure")
	ErrUnknownOp        = errors.New("unknown aggregation op")

	// ErrUnavailable marks a view whose optional source columns are missing.
	ErrUnavailable = errors.New("view unavailable")
)

// UnavailableError names the view and the optional columns it could not find.
type UnavailableError struct {
	View    string
	Missing []string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: missing columns %s", e.View, strings.Join(e.Missing, ", "))
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Dimension is a record attribute records can be grouped by.
type Dimension string

const (
	DimState             Dimension = "state"
	DimMunicipality      Dimension = "municipality"
	DimRegion            Dimension = "region"
	DimYear              Dimension = "year"
	DimMonth             Dimension = "month"
	DimPopulationBracket Dimension = "population_bracket"
)

// ParseDimension validates a dimension name.
func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(s); d {
	case DimState, DimMunicipality, DimRegion, DimYear, DimMonth, DimPopulationBracket:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDimension, s)
}

func (d Dimension) label(r *model.Record) string {
	switch d {
	case DimState:
		return r.State
	case DimMunicipality:
		return r.Municipality
	case DimRegion:
		return r.Region
	case DimYear:
		return strconv.Itoa(r.Year)
	case DimMonth:
		return strconv.Itoa(r.Month)
	case DimPopulationBracket:
		return r.PopulationBracket
	}
	return ""
}

// Column returns the source column backing the dimension.
func (d Dimension) Column() string {
	switch d {
	case DimState:
		return model.ColState
	case DimMunicipality:
		return model.ColMunicipality
	case DimRegion:
		return model.ColRegion
	case DimYear:
		return model.ColYear
	case DimMonth:
		return model.ColMonth
	case DimPopulationBracket:
		return model.ColPopulationBracket
	}
	return ""
}

// Measure selects the numeric attribute to aggregate: total value, total
// quantity, or any category column (vl_02, vl_0401, ...).
type Measure string

const (
	MeasureValue    Measure = "value"
	MeasureQuantity Measure = "quantity"
)

// ParseMeasure validates a measure name.
func ParseMeasure(s string) (Measure, error) {
	m := Measure(s)
	switch m {
	case MeasureValue, MeasureQuantity:
		return m, nil
	}
	if _, ok := model.CategoryByColumn(s); ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeasure, s)
}

// Column returns the source column backing the measure.
func (m Measure) Column() string {
	switch m {
	case MeasureValue:
		return model.ColValue
	case MeasureQuantity:
		return model.ColQuantity
	}
	return string(m)
}

func (m Measure) of(r *model.Record) decimal.Decimal {
	switch m {
	case MeasureValue:
		return r.Value
	case MeasureQuantity:
		return decimal.NewFromInt(r.Quantity)
	}
	return r.CategoryValue(string(m))
}

// Op is the per-group aggregation.
type Op string

const (
	OpSum   Op = "sum"
	OpCount Op = "count"
)

// ParseOp validates an op name.
func ParseOp(s string) (Op, error) {
	switch o := Op(s); o {
	case OpSum, OpCount:
		return o, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownOp, s)
}

// Requires returns an *UnavailableError when any of the named optional
// columns is absent from cols. Required columns are always present.
func Requires(cols model.ColumnSet, view string, columns ...string) error {
	var missing []string
	for _, c := range columns {
		if !hasColumn(cols, c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return &UnavailableError{View: view, Missing: missing}
	}
	return nil
}

func hasColumn(cols model.ColumnSet, c string) bool {
	switch c {
	case model.ColRegion:
		return cols.Region
	case model.ColPopulationBracket:
		return cols.PopulationBracket
	case model.ColLatitude, model.ColLongitude:
		return cols.Geo
	case model.ColPopulation:
		return cols.Population
	case model.ColCapital:
		return cols.Capital
	}
	for _, req := range model.RequiredColumns {
		if req == c {
			return true
		}
	}
	return cols.HasCategory(c)
}
