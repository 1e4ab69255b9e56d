package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gyeh/aihstats/internal/aggregate"
)

// parseMultiParam collects a filter given as repeated parameters,
// comma-separated values, or both.
func parseMultiParam(r *http.Request, name string) []string {
	params := []string{}
	for _, raw := range r.URL.Query()[name] {
		for _, value := range strings.Split(strings.Trim(raw, "{}"), ",") {
			if v := strings.TrimSpace(value); v != "" {
				params = append(params, v)
			}
		}
	}
	return params
}

func parseMultiInt(r *http.Request, name string) ([]int, error) {
	var out []int
	for _, v := range parseMultiParam(r, name) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q", name, v)
		}
		out = append(out, n)
	}
	return out, nil
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// parseSelection reads uf, municipio, ano, mes and faixa.
func parseSelection(r *http.Request) (aggregate.Selection, error) {
	years, err := parseMultiInt(r, "ano")
	if err != nil {
		return aggregate.Selection{}, err
	}
	months, err := parseMultiInt(r, "mes")
	if err != nil {
		return aggregate.Selection{}, err
	}
	return aggregate.Selection{
		States:             nonEmpty(parseMultiParam(r, "uf")),
		Municipalities:     nonEmpty(parseMultiParam(r, "municipio")),
		Years:              years,
		Months:             months,
		PopulationBrackets: nonEmpty(parseMultiParam(r, "faixa")),
	}, nil
}

func parseDimension(r *http.Request, def aggregate.Dimension) (aggregate.Dimension, error) {
	v := r.URL.Query().Get("dim")
	if v == "" {
		return def, nil
	}
	return aggregate.ParseDimension(v)
}

func parseMeasure(r *http.Request) (aggregate.Measure, error) {
	v := r.URL.Query().Get("measure")
	if v == "" {
		return aggregate.MeasureValue, nil
	}
	return aggregate.ParseMeasure(v)
}

func parseOp(r *http.Request) (aggregate.Op, error) {
	v := r.URL.Query().Get("op")
	if v == "" {
		return aggregate.OpSum, nil
	}
	return aggregate.ParseOp(v)
}

func parsePositive(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return n, nil
}

func parseBool(r *http.Request, name string, def bool) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", name, v)
	}
	return b, nil
}
