package aggregate

import (
	"github.com/gyeh/aihstats/internal/model"
)

// Selection holds the chosen values per filter dimension. An empty slice
// leaves that dimension unrestricted. Dimensions combine with AND, values
// within a dimension with OR.
type Selection struct {
	States             []string `json:"states,omitempty"`
	Municipalities     []string `json:"municipalities,omitempty"`
	Years              []int    `json:"years,omitempty"`
	Months             []int    `json:"months,omitempty"`
	PopulationBrackets []string `json:"population_brackets,omitempty"`
}

// IsEmpty reports whether no dimension is restricted.
func (s Selection) IsEmpty() bool {
	return len(s.States) == 0 && len(s.Municipalities) == 0 && len(s.Years) == 0 &&
		len(s.Months) == 0 && len(s.PopulationBrackets) == 0
}

// matcher is a Selection compiled into set lookups. A nil set means unrestricted.
type matcher struct {
	states         map[string]struct{}
	municipalities map[string]struct{}
	years          map[int]struct{}
	months         map[int]struct{}
	brackets       map[string]struct{}
}

func compile(s Selection) matcher {
	return matcher{
		states:         setOf(s.States),
		municipalities: setOf(s.Municipalities),
		years:          setOf(s.Years),
		months:         setOf(s.Months),
		brackets:       setOf(s.PopulationBrackets),
	}
}

func setOf[T comparable](vals []T) map[T]struct{} {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[T]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func member[T comparable](set map[T]struct{}, v T) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}

func (m matcher) match(r *model.Record) bool {
	return member(m.states, r.State) &&
		member(m.municipalities, r.Municipality) &&
		member(m.years, r.Year) &&
		member(m.months, r.Month) &&
		member(m.brackets, r.PopulationBracket)
}

// Matches reports whether a record satisfies every restricted dimension.
func (s Selection) Matches(r *model.Record) bool {
	return compile(s).match(r)
}

// ApplyFilters returns the records satisfying the selection, in input order.
// The input slice is never modified; the result is always a fresh slice.
func ApplyFilters(records []model.Record, sel Selection) []model.Record {
	m := compile(sel)
	out := make([]model.Record, 0, len(records))
	for i := range records {
		if m.match(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
