package normalize

import (
	"strings"
	"time"
)

// Competence layouts seen in AIH extracts. AAAAMM is the DATASUS default.
var competenceFormats = []string{
	"200601",
	"2006-01",
	"2006/01",
	"01/2006",
	"2006-01-02",
}

// ParseCompetence parses a billing competence into year and month.
// Returns ok=false if the input is empty or unparseable.
func ParseCompetence(s string) (year, month int32, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	for _, f := range competenceFormats {
		if t, err := time.Parse(f, s); err == nil {
			return int32(t.Year()), int32(t.Month()), true
		}
	}
	return 0, 0, false
}
