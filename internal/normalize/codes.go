package normalize

import (
	"regexp"
	"strings"
)

var nonDigit = regexp.MustCompile(`[^0-9]`)

// MunicipalityCode reduces an IBGE municipality code to the 6-digit DATASUS
// form. The 7-digit IBGE code carries a trailing check digit which is
// dropped. Returns ok=false when the input does not hold 6 or 7 digits.
func MunicipalityCode(s string) (string, bool) {
	s = nonDigit.ReplaceAllString(strings.TrimSpace(s), "")
	switch len(s) {
	case 6:
		return s, true
	case 7:
		return s[:6], true
	}
	return "", false
}
