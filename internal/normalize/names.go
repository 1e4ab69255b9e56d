package normalize

import (
	"regexp"
	"strings"
)

var multiSpace = regexp.MustCompile(`\s+`)

// Name trims the input and collapses internal whitespace. Case and accents
// are preserved; they are part of the display label.
func Name(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

// OptName is Name for optional columns. Returns nil if the input is nil or
// the result is empty.
func OptName(v *string) *string {
	if v == nil {
		return nil
	}
	s := Name(*v)
	if s == "" {
		return nil
	}
	return &s
}
