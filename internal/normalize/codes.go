package normalize

import (
	"regexp"
	"strings"

	"github.com/gyeh/pccc/internal/model"
)

var nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)

// Code trims whitespace, uppercases, and strips non-alphanumeric characters,
// so " 318.0 " becomes "3180". Returns "" if nothing is left.
func Code(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(s), "")
}

// Codes normalizes every entry and drops the ones that end up empty.
// The input slice is not modified.
func Codes(in []string) []string {
	if len(in) == 0 {
		return in
	}
	out := make([]string, 0, len(in))
	for _, c := range in {
		if n := Code(c); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Record returns a copy of rec with both code lists normalized.
func Record(rec model.Record) model.Record {
	return model.Record{Dx: Codes(rec.Dx), Pc: Codes(rec.Pc)}
}
