package codes

import (
	"errors"

	"github.com/gyeh/pccc/internal/model"
)

// Table is one immutable code list with its match mode.
type Table struct {
	mode   model.MatchMode
	codes  []string
	set    map[string]struct{}
	minLen int
	maxLen int
}

var emptyTable = &Table{mode: model.Exact}

func newTable(mode model.MatchMode, codes []string) (*Table, error) {
	t := &Table{
		mode:  mode,
		codes: make([]string, 0, len(codes)),
		set:   make(map[string]struct{}, len(codes)),
	}
	for _, c := range codes {
		if c == "" {
			return nil, errors.New("empty code")
		}
		if _, dup := t.set[c]; dup {
			continue
		}
		t.set[c] = struct{}{}
		t.codes = append(t.codes, c)
		if t.minLen == 0 || len(c) < t.minLen {
			t.minLen = len(c)
		}
		if len(c) > t.maxLen {
			t.maxLen = len(c)
		}
	}
	return t, nil
}

// Mode returns the table's match mode.
func (t *Table) Mode() model.MatchMode {
	return t.mode
}

// Len returns the number of distinct codes or stems.
func (t *Table) Len() int {
	return len(t.codes)
}

// Codes returns a copy of the codes in reference order.
func (t *Table) Codes() []string {
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// Match reports whether code belongs to the table under its match mode.
func (t *Table) Match(code string) bool {
	if t.mode == model.Prefix {
		return PrefixMatch(code, t)
	}
	return ExactMatch(code, t)
}

// MatchAny reports whether any of codes belongs to the table.
func (t *Table) MatchAny(codes []string) bool {
	if len(t.codes) == 0 {
		return false
	}
	for _, c := range codes {
		if t.Match(c) {
			return true
		}
	}
	return false
}

// ExactMatch is true iff code equals an entry of t byte for byte.
func ExactMatch(code string, t *Table) bool {
	_, ok := t.set[code]
	return ok
}

// PrefixMatch is true iff some entry of t is a leading substring of code.
// A code equal to a stem matches; a code shorter than every stem does not.
func PrefixMatch(code string, t *Table) bool {
	n := min(len(code), t.maxLen)
	for l := max(t.minLen, 1); l <= n; l++ {
		if _, ok := t.set[code[:l]]; ok {
			return true
		}
	}
	return false
}
