package model

import "fmt"

// Category is one of the twelve Complex Chronic Condition categories.
type Category int

const (
	Neuromusc Category = iota
	CVD
	Respiratory
	Renal
	GI
	HematoImmu
	Metabolic
	CongeniGenetic
	Malignancy
	Neonatal
	TechDep
	Transplant
)

// NumCategories is the number of CCC categories.
const NumCategories = 12

// AllCategories lists the categories in canonical output order.
var AllCategories = [NumCategories]Category{
	Neuromusc, CVD, Respiratory, Renal, GI, HematoImmu,
	Metabolic, CongeniGenetic, Malignancy, Neonatal, TechDep, Transplant,
}

var categoryNames = [NumCategories]string{
	"neuromusc", "cvd", "respiratory", "renal", "gi", "hemato_immu",
	"metabolic", "congeni_genetic", "malignancy", "neonatal", "tech_dep", "transplant",
}

// String returns the column name of the category, e.g. "hemato_immu".
func (c Category) String() string {
	if c < 0 || int(c) >= NumCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// DiagnosisOnly reports whether the category is flagged from diagnosis codes
// alone. Such categories have no procedure table in any version.
func (c Category) DiagnosisOnly() bool {
	return c == CongeniGenetic || c == Neonatal
}

// CategoryByName returns the Category for the given column name, or ok=false.
func CategoryByName(name string) (Category, bool) {
	for i, n := range categoryNames {
		if n == name {
			return Category(i), true
		}
	}
	return 0, false
}

// CodeType distinguishes diagnosis codes from procedure codes.
type CodeType int

const (
	Diagnosis CodeType = iota
	Procedure
)

func (t CodeType) String() string {
	switch t {
	case Diagnosis:
		return "dx"
	case Procedure:
		return "pc"
	}
	return fmt.Sprintf("CodeType(%d)", int(t))
}

// ParseCodeType accepts "dx"/"diagnosis" and "pc"/"procedure".
func ParseCodeType(s string) (CodeType, error) {
	switch s {
	case "dx", "diagnosis":
		return Diagnosis, nil
	case "pc", "procedure":
		return Procedure, nil
	}
	return 0, fmt.Errorf("unknown code type %q", s)
}

// MatchMode selects how a code is compared against a table.
type MatchMode int

const (
	// Exact requires full string equality with a table entry.
	Exact MatchMode = iota
	// Prefix matches when a table stem is a leading substring of the code.
	Prefix
)

func (m MatchMode) String() string {
	switch m {
	case Exact:
		return "exact"
	case Prefix:
		return "prefix"
	}
	return fmt.Sprintf("MatchMode(%d)", int(m))
}

// ParseMatchMode accepts "exact" and "prefix".
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "exact":
		return Exact, nil
	case "prefix":
		return Prefix, nil
	}
	return 0, fmt.Errorf("unknown match mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= NumCategories {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, ok := CategoryByName(string(b))
	if !ok {
		return fmt.Errorf("unknown category %q", b)
	}
	*c = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (t CodeType) MarshalText() ([]byte, error) {
	if t != Diagnosis && t != Procedure {
		return nil, fmt.Errorf("invalid code type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *CodeType) UnmarshalText(b []byte) error {
	v, err := ParseCodeType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m MatchMode) MarshalText() ([]byte, error) {
	if m != Exact && m != Prefix {
		return nil, fmt.Errorf("invalid match mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *MatchMode) UnmarshalText(b []byte) error {
	v, err := ParseMatchMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
