package codes

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gyeh/pccc/internal/model"
)

//go:embed data/*.yaml
var dataFS embed.FS

// sources maps each supported ICD version to its embedded reference file.
var sources = map[int]string{
	9:  "data/icd9.yaml",
	10: "data/icd10.yaml",
}

// SupportedVersions returns the ICD versions Build accepts.
func SupportedVersions() []int {
	return []int{9, 10}
}

// ConfigError reports a request for an ICD version that has no code tables.
type ConfigError struct {
	Version int
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("unsupported ICD version %d: must be 9 or 10", e.Version)
}

type tableKey struct {
	category model.Category
	codeType model.CodeType
}

// TableSet is the immutable collection of code tables for one ICD version.
// It is safe for concurrent use once Build returns.
type TableSet struct {
	version int
	tables  map[tableKey]*Table
}

// TableInfo is the read-only inspection view of one table.
type TableInfo struct {
	Category model.Category  `yaml:"category" json:"category"`
	CodeType model.CodeType  `yaml:"code_type" json:"code_type"`
	Match    model.MatchMode `yaml:"match" json:"match"`
	Codes    []string        `yaml:"codes" json:"codes"`
}

// yamlFile is the on-disk reference data structure.
type yamlFile struct {
	Version int         `yaml:"version"`
	Tables  []TableInfo `yaml:"tables"`
}

// Build constructs the table set for an ICD version from the embedded
// reference data. Versions other than 9 and 10 fail with *ConfigError.
func Build(version int) (*TableSet, error) {
	path, ok := sources[version]
	if !ok {
		return nil, &ConfigError{Version: version}
	}
	data, err := dataFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read code tables %s: %w", path, err)
	}
	ts, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse code tables %s: %w", path, err)
	}
	if ts.version != version {
		return nil, fmt.Errorf("code tables %s declare version %d, want %d", path, ts.version, version)
	}
	return ts, nil
}

func parse(data []byte) (*TableSet, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, err
	}

	ts := &TableSet{
		version: yf.Version,
		tables:  make(map[tableKey]*Table, len(yf.Tables)),
	}
	for _, ti := range yf.Tables {
		k := tableKey{category: ti.Category, codeType: ti.CodeType}
		if _, dup := ts.tables[k]; dup {
			return nil, fmt.Errorf("duplicate table for %s/%s", ti.Category, ti.CodeType)
		}
		if ti.CodeType == model.Procedure && ti.Category.DiagnosisOnly() {
			return nil, fmt.Errorf("%s is diagnosis-only but has a procedure table", ti.Category)
		}
		t, err := newTable(ti.Match, ti.Codes)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", ti.Category, ti.CodeType, err)
		}
		ts.tables[k] = t
	}
	return ts, nil
}

// Version returns the ICD version the set was built for.
func (ts *TableSet) Version() int {
	return ts.version
}

// Lookup returns the table for a category and code type. Combinations with no
// codes, such as procedures for diagnosis-only categories, yield an empty table
// that matches nothing.
func (ts *TableSet) Lookup(c model.Category, ct model.CodeType) *Table {
	if t, ok := ts.tables[tableKey{category: c, codeType: ct}]; ok {
		return t
	}
	return emptyTable
}

// Tables returns every non-absent table in canonical order: category order,
// diagnosis before procedure. Code slices are copies.
func (ts *TableSet) Tables() []TableInfo {
	return ts.TablesFor(model.AllCategories[:]...)
}

// TablesFor is Tables restricted to the given categories. Output stays in
// canonical order whatever the argument order.
func (ts *TableSet) TablesFor(cats ...model.Category) []TableInfo {
	want := make(map[model.Category]bool, len(cats))
	for _, c := range cats {
		want[c] = true
	}
	out := make([]TableInfo, 0, len(ts.tables))
	for _, c := range model.AllCategories {
		if !want[c] {
			continue
		}
		for _, ct := range []model.CodeType{model.Diagnosis, model.Procedure} {
			t, ok := ts.tables[tableKey{category: c, codeType: ct}]
			if !ok {
				continue
			}
			out = append(out, TableInfo{
				Category: c,
				CodeType: ct,
				Match:    t.mode,
				Codes:    t.Codes(),
			})
		}
	}
	return out
}
