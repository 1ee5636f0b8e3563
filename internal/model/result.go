package model

// Record is one encounter's diagnosis and procedure codes.
type Record struct {
	Dx []string `json:"dx"`
	Pc []string `json:"pc"`
}

// AggregateColumn is the name of the "any category present" column.
const AggregateColumn = "ccc_flag"

// Result holds the twelve category flags for one record plus the aggregate.
type Result struct {
	Flags [NumCategories]bool
	Any   bool
}

// NewResult builds a Result from category flags, deriving Any.
func NewResult(flags [NumCategories]bool) Result {
	r := Result{Flags: flags}
	for _, f := range flags {
		if f {
			r.Any = true
			break
		}
	}
	return r
}

// Has reports the flag for a single category.
func (r Result) Has(c Category) bool {
	return r.Flags[c]
}

// Values returns the 13 output columns as 0/1 integers in ResultColumns order.
func (r Result) Values() []int {
	out := make([]int, NumCategories+1)
	for i, f := range r.Flags {
		out[i] = b2i(f)
	}
	out[NumCategories] = b2i(r.Any)
	return out
}

// ResultColumns returns the output column names: the twelve categories in
// canonical order followed by ccc_flag.
func ResultColumns() []string {
	cols := make([]string, 0, NumCategories+1)
	for _, c := range AllCategories {
		cols = append(cols, c.String())
	}
	return append(cols, AggregateColumn)
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
