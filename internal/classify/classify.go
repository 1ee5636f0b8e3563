package classify

import (
	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/model"
)

// Evaluate reports whether a record falls in one category. Diagnosis codes
// are checked first; procedure codes are consulted only when no diagnosis
// matched and the category is not diagnosis-only.
func Evaluate(c model.Category, rec model.Record, ts *codes.TableSet) bool {
	if ts.Lookup(c, model.Diagnosis).MatchAny(rec.Dx) {
		return true
	}
	if c.DiagnosisOnly() {
		return false
	}
	return ts.Lookup(c, model.Procedure).MatchAny(rec.Pc)
}

// Classify evaluates all twelve categories for a record.
func Classify(rec model.Record, ts *codes.TableSet) model.Result {
	var flags [model.NumCategories]bool
	for _, c := range model.AllCategories {
		flags[c] = Evaluate(c, rec, ts)
	}
	return model.NewResult(flags)
}
