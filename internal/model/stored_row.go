package model

import "github.com/google/uuid"

// StoredResult is the DB-ready representation of one classified row.
type StoredResult struct {
	RunID     uuid.UUID
	RowNumber int64
	SourceID  *string
	Result    Result
}

// StoredResultColumns returns the column list for COPY into ccc.results.
func StoredResultColumns() []string {
	return append([]string{"run_id", "row_number", "source_id"}, ResultColumns()...)
}

// CopyValues returns the row values in the same order as StoredResultColumns(),
// suitable for pgx CopyFromSource.
func (r *StoredResult) CopyValues() []any {
	vals := make([]any, 0, 3+NumCategories+1)
	vals = append(vals, r.RunID, r.RowNumber, r.SourceID)
	for _, f := range r.Result.Flags {
		vals = append(vals, f)
	}
	return append(vals, r.Result.Any)
}
