package model

import "time"

// RunSummary captures metrics from a single classification run.
type RunSummary struct {
	InputPath        string
	InputSHA256      string
	OutputPath       string
	RunID            string
	Version          int
	RowsRead         int64
	RowsClassified   int64
	RowsStored       int64
	CategoryCounts   map[string]int64 // per output column, including ccc_flag
	DurationRead     time.Duration
	DurationClassify time.Duration
	DurationWrite    time.Duration
	DurationStore    time.Duration
	DurationTotal    time.Duration
}

// Tally adds a Result to the per-column counts.
func (s *RunSummary) Tally(r Result) {
	if s.CategoryCounts == nil {
		s.CategoryCounts = make(map[string]int64, NumCategories+1)
	}
	for _, c := range AllCategories {
		if r.Flags[c] {
			s.CategoryCounts[c.String()]++
		}
	}
	if r.Any {
		s.CategoryCounts[AggregateColumn]++
	}
}
