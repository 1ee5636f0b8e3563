package pipeline

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/config"
	"github.com/gyeh/pccc/internal/model"
	"github.com/gyeh/pccc/internal/normalize"
	"github.com/gyeh/pccc/internal/recordio"
)

// PlanReport is the outcome of a dry run over the head of an input file.
type PlanReport struct {
	InputPath   string
	InputSHA256 string
	SizeBytes   int64
	TotalRows   int64
	Sampled     int64
	Counts      map[string]int64 // flagged sampled rows per output column
}

// Projected scales the sampled count for col to the whole input.
func (p *PlanReport) Projected(col string) int64 {
	if p.Sampled == 0 {
		return 0
	}
	return p.Counts[col] * p.TotalRows / p.Sampled
}

// Plan validates the input, classifies up to sampleSize rows and counts the
// rest without writing anything.
func Plan(ctx context.Context, log zerolog.Logger, cfg *config.Config, sampleSize int) (*PlanReport, error) {
	start := time.Now()

	sha, err := normalize.FileHash(cfg.InputPath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	stat, err := os.Stat(cfg.InputPath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	engine, err := classify.New(cfg.Version, log, classify.Options{Workers: cfg.Workers, ChunkSize: cfg.ChunkSize})
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	reader, err := recordio.Open(cfg.InputPath)
	if err != nil {
		return nil, &PipelineError{Phase: "open", Err: err}
	}
	defer reader.Close()

	report := &PlanReport{
		InputPath:   cfg.InputPath,
		InputSHA256: sha,
		SizeBytes:   stat.Size(),
		TotalRows:   -1,
	}
	if pr, ok := reader.(*recordio.ParquetReader); ok {
		report.TotalRows = pr.NumRows()
	}
	if cfg.Normalize {
		reader = recordio.WithNormalizer(reader, normalize.Record)
	}

	var summary model.RunSummary
	buf := make([]model.EncounterRow, min(max(sampleSize, 1), 4096))
	recs := make([]model.Record, 0, len(buf))
	var seen int64

	for {
		n, readErr := reader.Read(buf)
		if readErr != nil && readErr != io.EOF {
			return nil, &PipelineError{Phase: "read", Err: readErr}
		}
		seen += int64(n)

		if take := min(n, sampleSize-int(report.Sampled)); take > 0 {
			recs = recs[:0]
			for i := range take {
				recs = append(recs, buf[i].Record())
			}
			results, err := engine.Batch(ctx, recs)
			if err != nil {
				return nil, &PipelineError{Phase: "classify", Err: err}
			}
			for _, r := range results {
				summary.Tally(r)
			}
			report.Sampled += int64(take)
		}

		if readErr == io.EOF {
			break
		}
		// Parquet knows its row count, so stop once the sample is full.
		if report.TotalRows >= 0 && int(report.Sampled) >= sampleSize {
			break
		}
	}
	if report.TotalRows < 0 {
		report.TotalRows = seen
	}
	report.Counts = summary.CategoryCounts
	if report.Counts == nil {
		report.Counts = map[string]int64{}
	}

	log.Info().
		Int64("sampled", report.Sampled).
		Int64("total_rows", report.TotalRows).
		Dur("duration", time.Since(start)).
		Msg("plan complete")
	return report, nil
}
