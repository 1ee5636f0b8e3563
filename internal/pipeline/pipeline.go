package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/classify"
	"github.com/gyeh/pccc/internal/config"
	"github.com/gyeh/pccc/internal/db"
	"github.com/gyeh/pccc/internal/model"
	"github.com/gyeh/pccc/internal/normalize"
	"github.com/gyeh/pccc/internal/recordio"
)

// DefaultReadBatch is the number of input rows classified per engine call.
const DefaultReadBatch = 16384

// PipelineError wraps an error with the phase where it occurred:
// open, read, classify, write or store.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// run carries the state shared by the producer and the main goroutine.
type run struct {
	log       zerolog.Logger
	engine    *classify.Engine
	reader    recordio.RowReader
	writer    recordio.ResultWriter // nil when not writing a file
	out       chan<- *model.StoredResult
	runID     uuid.UUID
	readBatch int
	summary   *model.RunSummary
}

// Run executes a classification run: open → classify/write → store.
// With a nil store, results are only written to cfg.OutputPath.
func Run(ctx context.Context, log zerolog.Logger, cfg *config.Config, store Store) (*model.RunSummary, error) {
	totalStart := time.Now()

	// Phase 1: open
	sha, err := normalize.FileHash(cfg.InputPath)
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
	if cfg.Normalize {
		reader = recordio.WithNormalizer(reader, normalize.Record)
	}

	summary := &model.RunSummary{
		InputPath:   cfg.InputPath,
		InputSHA256: sha,
		OutputPath:  cfg.OutputPath,
		Version:     cfg.Version,
	}
	log.Info().
		Str("input", cfg.InputPath).
		Str("sha256", sha).
		Int("icd_version", cfg.Version).
		Bool("normalize", cfg.Normalize).
		Msg("run opened")

	// Phase 2: register the run
	if store != nil && !cfg.Force {
		existing, found, err := store.LookupCompleteRun(ctx, sha, cfg.Version)
		if err != nil {
			return nil, &PipelineError{Phase: "store", Err: err}
		}
		if found {
			log.Info().
				Str("run_id", existing.String()).
				Msg("input already stored for this ICD version, skipping store (use --force to store again)")
			summary.RunID = existing.String()
			store = nil
		}
	}
	runID := uuid.New()
	if store != nil {
		if err := store.RegisterRun(ctx, runID, cfg.InputPath, sha, cfg.Version); err != nil {
			return nil, &PipelineError{Phase: "store", Err: err}
		}
		summary.RunID = runID.String()
	}

	var writer recordio.ResultWriter
	if cfg.OutputPath != "" {
		format, err := cfg.ResolvedOutputFormat()
		if err != nil {
			return nil, &PipelineError{Phase: "open", Err: err}
		}
		if writer, err = recordio.Create(cfg.OutputPath, format); err != nil {
			markFailed(ctx, log, store, runID)
			return nil, &PipelineError{Phase: "write", Err: err}
		}
	}

	// Phase 3: classify, write and COPY concurrently
	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ch chan *model.StoredResult
	readBatch := cfg.ReadBatch
	if readBatch <= 0 {
		readBatch = DefaultReadBatch
	}
	if store != nil {
		ch = make(chan *model.StoredResult, readBatch)
		if err := store.SetStatus(ctx, runID, StatusLoading, nil); err != nil {
			if writer != nil {
				writer.Close()
				os.Remove(cfg.OutputPath)
			}
			markFailed(ctx, log, store, runID)
			return nil, &PipelineError{Phase: "store", Err: err}
		}
	}

	r := &run{
		log:       log,
		engine:    engine,
		reader:    reader,
		writer:    writer,
		out:       ch,
		runID:     runID,
		readBatch: readBatch,
		summary:   summary,
	}
	errCh := make(chan error, 1)
	go func() {
		if ch != nil {
			defer close(ch)
		}
		errCh <- r.produce(pctx)
	}()

	var copyErr error
	if store != nil {
		storeStart := time.Now()
		summary.RowsStored, copyErr = store.CopyResults(pctx, db.NewChannelSource(pctx, ch))
		if copyErr != nil {
			cancel()
		}
		summary.DurationStore = time.Since(storeStart)
	}
	prodErr := <-errCh

	runErr := prodErr
	if copyErr != nil && (prodErr == nil || ctx.Err() == nil) {
		runErr = &PipelineError{Phase: "store", Err: copyErr}
	}
	if writer != nil {
		writeStart := time.Now()
		if err := writer.Close(); err != nil && runErr == nil {
			runErr = &PipelineError{Phase: "write", Err: err}
		}
		summary.DurationWrite += time.Since(writeStart)
	}
	if runErr != nil {
		if writer != nil {
			os.Remove(cfg.OutputPath)
		}
		markFailed(ctx, log, store, runID)
		return nil, runErr
	}

	// Phase 4: finalize
	if store != nil {
		rows := summary.RowsStored
		if err := store.SetStatus(ctx, runID, StatusComplete, &rows); err != nil {
			return nil, &PipelineError{Phase: "store", Err: err}
		}
	}

	summary.DurationTotal = time.Since(totalStart)
	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_classified", summary.RowsClassified).
		Int64("rows_stored", summary.RowsStored).
		Int64("ccc_flag", summary.CategoryCounts[model.AggregateColumn]).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("classification run complete")

	return summary, nil
}

// produce reads the input in batches, classifies each batch, writes the
// results and forwards them to the store channel.
func (r *run) produce(ctx context.Context) error {
	buf := make([]model.EncounterRow, r.readBatch)
	recs := make([]model.Record, 0, r.readBatch)
	ids := make([]string, 0, r.readBatch)
	var rowNum int64

	for {
		readStart := time.Now()
		n, readErr := r.reader.Read(buf)
		r.summary.DurationRead += time.Since(readStart)
		if readErr != nil && readErr != io.EOF {
			return &PipelineError{Phase: "read", Err: fmt.Errorf("at row %d: %w", rowNum+1, readErr)}
		}

		if n > 0 {
			recs, ids = recs[:0], ids[:0]
			for i := range n {
				recs = append(recs, buf[i].Record())
				ids = append(ids, buf[i].ID)
			}

			classifyStart := time.Now()
			results, err := r.engine.Batch(ctx, recs)
			r.summary.DurationClassify += time.Since(classifyStart)
			if err != nil {
				var ce *classify.CancelledError
				if errors.As(err, &ce) {
					ce.Row += int(rowNum)
				}
				return &PipelineError{Phase: "classify", Err: err}
			}
			r.summary.RowsRead += int64(n)
			r.summary.RowsClassified += int64(n)
			for _, res := range results {
				r.summary.Tally(res)
			}

			if r.writer != nil {
				writeStart := time.Now()
				if err := r.writer.Write(ids, results); err != nil {
					return &PipelineError{Phase: "write", Err: err}
				}
				r.summary.DurationWrite += time.Since(writeStart)
			}

			if r.out != nil {
				for i, res := range results {
					row := &model.StoredResult{
						RunID:     r.runID,
						RowNumber: rowNum + int64(i) + 1,
						SourceID:  nilIfEmpty(ids[i]),
						Result:    res,
					}
					select {
					case r.out <- row:
					case <-ctx.Done():
						return &PipelineError{Phase: "classify", Err: &classify.CancelledError{Row: int(rowNum) + i, Err: ctx.Err()}}
					}
				}
			}
			rowNum += int64(n)

			r.log.Debug().Int64("rows", rowNum).Msg("batch written")
		}

		if readErr == io.EOF {
			return nil
		}
	}
}

// markFailed records a failed run and removes its partial rows. Cleanup runs
// even when ctx is already cancelled.
func markFailed(ctx context.Context, log zerolog.Logger, store Store, runID uuid.UUID) {
	if store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := store.DeleteResults(ctx, runID); err != nil {
		log.Warn().Err(err).Str("run_id", runID.String()).Msg("delete partial results failed")
	}
	if err := store.SetStatus(ctx, runID, StatusFailed, nil); err != nil {
		log.Warn().Err(err).Str("run_id", runID.String()).Msg("mark run failed")
	}
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
