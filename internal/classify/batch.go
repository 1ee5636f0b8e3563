package classify

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/model"
)

// DefaultChunkSize is the number of contiguous rows handed to one worker.
const DefaultChunkSize = 4096

// CancelledError reports that a batch was cancelled through its context.
// No results are returned alongside it.
type CancelledError struct {
	Row int // first row that was not classified
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("classification cancelled at row %d: %s", e.Row, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// Options tunes batch evaluation.
type Options struct {
	Workers   int // <= 0 means runtime.NumCPU()
	ChunkSize int // <= 0 means DefaultChunkSize
}

// Engine classifies records against one table set. It holds no mutable
// state and may be shared by goroutines.
type Engine struct {
	tables    *codes.TableSet
	log       zerolog.Logger
	workers   int
	chunkSize int
}

// New builds the table set for version and returns an Engine. An unsupported
// version fails with *codes.ConfigError.
func New(version int, log zerolog.Logger, opts Options) (*Engine, error) {
	ts, err := codes.Build(version)
	if err != nil {
		return nil, err
	}
	return NewWithTables(ts, log, opts), nil
}

// NewWithTables returns an Engine over an already built table set.
func NewWithTables(ts *codes.TableSet, log zerolog.Logger, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Engine{tables: ts, log: log, workers: workers, chunkSize: chunk}
}

// Tables returns the engine's table set.
func (e *Engine) Tables() *codes.TableSet {
	return e.tables
}

// Version returns the ICD version the engine classifies.
func (e *Engine) Version() int {
	return e.tables.Version()
}

// Classify evaluates one record.
func (e *Engine) Classify(rec model.Record) model.Result {
	return Classify(rec, e.tables)
}

// Batch classifies records in contiguous chunks across up to Workers
// goroutines. Result i always corresponds to records[i]. The context is
// checked before every row; on cancellation Batch returns nil and a
// *CancelledError.
func (e *Engine) Batch(ctx context.Context, records []model.Record) ([]model.Result, error) {
	start := time.Now()
	out := make([]model.Result, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	stoppedAt := -1
	for lo := 0; lo < len(records); lo += e.chunkSize {
		if gctx.Err() != nil {
			stoppedAt = lo
			break
		}
		hi := min(lo+e.chunkSize, len(records))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := rowErr(ctx, gctx); err != nil {
					return &CancelledError{Row: i, Err: err}
				}
				out[i] = Classify(records[i], e.tables)
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil && stoppedAt >= 0 {
		err = &CancelledError{Row: stoppedAt, Err: rowErr(ctx, gctx)}
	}
	if err != nil {
		e.log.Warn().Err(err).Int("rows", len(records)).Msg("batch aborted")
		return nil, err
	}

	dur := time.Since(start)
	e.log.Debug().
		Int("rows", len(records)).
		Int("workers", e.workers).
		Int("chunk_size", e.chunkSize).
		Dur("duration", dur).
		Float64("rows_per_sec", float64(len(records))/dur.Seconds()).
		Msg("batch classified")

	return out, nil
}

// rowErr prefers the caller's cancellation over the group's, which is also
// cancelled when a sibling worker fails.
func rowErr(ctx, gctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return gctx.Err()
}

// ClassifyBatch builds the table set for version once and classifies
// records. An unsupported version fails before any row is processed.
func ClassifyBatch(ctx context.Context, log zerolog.Logger, records []model.Record, version int, opts Options) ([]model.Result, error) {
	e, err := New(version, log, opts)
	if err != nil {
		return nil, err
	}
	return e.Batch(ctx, records)
}
