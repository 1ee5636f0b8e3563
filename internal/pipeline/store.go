package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/model"
	embedsql "github.com/gyeh/pccc/internal/sql"
)

// Run statuses recorded in ccc.runs.
const (
	StatusPending  = "pending"
	StatusLoading  = "loading"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Store persists classification runs and their result rows.
type Store interface {
	// LookupCompleteRun finds a completed run of the same input and ICD version.
	LookupCompleteRun(ctx context.Context, sha string, version int) (uuid.UUID, bool, error)
	RegisterRun(ctx context.Context, runID uuid.UUID, inputPath, sha string, version int) error
	// SetStatus moves a run to status, recording rows when non-nil.
	SetStatus(ctx context.Context, runID uuid.UUID, status string, rows *int64) error
	CopyResults(ctx context.Context, src pgx.CopyFromSource) (int64, error)
	DeleteResults(ctx context.Context, runID uuid.UUID) error
}

// PGStore is the Postgres Store backed by the ccc schema.
type PGStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPGStore returns a Store on pool. The schema must already be migrated.
func NewPGStore(pool *pgxpool.Pool, log zerolog.Logger) *PGStore {
	return &PGStore{pool: pool, log: log}
}

func (s *PGStore) LookupCompleteRun(ctx context.Context, sha string, version int) (uuid.UUID, bool, error) {
	var (
		runID uuid.UUID
		rows  *int64
	)
	err := s.pool.QueryRow(ctx, embedsql.LookupCompleteRun, sha, version).Scan(&runID, &rows)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("lookup complete run: %w", err)
	}
	return runID, true, nil
}

func (s *PGStore) RegisterRun(ctx context.Context, runID uuid.UUID, inputPath, sha string, version int) error {
	if _, err := s.pool.Exec(ctx, embedsql.RegisterRun, runID, inputPath, sha, version); err != nil {
		return fmt.Errorf("register run: %w", err)
	}
	s.log.Info().Str("run_id", runID.String()).Msg("run registered")
	return nil
}

func (s *PGStore) SetStatus(ctx context.Context, runID uuid.UUID, status string, rows *int64) error {
	tag, err := s.pool.Exec(ctx, embedsql.UpdateRunStatus, runID, status, rows)
	if err != nil {
		return fmt.Errorf("set run status %s: %w", status, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set run status %s: run %s not found", status, runID)
	}
	return nil
}

// CopyResults streams rows from src into ccc.results with the COPY protocol.
func (s *PGStore) CopyResults(ctx context.Context, src pgx.CopyFromSource) (int64, error) {
	start := time.Now()
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"ccc", "results"},
		model.StoredResultColumns(),
		src,
	)
	if err != nil {
		return n, fmt.Errorf("copy results: %w", err)
	}

	dur := time.Since(start)
	s.log.Info().
		Int64("rows_stored", n).
		Str("duration", dur.String()).
		Float64("rows_per_sec", float64(n)/dur.Seconds()).
		Msg("results copied")
	return n, nil
}

func (s *PGStore) DeleteResults(ctx context.Context, runID uuid.UUID) error {
	start := time.Now()
	tag, err := s.pool.Exec(ctx, embedsql.DeleteRunResults, runID)
	if err != nil {
		return fmt.Errorf("delete run results: %w", err)
	}
	s.log.Info().
		Int64("rows_deleted", tag.RowsAffected()).
		Dur("duration", time.Since(start)).
		Msg("partial results deleted")
	return nil
}

// Prevalence returns the stored row count and per-column flag counts for a run.
func (s *PGStore) Prevalence(ctx context.Context, runID uuid.UUID) (int64, map[string]int64, error) {
	cols := model.ResultColumns()
	vals := make([]int64, len(cols))
	dest := make([]any, 0, len(cols)+1)
	var total int64
	dest = append(dest, &total)
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := s.pool.QueryRow(ctx, embedsql.RunPrevalence, runID).Scan(dest...); err != nil {
		return 0, nil, fmt.Errorf("run prevalence: %w", err)
	}
	counts := make(map[string]int64, len(cols))
	for i, c := range cols {
		counts[c] = vals[i]
	}
	return total, counts, nil
}

var _ Store = (*PGStore)(nil)
