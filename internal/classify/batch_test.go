package classify

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/gyeh/pccc/internal/codes"
	"github.com/gyeh/pccc/internal/model"
)

// countdownCtx reports cancellation once Err has been called more than n times.
type countdownCtx struct {
	context.Context
	left atomic.Int64
}

func newCountdownCtx(n int64) *countdownCtx {
	c := &countdownCtx{Context: context.Background()}
	c.left.Store(n)
	return c
}

func (c *countdownCtx) Err() error {
	if c.left.Add(-1) < 0 {
		return context.Canceled
	}
	return nil
}

// randomRecords mixes codes from the built-in tables with codes that match nothing.
func randomRecords(ts *codes.TableSet, n int, seed uint64) []model.Record {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	var dxPool, pcPool []string
	for _, ti := range ts.Tables() {
		if ti.CodeType == model.Diagnosis {
			dxPool = append(dxPool, ti.Codes...)
		} else {
			pcPool = append(pcPool, ti.Codes...)
		}
	}
	noise := []string{"", "R69", "Z0000", "00000", "V700", "X", "9999"}

	pick := func(pool []string) string {
		if rng.IntN(4) == 0 {
			return pool[rng.IntN(len(pool))]
		}
		return noise[rng.IntN(len(noise))]
	}

	recs := make([]model.Record, n)
	for i := range recs {
		dx := make([]string, rng.IntN(5))
		for j := range dx {
			dx[j] = pick(dxPool)
		}
		pc := make([]string, rng.IntN(3))
		for j := range pc {
			pc[j] = pick(pcPool)
		}
		recs[i] = model.Record{Dx: dx, Pc: pc}
	}
	return recs
}

func TestBatch_MatchesSingleRecordClassification(t *testing.T) {
	for _, v := range codes.SupportedVersions() {
		ts := tablesFor(t, v)
		recs := randomRecords(ts, 5000, uint64(v))

		for _, opts := range []Options{
			{Workers: 1, ChunkSize: 5000},
			{Workers: 4, ChunkSize: 7},
			{Workers: 16, ChunkSize: 1},
			{},
		} {
			e := NewWithTables(ts, zerolog.Nop(), opts)
			got, err := e.Batch(context.Background(), recs)
			if err != nil {
				t.Fatalf("icd%d %+v: Batch: %v", v, opts, err)
			}
			if len(got) != len(recs) {
				t.Fatalf("icd%d %+v: expected %d results, got %d", v, opts, len(recs), len(got))
			}
			for i := range recs {
				if want := Classify(recs[i], ts); got[i] != want {
					t.Fatalf("icd%d %+v: row %d = %v, want %v", v, opts, i, got[i].Values(), want.Values())
				}
			}
		}
	}
}

func TestBatch_AggregateIsOr(t *testing.T) {
	ts := tablesFor(t, 10)
	got, err := NewWithTables(ts, zerolog.Nop(), Options{}).Batch(context.Background(), randomRecords(ts, 2000, 42))
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	flagged := 0
	for i, r := range got {
		or := false
		for _, f := range r.Flags {
			or = or || f
		}
		if r.Any != or {
			t.Fatalf("row %d: ccc_flag=%v but OR(flags)=%v", i, r.Any, or)
		}
		if r.Any {
			flagged++
		}
	}
	if flagged == 0 || flagged == len(got) {
		t.Errorf("fixture is degenerate: %d of %d rows flagged", flagged, len(got))
	}
}

func TestBatch_Empty(t *testing.T) {
	got, err := ClassifyBatch(context.Background(), zerolog.Nop(), nil, 9, Options{})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no results, got %d", len(got))
	}
}

func TestClassifyBatch_InvalidVersion(t *testing.T) {
	recs := []model.Record{{Dx: []string{"3180"}}}
	got, err := ClassifyBatch(context.Background(), zerolog.Nop(), recs, 7, Options{})
	var ce *codes.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *codes.ConfigError, got %v", err)
	}
	if got != nil {
		t.Error("expected no results on config error")
	}
}

func TestClassifyBatch_Scenario(t *testing.T) {
	recs := []model.Record{
		{Dx: []string{"3180"}},
		{},
		{Dx: []string{"R69"}, Pc: []string{"3751"}},
	}
	got, err := ClassifyBatch(context.Background(), zerolog.Nop(), recs, 9, Options{Workers: 2, ChunkSize: 1})
	if err != nil {
		t.Fatalf("ClassifyBatch: %v", err)
	}
	onlyFlag(t, got[0], model.Neuromusc)
	if got[1].Any {
		t.Errorf("row 1 should be unflagged: %v", got[1].Values())
	}
	onlyFlag(t, got[2], model.Transplant)
}

func TestBatch_CancelledMidway(t *testing.T) {
	recs := []model.Record{
		{Dx: []string{"3180"}},
		{Dx: []string{"4160"}},
		{Dx: []string{"5851"}},
	}
	e, err := New(9, zerolog.Nop(), Options{Workers: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// First row passes the check, second observes cancellation.
	got, err := e.Batch(newCountdownCtx(1), recs)
	if got != nil {
		t.Errorf("expected no results, got %d", len(got))
	}
	var ce *CancelledError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CancelledError, got %v", err)
	}
	if ce.Row != 1 {
		t.Errorf("expected cancellation at row 1, got %d", ce.Row)
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected error to unwrap to context.Canceled")
	}
}

func TestBatch_AlreadyCancelled(t *testing.T) {
	ts := tablesFor(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := NewWithTables(ts, zerolog.Nop(), Options{Workers: 4, ChunkSize: 10}).
		Batch(ctx, randomRecords(ts, 1000, 1))
	if got != nil {
		t.Error("expected no results")
	}
	var ce *CancelledError
	if !errors.As(err, &ce) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestBatch_Deadline(t *testing.T) {
	ts := tablesFor(t, 9)
	ctx, cancel := context.WithTimeout(context.Background(), -time.Second)
	defer cancel()

	_, err := NewWithTables(ts, zerolog.Nop(), Options{}).Batch(ctx, randomRecords(ts, 10, 2))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestEngine_Accessors(t *testing.T) {
	e, err := New(10, zerolog.Nop(), Options{Workers: 3, ChunkSize: 5})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if e.Version() != 10 || e.Tables().Version() != 10 {
		t.Errorf("unexpected version %d", e.Version())
	}
	onlyFlag(t, e.Classify(model.Record{Dx: []string{"I420"}}), model.CVD)
}

func BenchmarkBatch(b *testing.B) {
	ts, err := codes.Build(10)
	if err != nil {
		b.Fatal(err)
	}
	recs := randomRecords(ts, 100_000, 7)
	e := NewWithTables(ts, zerolog.Nop(), Options{})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Batch(context.Background(), recs); err != nil {
			b.Fatal(err)
		}
	}
}
