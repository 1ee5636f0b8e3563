package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/pccc/internal/model"
)

// ChannelSource implements pgx.CopyFromSource over a channel of classified
// rows, so the classifier and the COPY writer run concurrently with backpressure.
type ChannelSource struct {
	ctx     context.Context
	ch      <-chan *model.StoredResult
	current *model.StoredResult
	err     error
}

// NewChannelSource creates a CopyFromSource backed by ch. Iteration stops
// with ctx's error if ctx is cancelled before ch is closed.
func NewChannelSource(ctx context.Context, ch <-chan *model.StoredResult) *ChannelSource {
	return &ChannelSource{ctx: ctx, ch: ch}
}

func (s *ChannelSource) Next() bool {
	select {
	case row, ok := <-s.ch:
		if !ok {
			return false
		}
		s.current = row
		return true
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	}
}

// Values returns the current row's values in COPY column order.
func (s *ChannelSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

func (s *ChannelSource) Err() error {
	return s.err
}

var _ pgx.CopyFromSource = (*ChannelSource)(nil)
