package mock

import (
	"context"

	"github.com/fwojciec/changescope"
)

// Compile-time interface verification.
var (
	_ changescope.TurnStore    = (*TurnStore)(nil)
	_ changescope.HistoryIndex = (*HistoryIndex)(nil)
)

// TurnStore is a mock implementation of changescope.TurnStore.
type TurnStore struct {
	AppendFn func(turn changescope.Turn) error
	LoadFn   func() ([]changescope.Turn, error)
}

func (s *TurnStore) Append(turn changescope.Turn) error {
	return s.AppendFn(turn)
}

func (s *TurnStore) Load() ([]changescope.Turn, error) {
	return s.LoadFn()
}

// HistoryIndex is a mock implementation of changescope.HistoryIndex.
type HistoryIndex struct {
	RecordFn func(ctx context.Context, turn changescope.Turn) error
	RecentFn func(ctx context.Context, limit int) ([]changescope.Turn, error)
	SearchFn func(ctx context.Context, pattern string, limit int) ([]changescope.Turn, error)
}

func (h *HistoryIndex) Record(ctx context.Context, turn changescope.Turn) error {
	return h.RecordFn(ctx, turn)
}

func (h *HistoryIndex) Recent(ctx context.Context, limit int) ([]changescope.Turn, error) {
	return h.RecentFn(ctx, limit)
}

func (h *HistoryIndex) Search(ctx context.Context, pattern string, limit int) ([]changescope.Turn, error) {
	return h.SearchFn(ctx, pattern, limit)
}
