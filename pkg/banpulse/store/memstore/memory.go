package memstore

import (
	"context"
	"fmt"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/store"
)

// memStore is an in-memory Store used by tests and dry runs.
type memStore struct {
	checkpoint *store.Checkpoint
	stages     map[string][]record.Record
	stats      *filter.Stats
}

// New creates an empty in-memory store.
func New() store.Store {
	return &memStore{stages: make(map[string][]record.Record)}
}

func (m *memStore) Close() error { return nil }

func (m *memStore) SaveCheckpoint(_ context.Context, cp store.Checkpoint) error {
	cpCopy := store.Checkpoint{
		Records: append([]record.Record(nil), cp.Records...),
		Pairs:   append([]store.PairProgress(nil), cp.Pairs...),
	}
	m.checkpoint = &cpCopy
	return nil
}

func (m *memStore) LoadCheckpoint(_ context.Context) (store.Checkpoint, error) {
	if m.checkpoint == nil {
		return store.Checkpoint{}, internalerr.ErrNoCheckpoint
	}
	return store.Checkpoint{
		Records: append([]record.Record(nil), m.checkpoint.Records...),
		Pairs:   append([]store.PairProgress(nil), m.checkpoint.Pairs...),
	}, nil
}

func (m *memStore) SaveStage(_ context.Context, stage string, recs []record.Record) error {
	m.stages[stage] = append([]record.Record(nil), recs...)
	return nil
}

func (m *memStore) LoadStage(_ context.Context, stage string) ([]record.Record, error) {
	recs, ok := m.stages[stage]
	if !ok || len(recs) == 0 {
		return nil, fmt.Errorf("stage %q: %w", stage, internalerr.ErrNotFound)
	}
	return append([]record.Record(nil), recs...), nil
}

func (m *memStore) SaveFilterStats(_ context.Context, stats filter.Stats) error {
	statsCopy := stats
	statsCopy.Steps = append([]filter.StepCount(nil), stats.Steps...)
	m.stats = &statsCopy
	return nil
}

func (m *memStore) LoadFilterStats(_ context.Context) (filter.Stats, error) {
	if m.stats == nil {
		return filter.Stats{}, fmt.Errorf("filter stats: %w", internalerr.ErrNotFound)
	}
	statsCopy := *m.stats
	statsCopy.Steps = append([]filter.StepCount(nil), m.stats.Steps...)
	return statsCopy, nil
}
