package store

import (
	"context"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// Stage names under which record snapshots are persisted. Each pipeline stage
// writes its full output at its boundary so later stages can run in a fresh
// process.
const (
	StageRaw      = "raw"
	StageCleaned  = "cleaned"  // after deduplication + length
	StageFiltered = "filtered" // after the full chain
	StageKeywords = "keywords" // after the keyword gate
)

// Store persists the collector checkpoint, per-stage record snapshots and the
// filter bookkeeping. Single writer; no concurrent access.
type Store interface {
	Close() error

	// Collector checkpoint
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	LoadCheckpoint(ctx context.Context) (Checkpoint, error)

	// Stage snapshots
	SaveStage(ctx context.Context, stage string, recs []record.Record) error
	LoadStage(ctx context.Context, stage string) ([]record.Record, error)

	// Filter stats
	SaveFilterStats(ctx context.Context, stats filter.Stats) error
	LoadFilterStats(ctx context.Context) (filter.Stats, error)
}

// PairProgress tracks one (subreddit, search term) unit of collection work.
type PairProgress struct {
	Subreddit  string
	SearchTerm string
	Count      int
	Done       bool
}

// Checkpoint is a full snapshot of accumulated collection state, written
// after each (subreddit, term) pair completes.
type Checkpoint struct {
	Records []record.Record
	Pairs   []PairProgress
}

// PairDone reports whether a pair already completed in a previous run.
func (cp Checkpoint) PairDone(subreddit, term string) bool {
	for _, p := range cp.Pairs {
		if p.Done && p.Subreddit == subreddit && p.SearchTerm == term {
			return true
		}
	}
	return false
}
