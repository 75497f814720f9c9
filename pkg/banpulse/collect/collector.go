package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samroof/banpulse/internal/reddit"
	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/store"
)

// Source is the search/content API the collector consumes.
type Source interface {
	Search(ctx context.Context, subreddit, query string, limit int) ([]reddit.Post, error)
	TopComments(ctx context.Context, postID string, n int) ([]string, error)
}

// Config holds the collection plan and rate limits.
type Config struct {
	Subreddits  []string
	SearchTerms []string
	SearchLimit int
	TopComments int
	PostDelay   time.Duration
	TermDelay   time.Duration
}

// Collector walks the subreddit × search-term cross product, accumulating
// records and checkpointing after every pair so an interrupted run resumes
// without re-querying finished pairs.
type Collector struct {
	src Source
	st  store.Store
	cfg Config
	ids *record.IDGen
	log *zap.Logger
}

// New creates a collector.
func New(src Source, st store.Store, cfg Config, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collector{
		src: src,
		st:  st,
		cfg: cfg,
		ids: record.NewIDGen(),
		log: log,
	}
}

// Result is the accumulated output of a collection run.
type Result struct {
	Records []record.Record
	Pairs   []store.PairProgress
}

// Run executes the collection plan. A failure on a single post's comments
// degrades to an empty comment field; a failure on a whole pair skips the
// pair and continues. Only store errors abort the run.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	cp, err := c.st.LoadCheckpoint(ctx)
	switch {
	case err == nil:
		c.log.Info("resuming from checkpoint",
			zap.Int("records", len(cp.Records)),
			zap.Int("pairs", len(cp.Pairs)))
	case errors.Is(err, internalerr.ErrNoCheckpoint):
		c.log.Info("starting fresh collection")
	default:
		return Result{}, fmt.Errorf("load checkpoint: %w", err)
	}

	records := cp.Records
	pairs := cp.Pairs

	for _, sub := range c.cfg.Subreddits {
		for _, term := range c.cfg.SearchTerms {
			if cp.PairDone(sub, term) {
				continue
			}
			c.log.Info("searching", zap.String("subreddit", sub), zap.String("term", term))

			posts, err := c.src.Search(ctx, sub, term, c.cfg.SearchLimit)
			if err != nil {
				c.log.Warn("search failed, skipping pair",
					zap.String("subreddit", sub),
					zap.String("term", term),
					zap.Error(err))
				if err := sleep(ctx, c.cfg.TermDelay); err != nil {
					return Result{Records: records, Pairs: pairs}, err
				}
				continue
			}

			count := 0
			for _, p := range posts {
				records = append(records, c.buildRecord(ctx, sub, term, p))
				count++
				if err := sleep(ctx, c.cfg.PostDelay); err != nil {
					return Result{Records: records, Pairs: pairs}, err
				}
			}

			pairs = upsertPair(pairs, store.PairProgress{
				Subreddit:  sub,
				SearchTerm: term,
				Count:      count,
				Done:       true,
			})

			cp = store.Checkpoint{Records: records, Pairs: pairs}
			if err := c.st.SaveCheckpoint(ctx, cp); err != nil {
				return Result{}, fmt.Errorf("save checkpoint after r/%s %q: %w", sub, term, err)
			}
			c.log.Info("checkpoint saved",
				zap.String("subreddit", sub),
				zap.String("term", term),
				zap.Int("pair_records", count),
				zap.Int("total_records", len(records)))

			if err := sleep(ctx, c.cfg.TermDelay); err != nil {
				return Result{Records: records, Pairs: pairs}, err
			}
		}
	}

	if err := c.st.SaveStage(ctx, store.StageRaw, records); err != nil {
		return Result{}, fmt.Errorf("save raw stage: %w", err)
	}

	c.log.Info("collection complete", zap.Int("total_records", len(records)))
	return Result{Records: records, Pairs: pairs}, nil
}

// buildRecord assembles one record, degrading to empty comments when the
// comment fetch fails.
func (c *Collector) buildRecord(ctx context.Context, sub, term string, p reddit.Post) record.Record {
	comments, err := c.src.TopComments(ctx, p.ID, c.cfg.TopComments)
	if err != nil {
		c.log.Warn("comment fetch failed",
			zap.String("post_id", p.ID),
			zap.Error(err))
		comments = nil
	}

	return record.Record{
		ID:          c.ids.Next(),
		Subreddit:   sub,
		SearchTerm:  term,
		Title:       p.Title,
		Selftext:    p.Selftext,
		Score:       p.Score,
		NumComments: p.NumComments,
		Author:      p.Author,
		URL:         p.URL,
		CreatedUTC:  parseCreated(p.CreatedUTC),
		TopComments: strings.Join(comments, record.CommentSeparator),
	}
}

// parseCreated converts the API's epoch-seconds float. Zero or negative
// values map to the zero time, which downstream filters treat as missing.
func parseCreated(sec float64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0).UTC()
}

func upsertPair(pairs []store.PairProgress, p store.PairProgress) []store.PairProgress {
	for i := range pairs {
		if pairs[i].Subreddit == p.Subreddit && pairs[i].SearchTerm == p.SearchTerm {
			pairs[i] = p
			return pairs
		}
	}
	return append(pairs, p)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
