package filter

import (
	"sort"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"
	"go.uber.org/zap"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// LanguageDetector reports whether text is in the pipeline's target language.
// Indeterminate input must return false, never an error.
type LanguageDetector func(text string) bool

// EnglishDetector is the default detector.
func EnglishDetector(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	info := whatlanggo.Detect(text)
	return info.Lang == whatlanggo.Eng
}

// Config holds the chain thresholds and token lists.
type Config struct {
	MinLength    int
	MinScore     int
	DateCutoff   time.Time
	Placeholders []string
	Profanity    []string
}

// Chain applies the fixed, order-sensitive sequence of cleaning steps to a
// record set. Steps only ever select subsets or set derived flags; text
// fields are never mutated.
type Chain struct {
	cfg    Config
	detect LanguageDetector
	log    *zap.Logger
	onStep func(name string, recs []record.Record)
}

// NewChain creates a filter chain. A nil detector falls back to
// EnglishDetector, a nil logger disables progress logging.
func NewChain(cfg Config, detect LanguageDetector, log *zap.Logger) *Chain {
	if detect == nil {
		detect = EnglishDetector
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Chain{cfg: cfg, detect: detect, log: log}
}

// OnStep registers a callback invoked after each removing step with the
// surviving records. The slice is reused between steps; callbacks must copy
// anything they keep.
func (c *Chain) OnStep(fn func(name string, recs []record.Record)) {
	c.onStep = fn
}

type step struct {
	name  string
	apply func([]record.Record) []record.Record
}

// Run executes every step in order and returns the surviving records plus the
// removal stats.
func (c *Chain) Run(recs []record.Record) ([]record.Record, Stats) {
	stats := Stats{Initial: len(recs)}

	steps := []step{
		{StepDeduplicated, c.deduplicate},
		{StepShortRemoved, c.minLength},
		{StepPlaceholder, c.placeholders},
		{StepDateFiltered, c.dateCutoff},
		{StepScoreFiltered, c.minScore},
		{StepLengthFiltered, c.combinedLength},
		{StepLangFiltered, c.language},
		{StepAuthorFiltered, c.authors},
		{StepEmptyBody, c.emptyBody},
	}

	for _, s := range steps {
		before := len(recs)
		recs = s.apply(recs)
		removed := before - len(recs)
		stats.Steps = append(stats.Steps, StepCount{Name: s.name, Removed: removed})
		c.log.Info("filter step",
			zap.String("step", s.name),
			zap.Int("removed", removed),
			zap.Int("remaining", len(recs)))
		if c.onStep != nil {
			c.onStep(s.name, recs)
		}
	}

	recs, flagged := c.flagProfanity(recs)
	stats.ProfanityFlagged = flagged
	c.log.Info("filter step",
		zap.String("step", "profanity_flagged"),
		zap.Int("flagged", flagged),
		zap.Int("remaining", len(recs)))

	return recs, stats
}

// deduplicate keeps the highest-scored record per URL. Sort is stable on the
// original order so equal scores keep the first-collected occurrence.
func (c *Chain) deduplicate(recs []record.Record) []record.Record {
	sorted := make([]record.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	seen := make(map[string]struct{}, len(sorted))
	out := sorted[:0]
	for _, r := range sorted {
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (c *Chain) minLength(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if r.CombinedLen() > c.cfg.MinLength {
			out = append(out, r)
		}
	}
	return out
}

func (c *Chain) placeholders(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		title := strings.ToLower(strings.TrimSpace(r.Title))
		if title == "" || c.isPlaceholder(title) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c *Chain) isPlaceholder(title string) bool {
	for _, p := range c.cfg.Placeholders {
		if title == strings.ToLower(p) {
			return true
		}
	}
	return false
}

// dateCutoff drops records created before the cutoff. A zero CreatedUTC means
// the source timestamp was unparseable; that counts as failing the filter.
func (c *Chain) dateCutoff(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if r.CreatedUTC.IsZero() || r.CreatedUTC.Before(c.cfg.DateCutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c *Chain) minScore(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if r.Score >= c.cfg.MinScore {
			out = append(out, r)
		}
	}
	return out
}

// combinedLength rechecks length over the space-joined full text, the same
// measure the enrichment stages operate on.
func (c *Chain) combinedLength(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if len(r.FullText()) >= c.cfg.MinLength {
			out = append(out, r)
		}
	}
	return out
}

func (c *Chain) language(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if c.detect(r.FullText()) {
			out = append(out, r)
		}
	}
	return out
}

func (c *Chain) authors(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if r.AnonymousAuthor() {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (c *Chain) emptyBody(recs []record.Record) []record.Record {
	out := recs[:0]
	for _, r := range recs {
		if strings.TrimSpace(r.Selftext) == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// flagProfanity sets the profanity flag on records whose combined text
// contains any listed token. Case-insensitive substring match; never removes.
func (c *Chain) flagProfanity(recs []record.Record) ([]record.Record, int) {
	flagged := 0
	for i := range recs {
		text := strings.ToLower(recs[i].FullText())
		for _, word := range c.cfg.Profanity {
			if strings.Contains(text, word) {
				recs[i].ProfanityFlag = true
				flagged++
				break
			}
		}
	}
	return recs, flagged
}
