// Package banpulse is the pipeline facade. Each stage loads its input from
// the store or a prior stage's artifact, runs one enrichment, and writes both
// a store snapshot and a CSV artifact, so stages can run as separate
// processes in any order that respects their inputs.
package banpulse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/samroof/banpulse/pkg/banpulse/collect"
	"github.com/samroof/banpulse/pkg/banpulse/config"
	"github.com/samroof/banpulse/pkg/banpulse/csvio"
	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
	"github.com/samroof/banpulse/pkg/banpulse/overlay"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/report"
	"github.com/samroof/banpulse/pkg/banpulse/sentiment"
	"github.com/samroof/banpulse/pkg/banpulse/store"
	"github.com/samroof/banpulse/pkg/banpulse/topics"
)

// Artifact file names under the output directory.
const (
	RawPostsFile        = "raw_posts.csv"
	PairCountsFile      = "pair_counts.csv"
	FilteredPostsFile   = "filtered_posts.csv"
	KeywordPostsFile    = "keyword_posts.csv"
	FilterStatsFile     = "filter_stats.json"
	SentimentPostsFile  = "sentiment_posts.csv"
	TopicPostsFile      = "topic_posts.csv"
	TopicTopWordsFile   = "topic_top_words.csv"
	MergedPostsFile     = "merged_posts.csv"
	OverlayMarkdownFile = "sentiment_by_topic.md"
	OverlayTableFile    = "sentiment_by_topic.csv"
	FunnelFile          = "filtering_funnel.csv"
	SummaryFile         = "summary.md"
	SentimentReportFile = "sentiment_summary.md"
	TopicReportFile     = "topic_summary.md"
)

// Pipeline ties the stages together over a shared store and configuration.
type Pipeline struct {
	cfg config.Config
	st  store.Store
	log *zap.Logger
}

// Options configures a Pipeline instance.
type Options struct {
	Config config.Config
	Store  store.Store
	Logger *zap.Logger
}

// New creates a Pipeline with the given dependencies.
func New(opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: opts.Config, st: opts.Store, log: log}
}

// Close cleanly shuts down the pipeline.
func (p *Pipeline) Close() error {
	return p.st.Close()
}

func (p *Pipeline) artifact(name string) string {
	return filepath.Join(p.cfg.Output.Dir, name)
}

// Collect runs the full collection plan against src and writes the raw stage
// artifact plus the per-pair contribution counts.
func (p *Pipeline) Collect(ctx context.Context, src collect.Source) (collect.Result, error) {
	c := collect.New(src, p.st, collect.Config{
		Subreddits:  p.cfg.Collect.Subreddits,
		SearchTerms: p.cfg.Collect.SearchTerms,
		SearchLimit: p.cfg.Collect.SearchLimit,
		TopComments: p.cfg.Collect.TopComments,
		PostDelay:   time.Duration(p.cfg.Collect.PostDelayMS) * time.Millisecond,
		TermDelay:   time.Duration(p.cfg.Collect.TermDelayMS) * time.Millisecond,
	}, p.log)

	res, err := c.Run(ctx)
	if err != nil {
		return res, err
	}

	if err := csvio.WriteRecords(p.artifact(RawPostsFile), res.Records); err != nil {
		return res, fmt.Errorf("write raw artifact: %w", err)
	}
	if err := csvio.WritePairCounts(p.artifact(PairCountsFile), res.Pairs); err != nil {
		return res, fmt.Errorf("write pair counts: %w", err)
	}
	return res, nil
}

// PreprocessResult is the output of the filtering and keyword-gating stage.
type PreprocessResult struct {
	Filtered []record.Record
	Kept     []record.Record
	Stats    filter.Stats
	Dropped  int
}

// Preprocess loads the raw stage, runs the filter chain and the keyword gate,
// and persists the cleaned, filtered and keyword stage snapshots.
func (p *Pipeline) Preprocess(ctx context.Context) (PreprocessResult, error) {
	raw, err := p.st.LoadStage(ctx, store.StageRaw)
	if err != nil {
		return PreprocessResult{}, fmt.Errorf("load raw stage: %w", err)
	}

	cutoff, err := p.cfg.DateCutoff()
	if err != nil {
		return PreprocessResult{}, err
	}

	chain := filter.NewChain(filter.Config{
		MinLength:    p.cfg.Filters.MinLength,
		MinScore:     p.cfg.Filters.MinScore,
		DateCutoff:   cutoff,
		Placeholders: p.cfg.Filters.Placeholders,
		Profanity:    p.cfg.Filters.ProfanityList,
	}, nil, p.log)

	var cleaned []record.Record
	chain.OnStep(func(name string, recs []record.Record) {
		if name == filter.StepPlaceholder {
			cleaned = append([]record.Record(nil), recs...)
		}
	})

	filtered, stats := chain.Run(raw)

	if err := p.st.SaveStage(ctx, store.StageCleaned, cleaned); err != nil {
		return PreprocessResult{}, fmt.Errorf("save cleaned stage: %w", err)
	}
	if err := p.st.SaveStage(ctx, store.StageFiltered, filtered); err != nil {
		return PreprocessResult{}, fmt.Errorf("save filtered stage: %w", err)
	}
	if err := p.st.SaveFilterStats(ctx, stats); err != nil {
		return PreprocessResult{}, fmt.Errorf("save filter stats: %w", err)
	}

	gate := filter.NewKeywordGate(p.cfg.Filters.BanKeywords)
	kept, dropped := gate.Apply(filtered)
	if err := p.st.SaveStage(ctx, store.StageKeywords, kept); err != nil {
		return PreprocessResult{}, fmt.Errorf("save keyword stage: %w", err)
	}
	p.log.Info("keyword gate applied",
		zap.Int("kept", len(kept)),
		zap.Int("dropped", dropped))

	if err := csvio.WriteRecords(p.artifact(FilteredPostsFile), filtered); err != nil {
		return PreprocessResult{}, fmt.Errorf("write filtered artifact: %w", err)
	}
	if err := csvio.WriteRecords(p.artifact(KeywordPostsFile), kept); err != nil {
		return PreprocessResult{}, fmt.Errorf("write keyword artifact: %w", err)
	}
	if err := csvio.WriteFilterStats(p.artifact(FilterStatsFile), stats); err != nil {
		return PreprocessResult{}, fmt.Errorf("write filter stats: %w", err)
	}

	return PreprocessResult{Filtered: filtered, Kept: kept, Stats: stats, Dropped: dropped}, nil
}

// Sentiment scores the keyword stage with the VADER lexicon and writes the
// sentiment artifact.
func (p *Pipeline) Sentiment(ctx context.Context) ([]sentiment.ScoredRecord, error) {
	recs, err := p.st.LoadStage(ctx, store.StageKeywords)
	if err != nil {
		return nil, fmt.Errorf("load keyword stage: %w", err)
	}

	scored := sentiment.NewAnalyzer().ScoreAll(recs)
	p.log.Info("sentiment scored", zap.Int("records", len(scored)))

	if err := csvio.WriteSentiment(p.artifact(SentimentPostsFile), scored); err != nil {
		return nil, fmt.Errorf("write sentiment artifact: %w", err)
	}
	return scored, nil
}

// Topics trains the topic model on the keyword stage and writes the topic
// assignment and top-word artifacts.
func (p *Pipeline) Topics(ctx context.Context) (*topics.Result, error) {
	recs, err := p.st.LoadStage(ctx, store.StageKeywords)
	if err != nil {
		return nil, fmt.Errorf("load keyword stage: %w", err)
	}

	enr, err := topics.NewEnricher(topics.Config{
		NumTopics:   p.cfg.Topics.NumTopics,
		Seed:        p.cfg.Topics.Seed,
		Passes:      p.cfg.Topics.Passes,
		MinTokenLen: p.cfg.Topics.MinTokenLen,
		MinDocFreq:  p.cfg.Topics.MinDocFreq,
		MaxDocRatio: p.cfg.Topics.MaxDocRatio,
		TopWords:    p.cfg.Topics.TopWords,
		ExtraStops:  p.cfg.Topics.ExtraStops,
	}, p.log)
	if err != nil {
		return nil, err
	}

	res, err := enr.Enrich(recs)
	if err != nil {
		return nil, err
	}

	if err := csvio.WriteTopics(p.artifact(TopicPostsFile), res.Records); err != nil {
		return nil, fmt.Errorf("write topics artifact: %w", err)
	}
	if err := csvio.WriteTopicTopWords(p.artifact(TopicTopWordsFile), res.TopWords); err != nil {
		return nil, fmt.Errorf("write top words artifact: %w", err)
	}
	return res, nil
}

// Overlay joins the sentiment and topic artifacts on record ID and writes the
// merged artifact plus the sentiment-by-topic breakdown.
func (p *Pipeline) Overlay(ctx context.Context) (overlay.MergeResult, error) {
	scored, err := csvio.ReadSentiment(p.artifact(SentimentPostsFile))
	if err != nil {
		return overlay.MergeResult{}, err
	}
	assigned, err := csvio.ReadTopics(p.artifact(TopicPostsFile))
	if err != nil {
		return overlay.MergeResult{}, err
	}
	topWords, err := csvio.ReadTopicTopWords(p.artifact(TopicTopWordsFile))
	if err != nil {
		return overlay.MergeResult{}, err
	}

	res := overlay.Merge(scored, assigned, p.log)
	shares := overlay.SentimentByTopic(res.Records, p.cfg.Topics.NumTopics)

	if err := csvio.WriteMerged(p.artifact(MergedPostsFile), res.Records); err != nil {
		return res, fmt.Errorf("write merged artifact: %w", err)
	}
	if err := writeShares(p.artifact(OverlayTableFile), shares); err != nil {
		return res, err
	}
	md := report.OverlayMarkdown(shares, topWords)
	if err := writeText(p.artifact(OverlayMarkdownFile), md); err != nil {
		return res, err
	}
	return res, nil
}

// Report renders the summary documents: the filtering funnel, exploratory
// tables, the sentiment summary and the topic summary. Inputs come from the
// store, falling back to the stage artifacts when the store is empty, so the
// report can be rebuilt from an output directory alone.
func (p *Pipeline) Report(ctx context.Context) error {
	stats, err := p.st.LoadFilterStats(ctx)
	if errors.Is(err, internalerr.ErrNotFound) {
		stats, err = csvio.ReadFilterStats(p.artifact(FilterStatsFile))
	}
	if err != nil {
		return fmt.Errorf("load filter stats: %w", err)
	}
	kept, err := p.st.LoadStage(ctx, store.StageKeywords)
	if errors.Is(err, internalerr.ErrNotFound) {
		kept, err = csvio.ReadRecords(p.artifact(KeywordPostsFile))
	}
	if err != nil {
		return fmt.Errorf("load keyword stage: %w", err)
	}
	scored, err := csvio.ReadSentiment(p.artifact(SentimentPostsFile))
	if err != nil {
		return err
	}
	assigned, err := csvio.ReadTopics(p.artifact(TopicPostsFile))
	if err != nil {
		return err
	}
	topWords, err := csvio.ReadTopicTopWords(p.artifact(TopicTopWordsFile))
	if err != nil {
		return err
	}

	funnel := report.Funnel(stats, len(kept))
	header, rows := report.FunnelTable(funnel)
	if err := csvio.WriteTable(p.artifact(FunnelFile), header, rows); err != nil {
		return err
	}

	if err := writeText(p.artifact(SummaryFile), p.summaryMarkdown(stats, kept, funnel)); err != nil {
		return err
	}

	samples := report.SampleComments(scored, p.cfg.Report.SamplesPerLabel, p.cfg.Report.SampleSeed)
	if err := writeText(p.artifact(SentimentReportFile), report.SentimentMarkdown(scored, samples)); err != nil {
		return err
	}

	quotes := report.RepresentativeQuotes(assigned, p.cfg.Topics.NumTopics, p.cfg.Report.QuotesPerTopic)
	longest := report.LongestPosts(assigned, p.cfg.Topics.NumTopics, p.cfg.Report.PostsPerTopic, report.LongPostMinLen)
	if err := writeText(p.artifact(TopicReportFile), report.TopicsMarkdown(topWords, quotes, longest)); err != nil {
		return err
	}

	p.log.Info("reports written", zap.String("dir", p.cfg.Output.Dir))
	return nil
}

// summaryMarkdown renders the overview document: the funnel plus the
// exploratory tables over the final corpus.
func (p *Pipeline) summaryMarkdown(stats filter.Stats, kept []record.Record, funnel []report.FunnelRow) string {
	var b strings.Builder
	b.WriteString("# Corpus Summary\n\n")

	b.WriteString("## Filtering Funnel\n\n")
	header, rows := report.FunnelTable(funnel)
	b.WriteString(report.MarkdownTable(header, rows))
	fmt.Fprintf(&b, "\nProfanity flagged (kept): %d\n", stats.ProfanityFlagged)

	b.WriteString("\n## Posts per Subreddit\n\n")
	b.WriteString(report.MarkdownTable([]string{"Subreddit", "Posts"},
		countCells(report.SubredditCounts(kept))))

	b.WriteString("\n## Top Title Words\n\n")
	b.WriteString(report.MarkdownTable([]string{"Word", "Count"},
		countCells(report.TopTitleWords(kept, p.cfg.Report.TopWordsInTitles))))

	b.WriteString("\n## Keywords by Subreddit\n\n")
	for _, sk := range report.KeywordsBySubreddit(kept, p.cfg.Report.KeywordsPerSub) {
		words := make([]string, len(sk.Words))
		for i, w := range sk.Words {
			words[i] = w.Key
		}
		fmt.Fprintf(&b, "- r/%s: %s\n", sk.Subreddit, strings.Join(words, ", "))
	}

	score := report.ScoreSummary(kept)
	comments := report.CommentSummary(kept)
	b.WriteString("\n## Engagement\n\n")
	b.WriteString(report.MarkdownTable(
		[]string{"Metric", "Count", "Mean", "Median", "Min", "Max"},
		[][]string{summaryCells("Score", score), summaryCells("Comments", comments)}))

	return b.String()
}

func countCells(rows []report.CountRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Key, strconv.Itoa(r.Count)}
	}
	return out
}

func summaryCells(name string, s report.Summary) []string {
	return []string{
		name,
		strconv.Itoa(s.Count),
		strconv.FormatFloat(s.Mean, 'f', 2, 64),
		strconv.FormatFloat(s.Median, 'f', 1, 64),
		strconv.Itoa(s.Min),
		strconv.Itoa(s.Max),
	}
}

func writeShares(path string, shares []overlay.LabelShares) error {
	header := []string{"Topic", "Posts", "Negative", "Neutral", "Positive"}
	rows := make([][]string, len(shares))
	for i, s := range shares {
		rows[i] = []string{
			strconv.Itoa(s.Topic),
			strconv.Itoa(s.Count),
			strconv.FormatFloat(s.Negative, 'f', 4, 64),
			strconv.FormatFloat(s.Neutral, 'f', 4, 64),
			strconv.FormatFloat(s.Positive, 'f', 4, 64),
		}
	}
	return csvio.WriteTable(path, header, rows)
}

func writeText(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
