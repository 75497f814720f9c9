package banpulse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samroof/banpulse/pkg/banpulse/config"
	"github.com/samroof/banpulse/pkg/banpulse/csvio"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/store"
	"github.com/samroof/banpulse/pkg/banpulse/store/memstore"
)

// corpusRecord builds a raw record that survives every filter and matches the
// keyword gate.
func corpusRecord(i int, title, body string) record.Record {
	return record.Record{
		ID:          fmt.Sprintf("REC%02d", i),
		Subreddit:   "australia",
		SearchTerm:  "Australia under 16 social media ban",
		Title:       title,
		Selftext:    body,
		Score:       5 + i,
		Author:      "someone",
		URL:         fmt.Sprintf("https://example.com/%d", i),
		CreatedUTC:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
		TopComments: "This is a fairly reasonable take on the whole situation.",
	}
}

func seedCorpus() []record.Record {
	bodies := []string{
		"The verification requirements worry many parents because verification systems collect identity documents from every parent and child in the country.",
		"Parents keep asking how verification will work in practice, since every parent must somehow prove the age of their child through a verification provider.",
		"Verification of age is the hard part, and a parent who refuses verification may find their child locked out of every platform overnight.",
		"Teenagers describe addiction to their feeds, and addiction researchers say teenagers will simply move to platforms the addiction studies never covered.",
		"The addiction argument cuts both ways because teenagers without addiction problems lose their communities while teenagers with addiction find workarounds.",
		"Researchers studying addiction in teenagers argue the evidence is thinner than politicians claim, and teenagers themselves rarely get asked about addiction at all.",
	}
	var recs []record.Record
	for i, body := range bodies {
		recs = append(recs, corpusRecord(i, "Social media ban debate continues across the country", body))
	}
	// A raw duplicate and a deleted post exercise the early filters.
	dup := corpusRecord(0, "Social media ban debate continues across the country", bodies[0])
	dup.ID = "RECDUP"
	dup.Score = 1
	deleted := corpusRecord(9, "[deleted]", "whatever this once said, it is gone now")
	return append(recs, dup, deleted)
}

func e2eConfig(dir string) config.Config {
	cfg := config.Default()
	cfg.Output.Dir = dir
	cfg.Output.DBPath = filepath.Join(dir, "test.db")
	cfg.Topics.NumTopics = 2
	cfg.Topics.MinDocFreq = 2
	cfg.Topics.MaxDocRatio = 0.95
	cfg.Topics.Passes = 20
	return cfg
}

func TestPipelineEndToEnd(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := e2eConfig(dir)

	st := memstore.New()
	p := New(Options{Config: cfg, Store: st})
	defer p.Close()

	if err := st.SaveStage(ctx, store.StageRaw, seedCorpus()); err != nil {
		t.Fatalf("Seed raw stage: %v", err)
	}

	pre, err := p.Preprocess(ctx)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if pre.Stats.Initial != 8 {
		t.Errorf("Initial = %d, want 8", pre.Stats.Initial)
	}
	// The duplicate URL and the deleted post must be gone.
	if len(pre.Filtered) != 6 {
		t.Errorf("Filtered = %d records, want 6", len(pre.Filtered))
	}
	if len(pre.Kept) != 6 {
		t.Errorf("Keyword gate kept %d, want 6 (all titles match)", len(pre.Kept))
	}
	for _, r := range pre.Filtered {
		if r.URL == "https://example.com/0" && r.Score != 5 {
			t.Errorf("Dedup kept the lower-scored duplicate (score %d)", r.Score)
		}
	}

	scored, err := p.Sentiment(ctx)
	if err != nil {
		t.Fatalf("Sentiment: %v", err)
	}
	if len(scored) != len(pre.Kept) {
		t.Errorf("Scored %d records, want %d", len(scored), len(pre.Kept))
	}

	topicRes, err := p.Topics(ctx)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}
	if len(topicRes.Records) != len(pre.Kept) {
		t.Errorf("Assigned %d records, want %d", len(topicRes.Records), len(pre.Kept))
	}

	merged, err := p.Overlay(ctx)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if len(merged.Records) != len(pre.Kept) {
		t.Errorf("Merged %d records, want %d", len(merged.Records), len(pre.Kept))
	}
	if merged.UnmatchedSentiment != 0 || merged.UnmatchedTopics != 0 || merged.TextMismatches != 0 {
		t.Errorf("Join diagnostics not clean: %+v", merged)
	}

	if err := p.Report(ctx); err != nil {
		t.Fatalf("Report: %v", err)
	}

	for _, name := range []string{
		FilteredPostsFile, KeywordPostsFile, FilterStatsFile,
		SentimentPostsFile, TopicPostsFile, TopicTopWordsFile,
		MergedPostsFile, OverlayTableFile, OverlayMarkdownFile,
		FunnelFile, SummaryFile, SentimentReportFile, TopicReportFile,
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Artifact %s missing: %v", name, err)
		}
	}

	// The sentiment artifact must read back with IDs intact for later joins.
	rows, err := csvio.ReadSentiment(filepath.Join(dir, SentimentPostsFile))
	if err != nil {
		t.Fatalf("ReadSentiment: %v", err)
	}
	if len(rows) != len(pre.Kept) {
		t.Errorf("Artifact holds %d rows, want %d", len(rows), len(pre.Kept))
	}
	for i, r := range rows {
		if r.ID != pre.Kept[i].ID {
			t.Errorf("Row %d has ID %q, want %q", i, r.ID, pre.Kept[i].ID)
		}
	}
}

func TestPreprocessStoresStages(t *testing.T) {
	ctx := context.Background()
	cfg := e2eConfig(t.TempDir())

	st := memstore.New()
	p := New(Options{Config: cfg, Store: st})
	defer p.Close()

	if err := st.SaveStage(ctx, store.StageRaw, seedCorpus()); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Preprocess(ctx); err != nil {
		t.Fatalf("Preprocess: %v", err)
	}

	cleaned, err := st.LoadStage(ctx, store.StageCleaned)
	if err != nil {
		t.Fatalf("Cleaned stage missing: %v", err)
	}
	filtered, err := st.LoadStage(ctx, store.StageFiltered)
	if err != nil {
		t.Fatalf("Filtered stage missing: %v", err)
	}
	if len(cleaned) < len(filtered) {
		t.Errorf("Cleaned stage (%d) should be no smaller than filtered (%d)", len(cleaned), len(filtered))
	}
	if _, err := st.LoadStage(ctx, store.StageKeywords); err != nil {
		t.Errorf("Keyword stage missing: %v", err)
	}
	if _, err := st.LoadFilterStats(ctx); err != nil {
		t.Errorf("Filter stats missing: %v", err)
	}
}
