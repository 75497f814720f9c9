package collect

import (
	"context"
	"errors"
	"testing"

	"github.com/samroof/banpulse/internal/reddit"
	"github.com/samroof/banpulse/pkg/banpulse/store"
	"github.com/samroof/banpulse/pkg/banpulse/store/memstore"
)

// fakeSource serves canned posts and records which pairs were searched.
type fakeSource struct {
	posts       map[string][]reddit.Post // "sub/term" -> posts
	searched    []string
	failSearch  map[string]bool
	failComment bool
}

func (f *fakeSource) Search(_ context.Context, subreddit, query string, _ int) ([]reddit.Post, error) {
	key := subreddit + "/" + query
	f.searched = append(f.searched, key)
	if f.failSearch[key] {
		return nil, errors.New("rate limited")
	}
	return f.posts[key], nil
}

func (f *fakeSource) TopComments(_ context.Context, postID string, _ int) ([]string, error) {
	if f.failComment {
		return nil, errors.New("comments unavailable")
	}
	return []string{"comment on " + postID}, nil
}

func post(id string) reddit.Post {
	return reddit.Post{
		ID:         id,
		Title:      "Post " + id,
		Selftext:   "Body " + id,
		Score:      5,
		Author:     "author",
		URL:        "https://example.com/" + id,
		CreatedUTC: 1.7e9,
	}
}

func testCollector(src Source, st store.Store, subs, terms []string) *Collector {
	return New(src, st, Config{
		Subreddits:  subs,
		SearchTerms: terms,
		SearchLimit: 100,
		TopComments: 5,
	}, nil)
}

func TestRunCollectsCrossProduct(t *testing.T) {
	src := &fakeSource{posts: map[string][]reddit.Post{
		"a/x": {post("1"), post("2")},
		"a/y": {post("3")},
		"b/x": {post("4")},
	}}
	st := memstore.New()
	defer st.Close()

	res, err := testCollector(src, st, []string{"a", "b"}, []string{"x", "y"}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 4 {
		t.Fatalf("Collected %d records, want 4", len(res.Records))
	}
	if len(res.Pairs) != 4 {
		t.Fatalf("Tracked %d pairs, want 4", len(res.Pairs))
	}

	seen := make(map[string]struct{})
	for _, r := range res.Records {
		if r.ID == "" {
			t.Error("Record missing ID")
		}
		if _, dup := seen[r.ID]; dup {
			t.Errorf("Duplicate ID %q", r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.TopComments == "" {
			t.Errorf("Record %s missing comments", r.ID)
		}
	}

	// Raw stage snapshot must match the run output.
	raw, err := st.LoadStage(context.Background(), store.StageRaw)
	if err != nil {
		t.Fatalf("LoadStage: %v", err)
	}
	if len(raw) != 4 {
		t.Errorf("Raw stage has %d records", len(raw))
	}
}

func TestRunResumeSkipsDonePairs(t *testing.T) {
	st := memstore.New()
	defer st.Close()
	ctx := context.Background()

	// Simulate an earlier run that finished pair a/x.
	err := st.SaveCheckpoint(ctx, store.Checkpoint{
		Pairs: []store.PairProgress{{Subreddit: "a", SearchTerm: "x", Count: 1, Done: true}},
	})
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{posts: map[string][]reddit.Post{
		"a/x": {post("1")},
		"a/y": {post("2")},
	}}
	res, err := testCollector(src, st, []string{"a"}, []string{"x", "y"}).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, key := range src.searched {
		if key == "a/x" {
			t.Error("Finished pair was searched again")
		}
	}
	if len(res.Records) != 1 {
		t.Errorf("Collected %d records, want 1 (only the unfinished pair)", len(res.Records))
	}
}

func TestRunSkipsFailedPair(t *testing.T) {
	src := &fakeSource{
		posts:      map[string][]reddit.Post{"a/y": {post("1")}},
		failSearch: map[string]bool{"a/x": true},
	}
	st := memstore.New()
	defer st.Close()

	res, err := testCollector(src, st, []string{"a"}, []string{"x", "y"}).Run(context.Background())
	if err != nil {
		t.Fatalf("A single failed search must not abort the run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Collected %d records, want 1", len(res.Records))
	}

	// The failed pair stays unfinished so a rerun retries it.
	for _, p := range res.Pairs {
		if p.Subreddit == "a" && p.SearchTerm == "x" && p.Done {
			t.Error("Failed pair marked done")
		}
	}
}

func TestRunDegradesOnCommentFailure(t *testing.T) {
	src := &fakeSource{
		posts:       map[string][]reddit.Post{"a/x": {post("1")}},
		failComment: true,
	}
	st := memstore.New()
	defer st.Close()

	res, err := testCollector(src, st, []string{"a"}, []string{"x"}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Fatalf("Collected %d records", len(res.Records))
	}
	if res.Records[0].TopComments != "" {
		t.Errorf("Comment failure should leave comments empty, got %q", res.Records[0].TopComments)
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{posts: map[string][]reddit.Post{"a/x": {post("1")}}}
	st := memstore.New()
	defer st.Close()

	c := New(src, st, Config{
		Subreddits:  []string{"a"},
		SearchTerms: []string{"x"},
		SearchLimit: 100,
		TopComments: 5,
		PostDelay:   1, // force at least one ctx-aware sleep
	}, nil)

	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run with canceled context returned %v", err)
	}
}

func TestParseCreated(t *testing.T) {
	if got := parseCreated(0); !got.IsZero() {
		t.Errorf("parseCreated(0) = %v, want zero", got)
	}
	if got := parseCreated(-5); !got.IsZero() {
		t.Errorf("parseCreated(-5) = %v, want zero", got)
	}
	got := parseCreated(1.7e9)
	if got.Unix() != 1700000000 {
		t.Errorf("parseCreated(1.7e9) = %v", got)
	}
}

func TestUpsertPair(t *testing.T) {
	pairs := []store.PairProgress{{Subreddit: "a", SearchTerm: "x", Count: 1}}
	pairs = upsertPair(pairs, store.PairProgress{Subreddit: "a", SearchTerm: "x", Count: 3, Done: true})
	if len(pairs) != 1 {
		t.Fatalf("Upsert duplicated the pair: %d entries", len(pairs))
	}
	if pairs[0].Count != 3 || !pairs[0].Done {
		t.Errorf("Pair not updated: %+v", pairs[0])
	}

	pairs = upsertPair(pairs, store.PairProgress{Subreddit: "b", SearchTerm: "x"})
	if len(pairs) != 2 {
		t.Errorf("New pair not appended")
	}
}
