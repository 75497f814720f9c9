package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/store"
)

func openTestStore(t *testing.T) (store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st, path
}

func testRecords() []record.Record {
	return []record.Record{
		{
			ID:            "01A",
			Subreddit:     "australia",
			SearchTerm:    "under 16",
			Title:         "Ban announced",
			Selftext:      "Body text",
			Score:         12,
			NumComments:   4,
			Author:        "someone",
			URL:           "https://example.com/a",
			CreatedUTC:    time.Date(2024, 11, 28, 9, 0, 0, 0, time.UTC),
			TopComments:   "first" + record.CommentSeparator + "second",
			ProfanityFlag: true,
		},
		{ID: "01B", Title: "Minimal record"},
	}
}

func TestStageRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	want := testRecords()
	if err := st.SaveStage(ctx, store.StageRaw, want); err != nil {
		t.Fatalf("SaveStage: %v", err)
	}
	got, err := st.LoadStage(ctx, store.StageRaw)
	if err != nil {
		t.Fatalf("LoadStage: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestStageReplacedOnSave(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	if err := st.SaveStage(ctx, store.StageRaw, testRecords()); err != nil {
		t.Fatal(err)
	}
	replacement := []record.Record{{ID: "01C", Title: "Only survivor"}}
	if err := st.SaveStage(ctx, store.StageRaw, replacement); err != nil {
		t.Fatal(err)
	}

	got, err := st.LoadStage(ctx, store.StageRaw)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "01C" {
		t.Errorf("Stage not replaced, got %+v", got)
	}
}

func TestStageOrderPreserved(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	var recs []record.Record
	for _, id := range []string{"z", "a", "m", "b"} {
		recs = append(recs, record.Record{ID: id})
	}
	if err := st.SaveStage(ctx, store.StageFiltered, recs); err != nil {
		t.Fatal(err)
	}
	got, err := st.LoadStage(ctx, store.StageFiltered)
	if err != nil {
		t.Fatal(err)
	}
	for i := range recs {
		if got[i].ID != recs[i].ID {
			t.Fatalf("Position %d holds %q, want %q", i, got[i].ID, recs[i].ID)
		}
	}
}

func TestMissingStage(t *testing.T) {
	st, _ := openTestStore(t)
	if _, err := st.LoadStage(context.Background(), store.StageKeywords); !errors.Is(err, internalerr.ErrNotFound) {
		t.Errorf("Missing stage returned %v, want ErrNotFound", err)
	}
}

func TestReservedStageRejected(t *testing.T) {
	st, _ := openTestStore(t)
	err := st.SaveStage(context.Background(), "checkpoint", testRecords())
	if !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Reserved stage returned %v, want ErrInvalidInput", err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := st.LoadCheckpoint(ctx); !errors.Is(err, internalerr.ErrNoCheckpoint) {
		t.Fatalf("Fresh database returned %v, want ErrNoCheckpoint", err)
	}

	cp := store.Checkpoint{
		Records: testRecords(),
		Pairs: []store.PairProgress{
			{Subreddit: "australia", SearchTerm: "under 16", Count: 2, Done: true},
			{Subreddit: "technology", SearchTerm: "age verification", Count: 0, Done: false},
		},
	}
	if err := st.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint: %v", err)
	}

	got, err := st.LoadCheckpoint(ctx)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if !reflect.DeepEqual(got.Records, cp.Records) {
		t.Errorf("Records mismatch:\n got %+v\nwant %+v", got.Records, cp.Records)
	}
	if len(got.Pairs) != 2 {
		t.Fatalf("Loaded %d pairs", len(got.Pairs))
	}
	if !got.PairDone("australia", "under 16") {
		t.Error("Done pair not reported")
	}
	if got.PairDone("technology", "age verification") {
		t.Error("Unfinished pair reported done")
	}
}

func TestCheckpointSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reopen.db")

	st, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	cp := store.Checkpoint{Records: testRecords()}
	if err := st.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatal(err)
	}
	if err := st.Close(); err != nil {
		t.Fatal(err)
	}

	st2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer st2.Close()
	got, err := st2.LoadCheckpoint(ctx)
	if err != nil {
		t.Fatalf("LoadCheckpoint after reopen: %v", err)
	}
	if len(got.Records) != len(cp.Records) {
		t.Errorf("Loaded %d records after reopen, want %d", len(got.Records), len(cp.Records))
	}
}

func TestFilterStatsRoundTrip(t *testing.T) {
	st, _ := openTestStore(t)
	ctx := context.Background()

	if _, err := st.LoadFilterStats(ctx); !errors.Is(err, internalerr.ErrNotFound) {
		t.Fatalf("Fresh database returned %v, want ErrNotFound", err)
	}

	want := filter.Stats{Initial: 50, ProfanityFlagged: 3}
	for i, name := range filter.StepNames() {
		want.Steps = append(want.Steps, filter.StepCount{Name: name, Removed: i * 2})
	}
	if err := st.SaveFilterStats(ctx, want); err != nil {
		t.Fatalf("SaveFilterStats: %v", err)
	}

	got, err := st.LoadFilterStats(ctx)
	if err != nil {
		t.Fatalf("LoadFilterStats: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
