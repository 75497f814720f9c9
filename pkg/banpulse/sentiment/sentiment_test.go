package sentiment

import (
	"math"
	"testing"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

func TestLabelThresholds(t *testing.T) {
	cases := []struct {
		compound float64
		want     string
	}{
		{0.5, LabelPositive},
		{0.05, LabelPositive},
		{0.049, LabelNeutral},
		{0, LabelNeutral},
		{-0.049, LabelNeutral},
		{-0.05, LabelNegative},
		{-0.9, LabelNegative},
	}
	for _, tc := range cases {
		if got := Label(tc.compound); got != tc.want {
			t.Errorf("Label(%v) = %q, want %q", tc.compound, got, tc.want)
		}
	}
}

func TestScorePolarity(t *testing.T) {
	a := NewAnalyzer()

	pos := a.Score(record.Record{
		Title:    "This is wonderful news",
		Selftext: "I love this decision, it is a great and happy outcome.",
	})
	if pos.Post.Compound <= 0 {
		t.Errorf("Positive text scored compound %v", pos.Post.Compound)
	}
	if pos.PostLabel != LabelPositive {
		t.Errorf("Positive text labeled %q", pos.PostLabel)
	}

	neg := a.Score(record.Record{
		Title:    "This is terrible news",
		Selftext: "I hate this awful decision, it is a horrible disaster.",
	})
	if neg.Post.Compound >= 0 {
		t.Errorf("Negative text scored compound %v", neg.Post.Compound)
	}
	if neg.PostLabel != LabelNegative {
		t.Errorf("Negative text labeled %q", neg.PostLabel)
	}
}

func TestScoreDeltas(t *testing.T) {
	a := NewAnalyzer()
	s := a.Score(record.Record{
		Title:       "The ban was announced today",
		Selftext:    "Here is what the new law says.",
		TopComments: "I absolutely love this, fantastic move!",
	})

	wantComment := s.Comment.Compound - s.Post.Compound
	if math.Abs(s.CommentVsPost-wantComment) > 1e-12 {
		t.Errorf("CommentVsPost = %v, want %v", s.CommentVsPost, wantComment)
	}
	wantFull := s.Full.Compound - s.Post.Compound
	if math.Abs(s.FullVsPost-wantFull) > 1e-12 {
		t.Errorf("FullVsPost = %v, want %v", s.FullVsPost, wantFull)
	}
}

func TestScoreAllPreservesOrder(t *testing.T) {
	a := NewAnalyzer()
	recs := []record.Record{
		{ID: "a", Title: "first"},
		{ID: "b", Title: "second"},
		{ID: "c", Title: "third"},
	}
	scored := a.ScoreAll(recs)
	if len(scored) != 3 {
		t.Fatalf("ScoreAll returned %d records", len(scored))
	}
	for i, s := range scored {
		if s.ID != recs[i].ID {
			t.Errorf("Position %d has ID %q, want %q", i, s.ID, recs[i].ID)
		}
	}
}

func TestEmptyCommentsScoreNeutral(t *testing.T) {
	a := NewAnalyzer()
	s := a.Score(record.Record{Title: "A title", Selftext: "A body"})
	if s.Comment.Compound != 0 {
		t.Errorf("Empty comments scored compound %v, want 0", s.Comment.Compound)
	}
	if s.CommentLabel != LabelNeutral {
		t.Errorf("Empty comments labeled %q, want %q", s.CommentLabel, LabelNeutral)
	}
}
