package sentiment

import (
	"github.com/jonreiter/govader"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// Three-way labels derived from the compound score.
const (
	LabelPositive = "Positive"
	LabelNeutral  = "Neutral"
	LabelNegative = "Negative"
)

// compoundThreshold is the ±band around zero that maps to Neutral.
const compoundThreshold = 0.05

// Scores is one lexicon scoring result for a span of text.
type Scores struct {
	Negative float64
	Neutral  float64
	Positive float64
	Compound float64
}

// ScoredRecord is a record with sentiment scored over three spans: the post
// text, the top comments, and both together.
type ScoredRecord struct {
	record.Record

	Post    Scores
	Comment Scores
	Full    Scores

	PostLabel    string
	CommentLabel string
	FullLabel    string

	CommentVsPost float64
	FullVsPost    float64
}

// Analyzer scores records with the VADER lexicon.
type Analyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewAnalyzer creates an analyzer with the default lexicon.
func NewAnalyzer() *Analyzer {
	return &Analyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// Score enriches one record. Missing comment text scores as the empty string.
func (a *Analyzer) Score(r record.Record) ScoredRecord {
	post := a.score(r.FullText())
	comment := a.score(r.TopComments)
	full := a.score(r.ContextText())

	return ScoredRecord{
		Record:        r,
		Post:          post,
		Comment:       comment,
		Full:          full,
		PostLabel:     Label(post.Compound),
		CommentLabel:  Label(comment.Compound),
		FullLabel:     Label(full.Compound),
		CommentVsPost: comment.Compound - post.Compound,
		FullVsPost:    full.Compound - post.Compound,
	}
}

// ScoreAll enriches a record set, preserving order.
func (a *Analyzer) ScoreAll(recs []record.Record) []ScoredRecord {
	out := make([]ScoredRecord, len(recs))
	for i, r := range recs {
		out[i] = a.Score(r)
	}
	return out
}

func (a *Analyzer) score(text string) Scores {
	s := a.sia.PolarityScores(text)
	return Scores{
		Negative: s.Negative,
		Neutral:  s.Neutral,
		Positive: s.Positive,
		Compound: s.Compound,
	}
}

// Label maps a compound score to its three-way label: >= 0.05 Positive,
// <= -0.05 Negative, Neutral between.
func Label(compound float64) string {
	switch {
	case compound >= compoundThreshold:
		return LabelPositive
	case compound <= -compoundThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}
