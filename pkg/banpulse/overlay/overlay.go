package overlay

import (
	"sort"

	"go.uber.org/zap"

	"github.com/samroof/banpulse/pkg/banpulse/sentiment"
	"github.com/samroof/banpulse/pkg/banpulse/topics"
)

// MergedRecord is a sentiment-scored record joined with its topic assignment.
type MergedRecord struct {
	sentiment.ScoredRecord

	DominantTopic    int
	TopicProbability float64
}

// HasTopic reports whether the merged record carries a topic assignment.
func (m MergedRecord) HasTopic() bool {
	return m.DominantTopic >= 0
}

// MergeResult carries the joined rows plus the join diagnostics. Unmatched
// rows are dropped by the inner join, but their counts are surfaced so a
// silent drift between the enrichment passes cannot go unnoticed.
type MergeResult struct {
	Records            []MergedRecord
	UnmatchedSentiment int
	UnmatchedTopics    int
	TextMismatches     int
}

// Merge inner-joins the two enrichment outputs on record ID. The full text of
// joined rows is compared as a drift check; a mismatch is counted, not fatal.
func Merge(scored []sentiment.ScoredRecord, assigned []topics.AssignedRecord, log *zap.Logger) MergeResult {
	if log == nil {
		log = zap.NewNop()
	}

	byID := make(map[string]topics.AssignedRecord, len(assigned))
	for _, a := range assigned {
		byID[a.ID] = a
	}

	res := MergeResult{}
	matched := make(map[string]struct{}, len(scored))
	for _, s := range scored {
		a, ok := byID[s.ID]
		if !ok {
			res.UnmatchedSentiment++
			continue
		}
		matched[s.ID] = struct{}{}
		if s.FullText() != a.FullText() {
			res.TextMismatches++
		}

		m := MergedRecord{ScoredRecord: s, DominantTopic: -1}
		if a.HasTopic() {
			m.DominantTopic = a.DominantTopic
			m.TopicProbability = a.TopicProbability
		}
		res.Records = append(res.Records, m)
	}
	res.UnmatchedTopics = len(assigned) - len(matched)

	if res.UnmatchedSentiment > 0 || res.UnmatchedTopics > 0 {
		log.Warn("inner join dropped rows",
			zap.Int("unmatched_sentiment", res.UnmatchedSentiment),
			zap.Int("unmatched_topics", res.UnmatchedTopics))
	}
	if res.TextMismatches > 0 {
		log.Warn("full text drifted between enrichment passes",
			zap.Int("mismatches", res.TextMismatches))
	}

	return res
}

// LabelShares is the proportional sentiment breakdown for one topic,
// normalized to sum to 1 when the topic has any rows.
type LabelShares struct {
	Topic    int
	Count    int
	Negative float64
	Neutral  float64
	Positive float64
}

// SentimentByTopic computes, per topic id, the proportional breakdown of the
// three full-context sentiment labels. Topics present in the model but with
// zero joined rows report zero proportions. Rows without a topic are skipped.
func SentimentByTopic(recs []MergedRecord, numTopics int) []LabelShares {
	counts := make(map[int]*LabelShares)
	for t := 0; t < numTopics; t++ {
		counts[t] = &LabelShares{Topic: t}
	}

	type tally struct{ neg, neu, pos int }
	tallies := make(map[int]*tally)
	for _, m := range recs {
		if !m.HasTopic() {
			continue
		}
		if _, ok := counts[m.DominantTopic]; !ok {
			counts[m.DominantTopic] = &LabelShares{Topic: m.DominantTopic}
		}
		if tallies[m.DominantTopic] == nil {
			tallies[m.DominantTopic] = &tally{}
		}
		t := tallies[m.DominantTopic]
		switch m.FullLabel {
		case sentiment.LabelNegative:
			t.neg++
		case sentiment.LabelPositive:
			t.pos++
		default:
			t.neu++
		}
	}

	var out []LabelShares
	for topic, ls := range counts {
		if t := tallies[topic]; t != nil {
			total := t.neg + t.neu + t.pos
			ls.Count = total
			ls.Negative = float64(t.neg) / float64(total)
			ls.Neutral = float64(t.neu) / float64(total)
			ls.Positive = float64(t.pos) / float64(total)
		}
		out = append(out, *ls)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}
