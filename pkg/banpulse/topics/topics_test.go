package topics

import (
	"testing"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

func enrichRecords() []record.Record {
	recs := []record.Record{
		{ID: "1", Title: "Verification systems", Selftext: "Verification verification parent parent"},
		{ID: "2", Title: "Verification parent", Selftext: "Verification parent verification parent"},
		{ID: "3", Title: "Teenager addiction", Selftext: "Addiction teenager addiction teenager"},
		{ID: "4", Title: "Teenager addiction", Selftext: "Teenager addiction addiction teenager"},
		{ID: "5", Title: "Verification parent", Selftext: "Parent verification parent verification"},
		{ID: "6", Title: "Teenager addiction", Selftext: "Addiction teenager teenager addiction"},
		// Entirely out of vocabulary after pruning.
		{ID: "7", Title: "Zzz", Selftext: "Qqq www eee"},
	}
	return recs
}

func testEnricherConfig() Config {
	return Config{
		NumTopics:   2,
		Seed:        42,
		Passes:      10,
		MinTokenLen: 3,
		MinDocFreq:  2,
		MaxDocRatio: 0.9,
		TopWords:    3,
	}
}

func TestEnrichAssignsTopics(t *testing.T) {
	e, err := NewEnricher(testEnricherConfig(), nil)
	if err != nil {
		t.Fatalf("NewEnricher: %v", err)
	}

	res, err := e.Enrich(enrichRecords())
	if err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if len(res.Records) != 7 {
		t.Fatalf("Enrich returned %d records", len(res.Records))
	}

	for _, r := range res.Records[:6] {
		if !r.HasTopic() {
			t.Errorf("Record %s got no topic", r.ID)
		}
		if r.TopicProbability <= 0 || r.TopicProbability > 1 {
			t.Errorf("Record %s probability %v out of range", r.ID, r.TopicProbability)
		}
	}

	oov := res.Records[6]
	if oov.HasTopic() {
		t.Errorf("Out-of-vocabulary record got topic %d", oov.DominantTopic)
	}
	if len(res.TopWords) != 2 {
		t.Errorf("TopWords has %d topics, want 2", len(res.TopWords))
	}
}

func TestEnrichDeterministic(t *testing.T) {
	run := func() *Result {
		e, err := NewEnricher(testEnricherConfig(), nil)
		if err != nil {
			t.Fatalf("NewEnricher: %v", err)
		}
		res, err := e.Enrich(enrichRecords())
		if err != nil {
			t.Fatalf("Enrich: %v", err)
		}
		return res
	}

	a, b := run(), run()
	for i := range a.Records {
		if a.Records[i].DominantTopic != b.Records[i].DominantTopic {
			t.Fatalf("Record %d assigned differently across identical runs", i)
		}
		if a.Records[i].TopicProbability != b.Records[i].TopicProbability {
			t.Fatalf("Record %d probability differs across identical runs", i)
		}
	}
}
