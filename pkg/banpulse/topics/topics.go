package topics

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// Config holds topic-enrichment parameters.
type Config struct {
	NumTopics   int
	Seed        int64
	Passes      int
	MinTokenLen int
	MinDocFreq  int
	MaxDocRatio float64
	TopWords    int
	ExtraStops  []string
}

// AssignedRecord is a record with its dominant topic. DominantTopic is -1
// when the document produced no in-vocabulary tokens.
type AssignedRecord struct {
	record.Record

	Tokens           []string
	DominantTopic    int
	TopicProbability float64
}

// HasTopic reports whether the record received a topic assignment.
func (a AssignedRecord) HasTopic() bool {
	return a.DominantTopic >= 0
}

// Result is a full topic-enrichment run: assignments, the trained model's top
// words per topic, and the dictionary both passes shared.
type Result struct {
	Records  []AssignedRecord
	TopWords [][]string
	Dict     *Dictionary
}

// Enricher tokenizes post text, trains the topic model, and assigns each
// record its dominant topic.
type Enricher struct {
	tok *Tokenizer
	cfg Config
	log *zap.Logger
}

// NewEnricher creates a topic enricher.
func NewEnricher(cfg Config, log *zap.Logger) (*Enricher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tok, err := NewTokenizer(cfg.MinTokenLen, cfg.ExtraStops)
	if err != nil {
		return nil, fmt.Errorf("build tokenizer: %w", err)
	}
	return &Enricher{tok: tok, cfg: cfg, log: log}, nil
}

// Enrich runs preprocessing, training and assignment over the record set.
// The dictionary is built once and used for both the training corpus and the
// assignment pass, so the two can never drift apart.
func (e *Enricher) Enrich(recs []record.Record) (*Result, error) {
	docs := make([][]string, len(recs))
	for i, r := range recs {
		docs[i] = e.tok.Tokenize(r.FullText())
	}

	dict := BuildDictionary(docs, e.cfg.MinDocFreq, e.cfg.MaxDocRatio)
	e.log.Info("dictionary built",
		zap.Int("documents", len(docs)),
		zap.Int("vocabulary", dict.Size()))

	corpus := make([][]int, len(docs))
	for i, doc := range docs {
		corpus[i] = dict.BOW(doc)
	}

	lda := NewLDA(e.cfg.NumTopics, e.cfg.Passes, e.cfg.Seed)
	model, err := lda.Fit(corpus, dict.Size())
	if err != nil {
		return nil, fmt.Errorf("train topic model: %w", err)
	}
	e.log.Info("topic model trained",
		zap.Int("topics", e.cfg.NumTopics),
		zap.Int64("seed", e.cfg.Seed))

	out := make([]AssignedRecord, len(recs))
	assigned := 0
	for i, r := range recs {
		ar := AssignedRecord{Record: r, Tokens: docs[i], DominantTopic: -1}
		if topic, prob, ok := model.DominantTopic(i); ok {
			ar.DominantTopic = topic
			ar.TopicProbability = prob
			assigned++
		}
		out[i] = ar
	}
	e.log.Info("topics assigned",
		zap.Int("assigned", assigned),
		zap.Int("unassigned", len(recs)-assigned))

	return &Result{
		Records:  out,
		TopWords: model.TopWords(dict, e.cfg.TopWords),
		Dict:     dict,
	}, nil
}
