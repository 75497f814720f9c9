package topics

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/samroof/banpulse/pkg/banpulse/internalerr"
)

// LDA trains a latent Dirichlet allocation topic model with collapsed Gibbs
// sampling. All randomness flows from the configured seed, so a run is fully
// reproducible.
type LDA struct {
	K          int
	Alpha      float64 // document-topic smoothing
	Beta       float64 // topic-word smoothing
	Iterations int     // full Gibbs sweeps over the corpus
	Seed       int64
}

// NewLDA creates a sampler with the conventional smoothing defaults.
func NewLDA(k int, iterations int, seed int64) *LDA {
	if iterations <= 0 {
		iterations = 10
	}
	return &LDA{
		K:          k,
		Alpha:      50.0 / float64(k),
		Beta:       0.01,
		Iterations: iterations,
		Seed:       seed,
	}
}

// Model is a trained topic model together with the per-document topic
// distributions for the training corpus.
type Model struct {
	K     int
	alpha float64
	beta  float64

	topicWord   [][]float64 // K x V assignment counts
	topicTotals []float64   // K
	theta       [][]float64 // D x K document-topic distributions
	docLens     []int
}

// Fit trains the model over bag-of-words documents (flat term-id sequences
// from one Dictionary). Empty documents are allowed; they get no topic mass.
func (l *LDA) Fit(docs [][]int, vocabSize int) (*Model, error) {
	if l.K <= 0 {
		return nil, fmt.Errorf("%w: topic count %d", internalerr.ErrInvalidInput, l.K)
	}
	if vocabSize == 0 || len(docs) == 0 {
		return nil, internalerr.ErrEmptyCorpus
	}

	rnd := rand.New(rand.NewSource(l.Seed))

	topicWord := make([][]float64, l.K)
	for k := range topicWord {
		topicWord[k] = make([]float64, vocabSize)
	}
	topicTotals := make([]float64, l.K)
	docTopic := make([][]float64, len(docs))
	assignments := make([][]int, len(docs))

	// Random initialization
	for d, doc := range docs {
		docTopic[d] = make([]float64, l.K)
		assignments[d] = make([]int, len(doc))
		for i, w := range doc {
			k := rnd.Intn(l.K)
			assignments[d][i] = k
			docTopic[d][k]++
			topicWord[k][w]++
			topicTotals[k]++
		}
	}

	// Collapsed Gibbs sweeps
	vBeta := float64(vocabSize) * l.Beta
	probs := make([]float64, l.K)
	for it := 0; it < l.Iterations; it++ {
		for d, doc := range docs {
			for i, w := range doc {
				old := assignments[d][i]
				docTopic[d][old]--
				topicWord[old][w]--
				topicTotals[old]--

				total := 0.0
				for k := 0; k < l.K; k++ {
					p := (docTopic[d][k] + l.Alpha) *
						(topicWord[k][w] + l.Beta) / (topicTotals[k] + vBeta)
					probs[k] = p
					total += p
				}

				target := rnd.Float64() * total
				next := 0
				for acc := probs[0]; acc < target && next < l.K-1; {
					next++
					acc += probs[next]
				}

				assignments[d][i] = next
				docTopic[d][next]++
				topicWord[next][w]++
				topicTotals[next]++
			}
		}
	}

	theta := make([][]float64, len(docs))
	docLens := make([]int, len(docs))
	kAlpha := float64(l.K) * l.Alpha
	for d, doc := range docs {
		docLens[d] = len(doc)
		theta[d] = make([]float64, l.K)
		for k := 0; k < l.K; k++ {
			theta[d][k] = (docTopic[d][k] + l.Alpha) / (float64(len(doc)) + kAlpha)
		}
	}

	return &Model{
		K:           l.K,
		alpha:       l.Alpha,
		beta:        l.Beta,
		topicWord:   topicWord,
		topicTotals: topicTotals,
		theta:       theta,
		docLens:     docLens,
	}, nil
}

// DocumentTopics returns the trained topic distribution for document d.
// ok is false when the document contributed no in-vocabulary tokens.
func (m *Model) DocumentTopics(d int) ([]float64, bool) {
	if d < 0 || d >= len(m.theta) {
		return nil, false
	}
	if m.docLens[d] == 0 {
		return nil, false
	}
	return m.theta[d], true
}

// DominantTopic returns the highest-probability topic for document d.
func (m *Model) DominantTopic(d int) (topic int, prob float64, ok bool) {
	dist, ok := m.DocumentTopics(d)
	if !ok {
		return -1, 0, false
	}
	topic = 0
	prob = dist[0]
	for k := 1; k < len(dist); k++ {
		if dist[k] > prob {
			topic, prob = k, dist[k]
		}
	}
	return topic, prob, true
}

// TopWords returns the n highest-weight terms for each topic.
func (m *Model) TopWords(dict *Dictionary, n int) [][]string {
	out := make([][]string, m.K)
	for k := 0; k < m.K; k++ {
		type weighted struct {
			id     int
			weight float64
		}
		terms := make([]weighted, len(m.topicWord[k]))
		for w, count := range m.topicWord[k] {
			terms[w] = weighted{id: w, weight: count}
		}
		sort.Slice(terms, func(i, j int) bool {
			if terms[i].weight != terms[j].weight {
				return terms[i].weight > terms[j].weight
			}
			return terms[i].id < terms[j].id
		})

		limit := n
		if limit > len(terms) {
			limit = len(terms)
		}
		words := make([]string, 0, limit)
		for _, t := range terms[:limit] {
			words = append(words, dict.Term(t.id))
		}
		out[k] = words
	}
	return out
}
