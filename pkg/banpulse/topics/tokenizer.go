package topics

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

var urlPattern = regexp.MustCompile(`http\S+`)

// Tokenizer normalizes post text for topic modeling: lowercase, URLs
// stripped, letters only, stopwords and short tokens dropped, lemmatized.
type Tokenizer struct {
	stopwords  map[string]struct{}
	lemmatizer *golem.Lemmatizer
	minLen     int
}

// NewTokenizer creates a tokenizer. extraStops are added on top of the
// built-in English stopword list.
func NewTokenizer(minLen int, extraStops []string) (*Tokenizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, err
	}

	stops := make(map[string]struct{})
	for _, w := range DefaultStopwords() {
		stops[w] = struct{}{}
	}
	for _, w := range extraStops {
		stops[strings.ToLower(w)] = struct{}{}
	}

	if minLen <= 0 {
		minLen = 3
	}
	return &Tokenizer{stopwords: stops, lemmatizer: lemmatizer, minLen: minLen}, nil
}

// Tokenize splits text into normalized lemmas.
func (t *Tokenizer) Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = urlPattern.ReplaceAllString(text, "")

	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		word := current.String()
		current.Reset()
		if len(word) < t.minLen {
			return
		}
		if _, stop := t.stopwords[word]; stop {
			return
		}
		tokens = append(tokens, t.lemmatizer.Lemma(word))
	}

	for _, r := range text {
		if r >= 'a' && r <= 'z' {
			current.WriteRune(r)
			continue
		}
		if unicode.IsLetter(r) {
			// Non-ASCII letters are dropped, but still break the token.
			flush()
			continue
		}
		flush()
	}
	flush()

	return tokens
}
