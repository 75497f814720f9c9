package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/samroof/banpulse/pkg/banpulse/overlay"
	"github.com/samroof/banpulse/pkg/banpulse/topics"
)

// Quote is a representative post excerpt for one topic.
type Quote struct {
	Topic       int
	Subreddit   string
	Probability float64
	Text        string
}

// quoteWindow is the text-length band a representative quote must fall in,
// with idealQuoteLen the preferred length inside it.
const (
	quoteMinLen   = 200
	quoteMaxLen   = 300
	idealQuoteLen = 250
	quoteMinProb  = 0.5
)

// LongPostMinLen is the minimum full-text length for the longest-posts
// extract.
const LongPostMinLen = 100

// RepresentativeQuotes picks up to n quotes per topic: posts whose full text
// falls in the 200-300 character window, assigned with probability at least
// 0.5, preferring lengths closest to 250.
func RepresentativeQuotes(recs []topics.AssignedRecord, numTopics, n int) []Quote {
	perTopic := make(map[int][]topics.AssignedRecord)
	for _, r := range recs {
		if !r.HasTopic() || r.TopicProbability < quoteMinProb {
			continue
		}
		l := len(r.FullText())
		if l < quoteMinLen || l > quoteMaxLen {
			continue
		}
		perTopic[r.DominantTopic] = append(perTopic[r.DominantTopic], r)
	}

	var out []Quote
	for t := 0; t < numTopics; t++ {
		pool := perTopic[t]
		sort.Slice(pool, func(i, j int) bool {
			di := abs(len(pool[i].FullText()) - idealQuoteLen)
			dj := abs(len(pool[j].FullText()) - idealQuoteLen)
			if di != dj {
				return di < dj
			}
			return pool[i].ID < pool[j].ID
		})
		take := n
		if take > len(pool) {
			take = len(pool)
		}
		for _, r := range pool[:take] {
			out = append(out, Quote{
				Topic:       t,
				Subreddit:   r.Subreddit,
				Probability: r.TopicProbability,
				Text:        r.FullText(),
			})
		}
	}
	return out
}

// LongestPosts returns up to n of the longest posts per topic, skipping posts
// whose full text is not longer than minLen characters.
func LongestPosts(recs []topics.AssignedRecord, numTopics, n, minLen int) []Quote {
	perTopic := make(map[int][]topics.AssignedRecord)
	for _, r := range recs {
		if !r.HasTopic() || len(r.FullText()) <= minLen {
			continue
		}
		perTopic[r.DominantTopic] = append(perTopic[r.DominantTopic], r)
	}

	var out []Quote
	for t := 0; t < numTopics; t++ {
		pool := perTopic[t]
		sort.Slice(pool, func(i, j int) bool {
			li, lj := len(pool[i].FullText()), len(pool[j].FullText())
			if li != lj {
				return li > lj
			}
			return pool[i].ID < pool[j].ID
		})
		take := n
		if take > len(pool) {
			take = len(pool)
		}
		for _, r := range pool[:take] {
			out = append(out, Quote{
				Topic:       t,
				Subreddit:   r.Subreddit,
				Probability: r.TopicProbability,
				Text:        excerpt(r.FullText(), 500),
			})
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// TopicsMarkdown renders the topic model summary: top words per topic plus
// representative quotes.
func TopicsMarkdown(topWords [][]string, quotes, longest []Quote) string {
	var b strings.Builder
	b.WriteString("# Topic Model Summary\n\n")

	b.WriteString("## Top Words per Topic\n\n")
	rows := make([][]string, len(topWords))
	for t, words := range topWords {
		rows[t] = []string{strconv.Itoa(t), strings.Join(words, ", ")}
	}
	b.WriteString(MarkdownTable([]string{"Topic", "Top Words"}, rows))

	if len(quotes) > 0 {
		b.WriteString("\n## Representative Quotes\n\n")
		for _, q := range quotes {
			fmt.Fprintf(&b, "**Topic %d** (r/%s, probability %.3f)\n\n> %s\n\n",
				q.Topic, q.Subreddit, q.Probability, q.Text)
		}
	}

	if len(longest) > 0 {
		b.WriteString("\n## Longest Posts per Topic\n\n")
		for _, q := range longest {
			fmt.Fprintf(&b, "**Topic %d** (r/%s, probability %.3f)\n\n> %s\n\n",
				q.Topic, q.Subreddit, q.Probability, q.Text)
		}
	}
	return b.String()
}

// OverlayMarkdown renders the sentiment-by-topic breakdown with per-topic
// label counts and percentages.
func OverlayMarkdown(shares []overlay.LabelShares, topWords [][]string) string {
	var b strings.Builder
	b.WriteString("# Sentiment by Topic\n\n")

	rows := make([][]string, len(shares))
	for i, s := range shares {
		words := ""
		if s.Topic >= 0 && s.Topic < len(topWords) {
			n := len(topWords[s.Topic])
			if n > 5 {
				n = 5
			}
			words = strings.Join(topWords[s.Topic][:n], ", ")
		}
		rows[i] = []string{
			strconv.Itoa(s.Topic),
			words,
			strconv.Itoa(s.Count),
			percent(s.Negative),
			percent(s.Neutral),
			percent(s.Positive),
		}
	}
	b.WriteString(MarkdownTable(
		[]string{"Topic", "Top Words", "Posts", "Negative", "Neutral", "Positive"}, rows))
	return b.String()
}

func percent(share float64) string {
	return strconv.FormatFloat(share*100, 'f', 1, 64) + "%"
}
