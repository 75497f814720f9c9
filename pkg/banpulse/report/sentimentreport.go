package report

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"

	"github.com/samroof/banpulse/pkg/banpulse/sentiment"
)

// MeanRow is the average full-context compound score for one grouping key.
type MeanRow struct {
	Key   string
	Count int
	Mean  float64
}

// LabelCounts is the distribution of the three sentiment labels over one span.
type LabelCounts struct {
	Span     string
	Negative int
	Neutral  int
	Positive int
}

// Sample is one quoted comment chosen to illustrate a label.
type Sample struct {
	Label     string
	Subreddit string
	Compound  float64
	Text      string
}

// MeanBySubreddit averages the full-context compound per subreddit, most
// negative first.
func MeanBySubreddit(recs []sentiment.ScoredRecord) []MeanRow {
	return meanBy(recs, func(r sentiment.ScoredRecord) string { return r.Subreddit })
}

// MeanBySearchTerm averages the full-context compound per search term, most
// negative first.
func MeanBySearchTerm(recs []sentiment.ScoredRecord) []MeanRow {
	return meanBy(recs, func(r sentiment.ScoredRecord) string { return r.SearchTerm })
}

func meanBy(recs []sentiment.ScoredRecord, key func(sentiment.ScoredRecord) string) []MeanRow {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range recs {
		k := key(r)
		sums[k] += r.Full.Compound
		counts[k]++
	}

	rows := make([]MeanRow, 0, len(sums))
	for k, sum := range sums {
		rows = append(rows, MeanRow{Key: k, Count: counts[k], Mean: sum / float64(counts[k])})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Mean != rows[j].Mean {
			return rows[i].Mean < rows[j].Mean
		}
		return rows[i].Key < rows[j].Key
	})
	return rows
}

// LabelDistribution counts the three labels for each of the scored spans.
func LabelDistribution(recs []sentiment.ScoredRecord) []LabelCounts {
	post := LabelCounts{Span: "Post"}
	comment := LabelCounts{Span: "Comments"}
	full := LabelCounts{Span: "Full Context"}
	for _, r := range recs {
		tallyLabel(&post, r.PostLabel)
		tallyLabel(&comment, r.CommentLabel)
		tallyLabel(&full, r.FullLabel)
	}
	return []LabelCounts{post, comment, full}
}

func tallyLabel(lc *LabelCounts, label string) {
	switch label {
	case sentiment.LabelNegative:
		lc.Negative++
	case sentiment.LabelPositive:
		lc.Positive++
	default:
		lc.Neutral++
	}
}

// SampleComments draws up to n comment excerpts per comment label, seeded so
// report runs are reproducible. Records without comment text are skipped.
func SampleComments(recs []sentiment.ScoredRecord, n int, seed int64) []Sample {
	byLabel := make(map[string][]sentiment.ScoredRecord)
	for _, r := range recs {
		if strings.TrimSpace(r.TopComments) == "" {
			continue
		}
		byLabel[r.CommentLabel] = append(byLabel[r.CommentLabel], r)
	}

	rng := rand.New(rand.NewSource(seed))
	var out []Sample
	for _, label := range []string{sentiment.LabelNegative, sentiment.LabelNeutral, sentiment.LabelPositive} {
		pool := byLabel[label]
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		take := n
		if take > len(pool) {
			take = len(pool)
		}
		for _, r := range pool[:take] {
			out = append(out, Sample{
				Label:     label,
				Subreddit: r.Subreddit,
				Compound:  r.Comment.Compound,
				Text:      excerpt(r.TopComments, 280),
			})
		}
	}
	return out
}

// excerpt truncates text to max runes, appending an ellipsis when cut.
func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

// SentimentMarkdown renders the full sentiment summary document.
func SentimentMarkdown(recs []sentiment.ScoredRecord, samples []Sample) string {
	var b strings.Builder
	b.WriteString("# Sentiment Summary\n\n")
	fmt.Fprintf(&b, "Posts analyzed: %d\n\n", len(recs))

	b.WriteString("## Label Distribution\n\n")
	dist := LabelDistribution(recs)
	rows := make([][]string, len(dist))
	for i, lc := range dist {
		rows[i] = []string{
			lc.Span,
			strconv.Itoa(lc.Negative),
			strconv.Itoa(lc.Neutral),
			strconv.Itoa(lc.Positive),
		}
	}
	b.WriteString(MarkdownTable([]string{"Span", "Negative", "Neutral", "Positive"}, rows))

	b.WriteString("\n## Mean Compound by Subreddit\n\n")
	b.WriteString(MarkdownTable([]string{"Subreddit", "Posts", "Mean Compound"}, meanRowCells(MeanBySubreddit(recs))))

	b.WriteString("\n## Mean Compound by Search Term\n\n")
	b.WriteString(MarkdownTable([]string{"Search Term", "Posts", "Mean Compound"}, meanRowCells(MeanBySearchTerm(recs))))

	if len(samples) > 0 {
		b.WriteString("\n## Sample Comments\n\n")
		for _, s := range samples {
			fmt.Fprintf(&b, "**%s** (r/%s, compound %.4f)\n\n> %s\n\n", s.Label, s.Subreddit, s.Compound, s.Text)
		}
	}
	return b.String()
}

func meanRowCells(rows []MeanRow) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Key, strconv.Itoa(r.Count), strconv.FormatFloat(r.Mean, 'f', 4, 64)}
	}
	return out
}
