package report

import (
	"regexp"
	"sort"
	"strings"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// CountRow is one (key, count) aggregation line.
type CountRow struct {
	Key   string
	Count int
}

// SubKeywords holds the most frequent title words for one subreddit.
type SubKeywords struct {
	Subreddit string
	Words     []CountRow
}

// Summary holds distribution statistics for a numeric column.
type Summary struct {
	Count  int
	Mean   float64
	Median float64
	Min    int
	Max    int
}

var (
	edaURLPattern   = regexp.MustCompile(`http\S+`)
	edaPunctPattern = regexp.MustCompile(`[^\w\s]`)
	edaDigitPattern = regexp.MustCompile(`\d+`)
)

// cleanTitle normalizes a title for word counting: lowercase, URLs,
// punctuation and digits removed.
func cleanTitle(text string) string {
	text = strings.ToLower(text)
	text = edaURLPattern.ReplaceAllString(text, "")
	text = edaPunctPattern.ReplaceAllString(text, "")
	text = edaDigitPattern.ReplaceAllString(text, "")
	return text
}

// SubredditCounts returns post counts per subreddit, most active first.
func SubredditCounts(recs []record.Record) []CountRow {
	counts := make(map[string]int)
	for _, r := range recs {
		counts[r.Subreddit]++
	}
	return sortCounts(counts, 0)
}

// TopTitleWords returns the n most frequent words across all titles.
func TopTitleWords(recs []record.Record, n int) []CountRow {
	counts := make(map[string]int)
	for _, r := range recs {
		for _, w := range strings.Fields(cleanTitle(r.Title)) {
			counts[w]++
		}
	}
	return sortCounts(counts, n)
}

// KeywordsBySubreddit returns the n most frequent title words per subreddit,
// subreddits in alphabetical order.
func KeywordsBySubreddit(recs []record.Record, n int) []SubKeywords {
	perSub := make(map[string]map[string]int)
	for _, r := range recs {
		if perSub[r.Subreddit] == nil {
			perSub[r.Subreddit] = make(map[string]int)
		}
		for _, w := range strings.Fields(cleanTitle(r.Title)) {
			perSub[r.Subreddit][w]++
		}
	}

	subs := make([]string, 0, len(perSub))
	for sub := range perSub {
		subs = append(subs, sub)
	}
	sort.Strings(subs)

	out := make([]SubKeywords, 0, len(subs))
	for _, sub := range subs {
		out = append(out, SubKeywords{Subreddit: sub, Words: sortCounts(perSub[sub], n)})
	}
	return out
}

// ScoreSummary summarizes the score distribution.
func ScoreSummary(recs []record.Record) Summary {
	return summarize(recs, func(r record.Record) int { return r.Score })
}

// CommentSummary summarizes the comment-count distribution.
func CommentSummary(recs []record.Record) Summary {
	return summarize(recs, func(r record.Record) int { return r.NumComments })
}

func summarize(recs []record.Record, value func(record.Record) int) Summary {
	if len(recs) == 0 {
		return Summary{}
	}

	vals := make([]int, len(recs))
	sum := 0
	for i, r := range recs {
		vals[i] = value(r)
		sum += vals[i]
	}
	sort.Ints(vals)

	median := float64(vals[len(vals)/2])
	if len(vals)%2 == 0 {
		median = float64(vals[len(vals)/2-1]+vals[len(vals)/2]) / 2
	}

	return Summary{
		Count:  len(vals),
		Mean:   float64(sum) / float64(len(vals)),
		Median: median,
		Min:    vals[0],
		Max:    vals[len(vals)-1],
	}
}

// sortCounts orders counts descending, ties alphabetical; n <= 0 keeps all.
func sortCounts(counts map[string]int, n int) []CountRow {
	rows := make([]CountRow, 0, len(counts))
	for k, c := range counts {
		rows = append(rows, CountRow{Key: k, Count: c})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Key < rows[j].Key
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}
