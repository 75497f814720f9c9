// Package csvio reads and writes the pipeline's tabular stage artifacts.
// Column names are part of the interchange contract and must stay stable;
// downstream stages locate columns by header name, not position.
package csvio

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
	"github.com/samroof/banpulse/pkg/banpulse/overlay"
	"github.com/samroof/banpulse/pkg/banpulse/record"
	"github.com/samroof/banpulse/pkg/banpulse/sentiment"
	"github.com/samroof/banpulse/pkg/banpulse/store"
	"github.com/samroof/banpulse/pkg/banpulse/topics"
)

// createdUTCLayout is the timestamp format used in artifacts.
const createdUTCLayout = "2006-01-02 15:04:05"

var recordHeader = []string{
	"ID", "Subreddit", "Search_Term", "Title", "Selftext", "Score",
	"Num_Comments", "Author", "URL", "Created_UTC", "Top_Comments",
	"Profanity_Flag",
}

var sentimentHeader = append(append([]string{}, recordHeader...),
	"Full_Text",
	"Post_neg", "Post_neu", "Post_pos", "Post_compound",
	"Comment_neg", "Comment_neu", "Comment_pos", "Comment_compound",
	"Full_neg", "Full_neu", "Full_pos", "Full_compound",
	"Post_Label", "Comment_Label", "Full_Label",
	"Comment_vs_Post", "Full_vs_Post",
)

var topicsHeader = append(append([]string{}, recordHeader...),
	"Full_Text", "Dominant_Topic", "Topic_Probability",
)

var mergedHeader = append(append([]string{}, sentimentHeader...),
	"Dominant_Topic", "Topic_Probability",
)

// WriteRecords writes a record set.
func WriteRecords(path string, recs []record.Record) error {
	return writeCSV(path, recordHeader, len(recs), func(i int) []string {
		return recordRow(recs[i])
	})
}

// ReadRecords reads a record set written by WriteRecords.
func ReadRecords(path string) ([]record.Record, error) {
	rows, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	recs := make([]record.Record, 0, len(rows))
	for _, row := range rows {
		r, err := recordFromRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		recs = append(recs, r)
	}
	return recs, nil
}

// WritePairCounts writes the per-(subreddit, term) contribution counts.
func WritePairCounts(path string, pairs []store.PairProgress) error {
	header := []string{"Subreddit", "Search_Term", "Count"}
	return writeCSV(path, header, len(pairs), func(i int) []string {
		p := pairs[i]
		return []string{p.Subreddit, p.SearchTerm, strconv.Itoa(p.Count)}
	})
}

// WriteFilterStats writes removal counts as JSON, preserving step order.
func WriteFilterStats(path string, stats filter.Stats) error {
	// Hand-build the object so step order survives in the artifact.
	out := "{\n"
	out += fmt.Sprintf("  %q: %d,\n", "initial", stats.Initial)
	for _, sc := range stats.Steps {
		out += fmt.Sprintf("  %q: %d,\n", sc.Name, sc.Removed)
	}
	out += fmt.Sprintf("  %q: %d\n}", "profanity_flagged", stats.ProfanityFlagged)

	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(out), 0o644)
}

// ReadFilterStats reads a stats artifact written by WriteFilterStats. Step
// order is recovered from the canonical chain order.
func ReadFilterStats(path string) (filter.Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return filter.Stats{}, fmt.Errorf("read filter stats %s: %w", path, err)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return filter.Stats{}, fmt.Errorf("parse filter stats %s: %w", path, err)
	}

	stats := filter.Stats{
		Initial:          raw["initial"],
		ProfanityFlagged: raw["profanity_flagged"],
	}
	for _, name := range filter.StepNames() {
		if removed, ok := raw[name]; ok {
			stats.Steps = append(stats.Steps, filter.StepCount{Name: name, Removed: removed})
		}
	}
	return stats, nil
}

// WriteSentiment writes the sentiment-enriched set.
func WriteSentiment(path string, recs []sentiment.ScoredRecord) error {
	return writeCSV(path, sentimentHeader, len(recs), func(i int) []string {
		return sentimentRow(recs[i])
	})
}

// ReadSentiment reads a set written by WriteSentiment.
func ReadSentiment(path string) ([]sentiment.ScoredRecord, error) {
	rows, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	recs := make([]sentiment.ScoredRecord, 0, len(rows))
	for _, row := range rows {
		base, err := recordFromRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s := sentiment.ScoredRecord{Record: base}
		s.Post = scoresFromRow(row, idx, "Post")
		s.Comment = scoresFromRow(row, idx, "Comment")
		s.Full = scoresFromRow(row, idx, "Full")
		s.PostLabel = field(row, idx, "Post_Label")
		s.CommentLabel = field(row, idx, "Comment_Label")
		s.FullLabel = field(row, idx, "Full_Label")
		s.CommentVsPost = floatField(row, idx, "Comment_vs_Post")
		s.FullVsPost = floatField(row, idx, "Full_vs_Post")
		recs = append(recs, s)
	}
	return recs, nil
}

// WriteTopics writes the topic-assigned set.
func WriteTopics(path string, recs []topics.AssignedRecord) error {
	return writeCSV(path, topicsHeader, len(recs), func(i int) []string {
		r := recs[i]
		row := recordRow(r.Record)
		row = append(row, r.FullText())
		row = append(row, topicFields(r.DominantTopic, r.TopicProbability, r.HasTopic())...)
		return row
	})
}

// ReadTopics reads a set written by WriteTopics.
func ReadTopics(path string) ([]topics.AssignedRecord, error) {
	rows, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	recs := make([]topics.AssignedRecord, 0, len(rows))
	for _, row := range rows {
		base, err := recordFromRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		a := topics.AssignedRecord{Record: base, DominantTopic: -1}
		if raw := field(row, idx, "Dominant_Topic"); raw != "" {
			topic, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: bad Dominant_Topic %q", path, raw)
			}
			a.DominantTopic = topic
			a.TopicProbability = floatField(row, idx, "Topic_Probability")
		}
		recs = append(recs, a)
	}
	return recs, nil
}

// WriteMerged writes the joined sentiment+topic set.
func WriteMerged(path string, recs []overlay.MergedRecord) error {
	return writeCSV(path, mergedHeader, len(recs), func(i int) []string {
		m := recs[i]
		row := sentimentRow(m.ScoredRecord)
		row = append(row, topicFields(m.DominantTopic, m.TopicProbability, m.HasTopic())...)
		return row
	})
}

// WriteTopicTopWords writes the per-topic top-word lists.
func WriteTopicTopWords(path string, topWords [][]string) error {
	header := []string{"Topic", "Rank", "Word"}
	var rows [][]string
	for topic, words := range topWords {
		for rank, word := range words {
			rows = append(rows, []string{
				strconv.Itoa(topic), strconv.Itoa(rank + 1), word,
			})
		}
	}
	return writeCSV(path, header, len(rows), func(i int) []string { return rows[i] })
}

// ReadTopicTopWords reads the per-topic top-word lists, preserving rank order.
func ReadTopicTopWords(path string) ([][]string, error) {
	rows, idx, err := readCSV(path)
	if err != nil {
		return nil, err
	}
	byTopic := make(map[int][]string)
	maxTopic := -1
	for _, row := range rows {
		topic, err := strconv.Atoi(field(row, idx, "Topic"))
		if err != nil {
			return nil, fmt.Errorf("%s: bad Topic %q", path, field(row, idx, "Topic"))
		}
		byTopic[topic] = append(byTopic[topic], field(row, idx, "Word"))
		if topic > maxTopic {
			maxTopic = topic
		}
	}
	out := make([][]string, maxTopic+1)
	for t := 0; t <= maxTopic; t++ {
		out[t] = byTopic[t]
	}
	return out, nil
}

// WriteTable writes an arbitrary header+rows table; the report package uses
// this for its summary artifacts.
func WriteTable(path string, header []string, rows [][]string) error {
	return writeCSV(path, header, len(rows), func(i int) []string { return rows[i] })
}

func recordRow(r record.Record) []string {
	created := ""
	if !r.CreatedUTC.IsZero() {
		created = r.CreatedUTC.UTC().Format(createdUTCLayout)
	}
	return []string{
		r.ID, r.Subreddit, r.SearchTerm, r.Title, r.Selftext,
		strconv.Itoa(r.Score), strconv.Itoa(r.NumComments), r.Author, r.URL,
		created, r.TopComments, strconv.FormatBool(r.ProfanityFlag),
	}
}

func recordFromRow(row []string, idx map[string]int) (record.Record, error) {
	r := record.Record{
		ID:          field(row, idx, "ID"),
		Subreddit:   field(row, idx, "Subreddit"),
		SearchTerm:  field(row, idx, "Search_Term"),
		Title:       field(row, idx, "Title"),
		Selftext:    field(row, idx, "Selftext"),
		Author:      field(row, idx, "Author"),
		URL:         field(row, idx, "URL"),
		TopComments: field(row, idx, "Top_Comments"),
	}
	r.Score, _ = strconv.Atoi(field(row, idx, "Score"))
	r.NumComments, _ = strconv.Atoi(field(row, idx, "Num_Comments"))
	r.ProfanityFlag = field(row, idx, "Profanity_Flag") == "true"

	if created := field(row, idx, "Created_UTC"); created != "" {
		t, err := time.Parse(createdUTCLayout, created)
		if err != nil {
			return r, fmt.Errorf("bad Created_UTC %q", created)
		}
		r.CreatedUTC = t.UTC()
	}
	return r, nil
}

func sentimentRow(s sentiment.ScoredRecord) []string {
	row := recordRow(s.Record)
	row = append(row, s.FullText())
	for _, sc := range []sentiment.Scores{s.Post, s.Comment, s.Full} {
		row = append(row,
			formatFloat(sc.Negative), formatFloat(sc.Neutral),
			formatFloat(sc.Positive), formatFloat(sc.Compound))
	}
	row = append(row, s.PostLabel, s.CommentLabel, s.FullLabel,
		formatFloat(s.CommentVsPost), formatFloat(s.FullVsPost))
	return row
}

func scoresFromRow(row []string, idx map[string]int, prefix string) sentiment.Scores {
	return sentiment.Scores{
		Negative: floatField(row, idx, prefix+"_neg"),
		Neutral:  floatField(row, idx, prefix+"_neu"),
		Positive: floatField(row, idx, prefix+"_pos"),
		Compound: floatField(row, idx, prefix+"_compound"),
	}
}

func topicFields(topic int, prob float64, has bool) []string {
	if !has {
		return []string{"", ""}
	}
	return []string{strconv.Itoa(topic), formatFloat(prob)}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func floatField(row []string, idx map[string]int, name string) float64 {
	f, _ := strconv.ParseFloat(field(row, idx, name), 64)
	return f
}

func writeCSV(path string, header []string, n int, rowAt func(int) []string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(rowAt(i)); err != nil {
			f.Close()
			return fmt.Errorf("write row %d of %s: %w", i, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func readCSV(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}

	idx := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		idx[name] = i
	}
	return all[1:], idx, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
