package report

import (
	"strconv"

	"github.com/samroof/banpulse/pkg/banpulse/filter"
)

// FunnelRow is one line of the filtering pipeline summary.
type FunnelRow struct {
	Stage     string
	Remaining int
}

var stepLabels = map[string]string{
	filter.StepDeduplicated:   "After Deduplication",
	filter.StepShortRemoved:   "After Minimum Length Filter",
	filter.StepPlaceholder:    "After Placeholder Filter",
	filter.StepDateFiltered:   "After Date Filter",
	filter.StepScoreFiltered:  "After Score Filter",
	filter.StepLengthFiltered: "After Combined Length Filter",
	filter.StepLangFiltered:   "After Language Filter",
	filter.StepAuthorFiltered: "After Author Filter",
	filter.StepEmptyBody:      "After Empty Body Filter",
}

// Funnel reconstructs "records remaining after each stage" from the filter
// stats by cumulative subtraction, without rerunning any filter. keywordCount
// is the size of the final keyword-gated corpus.
func Funnel(stats filter.Stats, keywordCount int) []FunnelRow {
	rows := []FunnelRow{{Stage: "Raw scraped data", Remaining: stats.Initial}}
	for i, sc := range stats.Steps {
		label, ok := stepLabels[sc.Name]
		if !ok {
			label = "After " + sc.Name
		}
		rows = append(rows, FunnelRow{Stage: label, Remaining: stats.RemainingAfter(i + 1)})
	}
	rows = append(rows,
		FunnelRow{Stage: "After Stage 2 Filters (Final)", Remaining: stats.Final()},
		FunnelRow{Stage: "Keyword Matched (Stage 3)", Remaining: keywordCount},
	)
	return rows
}

// FunnelTable renders the funnel as header+rows for CSV or markdown output.
func FunnelTable(rows []FunnelRow) ([]string, [][]string) {
	header := []string{"Stage", "Posts Remaining"}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Stage, strconv.Itoa(r.Remaining)}
	}
	return header, out
}
