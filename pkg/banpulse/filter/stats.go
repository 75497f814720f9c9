package filter

// Step names, in chain order. Reporting reconstructs running totals by
// cumulative subtraction over this exact order, so the list only ever changes
// together with the chain itself.
const (
	StepDeduplicated   = "deduplicated"
	StepShortRemoved   = "short_removed"
	StepPlaceholder    = "placeholder_removed"
	StepDateFiltered   = "date_filtered"
	StepScoreFiltered  = "score_filtered"
	StepLengthFiltered = "length_filtered"
	StepLangFiltered   = "lang_filtered"
	StepAuthorFiltered = "author_filtered"
	StepEmptyBody      = "empty_body_filtered"
)

// StepNames returns the removing steps in chain order.
func StepNames() []string {
	return []string{
		StepDeduplicated,
		StepShortRemoved,
		StepPlaceholder,
		StepDateFiltered,
		StepScoreFiltered,
		StepLengthFiltered,
		StepLangFiltered,
		StepAuthorFiltered,
		StepEmptyBody,
	}
}

// StepCount records how many records one named step removed.
type StepCount struct {
	Name    string
	Removed int
}

// Stats captures the removal bookkeeping of one chain run. Initial is the raw
// record count before any step; ProfanityFlagged counts records that got the
// profanity flag (flagging never removes).
type Stats struct {
	Initial          int
	Steps            []StepCount
	ProfanityFlagged int
}

// Removed returns the count removed by the named step.
func (s Stats) Removed(name string) (int, bool) {
	for _, sc := range s.Steps {
		if sc.Name == name {
			return sc.Removed, true
		}
	}
	return 0, false
}

// RemainingAfter returns the number of records left after the first k steps,
// reconstructed by cumulative subtraction. k = 0 returns Initial.
func (s Stats) RemainingAfter(k int) int {
	if k > len(s.Steps) {
		k = len(s.Steps)
	}
	remaining := s.Initial
	for i := 0; i < k; i++ {
		remaining -= s.Steps[i].Removed
	}
	return remaining
}

// Final returns the record count after every step.
func (s Stats) Final() int {
	return s.RemainingAfter(len(s.Steps))
}
