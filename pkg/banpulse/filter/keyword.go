package filter

import (
	"strings"

	"github.com/samroof/banpulse/pkg/banpulse/record"
)

// KeywordGate is the final inclusion filter: a record survives iff its title
// or its originating search term contains at least one of the configured
// phrases. Matching is case-insensitive substring, not word-boundary.
type KeywordGate struct {
	keywords []string
}

// NewKeywordGate creates a gate over the given phrase list.
func NewKeywordGate(keywords []string) *KeywordGate {
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &KeywordGate{keywords: lowered}
}

// Apply returns the matching subset and the number of records dropped.
func (g *KeywordGate) Apply(recs []record.Record) ([]record.Record, int) {
	out := make([]record.Record, 0, len(recs))
	for _, r := range recs {
		if g.Matches(r) {
			out = append(out, r)
		}
	}
	return out, len(recs) - len(out)
}

// Matches reports whether a single record passes the gate.
func (g *KeywordGate) Matches(r record.Record) bool {
	title := strings.ToLower(r.Title)
	term := strings.ToLower(r.SearchTerm)
	for _, k := range g.keywords {
		if strings.Contains(title, k) || strings.Contains(term, k) {
			return true
		}
	}
	return false
}
