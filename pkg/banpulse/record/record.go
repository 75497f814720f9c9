package record

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is one collected Reddit discussion item. The ID is assigned once at
// collection time and is the join key for every downstream stage; text fields
// are never mutated after collection.
type Record struct {
	ID            string
	Subreddit     string
	SearchTerm    string
	Title         string
	Selftext      string
	Score         int
	NumComments   int
	Author        string
	URL           string
	CreatedUTC    time.Time // zero when the source timestamp was unparseable
	TopComments   string
	ProfanityFlag bool
}

// CommentSeparator joins the bodies of the top-level comments kept per post.
const CommentSeparator = "\n---\n"

// FullText is the title and body joined with a single space. Every stage that
// needs the post text derives it through this method so the concatenation can
// never drift between passes.
func (r Record) FullText() string {
	return r.Title + " " + r.Selftext
}

// ContextText is the post text plus the collected top comments.
func (r Record) ContextText() string {
	return r.FullText() + " " + r.TopComments
}

// CombinedLen is the filter-chain length measure over title and body.
func (r Record) CombinedLen() int {
	return len(r.Title) + len(r.Selftext)
}

// AnonymousAuthor reports whether the author field counts as missing. The
// source API stringifies a deleted account as "None", so that token and the
// deletion placeholder are treated the same as an empty field.
func (r Record) AnonymousAuthor() bool {
	a := strings.ToLower(strings.TrimSpace(r.Author))
	return a == "" || a == "none" || a == "[deleted]"
}

// IDGen produces monotonic ULIDs for collected records.
type IDGen struct {
	entropy *ulid.MonotonicEntropy
}

// NewIDGen creates an ID generator backed by crypto/rand.
func NewIDGen() *IDGen {
	return &IDGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Next returns a fresh record ID.
func (g *IDGen) Next() string {
	return ulid.MustNew(ulid.Now(), g.entropy).String()
}
