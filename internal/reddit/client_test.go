package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestSearchParsesListing(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{
			"data": {"children": [
				{"data": {"id": "abc", "title": "Ban announced", "selftext": "Body",
				          "score": 12, "num_comments": 3, "author": "someone",
				          "url": "https://example.com/abc", "created_utc": 1700000000.0}},
				{"data": {"id": "def", "title": "Second &amp; post", "selftext": "",
				          "score": 1, "num_comments": 0, "author": "other",
				          "url": "https://example.com/def", "created_utc": 1700000500.0}}
			]}
		}`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test"})
	posts, err := c.Search(context.Background(), "australia", "under 16", 100)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if gotPath != "/r/australia/search" {
		t.Errorf("Request path = %q", gotPath)
	}
	if gotQuery != "under 16" {
		t.Errorf("Query param q = %q", gotQuery)
	}
	if len(posts) != 2 {
		t.Fatalf("Parsed %d posts", len(posts))
	}
	if posts[0].ID != "abc" || posts[0].Score != 12 || posts[0].CreatedUTC != 1700000000.0 {
		t.Errorf("First post = %+v", posts[0])
	}
	if posts[1].Title != "Second & post" {
		t.Errorf("Entities not unescaped: %q", posts[1].Title)
	}
}

func TestSearchPropagatesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test"})
	if _, err := c.Search(context.Background(), "australia", "ban", 10); err == nil {
		t.Fatal("Expected error on HTTP 429")
	}
}

func TestTopCommentsSkipsStubs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"data": {"children": []}},
			{"data": {"children": [
				{"data": {"body": "first comment"}},
				{"data": {"body": ""}},
				{"data": {"body": "second comment"}},
				{"data": {"body": "third comment"}}
			]}}
		]`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test"})
	got, err := c.TopComments(context.Background(), "abc", 2)
	if err != nil {
		t.Fatalf("TopComments: %v", err)
	}
	want := []string{"first comment", "second comment"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopComments = %v, want %v", got, want)
	}
}

func TestTopCommentsRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"data": {"children": []}}]`)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, UserAgent: "test"})
	if _, err := c.TopComments(context.Background(), "abc", 5); err == nil {
		t.Fatal("Expected error on single-listing response")
	}
}

func TestClientFetchesTokenWithCredentials(t *testing.T) {
	var tokenCalls int
	var sawAuth string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if user, _, ok := r.BasicAuth(); !ok || user != "client-id" {
			t.Errorf("Token request missing basic auth")
		}
		fmt.Fprint(w, `{"access_token": "tok123", "expires_in": 3600}`)
	})
	mux.HandleFunc("/r/australia/search", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"data": {"children": []}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/api/v1/access_token",
		UserAgent:    "test",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
	})

	ctx := context.Background()
	if _, err := c.Search(ctx, "australia", "ban", 10); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if _, err := c.Search(ctx, "australia", "ban", 10); err != nil {
		t.Fatalf("Second search: %v", err)
	}

	if sawAuth != "Bearer tok123" {
		t.Errorf("Authorization header = %q", sawAuth)
	}
	if tokenCalls != 1 {
		t.Errorf("Token endpoint called %d times, want 1 (cached)", tokenCalls)
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain text", "plain text"},
		{"a &amp; b", "a & b"},
		{"<p>wrapped</p>", "wrapped"},
		{"before <a href=\"x\">link</a> after", "before link after"},
	}
	for _, tc := range cases {
		if got := StripHTML(tc.in); got != tc.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStripHTMLPreservesNonMarkup(t *testing.T) {
	s := strings.Repeat("no markup here. ", 3)
	if got := StripHTML(s); got != s {
		t.Errorf("StripHTML changed markup-free text")
	}
}
