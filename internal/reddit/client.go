package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// Client talks to the Reddit API using the application-only OAuth flow.
// It exposes exactly the two calls the collector needs: a bounded subreddit
// search and a bounded top-level comment fetch.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	tokenURL     string
	userAgent    string
	clientID     string
	clientSecret string

	token    string
	tokenExp time.Time
}

// Config holds client settings.
type Config struct {
	BaseURL      string
	TokenURL     string
	UserAgent    string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Post is one search result item.
type Post struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	CreatedUTC  float64 `json:"created_utc"`
}

// NewClient creates a Reddit API client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		tokenURL:     cfg.TokenURL,
		userAgent:    cfg.UserAgent,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

type listing struct {
	Data struct {
		Children []struct {
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Search runs a bounded search for query restricted to the given subreddit.
func (c *Client) Search(ctx context.Context, subreddit, query string, limit int) ([]Post, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("restrict_sr", "1")
	params.Set("limit", strconv.Itoa(limit))

	endpoint := fmt.Sprintf("%s/r/%s/search?%s", c.baseURL, url.PathEscape(subreddit), params.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("search r/%s %q: %w", subreddit, query, err)
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode search listing: %w", err)
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		var p Post
		if err := json.Unmarshal(child.Data, &p); err != nil {
			continue
		}
		p.Title = StripHTML(p.Title)
		p.Selftext = StripHTML(p.Selftext)
		posts = append(posts, p)
	}
	return posts, nil
}

// TopComments fetches up to n top-level comment bodies for a post.
func (c *Client) TopComments(ctx context.Context, postID string, n int) ([]string, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(n))
	params.Set("depth", "1")
	params.Set("sort", "top")

	endpoint := fmt.Sprintf("%s/comments/%s?%s", c.baseURL, url.PathEscape(postID), params.Encode())
	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("comments for %s: %w", postID, err)
	}

	// The comments endpoint returns a two-element array: the post listing
	// followed by the comment listing.
	var parts []json.RawMessage
	if err := json.Unmarshal(body, &parts); err != nil {
		return nil, fmt.Errorf("decode comments response: %w", err)
	}
	if len(parts) < 2 {
		return nil, fmt.Errorf("comments response has %d listings, want 2", len(parts))
	}

	var l listing
	if err := json.Unmarshal(parts[1], &l); err != nil {
		return nil, fmt.Errorf("decode comment listing: %w", err)
	}

	type comment struct {
		Body string `json:"body"`
	}

	var bodies []string
	for _, child := range l.Data.Children {
		var cm comment
		if err := json.Unmarshal(child.Data, &cm); err != nil {
			continue
		}
		if cm.Body == "" {
			continue // "more" stubs and deleted comments
		}
		bodies = append(bodies, StripHTML(cm.Body))
		if len(bodies) >= n {
			break
		}
	}
	return bodies, nil
}

// get performs an authenticated GET, refreshing the app token when needed.
func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ensureToken obtains an application-only token via the client-credentials
// grant. Clients constructed without credentials (tests against a fake
// server) skip authentication entirely.
func (c *Client) ensureToken(ctx context.Context) error {
	if c.clientID == "" || c.clientSecret == "" {
		return nil
	}
	if c.token != "" && time.Now().Before(c.tokenExp) {
		return nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token request: HTTP %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("token response missing access_token")
	}

	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	// Refresh a minute early to avoid using a token at the edge of expiry.
	if tok.ExpiresIn > 120 {
		c.tokenExp = c.tokenExp.Add(-time.Minute)
	}
	return nil
}

// StripHTML extracts plain text from a fragment that may contain markup or
// escaped entities. Parsing failures fall back to the raw string.
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
