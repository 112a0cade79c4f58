// Package webclient is the web fetch collaborator (§6): search plus
// page-fetch, both bounded by a 10s timeout and reporting errors rather
// than throwing them.
package webclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// SearchResult is one hit from a web search.
type SearchResult struct {
	Title   string
	URL     string
	Snippet string
}

// Page is a fetched page's content.
type Page struct {
	Content string
	Title   string
	URL     string
}

// Client is the narrow search+fetch interface the pipeline depends on.
type Client interface {
	SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	FetchPage(ctx context.Context, rawURL string, maxChars int) (Page, error)
}

// BraveClient implements Client against the Brave Search API for search,
// and a plain HTTP GET for page fetch. An empty APIKey disables search
// (SearchWeb returns an empty slice, never an error) — the core must still
// function with the collaborator offline (§6).
type BraveClient struct {
	APIKey string
	HTTP   *http.Client
}

// NewBraveClient builds a client with a bounded-timeout HTTP client.
func NewBraveClient(apiKey string) *BraveClient {
	return &BraveClient{APIKey: apiKey, HTTP: &http.Client{Timeout: requestTimeout}}
}

type braveSearchResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (c *BraveClient) SearchWeb(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if c.APIKey == "" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	endpoint := "https://api.search.brave.com/res/v1/web/search?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("webclient: build search request: %w", err)
	}
	req.Header.Set("X-Subscription-Token", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webclient: search request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webclient: search returned status %d", resp.StatusCode)
	}

	var parsed braveSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("webclient: decode search response: %w", err)
	}
	var out []SearchResult
	for _, r := range parsed.Web.Results {
		if len(out) >= maxResults {
			break
		}
		out = append(out, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}

var twitterURLPattern = regexp.MustCompile(`(?i)^https?://(www\.)?(twitter\.com|x\.com)/([^/]+)/status/(\d+)`)

// rewriteTwitterURL points a Twitter/X status URL at a public JSON mirror
// endpoint before fetching (§6 "Artifact tag formats").
func rewriteTwitterURL(raw string) string {
	m := twitterURLPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	return fmt.Sprintf("https://api.fxtwitter.com/%s/status/%s", m[3], m[4])
}

func (c *BraveClient) FetchPage(ctx context.Context, rawURL string, maxChars int) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	target := rewriteTwitterURL(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Page{}, fmt.Errorf("webclient: build fetch request: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("webclient: fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("webclient: fetch %s returned status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxChars)*4))
	if err != nil {
		return Page{}, fmt.Errorf("webclient: read body of %s: %w", rawURL, err)
	}
	content := strings.TrimSpace(string(body))
	if len(content) > maxChars {
		content = content[:maxChars]
	}
	return Page{Content: content, URL: rawURL, Title: titleFromURL(rawURL)}, nil
}

func titleFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Host + u.Path
}
