package tool

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
)

const webSearchDescription = `Search the web for current information.
Use this for news, facts you are unsure about, weather, scores or anything that may have changed recently.`

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"content"`
}

// WebSearchTool queries a SearXNG instance.
type WebSearchTool struct {
	baseURL    string
	count      int
	httpClient *http.Client
}

// NewWebSearchTool creates the web_search tool. baseURL is the root of the
// SearXNG instance, e.g. "http://localhost:8888". An empty baseURL yields a
// tool that reports search as unavailable.
func NewWebSearchTool(baseURL string, count int) *WebSearchTool {
	if count <= 0 {
		count = 5
	}
	return &WebSearchTool{
		baseURL:    strings.TrimRight(baseURL, "/"),
		count:      count,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (t *WebSearchTool) ID() string               { return "web_search" }
func (t *WebSearchTool) Description() string      { return webSearchDescription }
func (t *WebSearchTool) InputDescription() string { return "The search query" }

// Run searches and formats the results.
func (t *WebSearchTool) Run(ctx context.Context, input string) (string, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return "Tell me what to search for.", nil
	}
	if t.baseURL == "" {
		return "Web search is not configured.", nil
	}

	results, err := t.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(results), nil
}

// Search performs the query and returns at most the configured number of hits.
func (t *WebSearchTool) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{
		"q":      {query},
		"format": {"json"},
	}

	reqURL := fmt.Sprintf("%s/search?%s", t.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("searxng: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("searxng: HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr struct {
		Results []SearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("searxng: decode response: %w", err)
	}

	if len(sr.Results) > t.count {
		sr.Results = sr.Results[:t.count]
	}
	return sr.Results, nil
}

// FormatResults builds a numbered, human-readable result list.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString(". ")
		sb.WriteString(r.Title)
		sb.WriteString("\n   ")
		sb.WriteString(r.URL)
		if r.Snippet != "" {
			sb.WriteString("\n   ")
			sb.WriteString(r.Snippet)
		}
	}
	return sb.String()
}
