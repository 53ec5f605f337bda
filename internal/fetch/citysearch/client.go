// Package citysearch implements the web-grounded search source. The
// provider is treated as opaque: it accepts a natural-language query and
// returns grounded text snippets with source attribution.
package citysearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ward/internal/fetch"
	"ward/internal/store"
)

const sourceName = "citysearch"

// Client queries the web-grounded search API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a citysearch client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("citysearch api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("citysearch base url required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements fetch.Fetcher.
func (c *Client) Name() string { return sourceName }

type searchRequest struct {
	Query    string `json:"query"`
	MaxItems int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Fetch runs a grounded search for happenings around the neighborhood
// within the window. An empty result set returns nil without error.
func (c *Client) Fetch(ctx context.Context, n store.Neighborhood, window fetch.Window) (*fetch.Result, error) {
	query := fmt.Sprintf(
		"events and local news in %s, %s between %s and the next %d days",
		n.Name, n.City, window.LocalDate, window.LookaheadDays,
	)

	payload, err := json.Marshal(searchRequest{Query: query, MaxItems: 10})
	if err != nil {
		return nil, fmt.Errorf("citysearch: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("citysearch: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("citysearch: execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("citysearch: search returned http %d (latency=%v): %s",
			resp.StatusCode, latency, strings.TrimSpace(string(body)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("citysearch: decode response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return nil, nil
	}

	var raw strings.Builder
	candidates := make([]fetch.Candidate, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		snippet := strings.TrimSpace(result.Snippet)
		title := strings.TrimSpace(result.Title)
		if snippet == "" && title == "" {
			continue
		}
		if raw.Len() > 0 {
			raw.WriteString("\n\n")
		}
		if title != "" {
			raw.WriteString(title)
			raw.WriteString("\n")
		}
		raw.WriteString(snippet)
		candidates = append(candidates, fetch.Candidate{
			Text:   strings.TrimSpace(title + "\n" + snippet),
			URL:    strings.TrimSpace(result.URL),
			Source: sourceName,
		})
	}
	if raw.Len() == 0 {
		return nil, nil
	}

	return &fetch.Result{
		RawText:     raw.String(),
		Candidates:  candidates,
		SourceCount: len(candidates),
	}, nil
}
