// Package pulse implements the social-content search source. It surfaces
// recent public posts mentioning the neighborhood so the pipeline can pick
// up happenings that never reach a calendar or feed.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ward/internal/fetch"
	"ward/internal/store"
)

const sourceName = "pulse"

// Client queries the social search API.
type Client struct {
	apiKey     string
	baseURL    string
	maxPosts   int
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

// WithMaxPosts caps how many posts a single fetch requests.
func WithMaxPosts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPosts = n
		}
	}
}

// New creates a pulse client.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("pulse api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("pulse base url required")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		maxPosts:   15,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Name implements fetch.Fetcher.
func (c *Client) Name() string { return sourceName }

type postsResponse struct {
	Posts []struct {
		Text      string `json:"text"`
		Author    string `json:"author"`
		Permalink string `json:"permalink"`
		PostedAt  string `json:"posted_at"`
	} `json:"posts"`
}

// Fetch searches recent posts mentioning the neighborhood. Posts older
// than the lookback window are discarded client-side since the provider
// only filters to the day.
func (c *Client) Fetch(ctx context.Context, n store.Neighborhood, window fetch.Window) (*fetch.Result, error) {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("%q %s", n.Name, n.City))
	params.Set("since", window.LocalDate)
	params.Set("limit", fmt.Sprintf("%d", c.maxPosts))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/posts/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pulse: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("pulse: execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("pulse: search returned http %d (latency=%v): %s",
			resp.StatusCode, latency, strings.TrimSpace(string(body)))
	}

	var parsed postsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("pulse: decode response: %w", err)
	}
	if len(parsed.Posts) == 0 {
		return nil, nil
	}

	var raw strings.Builder
	candidates := make([]fetch.Candidate, 0, len(parsed.Posts))
	for _, post := range parsed.Posts {
		text := strings.TrimSpace(post.Text)
		if text == "" {
			continue
		}
		if raw.Len() > 0 {
			raw.WriteString("\n\n")
		}
		raw.WriteString(text)
		candidates = append(candidates, fetch.Candidate{
			Text:   text,
			URL:    strings.TrimSpace(post.Permalink),
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
