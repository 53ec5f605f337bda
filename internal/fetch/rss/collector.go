// Package rss collects items from the feeds configured per neighborhood.
package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ward/internal/fetch"
	"ward/internal/logging"
	"ward/internal/store"
)

const sourceName = "rss"

// Collector fetches the neighborhood's configured feeds. Individual feed
// failures are isolated; the collector returns whatever it could gather.
type Collector struct {
	parser     *gofeed.Parser
	maxPerFeed int
	maxItemAge time.Duration
	logger     *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithMaxItemsPerFeed caps how many items a single feed contributes.
func WithMaxItemsPerFeed(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxPerFeed = n
		}
	}
}

// WithLogger attaches a logger for per-feed failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a feed collector.
func New(timeout time.Duration, opts ...Option) *Collector {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser := gofeed.NewParser()
	parser.UserAgent = "ward/1.0"
	parser.Client = &http.Client{Timeout: timeout}
	collector := &Collector{
		parser:     parser,
		maxPerFeed: 10,
		maxItemAge: 72 * time.Hour,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(collector)
	}
	return collector
}

// Name implements fetch.Fetcher.
func (c *Collector) Name() string { return sourceName }

// Fetch parses every configured feed and returns recent items as
// candidates. A neighborhood without feeds yields nil without error.
func (c *Collector) Fetch(ctx context.Context, n store.Neighborhood, window fetch.Window) (*fetch.Result, error) {
	if len(n.FeedURLs) == 0 {
		return nil, nil
	}

	cutoff := time.Now().Add(-c.maxItemAge)
	var raw strings.Builder
	var candidates []fetch.Candidate
	var failures []string

	for _, feedURL := range n.FeedURLs {
		feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			failures = append(failures, feedURL)
			c.logger.Warn("feed fetch failed",
				logging.String(logging.FieldSource, sourceName),
				logging.String("feed_url", feedURL),
				logging.Error(err))
			continue
		}
		taken := 0
		for _, item := range feed.Items {
			if taken >= c.maxPerFeed {
				break
			}
			if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
				continue
			}
			text := itemText(item)
			if text == "" {
				continue
			}
			if raw.Len() > 0 {
				raw.WriteString("\n\n")
			}
			raw.WriteString(text)
			candidates = append(candidates, fetch.Candidate{
				Text:   text,
				URL:    strings.TrimSpace(item.Link),
				Source: sourceName,
			})
			taken++
		}
	}

	if len(candidates) == 0 {
		if len(failures) == len(n.FeedURLs) && len(failures) > 0 {
			return nil, fmt.Errorf("rss: all %d feeds failed for %s", len(failures), n.ID)
		}
		return nil, nil
	}

	return &fetch.Result{
		RawText:     raw.String(),
		Candidates:  candidates,
		SourceCount: len(candidates),
	}, nil
}

func itemText(item *gofeed.Item) string {
	title := strings.TrimSpace(item.Title)
	desc := strings.TrimSpace(item.Description)
	switch {
	case title == "" && desc == "":
		return ""
	case title == "":
		return desc
	case desc == "":
		return title
	default:
		return title + "\n" + desc
	}
}
