// Package fetch defines the capability contract for content sources. Each
// implementation bounds its own latency, returns nil rather than failing
// on a non-fatal upstream condition, and runs independently of its
// siblings; output is never trusted directly and always passes through
// filtering and merge.
package fetch

import (
	"context"

	"ward/internal/event"
	"ward/internal/store"
)

// Window describes the period a fetch should cover, anchored at the
// neighborhood's local date.
type Window struct {
	// LocalDate is the neighborhood-local calendar date (YYYY-MM-DD).
	LocalDate string
	// LookaheadDays extends the window forward for event discovery.
	LookaheadDays int
	// LookbackDays extends the window backward for news recency checks.
	LookbackDays int
}

// Candidate is one raw item a source produced, before any relevance
// judgment. Candidates are ephemeral and discarded after merge.
type Candidate struct {
	Text   string
	URL    string
	Source string
}

// Result is everything one source found for one neighborhood.
type Result struct {
	RawText     string
	Events      []event.Event
	Candidates  []Candidate
	SourceCount int
}

// Fetcher retrieves raw candidate facts and events for one neighborhood.
type Fetcher interface {
	Name() string
	// Fetch returns nil with a nil error when the source has nothing
	// usable; a non-nil error is a per-source failure the runner
	// isolates.
	Fetch(ctx context.Context, n store.Neighborhood, window Window) (*Result, error)
}
