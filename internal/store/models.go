package store

import (
	"strings"
	"time"

	"ward/internal/period"
)

// Status represents the editorial lifecycle of a published artifact.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusSuspended Status = "suspended"
	StatusScheduled Status = "scheduled"
	StatusArchived  Status = "archived"
)

var allStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusPublished,
	StatusRejected,
	StatusSuspended,
	StatusScheduled,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions encodes the editorial state machine. Rejected is
// terminal except for an explicit reset back to draft.
var allowedTransitions = map[Status][]Status{
	StatusDraft:     {StatusPending, StatusScheduled},
	StatusPending:   {StatusPublished, StatusRejected},
	StatusPublished: {StatusSuspended, StatusArchived},
	StatusSuspended: {StatusPublished},
	StatusRejected:  {StatusDraft},
	StatusScheduled: {StatusPublished},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether the state machine permits moving an
// artifact from one status to another.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Kind identifies the content-generation job an artifact came from.
type Kind string

const (
	KindDailyBrief Kind = "daily_brief"
	KindLookAhead  Kind = "look_ahead"
	KindNews       Kind = "news"
	KindAlert      Kind = "alert"
)

// ItemAnchored reports whether artifacts of this kind are keyed to an
// individual source item rather than to a whole period. Item-anchored runs
// are not bounded by the morning window or the satisfied-period check;
// duplicate suppression happens per item at the slug level.
func (k Kind) ItemAnchored() bool {
	return k == KindNews || k == KindAlert
}

// ParseKind converts a string into a known Kind.
func ParseKind(value string) (Kind, bool) {
	switch normalized := Kind(strings.ToLower(strings.TrimSpace(value))); normalized {
	case KindDailyBrief, KindLookAhead, KindNews, KindAlert:
		return normalized, true
	default:
		return "", false
	}
}

// Neighborhood is the geographic unit content is generated for. Rows are
// created by onboarding and are read-only to the pipeline.
type Neighborhood struct {
	ID       string
	Name     string
	City     string
	Country  string
	Timezone string
	Active   bool
	FeedURLs []string
}

// Artifact is one published (or publishable) piece of per-neighborhood
// content. Slug is the storage-enforced idempotency key.
type Artifact struct {
	ID             int64
	NeighborhoodID string
	PeriodKey      period.Key
	Slug           string
	Kind           Kind
	Title          string
	Content        string
	Status         Status
	MetadataJSON   string
	ScheduledFor   *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Run captures one pipeline execution and its summary for operator
// visibility.
type Run struct {
	ID          string
	Kind        Kind
	StartedAt   time.Time
	FinishedAt  *time.Time
	SummaryJSON string
}
