// Package publish is the single write path for generated content. Every
// pipeline product passes through the gate, which delegates duplicate
// suppression to the storage layer's slug uniqueness.
package publish

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"ward/internal/logging"
	"ward/internal/period"
	"ward/internal/services"
	"ward/internal/store"
)

// Draft is a fully rendered piece of content ready for the gate.
type Draft struct {
	NeighborhoodID string
	PeriodKey      period.Key
	Slug           string
	Kind           store.Kind
	Title          string
	Content        string
	MetadataJSON   string
	Status         store.Status
	ScheduledFor   *time.Time
}

// Decision records what the gate did with a draft.
type Decision struct {
	Outcome  store.Outcome
	Artifact *store.Artifact
}

// Created reports whether this draft produced a new artifact.
func (d *Decision) Created() bool {
	return d != nil && d.Outcome == store.OutcomeCreated
}

// Gate performs idempotent publishes against the artifact store.
type Gate struct {
	store  *store.Store
	logger *slog.Logger
}

// NewGate creates a publish gate. A nil logger is replaced with a no-op.
func NewGate(st *store.Store, logger *slog.Logger) *Gate {
	return &Gate{
		store:  st,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// TryPublish inserts the draft unless its slug already exists. Losing the
// insert race is a benign short-circuit, not an error; the caller gets the
// surviving artifact either way.
func (g *Gate) TryPublish(ctx context.Context, draft Draft) (*Decision, error) {
	if err := validateDraft(draft); err != nil {
		return nil, services.Wrap(services.ErrValidation, "publish", "try_publish", "invalid draft", err)
	}

	outcome, artifact, err := g.store.InsertArtifactIfAbsent(ctx, store.Artifact{
		NeighborhoodID: draft.NeighborhoodID,
		PeriodKey:      draft.PeriodKey,
		Slug:           draft.Slug,
		Kind:           draft.Kind,
		Title:          draft.Title,
		Content:        draft.Content,
		Status:         draft.Status,
		MetadataJSON:   draft.MetadataJSON,
		ScheduledFor:   draft.ScheduledFor,
	})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "publish", "try_publish", "store insert failed", err)
	}

	switch outcome {
	case store.OutcomeCreated:
		g.logger.Info("artifact published",
			logging.String(logging.FieldNeighborhood, draft.NeighborhoodID),
			logging.String(logging.FieldPeriodKey, string(draft.PeriodKey)),
			logging.String("slug", draft.Slug),
			logging.String("kind", string(draft.Kind)))
	case store.OutcomeAlreadyExists:
		g.logger.Info("duplicate publish short-circuited",
			logging.String(logging.FieldNeighborhood, draft.NeighborhoodID),
			logging.String("slug", draft.Slug))
	}

	return &Decision{Outcome: outcome, Artifact: artifact}, nil
}

func validateDraft(draft Draft) error {
	switch {
	case strings.TrimSpace(draft.NeighborhoodID) == "":
		return errMissing("neighborhood id")
	case strings.TrimSpace(draft.Slug) == "":
		return errMissing("slug")
	case draft.Kind == "":
		return errMissing("kind")
	case strings.TrimSpace(draft.Content) == "":
		return errMissing("content")
	}
	return nil
}

type errMissing string

func (e errMissing) Error() string { return string(e) + " required" }
