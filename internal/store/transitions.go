package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition is returned when a requested status change is not
// permitted by the editorial state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// TransitionArtifact moves an artifact to a new status after validating
// the change against the state machine.
func (s *Store) TransitionArtifact(ctx context.Context, id int64, to Status) (*Artifact, error) {
	if _, ok := statusSet[to]; !ok {
		return nil, fmt.Errorf("unknown artifact status %q", to)
	}
	a, err := s.GetArtifactByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("artifact %d not found", id)
	}
	if !CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}

	_, err = s.db.ExecContext(
		ctx,
		`UPDATE artifacts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		a.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("transition artifact: %w", err)
	}
	return s.GetArtifactByID(ctx, id)
}

// ResetRejected moves a rejected artifact back to draft. This is the only
// way out of the rejected status and is always an explicit operator action.
func (s *Store) ResetRejected(ctx context.Context, id int64) (*Artifact, error) {
	return s.TransitionArtifact(ctx, id, StatusDraft)
}

// PublishDueScheduled transitions scheduled artifacts whose scheduled_for
// timestamp has passed to published. This sweep is independent of the
// aggregation pipeline and only consumes its output.
func (s *Store) PublishDueScheduled(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE artifacts SET status = ?, updated_at = ?
         WHERE status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?`,
		StatusPublished,
		now.UTC().Format(time.RFC3339Nano),
		StatusScheduled,
		now.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("publish due scheduled: %w", err)
	}
	return res.RowsAffected()
}
