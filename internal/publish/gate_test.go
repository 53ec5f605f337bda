package publish_test

import (
	"context"
	"errors"
	"testing"

	"ward/internal/period"
	"ward/internal/publish"
	"ward/internal/services"
	"ward/internal/store"
	"ward/internal/testsupport"
)

func newGate(t *testing.T) (*publish.Gate, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedNeighborhood(t, st, store.Neighborhood{
		ID:     "sodermalm",
		Name:   "Södermalm",
		Active: true,
	})
	return publish.NewGate(st, nil), st
}

func sampleDraft() publish.Draft {
	key := period.ForDate("sodermalm", "2026-03-01")
	return publish.Draft{
		NeighborhoodID: "sodermalm",
		PeriodKey:      key,
		Slug:           publish.PeriodSlug(store.KindDailyBrief, key),
		Kind:           store.KindDailyBrief,
		Title:          "Today in Södermalm",
		Content:        "Jazz night at Fasching; Music, 19:00; Fasching, Kungsgatan 63.",
		Status:         store.StatusPublished,
	}
}

func TestTryPublishCreatesThenShortCircuits(t *testing.T) {
	gate, _ := newGate(t)
	ctx := context.Background()

	first, err := gate.TryPublish(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}
	if !first.Created() {
		t.Fatalf("expected created outcome, got %s", first.Outcome)
	}
	if first.Artifact == nil || first.Artifact.ID == 0 {
		t.Fatal("expected a persisted artifact")
	}

	second, err := gate.TryPublish(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if second.Created() {
		t.Fatal("duplicate publish must not create a second artifact")
	}
	if second.Outcome != store.OutcomeAlreadyExists {
		t.Fatalf("expected already_exists, got %s", second.Outcome)
	}
	if second.Artifact == nil || second.Artifact.ID != first.Artifact.ID {
		t.Fatal("duplicate publish must return the surviving artifact")
	}
}

func TestTryPublishDifferentContentSameSlug(t *testing.T) {
	gate, st := newGate(t)
	ctx := context.Background()

	first, err := gate.TryPublish(ctx, sampleDraft())
	if err != nil {
		t.Fatalf("first publish: %v", err)
	}

	changed := sampleDraft()
	changed.Content = "A completely regenerated digest."
	second, err := gate.TryPublish(ctx, changed)
	if err != nil {
		t.Fatalf("second publish: %v", err)
	}
	if second.Created() {
		t.Fatal("same slug must short-circuit even with different content")
	}

	stored, err := st.GetArtifactByID(ctx, first.Artifact.ID)
	if err != nil {
		t.Fatalf("GetArtifactByID: %v", err)
	}
	if stored.Content != first.Artifact.Content {
		t.Error("first-write content must survive a duplicate publish")
	}
}

func TestTryPublishValidation(t *testing.T) {
	gate, _ := newGate(t)

	draft := sampleDraft()
	draft.Content = "   "
	if _, err := gate.TryPublish(context.Background(), draft); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	draft = sampleDraft()
	draft.Slug = ""
	if _, err := gate.TryPublish(context.Background(), draft); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing slug, got %v", err)
	}
}

func TestSlugDerivationIsStable(t *testing.T) {
	key := period.ForDate("sodermalm", "2026-03-01")
	a := publish.PeriodSlug(store.KindDailyBrief, key)
	b := publish.PeriodSlug(store.KindDailyBrief, key)
	if a != b {
		t.Fatalf("period slug must be deterministic: %q vs %q", a, b)
	}
	if publish.PeriodSlug(store.KindLookAhead, key) == a {
		t.Error("different kinds must yield different slugs")
	}
	if publish.PeriodSlug(store.KindDailyBrief, period.ForDate("sodermalm", "2026-03-02")) == a {
		t.Error("different dates must yield different slugs")
	}

	c := publish.ContentSlug(store.KindNews, "https://example.com/story", "2026-03-01")
	d := publish.ContentSlug(store.KindNews, "https://example.com/story", "2026-03-01")
	if c != d {
		t.Fatalf("content slug must be deterministic: %q vs %q", c, d)
	}
	if publish.ContentSlug(store.KindNews, "https://example.com/other", "2026-03-01") == c {
		t.Error("different urls must yield different slugs")
	}
}
