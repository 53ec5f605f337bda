package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ward/internal/config"
	"ward/internal/event"
	"ward/internal/fetch"
	"ward/internal/pipeline"
	"ward/internal/publish"
	"ward/internal/relevance"
	"ward/internal/services"
	"ward/internal/store"
	"ward/internal/testsupport"
)

// inWindowClock is 06:30 in Europe/Stockholm on 2026-03-01.
var inWindowClock = time.Date(2026, 3, 1, 5, 30, 0, 0, time.UTC)

// scriptedCompleter answers judgment calls by echoing the first target and
// extraction calls with a fixed event list.
type scriptedCompleter struct {
	mu           sync.Mutex
	judgeCalls   int
	extractCalls int
	relevant     bool
	confidence   float64
	events       []event.Event
	failAll      bool
}

func (c *scriptedCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAll {
		return "", errors.New("completion backend unavailable")
	}
	if strings.HasPrefix(userPrompt, "Neighborhood:") {
		c.extractCalls++
		payload, _ := json.Marshal(map[string]any{"events": c.events})
		return string(payload), nil
	}
	c.judgeCalls++
	var input struct {
		Targets []relevance.Target `json:"targets"`
	}
	if err := json.Unmarshal([]byte(userPrompt), &input); err != nil || len(input.Targets) == 0 {
		return "", fmt.Errorf("unexpected judgment input: %s", userPrompt)
	}
	response, _ := json.Marshal(map[string]any{
		"is_relevant": c.relevant,
		"target_id":   input.Targets[0].ID,
		"title":       "judged",
		"summary":     "judged summary",
		"confidence":  c.confidence,
	})
	return string(response), nil
}

// stubFetcher returns a canned result or error for every neighborhood.
// With failures > 0 the first that many calls fail and later calls
// succeed.
type stubFetcher struct {
	name     string
	result   *fetch.Result
	err      error
	failures int
	mu       sync.Mutex
	calls    int
}

func (f *stubFetcher) Name() string { return f.name }

func (f *stubFetcher) Fetch(ctx context.Context, n store.Neighborhood, window fetch.Window) (*fetch.Result, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()
	if f.err != nil && (f.failures == 0 || calls <= f.failures) {
		return nil, f.err
	}
	return f.result, nil
}

func workingFetcher(name string) *stubFetcher {
	return &stubFetcher{
		name: name,
		result: &fetch.Result{
			RawText: "Jazz night at Fasching on Saturday",
			Candidates: []fetch.Candidate{
				{Text: "Jazz night at Fasching on Saturday", URL: "https://example.com/jazz", Source: name},
			},
			SourceCount: 1,
		},
	}
}

func sampleEvents() []event.Event {
	return []event.Event{
		{Date: "2026-03-01", Time: "19:00", Name: "Jazz night", Category: "Music", Venue: "Fasching", Source: "citysearch"},
		{Date: "2026-03-02", Name: "Street market", Category: "Market", Venue: "Square", Source: "citysearch"},
	}
}

type runnerFixture struct {
	cfg    *config.Config
	store  *store.Store
	runner *pipeline.Runner
}

func newFixture(t *testing.T, completer *scriptedCompleter, fetchers ...fetch.Fetcher) *runnerFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedNeighborhood(t, st, store.Neighborhood{
		ID:     "sodermalm",
		Name:   "Södermalm",
		Active: true,
	})

	filter := relevance.NewFilter(completer, cfg.Pipeline.ConfidenceThreshold)
	gate := publish.NewGate(st, nil)
	runner := pipeline.NewRunner(cfg, st, gate, filter, nil, nil, fetchers...)
	pipeline.SetClockForTest(runner, func() time.Time { return inWindowClock })
	pipeline.SetSleeperForTest(runner, func(context.Context, time.Duration) error { return nil })
	return &runnerFixture{cfg: cfg, store: st, runner: runner}
}

func TestRunPublishesDigest(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 1 {
		t.Fatalf("expected 1 created, got %+v", summary)
	}
	if summary.Failed != 0 || summary.Skipped != 0 {
		t.Fatalf("unexpected failures or skips: %+v", summary)
	}

	artifacts, err := fx.store.ListArtifacts(context.Background(), store.StatusPublished)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(artifacts))
	}
	artifact := artifacts[0]
	if artifact.Title != "Today in Södermalm" {
		t.Errorf("unexpected title %q", artifact.Title)
	}
	if !strings.Contains(artifact.Content, "Jazz night") {
		t.Errorf("digest missing event: %q", artifact.Content)
	}
	if !strings.Contains(artifact.Content, "Today, Sunday March 1") {
		t.Errorf("digest missing today header: %q", artifact.Content)
	}

	run, err := fx.store.LatestRun(context.Background(), store.KindDailyBrief)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run == nil || run.FinishedAt == nil {
		t.Fatal("expected a finished run record")
	}
	if !strings.Contains(run.SummaryJSON, `"created":1`) {
		t.Errorf("summary json missing created count: %s", run.SummaryJSON)
	}
}

func TestRunIsIdempotentAcrossRetries(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))
	ctx := context.Background()

	first, err := fx.runner.Run(ctx, store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 1 {
		t.Fatalf("expected first run to create, got %+v", first)
	}

	second, err := fx.runner.Run(ctx, store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.AlreadyPublished != 1 {
		t.Fatalf("expected duplicate short-circuit, got %+v", second)
	}

	artifacts, err := fx.store.ListArtifacts(ctx)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifacts) != 1 {
		t.Fatalf("expected exactly 1 artifact after retry, got %d", len(artifacts))
	}
}

func TestRunSkipsSatisfiedWithoutForce(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))
	ctx := context.Background()

	if _, err := fx.runner.Run(ctx, store.KindDailyBrief, pipeline.Options{}); err != nil {
		t.Fatalf("first run: %v", err)
	}

	second, err := fx.runner.Run(ctx, store.KindDailyBrief, pipeline.Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Attempted != 0 || second.Reason != "nothing due" {
		t.Fatalf("expected satisfied neighborhood to be excluded, got %+v", second)
	}
}

func TestRunOutsideWindowDoesNothing(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fetcher := workingFetcher("citysearch")
	fx := newFixture(t, completer, fetcher)

	// 13:00 local, outside the 06:00-07:00 window.
	pipeline.SetClockForTest(fx.runner, func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 0 || summary.Reason != "nothing due" {
		t.Fatalf("expected nothing due outside window, got %+v", summary)
	}
	if fetcher.calls != 0 {
		t.Errorf("no source should be queried outside the window")
	}
}

func TestRunIsolatesNeighborhoodFailures(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	failing := &stubFetcher{name: "citysearch", err: errors.New("search provider down")}
	fx := newFixture(t, completer, failing)
	testsupport.SeedNeighborhood(t, fx.store, store.Neighborhood{
		ID:     "vasastan",
		Name:   "Vasastan",
		Active: true,
	})

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 2 {
		t.Fatalf("expected both neighborhoods to fail, got %+v", summary)
	}
	if len(summary.Errors) != 2 {
		t.Fatalf("expected 2 recorded errors, got %v", summary.Errors)
	}
	if summary.Created != 0 {
		t.Errorf("nothing should publish when every source fails")
	}
}

func TestRunDropsLowConfidenceCandidates(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.2, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Dropped != 1 {
		t.Fatalf("expected 1 dropped candidate, got %+v", summary)
	}
	if summary.Created != 0 || summary.Skipped != 1 {
		t.Fatalf("expected skip when nothing survives filtering, got %+v", summary)
	}
	if completer.extractCalls != 0 {
		t.Errorf("extraction must not run without accepted candidates")
	}
}

func TestRunStopsOnTimeBudget(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))
	testsupport.SeedNeighborhood(t, fx.store, store.Neighborhood{
		ID:     "vasastan",
		Name:   "Vasastan",
		Active: true,
	})
	fx.cfg.Pipeline.BatchSize = 1
	fx.cfg.Pipeline.BudgetSeconds = 60

	// Each clock read advances far enough that the budget is spent after
	// the first batch.
	var mu sync.Mutex
	current := inWindowClock
	pipeline.SetClockForTest(fx.runner, func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(45 * time.Second)
		return current
	})

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Partial {
		t.Fatalf("expected partial run, got %+v", summary)
	}
	if !strings.Contains(summary.Reason, "time budget exhausted") {
		t.Errorf("unexpected reason %q", summary.Reason)
	}
	if summary.Created+summary.Skipped+summary.Failed == 0 {
		t.Errorf("expected at least the first batch to settle: %+v", summary)
	}
}

func TestRunRetriesRateLimitedSource(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fetcher := workingFetcher("citysearch")
	fetcher.err = errors.New("citysearch: search returned http 429 (latency=20ms)")
	fetcher.failures = 2
	fx := newFixture(t, completer, fetcher)

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 1 || summary.Failed != 0 {
		t.Fatalf("expected rate-limited source to recover, got %+v", summary)
	}
	if fetcher.calls != 3 {
		t.Errorf("fetcher calls = %d, want 2 failures and 1 success", fetcher.calls)
	}
}

func TestRunDoesNotRetryPermanentSourceErrors(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fetcher := &stubFetcher{name: "citysearch", err: errors.New("citysearch: search returned http 401 (latency=5ms)")}
	fx := newFixture(t, completer, fetcher)

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("expected the neighborhood to fail, got %+v", summary)
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want exactly 1 for a non-retryable error", fetcher.calls)
	}
}

func newsFetcher(name string) *stubFetcher {
	return &stubFetcher{
		name: name,
		result: &fetch.Result{
			RawText: "Water main break on Hornsgatan\n\nNew bakery opening on Timmermansgatan",
			Candidates: []fetch.Candidate{
				{Text: "Water main break on Hornsgatan", URL: "https://example.com/water", Source: name},
				{Text: "New bakery opening on Timmermansgatan", URL: "https://example.com/bakery", Source: name},
			},
			SourceCount: 1,
		},
	}
}

func TestRunNewsCreatesPerItemDrafts(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9}
	fx := newFixture(t, completer, newsFetcher("rss"))
	ctx := context.Background()

	// 13:00 local. Item-anchored kinds are not bound to the morning window.
	pipeline.SetClockForTest(fx.runner, func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	first, err := fx.runner.Run(ctx, store.KindNews, pipeline.Options{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Created != 2 {
		t.Fatalf("expected one draft per item, got %+v", first)
	}

	drafts, err := fx.store.ListArtifacts(ctx, store.StatusDraft)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("expected 2 draft artifacts, got %d", len(drafts))
	}
	if drafts[0].Slug == drafts[1].Slug {
		t.Errorf("per-item slugs must differ, both %q", drafts[0].Slug)
	}
	for _, d := range drafts {
		if d.Kind != store.KindNews {
			t.Errorf("artifact kind = %q, want news", d.Kind)
		}
	}

	second, err := fx.runner.Run(ctx, store.KindNews, pipeline.Options{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Created != 0 || second.AlreadyPublished != 2 {
		t.Fatalf("expected per-item duplicate short-circuit, got %+v", second)
	}
}

func TestRunAlertPublishesImmediately(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9}
	fx := newFixture(t, completer, newsFetcher("rss"))

	summary, err := fx.runner.Run(context.Background(), store.KindAlert, pipeline.Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Created != 2 {
		t.Fatalf("expected 2 alerts, got %+v", summary)
	}

	published, err := fx.store.ListArtifacts(context.Background(), store.StatusPublished)
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(published) != 2 {
		t.Fatalf("alerts must publish without review, got %d published", len(published))
	}
}

func TestRunBatchSizeOverride(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))
	testsupport.SeedNeighborhood(t, fx.store, store.Neighborhood{
		ID:     "vasastan",
		Name:   "Vasastan",
		Active: true,
	})
	fx.cfg.Pipeline.BatchSize = 10
	fx.cfg.Pipeline.BudgetSeconds = 60

	// With the configured batch size both neighborhoods share one batch and
	// the budget is never re-checked. The override forces a second batch,
	// where the advancing clock has spent the budget.
	var mu sync.Mutex
	current := inWindowClock
	pipeline.SetClockForTest(fx.runner, func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(45 * time.Second)
		return current
	})

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{
		Force:     true,
		BatchSize: 1,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !summary.Partial {
		t.Fatalf("expected the override to split batches and trip the budget, got %+v", summary)
	}
	if summary.Attempted != 1 {
		t.Errorf("attempted = %d, want 1 with batch size 1", summary.Attempted)
	}
}

func TestRunAbortsWithoutCredentials(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fetcher := workingFetcher("citysearch")
	fx := newFixture(t, completer, fetcher)
	fx.cfg.LLM.APIKey = ""

	_, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{Force: true})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("no source may be queried when credentials are missing")
	}
}

func TestRunOnlyFilter(t *testing.T) {
	completer := &scriptedCompleter{relevant: true, confidence: 0.9, events: sampleEvents()}
	fx := newFixture(t, completer, workingFetcher("citysearch"))
	testsupport.SeedNeighborhood(t, fx.store, store.Neighborhood{
		ID:     "vasastan",
		Name:   "Vasastan",
		Active: true,
	})

	summary, err := fx.runner.Run(context.Background(), store.KindDailyBrief, pipeline.Options{
		Force: true,
		Only:  []string{"vasastan"},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 1 || summary.Created != 1 {
		t.Fatalf("expected only vasastan to run, got %+v", summary)
	}

	artifact, err := fx.store.ListArtifacts(context.Background())
	if err != nil {
		t.Fatalf("ListArtifacts: %v", err)
	}
	if len(artifact) != 1 || artifact[0].NeighborhoodID != "vasastan" {
		t.Fatalf("expected a single vasastan artifact, got %+v", artifact)
	}
}
