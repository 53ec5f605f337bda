package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ward/internal/config"
	"ward/internal/event"
	"ward/internal/fetch"
	"ward/internal/logging"
	"ward/internal/metrics"
	"ward/internal/notifications"
	"ward/internal/period"
	"ward/internal/publish"
	"ward/internal/relevance"
	"ward/internal/retry"
	"ward/internal/schedule"
	"ward/internal/services"
	"ward/internal/store"
)

// Options select which neighborhoods a run covers.
type Options struct {
	// Force bypasses the morning window and the already-satisfied check.
	// The publish gate still suppresses duplicate artifacts.
	Force bool
	// Only restricts the run to the named neighborhood IDs.
	Only []string
	// BatchSize overrides the configured batch size for this run when
	// positive.
	BatchSize int
}

// Runner executes content-generation runs across due neighborhoods.
type Runner struct {
	cfg       *config.Config
	store     *store.Store
	gate      *publish.Gate
	filter    *relevance.Filter
	fetchers  []fetch.Fetcher
	scheduler *schedule.Scheduler
	notifier  notifications.Service
	caller    *retry.Caller
	logger    *slog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// RunnerOption customizes runner construction.
type RunnerOption func(*Runner)

// WithSleeper overrides the pacing sleep, used by tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) RunnerOption {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithClock overrides the runner's clock, used by tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner assembles a pipeline runner from its collaborators. A nil
// notifier falls back to the noop service and a nil logger is discarded.
func NewRunner(
	cfg *config.Config,
	st *store.Store,
	gate *publish.Gate,
	filter *relevance.Filter,
	notifier notifications.Service,
	logger *slog.Logger,
	fetchers ...fetch.Fetcher,
) *Runner {
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	window := schedule.Window{
		StartHour: cfg.Schedule.WindowStartHour,
		EndHour:   cfg.Schedule.WindowEndHour,
	}
	runner := &Runner{
		cfg:       cfg,
		store:     st,
		gate:      gate,
		filter:    filter,
		fetchers:  fetchers,
		scheduler: schedule.New(window, logger),
		notifier:  notifier,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
		sleep:     sleepContext,
		now:       time.Now,
	}

	delays := make([]time.Duration, 0, len(cfg.Pipeline.BackoffSeconds))
	for _, seconds := range cfg.Pipeline.BackoffSeconds {
		delays = append(delays, time.Duration(seconds)*time.Second)
	}
	// The caller delegates to the runner's sleep so an injected sleeper
	// covers retry waits as well as source pacing.
	runner.caller = retry.New(delays, retry.WithSleeper(func(ctx context.Context, d time.Duration) error {
		return runner.sleep(ctx, d)
	}))
	return runner
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes one pipeline run of the given kind. It returns a summary
// even when the run fails partway; the error covers setup failures only.
func (r *Runner) Run(ctx context.Context, kind store.Kind, opts Options) (*Summary, error) {
	if strings.TrimSpace(r.cfg.LLM.APIKey) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run",
			"llm api key missing; aborting before any work", nil)
	}
	if len(r.fetchers) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run",
			"no content sources configured", nil)
	}

	started := r.now()
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := r.logger.With(logging.String(logging.FieldRunID, runID))

	summary := &Summary{RunID: runID, Kind: kind}

	neighborhoods, err := r.store.ListNeighborhoods(ctx, true)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "run", "list neighborhoods", err)
	}

	// Item-anchored kinds produce many artifacts per period, so the
	// period-level satisfied check and the morning window do not apply;
	// per-item slug uniqueness is the only duplicate barrier.
	scheduleOpts := schedule.Options{
		Force: opts.Force || kind.ItemAnchored(),
		Only:  opts.Only,
	}

	var satisfied map[period.Key]bool
	if !scheduleOpts.Force {
		keys := schedule.PeriodKeys(started, neighborhoods)
		satisfied, err = r.store.SatisfiedPeriodKeys(ctx, kind, keys)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "pipeline", "run", "load satisfied periods", err)
		}
	}

	due := r.scheduler.Due(started, neighborhoods, satisfied, scheduleOpts)
	if len(due) == 0 {
		summary.Reason = "nothing due"
		summary.ElapsedSeconds = r.now().Sub(started).Seconds()
		logger.Info("run finished with nothing due", logging.String("kind", string(kind)))
		return summary, nil
	}

	metrics.IncRunStarted(string(kind))
	if err := r.store.InsertRun(ctx, runID, kind, started); err != nil {
		return nil, services.Wrap(services.ErrTransient, "pipeline", "run", "record run start", err)
	}
	if err := r.notifier.NotifyRunStarted(ctx, string(kind), len(due)); err != nil {
		logger.Warn("run-start notification failed", logging.Error(err))
	}

	budget := time.Duration(r.cfg.Pipeline.BudgetSeconds) * time.Second
	batchSize := r.cfg.Pipeline.BatchSize
	if opts.BatchSize > 0 {
		batchSize = opts.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	for offset := 0; offset < len(due); offset += batchSize {
		if budget > 0 && r.now().Sub(started) >= budget {
			remaining := len(due) - offset
			summary.Partial = true
			summary.Reason = fmt.Sprintf("time budget exhausted with %d neighborhoods remaining", remaining)
			summary.Skipped += remaining
			logger.Warn("stopping on time budget",
				logging.Int("remaining", remaining),
				logging.Duration("elapsed", r.now().Sub(started)))
			break
		}

		end := offset + batchSize
		if end > len(due) {
			end = len(due)
		}
		batch := due[offset:end]
		r.runBatch(ctx, logger, kind, batch, summary)
	}

	summary.ElapsedSeconds = r.now().Sub(started).Seconds()
	metrics.ObserveRunDuration(string(kind), summary.Partial, summary.ElapsedSeconds)

	if err := r.store.FinishRun(ctx, runID, r.now(), summary.JSON()); err != nil {
		logger.Error("record run finish failed", logging.Error(err))
	}
	if err := r.notifier.NotifyRunCompleted(ctx, string(kind), summary.Created, summary.Failed, r.now().Sub(started)); err != nil {
		logger.Warn("run-complete notification failed", logging.Error(err))
	}

	logger.Info("run finished",
		logging.String("kind", string(kind)),
		logging.Int("attempted", summary.Attempted),
		logging.Int("created", summary.Created),
		logging.Int("already_published", summary.AlreadyPublished),
		logging.Int("failed", summary.Failed),
		logging.Int("skipped", summary.Skipped),
		logging.Bool("partial", summary.Partial))
	return summary, nil
}

// runBatch processes one batch concurrently and waits for every
// neighborhood to settle before returning. A single failure never stops
// the rest of the batch.
func (r *Runner) runBatch(ctx context.Context, logger *slog.Logger, kind store.Kind, batch []store.Neighborhood, summary *Summary) {
	results := make(chan outcome, len(batch))
	var wg sync.WaitGroup
	wg.Add(len(batch))
	for _, n := range batch {
		go func(n store.Neighborhood) {
			defer wg.Done()
			results <- r.processNeighborhood(ctx, kind, n)
		}(n)
	}
	wg.Wait()
	close(results)

	for res := range results {
		summary.Attempted++
		summary.Dropped += res.dropped
		if res.err != nil {
			summary.Failed++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", res.neighborhoodID, res.err))
			metrics.IncNeighborhoodFailure(string(kind))
			logger.Error("neighborhood failed",
				logging.String(logging.FieldNeighborhood, res.neighborhoodID),
				logging.Error(res.err))
			if notifyErr := r.notifier.NotifyError(ctx, res.err, res.neighborhoodID); notifyErr != nil {
				logger.Warn("error notification failed", logging.Error(notifyErr))
			}
			continue
		}
		if res.skipped {
			summary.Skipped++
		}
		summary.Created += res.created
		summary.AlreadyPublished += res.alreadyExists
		metrics.AddArtifactsCreated(string(kind), res.created)
		metrics.AddDuplicateShortCircuits(string(kind), res.alreadyExists)
	}
}

// processNeighborhood runs the full per-neighborhood flow: fetch every
// source, filter and extract, merge across sources, render, publish.
func (r *Runner) processNeighborhood(ctx context.Context, kind store.Kind, n store.Neighborhood) outcome {
	res := outcome{neighborhoodID: n.ID}
	ctx = services.WithNeighborhood(ctx, n.ID)
	logger := r.logger.With(logging.String(logging.FieldNeighborhood, n.ID))

	localDate, err := period.LocalDate(n.Timezone, r.now())
	if err != nil {
		res.err = services.Wrap(services.ErrValidation, "pipeline", "process", "resolve local date", err)
		return res
	}
	key := period.ForDate(n.ID, localDate)

	window := fetch.Window{
		LocalDate:     localDate,
		LookaheadDays: r.lookaheadDays(kind),
	}

	fetched, fetchErrs := r.fetchAll(ctx, logger, n, window)
	if len(fetched) == 0 {
		if len(fetchErrs) > 0 {
			res.err = services.Wrap(services.ErrExternal, "pipeline", "process",
				fmt.Sprintf("all %d sources failed", len(fetchErrs)), fetchErrs[0])
			return res
		}
		logger.Info("no source produced content", logging.String(logging.FieldPeriodKey, string(key)))
		res.skipped = true
		return res
	}

	if kind.ItemAnchored() {
		return r.publishItems(ctx, logger, kind, n, localDate, key, fetched)
	}

	merged, dropped, err := r.buildEvents(ctx, logger, n, localDate, fetched)
	res.dropped = dropped
	if err != nil {
		res.err = err
		return res
	}
	if len(merged) == 0 {
		logger.Info("no events survived filtering", logging.String(logging.FieldPeriodKey, string(key)))
		res.skipped = true
		return res
	}

	event.SortForDisplay(merged)
	content := event.Digest(merged, localDate, n.City)

	metadata, _ := json.Marshal(map[string]any{
		"sources": len(fetched),
		"events":  len(merged),
		"dropped": dropped,
	})

	decision, err := r.gate.TryPublish(ctx, publish.Draft{
		NeighborhoodID: n.ID,
		PeriodKey:      key,
		Slug:           publish.PeriodSlug(kind, key),
		Kind:           kind,
		Title:          r.title(kind, n),
		Content:        content,
		MetadataJSON:   string(metadata),
		Status:         store.StatusPublished,
	})
	if err != nil {
		res.err = err
		return res
	}

	if decision.Created() {
		res.created++
		if err := r.notifier.NotifyPublished(ctx, n.Name, decision.Artifact.Title); err != nil {
			logger.Warn("publish notification failed", logging.Error(err))
		}
	} else {
		res.alreadyExists++
	}
	return res
}

// publishItems publishes one artifact per accepted candidate, keyed by the
// item's URL. News lands as a draft for editorial review; alerts go out
// published immediately.
func (r *Runner) publishItems(ctx context.Context, logger *slog.Logger, kind store.Kind, n store.Neighborhood, localDate string, key period.Key, fetched []*fetch.Result) outcome {
	res := outcome{neighborhoodID: n.ID}
	targets := []relevance.Target{{ID: n.ID, Name: n.Name + ", " + n.City}}
	constraints := relevance.Constraints{MaxSummaryChars: 280}

	status := store.StatusPublished
	if kind == store.KindNews {
		status = store.StatusDraft
	}

	judgeFailures := 0
	for _, result := range fetched {
		for _, candidate := range result.Candidates {
			judgment, err := r.filter.Judge(ctx, relevance.Candidate{
				Text:   candidate.Text,
				Source: candidate.Source,
				URL:    candidate.URL,
			}, targets, constraints)
			if err != nil {
				judgeFailures++
				logger.Warn("relevance judgment failed",
					logging.String(logging.FieldSource, candidate.Source),
					logging.Error(err))
				continue
			}
			if !r.filter.Accepted(judgment) {
				res.dropped++
				continue
			}

			title := judgment.Title
			if title == "" {
				title = truncate(candidate.Text, 80)
			}
			content := judgment.Summary
			if content == "" {
				content = candidate.Text
			}
			anchor := candidate.URL
			if anchor == "" {
				anchor = candidate.Text
			}
			metadata, _ := json.Marshal(map[string]any{
				"source":     candidate.Source,
				"url":        candidate.URL,
				"confidence": judgment.Confidence,
			})

			decision, err := r.gate.TryPublish(ctx, publish.Draft{
				NeighborhoodID: n.ID,
				PeriodKey:      key,
				Slug:           publish.ContentSlug(kind, anchor, localDate),
				Kind:           kind,
				Title:          title,
				Content:        content,
				MetadataJSON:   string(metadata),
				Status:         status,
			})
			if err != nil {
				res.err = err
				return res
			}
			if decision.Created() {
				res.created++
				if status == store.StatusPublished {
					if err := r.notifier.NotifyPublished(ctx, n.Name, decision.Artifact.Title); err != nil {
						logger.Warn("publish notification failed", logging.Error(err))
					}
				}
			} else {
				res.alreadyExists++
			}
		}
	}

	if res.created == 0 && res.alreadyExists == 0 {
		if judgeFailures > 0 {
			res.err = services.Wrap(services.ErrExternal, "pipeline", "judge",
				fmt.Sprintf("%d relevance judgments failed and nothing survived", judgeFailures), nil)
			return res
		}
		logger.Info("no items accepted", logging.String(logging.FieldPeriodKey, string(key)))
		res.skipped = true
	}
	return res
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max])
}

// fetchAll queries every configured source in parallel, pacing launches so
// bursts stay under provider rate limits. Retryable errors go through the
// configured backoff schedule; a source that still fails is isolated.
func (r *Runner) fetchAll(ctx context.Context, logger *slog.Logger, n store.Neighborhood, window fetch.Window) ([]*fetch.Result, []error) {
	pace := time.Duration(r.cfg.Pipeline.SourcePaceMillis) * time.Millisecond

	type sourceResult struct {
		name   string
		result *fetch.Result
		err    error
	}
	results := make(chan sourceResult, len(r.fetchers))
	var wg sync.WaitGroup
	for i, fetcher := range r.fetchers {
		if i > 0 {
			if err := r.sleep(ctx, pace); err != nil {
				break
			}
		}
		wg.Add(1)
		go func(fetcher fetch.Fetcher) {
			defer wg.Done()
			sourceCtx := services.WithSource(ctx, fetcher.Name())
			var result *fetch.Result
			err := r.caller.Do(sourceCtx, "fetch "+fetcher.Name(), func(ctx context.Context) error {
				var fetchErr error
				result, fetchErr = fetcher.Fetch(ctx, n, window)
				return fetchErr
			})
			results <- sourceResult{name: fetcher.Name(), result: result, err: err}
		}(fetcher)
	}
	wg.Wait()
	close(results)

	var fetched []*fetch.Result
	var errs []error
	for res := range results {
		if res.err != nil {
			metrics.IncFetchFailure(res.name)
			logger.Warn("source fetch failed",
				logging.String(logging.FieldSource, res.name),
				logging.Error(res.err))
			errs = append(errs, res.err)
			continue
		}
		if res.result != nil {
			fetched = append(fetched, res.result)
		}
	}
	return fetched, errs
}

// buildEvents filters each source's candidates through the relevance
// judge, extracts structured events from the accepted text, and merges
// across sources with first-seen-wins deduplication.
func (r *Runner) buildEvents(ctx context.Context, logger *slog.Logger, n store.Neighborhood, localDate string, fetched []*fetch.Result) ([]event.Canonical, int, error) {
	targets := []relevance.Target{{ID: n.ID, Name: n.Name + ", " + n.City}}
	constraints := relevance.Constraints{MaxSummaryChars: 280}

	var merged []event.Canonical
	dropped := 0
	judgeFailures := 0

	for _, result := range fetched {
		accepted := make([]string, 0, len(result.Candidates))
		for _, candidate := range result.Candidates {
			judgment, err := r.filter.Judge(ctx, relevance.Candidate{
				Text:   candidate.Text,
				Source: candidate.Source,
				URL:    candidate.URL,
			}, targets, constraints)
			if err != nil {
				judgeFailures++
				logger.Warn("relevance judgment failed",
					logging.String(logging.FieldSource, candidate.Source),
					logging.Error(err))
				continue
			}
			if !r.filter.Accepted(judgment) {
				dropped++
				continue
			}
			accepted = append(accepted, candidate.Text)
		}
		if len(accepted) == 0 {
			continue
		}

		events, err := r.filter.ExtractEvents(ctx, strings.Join(accepted, "\n\n"), n.Name, localDate)
		if err != nil {
			return nil, dropped, services.Wrap(services.ErrExternal, "pipeline", "extract", "event extraction failed", err)
		}
		collapsed := event.CollapseRecurring(event.Validate(events), localDate)
		merged = event.Merge(merged, collapsed)
	}

	if judgeFailures > 0 && len(merged) == 0 {
		return nil, dropped, services.Wrap(services.ErrExternal, "pipeline", "judge",
			fmt.Sprintf("%d relevance judgments failed and nothing survived", judgeFailures), nil)
	}
	return merged, dropped, nil
}

func (r *Runner) lookaheadDays(kind store.Kind) int {
	if kind == store.KindLookAhead {
		days := r.cfg.Pipeline.LookaheadDays
		if days <= 0 {
			days = 7
		}
		return days
	}
	return 1
}

func (r *Runner) title(kind store.Kind, n store.Neighborhood) string {
	switch kind {
	case store.KindLookAhead:
		return fmt.Sprintf("The week ahead in %s", n.Name)
	default:
		return fmt.Sprintf("Today in %s", n.Name)
	}
}
