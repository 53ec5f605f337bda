// Package retry wraps a single flaky upstream call with bounded backoff.
//
// The policy is a fixed ordered list of delays: a retryable error sleeps
// the next delay and tries again; any other error propagates immediately.
// When the delay list is exhausted the last error propagates. Worst-case
// added latency per call is the sum of the configured delays, which the
// pipeline's wall-clock budget accounts for.
package retry

import (
	"context"
	"fmt"
	"time"

	"ward/internal/services"
)

// DefaultDelays is the backoff schedule used when none is configured.
var DefaultDelays = []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second}

// Caller retries one operation according to a fixed delay schedule.
type Caller struct {
	delays    []time.Duration
	retryable func(error) bool
	sleep     func(context.Context, time.Duration) error
}

// Option customizes a Caller.
type Option func(*Caller)

// WithRetryable overrides the error classification predicate. The default
// is services.IsRetryable.
func WithRetryable(predicate func(error) bool) Option {
	return func(c *Caller) {
		if predicate != nil {
			c.retryable = predicate
		}
	}
}

// WithSleeper overrides how delays are waited out. Tests inject a recorder
// here; the default honors context cancellation.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Caller) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// New builds a Caller with the given delay schedule. A nil or empty
// schedule falls back to DefaultDelays.
func New(delays []time.Duration, opts ...Option) *Caller {
	if len(delays) == 0 {
		delays = DefaultDelays
	}
	schedule := make([]time.Duration, len(delays))
	copy(schedule, delays)

	c := &Caller{
		delays:    schedule,
		retryable: services.IsRetryable,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxAddedLatency returns the worst-case time spent sleeping across all
// retries.
func (c *Caller) MaxAddedLatency() time.Duration {
	var total time.Duration
	for _, d := range c.delays {
		total += d
	}
	return total
}

// Do invokes fn, retrying on classified-retryable errors until the delay
// schedule is exhausted. The operation name appears in the final error.
func (c *Caller) Do(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !c.retryable(lastErr) {
			return lastErr
		}
		if attempt >= len(c.delays) {
			return fmt.Errorf("%s: retries exhausted after %d attempts: %w", operation, attempt+1, lastErr)
		}
		if err := c.sleep(ctx, c.delays[attempt]); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
