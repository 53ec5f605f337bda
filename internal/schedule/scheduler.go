// Package schedule selects which neighborhoods are due for an aggregation
// run based on their local clock.
package schedule

import (
	"log/slog"
	"strings"
	"time"

	"ward/internal/logging"
	"ward/internal/period"
	"ward/internal/store"
)

// Window is the local-time interval during which a neighborhood becomes
// eligible for that day's run. Hours are [StartHour, EndHour).
type Window struct {
	StartHour int
	EndHour   int
}

// Contains reports whether a local hour falls inside the window.
func (w Window) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// Options carries the operational overrides accepted by the trigger
// boundary.
type Options struct {
	// Force bypasses the window and satisfied checks. Publish idempotency
	// still holds at the storage layer, so forcing a run never
	// double-publishes.
	Force bool
	// Only restricts the run to the listed neighborhood IDs when non-empty.
	Only []string
}

func (o Options) includes(id string) bool {
	if len(o.Only) == 0 {
		return true
	}
	for _, candidate := range o.Only {
		if strings.TrimSpace(candidate) == id {
			return true
		}
	}
	return false
}

// Scheduler decides which neighborhoods a run should process.
type Scheduler struct {
	window Window
	logger *slog.Logger
}

// New builds a Scheduler for the given window.
func New(window Window, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		window: window,
		logger: logging.NewComponentLogger(logger, "scheduler"),
	}
}

// Due returns the neighborhoods whose current local time falls inside the
// ingestion window and whose period is not already satisfied. A
// neighborhood with an invalid timezone is excluded and logged, never an
// error.
func (s *Scheduler) Due(now time.Time, neighborhoods []store.Neighborhood, satisfied map[period.Key]bool, opts Options) []store.Neighborhood {
	due := make([]store.Neighborhood, 0, len(neighborhoods))
	for _, n := range neighborhoods {
		if !n.Active {
			continue
		}
		if !opts.includes(n.ID) {
			continue
		}

		key, err := period.For(n.ID, n.Timezone, now)
		if err != nil {
			s.logger.Warn("neighborhood excluded: unparseable timezone",
				logging.String(logging.FieldNeighborhood, n.ID),
				logging.String("timezone", n.Timezone),
				logging.Error(err),
			)
			continue
		}

		if opts.Force {
			due = append(due, n)
			continue
		}
		if satisfied[key] {
			continue
		}

		hour, err := period.LocalHour(n.Timezone, now)
		if err != nil {
			// Unreachable after the period.For check, but keep the
			// exclusion behavior rather than assuming.
			continue
		}
		if !s.window.Contains(hour) {
			continue
		}
		due = append(due, n)
	}
	return due
}

// PeriodKeys computes the period key for every neighborhood that has a
// loadable timezone. Neighborhoods with invalid timezones are skipped.
func PeriodKeys(now time.Time, neighborhoods []store.Neighborhood) []period.Key {
	keys := make([]period.Key, 0, len(neighborhoods))
	for _, n := range neighborhoods {
		key, err := period.For(n.ID, n.Timezone, now)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}
