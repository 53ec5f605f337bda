// Package daemon coordinates the background run loop, the HTTP control
// surface, and single-instance enforcement.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"ward/internal/api"
	"ward/internal/config"
	"ward/internal/logging"
	"ward/internal/pipeline"
	"ward/internal/store"
)

const defaultTickInterval = 5 * time.Minute

// Daemon owns the periodic pipeline runs and the API server lifecycle.
type Daemon struct {
	cfg     *config.Config
	store   *store.Store
	trigger api.RunTrigger
	server  *api.Server
	logger  *slog.Logger

	lockPath string
	lock     *flock.Flock
	interval time.Duration

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Option customizes daemon construction.
type Option func(*Daemon)

// WithTickInterval overrides how often the run loop wakes up.
func WithTickInterval(interval time.Duration) Option {
	return func(d *Daemon) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, st *store.Store, trigger api.RunTrigger, server *api.Server, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || st == nil || trigger == nil {
		return nil, errors.New("daemon requires config, store, and run trigger")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "wardd.lock")
	d := &Daemon{
		cfg:      cfg,
		store:    st,
		trigger:  trigger,
		server:   server,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
		interval: defaultTickInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the instance lock, starts the API server, and launches
// the periodic run loop.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another ward daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.server != nil {
		if err := d.server.Start(); err != nil {
			cancel()
			_ = d.lock.Unlock()
			return fmt.Errorf("start api server: %w", err)
		}
	}

	d.running.Store(true)
	d.wg.Add(1)
	go d.runLoop(runCtx)

	d.logger.Info("ward daemon started",
		logging.String("lock", d.lockPath),
		logging.Duration("tick_interval", d.interval))
	return nil
}

// Stop halts the run loop, shuts the API server down, and releases the
// instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()

	if d.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := d.server.Close(shutdownCtx); err != nil {
			d.logger.Warn("api server shutdown failed", logging.Error(err))
		}
		cancel()
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("ward daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether the daemon loop is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// LockPath returns the instance lock location.
func (d *Daemon) LockPath() string {
	return d.lockPath
}

// runLoop ticks on the configured interval. Each tick sweeps due
// scheduled artifacts and attempts a daily-brief run; the scheduler makes
// out-of-window ticks cheap.
func (d *Daemon) runLoop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Daemon) tick(ctx context.Context) {
	swept, err := d.store.PublishDueScheduled(ctx, time.Now().UTC())
	if err != nil {
		d.logger.Error("scheduled sweep failed", logging.Error(err))
	} else if swept > 0 {
		d.logger.Info("published due scheduled artifacts", logging.Int64("count", swept))
	}

	summary, err := d.trigger.Run(ctx, store.KindDailyBrief, pipeline.Options{})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.logger.Error("scheduled run failed", logging.Error(err))
		return
	}
	if summary.Attempted > 0 {
		d.logger.Info("scheduled run settled",
			logging.Int("attempted", summary.Attempted),
			logging.Int("created", summary.Created),
			logging.Int("failed", summary.Failed))
	}
}
