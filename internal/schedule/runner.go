package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a directory change triggers a run.
const DefaultDebounce = 2 * time.Second

// RunFunc performs one run. A returned error stops the Runner.
type RunFunc func(ctx context.Context) error

// Runner repeats a RunFunc on an interval and on target directory changes.
type Runner struct {
	interval time.Duration
	run      RunFunc
	watchDir string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithWatchDir re-runs when files in dir change.
func WithWatchDir(dir string) Option {
	return func(r *Runner) {
		r.watchDir = dir
	}
}

// WithDebounce sets the quiet period for directory changes.
func WithDebounce(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner. A non-positive interval runs exactly once.
func NewRunner(interval time.Duration, run RunFunc, opts ...Option) *Runner {
	r := &Runner{
		interval: interval,
		run:      run,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs until ctx is cancelled or a run fails. Runs receive a
// context that is not cancelled with ctx.
func (r *Runner) Start(ctx context.Context) error {
	runCtx := context.WithoutCancel(ctx)

	if err := r.runOnce(runCtx, "startup"); err != nil {
		return err
	}
	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var (
		events  <-chan fsnotify.Event
		errs    <-chan error
		pending *time.Timer
		fire    <-chan time.Time
	)
	if r.watchDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create directory watcher: %w", err)
		}
		defer watcher.Close()

		if err := watcher.Add(r.watchDir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", r.watchDir, err)
		}
		events, errs = watcher.Events, watcher.Errors
	}

	r.logger.Info("scheduler started", "interval", r.interval, "watch", r.watchDir)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler stopped", "reason", ctx.Err())
			return nil

		case <-ticker.C:
			if err := r.runOnce(runCtx, "interval"); err != nil {
				return err
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !relevant(ev) {
				continue
			}
			r.logger.Debug("targets changed", "file", ev.Name, "op", ev.Op.String())
			if pending == nil {
				pending = time.NewTimer(r.debounce)
			} else {
				pending.Reset(r.debounce)
			}
			fire = pending.C

		case <-fire:
			fire = nil
			if err := r.runOnce(runCtx, "targets changed"); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			r.logger.Warn("directory watcher error", "error", err)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, reason string) error {
	r.logger.Debug("starting run", "reason", reason)
	start := time.Now()
	if err := r.run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	r.logger.Debug("run finished", "reason", reason, "elapsed", time.Since(start))
	return nil
}

// relevant reports whether ev may change the target list.
func relevant(ev fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(ev.Name), ".") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}
