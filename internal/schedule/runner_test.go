package schedule

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunnerRunsOnceWithoutInterval(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	r := NewRunner(0, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithLogger(discardLogger()))

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestRunnerStopsOnRunError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("store corrupt")
	r := NewRunner(time.Hour, func(context.Context) error {
		return wantErr
	}, WithLogger(discardLogger()))

	if err := r.Start(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Start() error = %v, want %v", err, wantErr)
	}
}

func TestRunnerInterval(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	r := NewRunner(10*time.Millisecond, func(context.Context) error {
		if runs.Add(1) >= 3 {
			cancel()
		}
		return nil
	}, WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	if got := runs.Load(); got < 3 {
		t.Errorf("runs = %d, want at least 3", got)
	}
}

func TestRunnerRunContextSurvivesCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var runErr error
	r := NewRunner(0, func(runCtx context.Context) error {
		cancel()
		runErr = runCtx.Err()
		return nil
	}, WithLogger(discardLogger()))

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if runErr != nil {
		t.Errorf("run context cancelled mid-run: %v", runErr)
	}
}

func TestRunnerWatchDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	var runs atomic.Int32
	r := NewRunner(time.Hour, func(context.Context) error {
		switch runs.Add(1) {
		case 1:
			close(started)
		case 2:
			cancel()
		}
		return nil
	}, WithWatchDir(dir), WithDebounce(20*time.Millisecond), WithLogger(discardLogger()))

	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	<-started
	// Keep touching the directory until the watcher picks it up.
	deadline := time.After(5 * time.Second)
	for {
		if err := os.WriteFile(filepath.Join(dir, "targets.txt"), []byte("example.com\n"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if got := runs.Load(); got != 2 {
				t.Errorf("runs = %d, want 2", got)
			}
			return
		case <-time.After(100 * time.Millisecond):
		case <-deadline:
			t.Fatal("directory change did not trigger a run")
		}
	}
}

func TestRunnerWatchMissingDir(t *testing.T) {
	t.Parallel()

	r := NewRunner(time.Hour, func(context.Context) error { return nil },
		WithWatchDir(filepath.Join(t.TempDir(), "missing")), WithLogger(discardLogger()))
	if err := r.Start(context.Background()); err == nil {
		t.Error("expected error watching a missing directory")
	}
}

func TestRelevant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{name: "create", ev: fsnotify.Event{Name: "/t/a.txt", Op: fsnotify.Create}, want: true},
		{name: "write", ev: fsnotify.Event{Name: "/t/a.txt", Op: fsnotify.Write}, want: true},
		{name: "remove", ev: fsnotify.Event{Name: "/t/a.txt", Op: fsnotify.Remove}, want: true},
		{name: "chmod", ev: fsnotify.Event{Name: "/t/a.txt", Op: fsnotify.Chmod}, want: false},
		{name: "hidden", ev: fsnotify.Event{Name: "/t/.a.swp", Op: fsnotify.Write}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := relevant(tt.ev); got != tt.want {
				t.Errorf("relevant() = %v, want %v", got, tt.want)
			}
		})
	}
}
