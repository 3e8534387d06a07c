package watcher_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"sortd/internal/organize"
	"sortd/internal/testsupport"
	"sortd/internal/watcher"
)

type countingRunner struct {
	runs atomic.Int32
}

func (c *countingRunner) Run(ctx context.Context, opts organize.Options) (organize.Summary, error) {
	c.runs.Add(1)
	return organize.Summary{Moved: 1}, nil
}

func TestWatcherTriggersRunAfterSettle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.SettleSeconds = 0 // clamps to the one second minimum

	runner := &countingRunner{}
	w := watcher.New(cfg, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	// Give the watcher time to register before producing events.
	time.Sleep(200 * time.Millisecond)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDirs[0], "a.txt"), "x")
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDirs[0], "b.txt"), "y")

	deadline := time.After(5 * time.Second)
	for runner.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("watcher never triggered a run")
		case <-time.After(50 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	// Two writes inside one settle window debounce into a single run.
	if got := runner.runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
}

func TestWatcherStopsOnCancelWithoutEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{}
	w := watcher.New(cfg, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}
	if runner.runs.Load() != 0 {
		t.Fatal("unexpected run without events")
	}
}
