package history_test

import (
	"context"
	"testing"

	"sortd/internal/history"
	"sortd/internal/testsupport"
)

func TestBeginFinishList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	id, err := store.Begin(ctx, history.KindOrganize, false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty run id")
	}

	stats := history.Stats{Moved: 3, Skipped: 1, UndoLog: "undo_log_20240101_120000"}
	if err := store.Finish(ctx, id, history.StatusCompleted, stats); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("listed %d runs, want 1", len(runs))
	}
	run := runs[0]
	if run.ID != id || run.Kind != history.KindOrganize {
		t.Fatalf("run = %+v", run)
	}
	if run.Moved != 3 || run.Skipped != 1 || run.Failed != 0 {
		t.Fatalf("counters = moved %d skipped %d failed %d", run.Moved, run.Skipped, run.Failed)
	}
	if run.UndoLog != stats.UndoLog {
		t.Fatalf("undo log = %q", run.UndoLog)
	}
	if run.Status != history.StatusCompleted {
		t.Fatalf("status = %q", run.Status)
	}
	if run.FinishedAt.IsZero() {
		t.Fatal("expected finished timestamp")
	}
}

func TestMarkUndone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	id, err := store.Begin(ctx, history.KindOrganize, false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	logID := "undo_log_20240202_080000"
	if err := store.Finish(ctx, id, history.StatusCompleted, history.Stats{Moved: 2, UndoLog: logID}); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	if err := store.MarkUndone(ctx, logID); err != nil {
		t.Fatalf("MarkUndone failed: %v", err)
	}

	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if runs[0].Status != history.StatusUndone {
		t.Fatalf("status = %q, want undone", runs[0].Status)
	}

	// Unknown logs are tolerated.
	if err := store.MarkUndone(ctx, "undo_log_19990101_000000"); err != nil {
		t.Fatalf("MarkUndone for unknown log failed: %v", err)
	}
}

func TestListLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, err := store.Begin(ctx, history.KindOrganize, true)
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		if err := store.Finish(ctx, id, history.StatusCompleted, history.Stats{}); err != nil {
			t.Fatalf("Finish failed: %v", err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("listed %d runs, want 2", len(runs))
	}
	if !runs[0].DryRun {
		t.Fatal("expected dry run flag to round-trip")
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	id, err := store.Begin(context.Background(), history.KindUndo, false)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer reopened.Close()

	runs, err := reopened.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != id {
		t.Fatalf("runs after reopen = %+v", runs)
	}
}
