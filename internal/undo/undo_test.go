package undo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sortd/internal/config"
	"sortd/internal/faults"
	"sortd/internal/history"
	"sortd/internal/organize"
	"sortd/internal/rules"
	"sortd/internal/testsupport"
	"sortd/internal/undo"
	"sortd/internal/undolog"
)

func organizeFiles(t *testing.T, cfg *config.Config, names ...string) organize.Summary {
	t.Helper()
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDirs[0], name), "content of "+name)
	}
	catalog, err := rules.FromConfig(cfg)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	summary, err := organize.NewRunner(cfg, catalog, nil, nil).Run(context.Background(), organize.Options{})
	if err != nil {
		t.Fatalf("organize run failed: %v", err)
	}
	return summary
}

func TestUndoRestoresAndPrunes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary := organizeFiles(t, cfg, "photo.jpg", "report.pdf")
	if summary.Moved != 2 {
		t.Fatalf("setup moved %d", summary.Moved)
	}

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), summary.LogID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 2 || result.Failed() != 0 {
		t.Fatalf("result = %+v", result)
	}

	for _, name := range []string{"photo.jpg", "report.pdf"} {
		if _, err := os.Stat(filepath.Join(cfg.Paths.SourceDirs[0], name)); err != nil {
			t.Errorf("expected %s restored: %v", name, err)
		}
	}

	// The category trees created by the run are empty again and pruned; the
	// destination root itself survives.
	entries, err := os.ReadDir(cfg.Paths.DestinationDir)
	if err != nil {
		t.Fatalf("read destination: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("destination not pruned: %v", entries)
	}
	if result.PrunedDirs == 0 {
		t.Fatal("expected pruned directories")
	}
}

func TestUndoDefaultsToMostRecentLog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary := organizeFiles(t, cfg, "notes.txt")

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), "", true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.LogID != summary.LogID {
		t.Fatalf("log id = %q, want %q", result.LogID, summary.LogID)
	}
	if result.Restored != 1 {
		t.Fatalf("restored = %d", result.Restored)
	}
}

func TestUndoRequiresConfirmation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	engine := undo.NewEngine(cfg, nil, nil)
	if _, err := engine.Undo(context.Background(), "", false); !errors.Is(err, undo.ErrNotConfirmed) {
		t.Fatalf("expected ErrNotConfirmed, got %v", err)
	}
}

func TestUndoContinuesPastMissingDestination(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary := organizeFiles(t, cfg, "photo.jpg", "report.pdf")

	// Someone deleted one of the organized files before the undo.
	records, err := undolog.Load(cfg.Paths.UndoDir, summary.LogID)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	if err := os.Remove(records[0].DestinationPath); err != nil {
		t.Fatalf("remove destination: %v", err)
	}

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), summary.LogID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 1 || result.Failed() != 1 {
		t.Fatalf("result = %+v", result)
	}
	if !errors.Is(result.Failures[0].Err, faults.ErrUndoIntegrity) {
		t.Fatalf("failure error = %v", result.Failures[0].Err)
	}
}

func TestUndoSkipsOccupiedSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary := organizeFiles(t, cfg, "notes.txt")

	// A new file reclaimed the original path.
	occupied := filepath.Join(cfg.Paths.SourceDirs[0], "notes.txt")
	testsupport.WriteFile(t, occupied, "newer file")

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), summary.LogID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 0 || result.Failed() != 1 {
		t.Fatalf("result = %+v", result)
	}
	data, err := os.ReadFile(occupied)
	if err != nil || string(data) != "newer file" {
		t.Fatalf("occupying file disturbed: %q, %v", data, err)
	}
}

func TestUndoIgnoresSkippedRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCollisionPolicy("skip"))
	blocked := filepath.Join(cfg.Paths.DestinationDir, "Documents", "Text Files", "notes.txt")
	testsupport.WriteFile(t, blocked, "pre-existing")
	summary := organizeFiles(t, cfg, "notes.txt")
	if summary.Skipped != 1 {
		t.Fatalf("setup summary = %+v", summary)
	}

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), summary.LogID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 0 || result.Failed() != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(blocked); err != nil {
		t.Fatalf("pre-existing file disturbed: %v", err)
	}
}

func TestUndoIgnoresDryRunRecords(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := filepath.Join(cfg.Paths.SourceDirs[0], "photo.jpg")
	dest := filepath.Join(cfg.Paths.DestinationDir, "Images", "photo.jpg")
	testsupport.WriteFile(t, dest, "img")

	// A log can carry simulated records alongside real ones; only the real
	// move is reversed.
	writer, err := undolog.NewWriter(cfg.Paths.UndoDir, time.Now())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	records := []undolog.Record{
		{SourcePath: source, DestinationPath: dest, Timestamp: time.Now(), Category: "Images", Outcome: undolog.OutcomeMoved},
		{SourcePath: filepath.Join(cfg.Paths.SourceDirs[0], "ghost.pdf"), DestinationPath: filepath.Join(cfg.Paths.DestinationDir, "Documents", "PDFs", "ghost.pdf"), Timestamp: time.Now(), Category: "Documents", Outcome: undolog.OutcomeDryRun},
	}
	for _, rec := range records {
		if err := writer.Append(rec); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	logID, err := writer.Finalize()
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), logID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 1 || result.Failed() != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(source); err != nil {
		t.Fatalf("expected moved record restored: %v", err)
	}
}

func TestUndoRetainsDirWithUnrelatedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	summary := organizeFiles(t, cfg, "photo.jpg")

	records, err := undolog.Load(cfg.Paths.UndoDir, summary.LogID)
	if err != nil {
		t.Fatalf("load log: %v", err)
	}
	imageDir := filepath.Dir(records[0].DestinationPath)
	testsupport.WriteFile(t, filepath.Join(imageDir, "unrelated.jpg"), "keep me")

	engine := undo.NewEngine(cfg, nil, nil)
	result, err := engine.Undo(context.Background(), summary.LogID, true)
	if err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	if result.Restored != 1 || result.PrunedDirs != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(filepath.Join(imageDir, "unrelated.jpg")); err != nil {
		t.Fatalf("unrelated file removed: %v", err)
	}
}

func TestUndoRemoveLogAfter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Undo.RemoveLogAfter = true
	summary := organizeFiles(t, cfg, "notes.txt")

	engine := undo.NewEngine(cfg, nil, nil)
	if _, err := engine.Undo(context.Background(), summary.LogID, true); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}
	logs, err := undolog.List(cfg.Paths.UndoDir)
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(logs) != 0 {
		t.Fatalf("expected log removed, found %d", len(logs))
	}
}

func TestUndoMarksHistoryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	catalog, err := rules.FromConfig(cfg)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.SourceDirs[0], "notes.txt"), "x")
	summary, err := organize.NewRunner(cfg, catalog, store, nil).Run(context.Background(), organize.Options{})
	if err != nil {
		t.Fatalf("organize run failed: %v", err)
	}

	engine := undo.NewEngine(cfg, store, nil)
	if _, err := engine.Undo(context.Background(), summary.LogID, true); err != nil {
		t.Fatalf("Undo failed: %v", err)
	}

	runs, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	var sawUndone bool
	for _, run := range runs {
		if run.Kind == history.KindOrganize && run.Status == history.StatusUndone {
			sawUndone = true
		}
	}
	if !sawUndone {
		t.Fatal("organize run not marked undone")
	}
}
