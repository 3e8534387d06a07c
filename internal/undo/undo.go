// Package undo replays an undo log in reverse, restoring moved files to
// their original locations and pruning the directories the run left empty.
package undo

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"

	"sortd/internal/config"
	"sortd/internal/faults"
	"sortd/internal/fileutil"
	"sortd/internal/history"
	"sortd/internal/logging"
	"sortd/internal/undolog"
)

// ErrNotConfirmed is returned when the caller declines the restore.
var ErrNotConfirmed = errors.New("undo not confirmed")

// Failure records one log entry that could not be restored. The remaining
// entries are still processed.
type Failure struct {
	SourcePath      string
	DestinationPath string
	Err             error
}

// Result is the outcome of one undo run.
type Result struct {
	LogID      string
	Restored   int
	Failures   []Failure
	PrunedDirs int
}

// Failed returns the number of records that could not be restored.
func (r Result) Failed() int { return len(r.Failures) }

// Engine restores organize runs from their undo logs.
type Engine struct {
	cfg     *config.Config
	history *history.Store
	logger  *slog.Logger
}

// NewEngine constructs an engine. The history store may be nil.
func NewEngine(cfg *config.Config, store *history.Store, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		history: store,
		logger:  logging.NewComponentLogger(logger, "undo"),
	}
}

// Undo replays the identified log in reverse order. An empty logID selects
// the most recent log. Records whose destination vanished or whose source
// path is occupied again are reported as failures and skipped; everything
// else is restored. Skipped and dry-run records are ignored.
func (e *Engine) Undo(ctx context.Context, logID string, confirm bool) (Result, error) {
	if !confirm {
		return Result{}, ErrNotConfirmed
	}

	if logID == "" {
		info, err := undolog.MostRecent(e.cfg.Paths.UndoDir)
		if err != nil {
			return Result{}, err
		}
		logID = info.ID
	}

	records, err := undolog.Load(e.cfg.Paths.UndoDir, logID)
	if err != nil {
		return Result{}, err
	}

	unlock, err := e.acquireLock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	result := Result{LogID: logID}
	runID := e.beginHistory(ctx)
	pruneRoots := make(map[string]struct{})

	var runErr error
	for i := len(records) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		rec := records[i]
		if rec.Outcome != undolog.OutcomeMoved {
			continue
		}
		if failure, ok := e.restore(rec); !ok {
			result.Failures = append(result.Failures, failure)
			continue
		}
		result.Restored++
		pruneRoots[filepath.Dir(rec.DestinationPath)] = struct{}{}
	}

	result.PrunedDirs = e.pruneEmptyDirs(pruneRoots)

	if runErr == nil && result.Restored > 0 {
		e.markUndone(ctx, logID)
		if e.cfg.Undo.RemoveLogAfter && result.Failed() == 0 {
			if err := undolog.Remove(e.cfg.Paths.UndoDir, logID); err != nil {
				e.logger.Warn("remove undo log failed", logging.Error(err))
			}
		}
	}

	status := history.StatusCompleted
	if runErr != nil {
		status = history.StatusFailed
	}
	e.finishHistory(ctx, runID, status, result)

	e.logger.Info("undo finished",
		logging.String("undo_log", logID),
		logging.Int("restored", result.Restored),
		logging.Int("failed", result.Failed()),
		logging.Int("pruned_dirs", result.PrunedDirs),
	)
	return result, runErr
}

func (e *Engine) restore(rec undolog.Record) (Failure, bool) {
	if _, err := os.Lstat(rec.DestinationPath); err != nil {
		e.logger.Warn("destination missing, cannot restore",
			logging.String("destination", rec.DestinationPath),
		)
		return Failure{
			SourcePath:      rec.SourcePath,
			DestinationPath: rec.DestinationPath,
			Err:             faults.Wrap(faults.ErrUndoIntegrity, "undo", "restore", "destination no longer exists", err),
		}, false
	}
	if _, err := os.Lstat(rec.SourcePath); err == nil {
		e.logger.Warn("original path occupied, cannot restore",
			logging.String("source", rec.SourcePath),
		)
		return Failure{
			SourcePath:      rec.SourcePath,
			DestinationPath: rec.DestinationPath,
			Err:             faults.Wrap(faults.ErrUndoIntegrity, "undo", "restore", "original path is occupied", nil),
		}, false
	}
	if err := os.MkdirAll(filepath.Dir(rec.SourcePath), 0o755); err != nil {
		return Failure{
			SourcePath:      rec.SourcePath,
			DestinationPath: rec.DestinationPath,
			Err:             faults.Wrap(faults.ErrFilesystem, "undo", "restore", "recreate source directory", err),
		}, false
	}
	if err := fileutil.MoveFile(rec.DestinationPath, rec.SourcePath); err != nil {
		return Failure{
			SourcePath:      rec.SourcePath,
			DestinationPath: rec.DestinationPath,
			Err:             faults.Wrap(faults.ErrFilesystem, "undo", "restore", "move file back", err),
		}, false
	}
	e.logger.Info("restored file",
		logging.String("source", rec.SourcePath),
		logging.String("destination", rec.DestinationPath),
	)
	return Failure{}, true
}

// pruneEmptyDirs removes now-empty directories left behind by restores,
// walking each one upward until the destination root or a non-empty
// directory stops it. The destination root itself is never removed.
func (e *Engine) pruneEmptyDirs(roots map[string]struct{}) int {
	destination := filepath.Clean(e.cfg.Paths.DestinationDir)

	dirs := make([]string, 0, len(roots))
	for dir := range roots {
		dirs = append(dirs, dir)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	pruned := 0
	for _, dir := range dirs {
		for current := filepath.Clean(dir); current != destination && strictlyUnder(current, destination); current = filepath.Dir(current) {
			entries, err := os.ReadDir(current)
			if err != nil || len(entries) != 0 {
				break
			}
			if err := os.Remove(current); err != nil {
				break
			}
			pruned++
		}
	}
	return pruned
}

func strictlyUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (e *Engine) acquireLock() (func(), error) {
	if err := os.MkdirAll(e.cfg.Paths.LogDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "undo", "lock", "create log directory", err)
	}
	lock := flock.New(filepath.Join(e.cfg.Paths.LogDir, "organize.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "undo", "lock", "acquire run lock", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrConflict, "undo", "lock", "another run is already in progress", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			e.logger.Warn("release run lock failed", logging.Error(err))
		}
	}, nil
}

func (e *Engine) beginHistory(ctx context.Context) string {
	if e.history == nil {
		return ""
	}
	id, err := e.history.Begin(ctx, history.KindUndo, false)
	if err != nil {
		e.logger.Warn("record undo start failed", logging.Error(err))
		return ""
	}
	return id
}

func (e *Engine) finishHistory(ctx context.Context, runID, status string, result Result) {
	if e.history == nil || runID == "" {
		return
	}
	stats := history.Stats{
		Moved:   result.Restored,
		Failed:  result.Failed(),
		UndoLog: result.LogID,
	}
	if err := e.history.Finish(context.WithoutCancel(ctx), runID, status, stats); err != nil {
		e.logger.Warn("record undo finish failed", logging.Error(err))
	}
}

func (e *Engine) markUndone(ctx context.Context, logID string) {
	if e.history == nil {
		return
	}
	if err := e.history.MarkUndone(context.WithoutCancel(ctx), logID); err != nil {
		e.logger.Warn("mark run undone failed", logging.Error(err))
	}
}
