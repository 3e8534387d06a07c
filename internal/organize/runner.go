package organize

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"sortd/internal/classify"
	"sortd/internal/collision"
	"sortd/internal/config"
	"sortd/internal/faults"
	"sortd/internal/fileutil"
	"sortd/internal/history"
	"sortd/internal/logging"
	"sortd/internal/rules"
	"sortd/internal/undolog"
)

// Options control a single run.
type Options struct {
	// DryRun reports what would happen without touching the filesystem or
	// writing an undo log.
	DryRun bool
}

// Planned is one file's computed destination before any move happens.
type Planned struct {
	SourcePath  string
	Destination string
	Category    string
	SubBucket   string
	Skip        bool
}

// Failure records a file the run could not move. Failures never abort the
// run; the remaining files are still processed.
type Failure struct {
	SourcePath string
	Err        error
}

// Summary is the outcome of one run. Planned is populated only for dry runs,
// one entry per file, so callers can display what a real run would do.
type Summary struct {
	Moved    int
	Skipped  int
	Failures []Failure
	LogID    string
	DryRun   bool
	Planned  []Planned
}

// Failed returns the number of files that could not be moved.
func (s Summary) Failed() int { return len(s.Failures) }

// Runner executes organize runs against a fixed config and rule catalog.
type Runner struct {
	cfg     *config.Config
	catalog *rules.Catalog
	history *history.Store
	logger  *slog.Logger
}

// NewRunner constructs a runner. The history store may be nil, in which case
// runs are not recorded.
func NewRunner(cfg *config.Config, catalog *rules.Catalog, store *history.Store, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:     cfg,
		catalog: catalog,
		history: store,
		logger:  logging.NewComponentLogger(logger, "organize"),
	}
}

// Preview computes the destination for every scanned file without moving
// anything. Collision handling is simulated with the same in-run claim
// tracking a real run uses, so the reported paths match what Run would do.
func (r *Runner) Preview(ctx context.Context) ([]Planned, error) {
	policy, err := collision.ParsePolicy(r.cfg.Organize.CollisionPolicy)
	if err != nil {
		return nil, err
	}

	tasks, scanFailures := scanSources(r.cfg)
	for _, failure := range scanFailures {
		r.logger.Warn("scan failure",
			logging.String("path", failure.SourcePath),
			logging.Error(failure.Err),
		)
	}

	resolver := collision.NewResolver(policy)
	planned := make([]Planned, 0, len(tasks))
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		desired, placement := classify.Destination(r.cfg.Paths.DestinationDir, task, r.catalog)
		entry := Planned{
			SourcePath:  task.SourcePath,
			Destination: desired,
			Category:    placement.Category,
			SubBucket:   placement.SubBucket,
		}
		resolved, err := resolver.Resolve(desired)
		switch {
		case errors.Is(err, collision.ErrSkip):
			entry.Skip = true
		case err != nil:
			return nil, err
		default:
			entry.Destination = resolved
		}
		planned = append(planned, entry)
	}
	return planned, nil
}

// Run scans the sources and moves every classified file into place. Per-file
// failures, including unreadable directories found during the scan, are
// collected and reported; only lock contention and cancellation abort the
// run. On cancellation the files already moved stay moved and their undo log
// is finalized normally.
func (r *Runner) Run(ctx context.Context, opts Options) (Summary, error) {
	policy, err := collision.ParsePolicy(r.cfg.Organize.CollisionPolicy)
	if err != nil {
		return Summary{}, err
	}

	unlock, err := r.acquireLock()
	if err != nil {
		return Summary{}, err
	}
	defer unlock()

	tasks, scanFailures := scanSources(r.cfg)

	summary := Summary{DryRun: opts.DryRun}
	summary.Failures = append(summary.Failures, scanFailures...)
	runID := r.beginHistory(ctx, opts.DryRun)

	var writer *undolog.Writer
	if !opts.DryRun && r.cfg.Organize.WriteUndoLog {
		writer, err = undolog.NewWriter(r.cfg.Paths.UndoDir, time.Now())
		if err != nil {
			r.finishHistory(ctx, runID, history.StatusFailed, summary)
			return Summary{}, err
		}
	}

	resolver := collision.NewResolver(policy)
	var runErr error
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run cancelled", logging.Int("remaining", len(tasks)-summary.Moved-summary.Skipped-summary.Failed()))
			runErr = err
			break
		}
		r.processFile(task, resolver, writer, opts.DryRun, &summary)
	}

	if writer != nil {
		logID, err := writer.Finalize()
		if err != nil {
			r.logger.Error("finalize undo log failed", logging.Error(err))
			if runErr == nil {
				runErr = err
			}
		}
		summary.LogID = logID
	}

	status := history.StatusCompleted
	if runErr != nil {
		status = history.StatusFailed
	}
	r.finishHistory(ctx, runID, status, summary)

	r.logger.Info("run finished",
		logging.Int("moved", summary.Moved),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed()),
		logging.Bool("dry_run", summary.DryRun),
		logging.String("undo_log", summary.LogID),
	)
	return summary, runErr
}

func (r *Runner) processFile(task classify.Task, resolver *collision.Resolver, writer *undolog.Writer, dryRun bool, summary *Summary) {
	desired, placement := classify.Destination(r.cfg.Paths.DestinationDir, task, r.catalog)

	resolved, err := resolver.Resolve(desired)
	if errors.Is(err, collision.ErrSkip) {
		summary.Skipped++
		r.logger.Info("skipped existing destination",
			logging.String("source", task.SourcePath),
			logging.String("destination", desired),
		)
		if dryRun {
			summary.Planned = append(summary.Planned, Planned{
				SourcePath:  task.SourcePath,
				Destination: desired,
				Category:    placement.Category,
				SubBucket:   placement.SubBucket,
				Skip:        true,
			})
			return
		}
		r.appendRecord(writer, task, desired, placement.Category, undolog.OutcomeSkipped, summary)
		return
	}
	if err != nil {
		summary.Failures = append(summary.Failures, Failure{SourcePath: task.SourcePath, Err: err})
		r.logger.Error("collision resolution failed",
			logging.String("source", task.SourcePath),
			logging.Error(err),
		)
		return
	}

	if dryRun {
		summary.Moved++
		summary.Planned = append(summary.Planned, Planned{
			SourcePath:  task.SourcePath,
			Destination: resolved,
			Category:    placement.Category,
			SubBucket:   placement.SubBucket,
		})
		r.logger.Info("would move file",
			logging.String("source", task.SourcePath),
			logging.String("destination", resolved),
			logging.String("category", placement.Category),
		)
		return
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		summary.Failures = append(summary.Failures, Failure{
			SourcePath: task.SourcePath,
			Err:        faults.Wrap(faults.ErrFilesystem, "organize", "move", "create destination directory", err),
		})
		r.logger.Error("create destination directory failed",
			logging.String("source", task.SourcePath),
			logging.Error(err),
		)
		return
	}
	if err := fileutil.MoveFile(task.SourcePath, resolved); err != nil {
		summary.Failures = append(summary.Failures, Failure{
			SourcePath: task.SourcePath,
			Err:        faults.Wrap(faults.ErrFilesystem, "organize", "move", "move file", err),
		})
		r.logger.Error("move failed",
			logging.String("source", task.SourcePath),
			logging.String("destination", resolved),
			logging.Error(err),
		)
		return
	}

	summary.Moved++
	r.logger.Info("moved file",
		logging.String("source", task.SourcePath),
		logging.String("destination", resolved),
		logging.String("category", placement.Category),
	)
	r.appendRecord(writer, task, resolved, placement.Category, undolog.OutcomeMoved, summary)
}

// appendRecord writes the log line for an already-settled outcome. The move
// has happened by the time this runs, so an append failure is reported as a
// run failure without undoing anything.
func (r *Runner) appendRecord(writer *undolog.Writer, task classify.Task, destination, category, outcome string, summary *Summary) {
	if writer == nil {
		return
	}
	rec := undolog.Record{
		SourcePath:      task.SourcePath,
		DestinationPath: destination,
		Timestamp:       time.Now().UTC(),
		Category:        category,
		Outcome:         outcome,
	}
	if err := writer.Append(rec); err != nil {
		summary.Failures = append(summary.Failures, Failure{SourcePath: task.SourcePath, Err: err})
		r.logger.Error("undo log append failed",
			logging.String("source", task.SourcePath),
			logging.Error(err),
		)
	}
}

func (r *Runner) acquireLock() (func(), error) {
	if err := os.MkdirAll(r.cfg.Paths.LogDir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "organize", "lock", "create log directory", err)
	}
	lock := flock.New(filepath.Join(r.cfg.Paths.LogDir, "organize.lock"))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "organize", "lock", "acquire run lock", err)
	}
	if !ok {
		return nil, faults.Wrap(faults.ErrConflict, "organize", "lock", "another run is already in progress", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("release run lock failed", logging.Error(err))
		}
	}, nil
}

func (r *Runner) beginHistory(ctx context.Context, dryRun bool) string {
	if r.history == nil {
		return ""
	}
	id, err := r.history.Begin(ctx, history.KindOrganize, dryRun)
	if err != nil {
		r.logger.Warn("record run start failed", logging.Error(err))
		return ""
	}
	return id
}

func (r *Runner) finishHistory(ctx context.Context, runID, status string, summary Summary) {
	if r.history == nil || runID == "" {
		return
	}
	stats := history.Stats{
		Moved:   summary.Moved,
		Skipped: summary.Skipped,
		Failed:  summary.Failed(),
		UndoLog: summary.LogID,
	}
	if err := r.history.Finish(context.WithoutCancel(ctx), runID, status, stats); err != nil {
		r.logger.Warn("record run finish failed", logging.Error(err))
	}
}
