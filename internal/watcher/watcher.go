// Package watcher triggers organize runs when files land in a source
// directory. Events are debounced so a burst of downloads produces one run
// after the directory settles.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"sortd/internal/config"
	"sortd/internal/logging"
	"sortd/internal/organize"
)

// Runner is the slice of the organize runner the watcher drives.
type Runner interface {
	Run(ctx context.Context, opts organize.Options) (organize.Summary, error)
}

// Watcher observes the configured source directories and kicks off a run
// once events stop arriving for the settle window.
type Watcher struct {
	cfg    *config.Config
	runner Runner
	logger *slog.Logger
	settle time.Duration
}

// New constructs a watcher around the given runner.
func New(cfg *config.Config, runner Runner, logger *slog.Logger) *Watcher {
	settle := time.Duration(cfg.Watch.SettleSeconds) * time.Second
	if settle <= 0 {
		settle = time.Second
	}
	return &Watcher{
		cfg:    cfg,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "watcher"),
		settle: settle,
	}
}

// Start watches until the context is cancelled. Each settled burst of events
// triggers one organize run; run failures are logged and watching continues.
func (w *Watcher) Start(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsWatcher.Close()

	for _, source := range w.cfg.Paths.SourceDirs {
		if err := addRecursive(fsWatcher, source); err != nil {
			return err
		}
	}
	w.logger.Info("watching source directories",
		logging.Int("sources", len(w.cfg.Paths.SourceDirs)),
		logging.Duration("settle", w.settle),
	)

	var settle *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if settle != nil {
				settle.Stop()
			}
			return ctx.Err()

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addRecursive(fsWatcher, event.Name); err != nil {
						w.logger.Warn("watch new directory failed",
							logging.String("path", event.Name),
							logging.Error(err),
						)
					}
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if settle == nil {
				settle = time.NewTimer(w.settle)
			} else {
				if !settle.Stop() {
					select {
					case <-settle.C:
					default:
					}
				}
				settle.Reset(w.settle)
			}
			fire = settle.C

		case <-fire:
			fire = nil
			summary, err := w.runner.Run(ctx, organize.Options{})
			if err != nil {
				w.logger.Error("triggered run failed", logging.Error(err))
				continue
			}
			w.logger.Info("triggered run finished",
				logging.Int("moved", summary.Moved),
				logging.Int("skipped", summary.Skipped),
				logging.Int("failed", summary.Failed()),
			)

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", logging.Error(err))
		}
	}
}

func addRecursive(fsWatcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsWatcher.Add(path)
		}
		return nil
	})
}
