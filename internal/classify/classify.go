// Package classify derives the destination directory for a file from the rule
// catalog. Classification is a pure function of the task and the catalog; the
// filesystem is never consulted.
package classify

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"sortd/internal/rules"
)

// Task carries the per-file inputs classification needs.
type Task struct {
	SourcePath string
	Extension  string
	ModTime    time.Time
}

// NewTask builds a Task from a source path and its modification time. The
// extension is derived lower-cased, dot included.
func NewTask(path string, modTime time.Time) Task {
	return Task{
		SourcePath: path,
		Extension:  strings.ToLower(filepath.Ext(path)),
		ModTime:    modTime,
	}
}

// Placement is the resolved location of a task below the destination root.
type Placement struct {
	Category  string
	SubBucket string
	// RelDir is category / [date segments] / [sub-bucket].
	RelDir string
}

// Place resolves a task against the catalog. Unmatched extensions land in the
// fallback category rather than failing.
func Place(task Task, catalog *rules.Catalog) Placement {
	match, ok := catalog.Lookup(task.Extension)
	if !ok {
		return Placement{Category: rules.FallbackCategory, RelDir: rules.FallbackCategory}
	}

	segments := []string{match.Category}
	if match.Rule != nil && match.Rule.SubfolderByDate {
		dated := strftime.Format(match.Rule.DateFormat, task.ModTime)
		for _, segment := range strings.Split(dated, "/") {
			if segment = strings.TrimSpace(segment); segment != "" {
				segments = append(segments, segment)
			}
		}
	}
	if match.SubBucket != "" {
		segments = append(segments, match.SubBucket)
	}

	return Placement{
		Category:  match.Category,
		SubBucket: match.SubBucket,
		RelDir:    filepath.Join(segments...),
	}
}

// Destination returns the full desired path for a task: the placement
// directory under root plus the original filename.
func Destination(root string, task Task, catalog *rules.Catalog) (string, Placement) {
	placement := Place(task, catalog)
	return filepath.Join(root, placement.RelDir, filepath.Base(task.SourcePath)), placement
}
