package organize

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sortd/internal/classify"
	"sortd/internal/config"
	"sortd/internal/faults"
)

// scanSources collects the regular files under every configured source
// directory, in a stable sorted order. The destination subtree is never
// scanned so a run can't pick up files it already placed, and hidden or
// temp files are skipped unless the config opts in. An unreadable directory
// is reported as a failure and skipped; the scan continues.
func scanSources(cfg *config.Config) ([]classify.Task, []Failure) {
	destination := filepath.Clean(cfg.Paths.DestinationDir)

	var tasks []classify.Task
	var failures []Failure
	for _, source := range cfg.Paths.SourceDirs {
		root := filepath.Clean(source)
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				if path == root && os.IsNotExist(walkErr) {
					return filepath.SkipAll
				}
				failures = append(failures, Failure{
					SourcePath: path,
					Err:        faults.Wrap(faults.ErrFilesystem, "organize", "scan", "read directory", walkErr),
				})
				if path == root {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && (underDir(path, destination) || isHidden(d.Name(), cfg)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if underDir(path, destination) || isHidden(d.Name(), cfg) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				failures = append(failures, Failure{
					SourcePath: path,
					Err:        faults.Wrap(faults.ErrFilesystem, "organize", "scan", "stat file", err),
				})
				return nil
			}
			tasks = append(tasks, classify.NewTask(path, info.ModTime()))
			return nil
		})
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].SourcePath < tasks[j].SourcePath })
	return tasks, failures
}

func isHidden(name string, cfg *config.Config) bool {
	if cfg.Organize.IncludeHidden {
		return false
	}
	// "~" prefixes cover Office lock files like ~$report.docx; the suffix
	// form covers editor backups.
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~")
}

func underDir(path, dir string) bool {
	if dir == "" {
		return false
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
