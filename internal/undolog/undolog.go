// Package undolog persists per-run move records as line-delimited JSON so an
// interrupted run still leaves a replayable log of everything completed.
package undolog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sortd/internal/faults"
)

// Outcome values recorded for each planned file.
const (
	OutcomeMoved   = "moved"
	OutcomeSkipped = "skipped"
	OutcomeDryRun  = "dry_run"
)

const (
	filePrefix = "undo_log_"
	fileSuffix = ".jsonl"
	timeLayout = "20060102_150405"
)

// Record is one line of an undo log. Moved records carry both paths; skipped
// records carry the source and the destination that was declined.
type Record struct {
	SourcePath      string    `json:"source_path"`
	DestinationPath string    `json:"destination_path"`
	Timestamp       time.Time `json:"timestamp"`
	Category        string    `json:"category"`
	Outcome         string    `json:"outcome"`
}

// Info describes one log file on disk.
type Info struct {
	ID        string
	Path      string
	CreatedAt time.Time
	Records   int
	Size      int64
}

// Writer appends records to a single log file, syncing after every line so a
// crash mid-run loses at most the line being written.
type Writer struct {
	id      string
	path    string
	file    *os.File
	encoder *json.Encoder
	count   int
}

// NewWriter creates a fresh log file in dir named after now. When a file for
// that second already exists it bumps the timestamp forward until a free name
// is found.
func NewWriter(dir string, now time.Time) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "create", "create log directory", err)
	}

	stamp := now
	for attempt := 0; attempt < 60; attempt++ {
		id := filePrefix + stamp.Format(timeLayout)
		path := filepath.Join(dir, id+fileSuffix)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return &Writer{id: id, path: path, file: file, encoder: json.NewEncoder(file)}, nil
		}
		if !os.IsExist(err) {
			return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "create", "create log file", err)
		}
		stamp = stamp.Add(time.Second)
	}
	return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "create", "no free log file name", nil)
}

// ID returns the log identifier, the file name without its extension.
func (w *Writer) ID() string { return w.id }

// Path returns the log file path.
func (w *Writer) Path() string { return w.path }

// Count returns the number of records appended so far.
func (w *Writer) Count() int { return w.count }

// Append writes one record and syncs it to disk before returning. A record is
// only appended after the move it describes has completed.
func (w *Writer) Append(rec Record) error {
	if err := w.encoder.Encode(rec); err != nil {
		return faults.Wrap(faults.ErrFilesystem, "undolog", "append", "encode record", err)
	}
	if err := w.file.Sync(); err != nil {
		return faults.Wrap(faults.ErrFilesystem, "undolog", "append", "sync log file", err)
	}
	w.count++
	return nil
}

// Finalize closes the log. An empty log is removed and the empty ID is
// returned so callers do not advertise a log that cannot undo anything.
func (w *Writer) Finalize() (string, error) {
	if err := w.file.Close(); err != nil {
		return "", faults.Wrap(faults.ErrFilesystem, "undolog", "finalize", "close log file", err)
	}
	if w.count == 0 {
		if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
			return "", faults.Wrap(faults.ErrFilesystem, "undolog", "finalize", "remove empty log", err)
		}
		return "", nil
	}
	return w.id, nil
}

// Discard closes and removes the log regardless of contents. Used when a run
// turns out to be a dry run or fails before any record lands.
func (w *Writer) Discard() error {
	_ = w.file.Close()
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return faults.Wrap(faults.ErrFilesystem, "undolog", "discard", "remove log file", err)
	}
	return nil
}

// List returns the logs in dir, newest first. A missing directory yields an
// empty list.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "list", "read log directory", err)
	}

	var infos []Info
	for _, name := range logNames(entries) {
		info, err := describe(dir, name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID > infos[j].ID })
	return infos, nil
}

// MostRecent returns the newest log in dir, or an error when none exist. The
// file naming makes creation order lexicographic, so selection needs only the
// directory listing; a single log is then opened for its record count.
func MostRecent(dir string) (Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return Info{}, faults.Wrap(faults.ErrFilesystem, "undolog", "most recent", "read log directory", err)
	}

	newest := ""
	for _, name := range logNames(entries) {
		if name > newest {
			newest = name
		}
	}
	if newest == "" {
		return Info{}, faults.Wrap(faults.ErrValidation, "undolog", "most recent", "no undo logs found", nil)
	}
	return describe(dir, newest)
}

// logNames filters a directory listing down to well-formed log file names.
func logNames(entries []os.DirEntry) []string {
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		id := strings.TrimSuffix(name, fileSuffix)
		if _, err := time.ParseInLocation(timeLayout, strings.TrimPrefix(id, filePrefix), time.Local); err != nil {
			continue
		}
		names = append(names, name)
	}
	return names
}

func describe(dir, name string) (Info, error) {
	id := strings.TrimSuffix(name, fileSuffix)
	created, err := time.ParseInLocation(timeLayout, strings.TrimPrefix(id, filePrefix), time.Local)
	if err != nil {
		return Info{}, faults.Wrap(faults.ErrValidation, "undolog", "describe", "malformed log name "+name, err)
	}
	path := filepath.Join(dir, name)
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, faults.Wrap(faults.ErrFilesystem, "undolog", "describe", "stat log file", err)
	}
	records, err := countRecords(path)
	if err != nil {
		return Info{}, err
	}
	return Info{ID: id, Path: path, CreatedAt: created, Records: records, Size: fi.Size()}, nil
}

// Load reads the records of the log identified by id. A torn final line,
// left by a crash mid-append, is tolerated and skipped.
func Load(dir, id string) ([]Record, error) {
	path := filepath.Join(dir, id+fileSuffix)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, faults.Wrap(faults.ErrValidation, "undolog", "load", fmt.Sprintf("undo log %q not found", id), nil)
		}
		return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "load", "open log file", err)
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A malformed trailing line means the writer died mid-append;
			// everything before it is intact.
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, faults.Wrap(faults.ErrFilesystem, "undolog", "load", "scan log file", err)
	}
	return records, nil
}

// Remove deletes the log identified by id.
func Remove(dir, id string) error {
	path := filepath.Join(dir, id+fileSuffix)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return faults.Wrap(faults.ErrFilesystem, "undolog", "remove", "delete log file", err)
	}
	return nil
}

func countRecords(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, faults.Wrap(faults.ErrFilesystem, "undolog", "count records", "open log file", err)
	}
	defer file.Close()

	count := 0
	scanner := bufio.NewScanner(file)
	// Only non-empty lines are records; Load applies the same rule.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, faults.Wrap(faults.ErrFilesystem, "undolog", "count records", "scan log file", err)
	}
	return count, nil
}
