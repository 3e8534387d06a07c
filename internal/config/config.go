package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout sortd operates on.
type Paths struct {
	SourceDirs     []string `toml:"source_dirs"`
	DestinationDir string   `toml:"destination_dir"`
	LogDir         string   `toml:"log_dir"`
	UndoDir        string   `toml:"undo_dir"`
}

// Organize contains settings for organize runs.
type Organize struct {
	CollisionPolicy string `toml:"collision_policy"`
	IncludeHidden   bool   `toml:"include_hidden"`
	WriteUndoLog    bool   `toml:"write_undo_log"`
}

// Undo contains settings for undo runs.
type Undo struct {
	// RemoveLogAfter deletes a consumed undo log once replay finishes.
	RemoveLogAfter bool `toml:"remove_log_after"`
}

// Watch contains settings for the source-folder watcher.
type Watch struct {
	Enabled       bool `toml:"enabled"`
	SettleSeconds int  `toml:"settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// RuleConfig is the raw shape of one category rule as written in the config
// file. It is validated and compiled into a rules.Catalog at load time.
type RuleConfig struct {
	Extensions      []string            `toml:"extensions"`
	SubfolderByDate bool                `toml:"subfolder_by_date"`
	DateFormat      string              `toml:"date_format"`
	Subfolders      map[string][]string `toml:"subfolders"`
}

// Config encapsulates all configuration values for sortd.
//
// Sections by subsystem:
//   - Paths: source folders, destination tree, log and undo-log directories
//   - Organize: collision policy and run behavior
//   - Undo: undo-log consumption policy
//   - Watch: watcher debounce settings
//   - Logging: log format and level
//   - Rules: category rules; empty means the built-in rule set is used
type Config struct {
	Paths    Paths                 `toml:"paths"`
	Organize Organize              `toml:"organize"`
	Undo     Undo                  `toml:"undo"`
	Watch    Watch                 `toml:"watch"`
	Logging  Logging               `toml:"logging"`
	Rules    map[string]RuleConfig `toml:"rules"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/sortd/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("sortd.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories sortd writes to. Source folders
// are not created; a missing source is reported at run time instead.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DestinationDir, c.Paths.LogDir, c.Paths.UndoDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
