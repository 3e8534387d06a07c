package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"sortd/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDirs = []string{filepath.Join(base, "source")}
	cfg.Paths.DestinationDir = filepath.Join(base, "organized")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.UndoDir = filepath.Join(base, "undo")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	for _, src := range cfg.Paths.SourceDirs {
		if err := os.MkdirAll(src, 0o755); err != nil {
			t.Fatalf("mkdir source %s: %v", src, err)
		}
	}
	return &cfg
}

// WithCollisionPolicy overrides the collision policy on the test config.
func WithCollisionPolicy(policy string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Organize.CollisionPolicy = policy
	}
}

// WithSource appends an extra source directory to the test config.
func WithSource(dir string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.SourceDirs = append(cfg.Paths.SourceDirs, dir)
	}
}

// WithRules replaces the rule definitions on the test config.
func WithRules(rules map[string]config.RuleConfig) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rules = rules
	}
}
