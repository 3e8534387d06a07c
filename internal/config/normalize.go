package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeOrganize()
	c.normalizeWatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error

	sources := make([]string, 0, len(c.Paths.SourceDirs))
	seen := make(map[string]struct{}, len(c.Paths.SourceDirs))
	for _, dir := range c.Paths.SourceDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, expandErr := expandPath(trimmed)
		if expandErr != nil {
			return fmt.Errorf("paths.source_dirs: %w", expandErr)
		}
		if _, dup := seen[expanded]; dup {
			continue
		}
		seen[expanded] = struct{}{}
		sources = append(sources, expanded)
	}
	c.Paths.SourceDirs = sources

	if c.Paths.DestinationDir, err = expandPath(c.Paths.DestinationDir); err != nil {
		return fmt.Errorf("paths.destination_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UndoDir) == "" {
		c.Paths.UndoDir = defaultUndoDir
	}
	if c.Paths.UndoDir, err = expandPath(c.Paths.UndoDir); err != nil {
		return fmt.Errorf("paths.undo_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOrganize() {
	c.Organize.CollisionPolicy = strings.ToLower(strings.TrimSpace(c.Organize.CollisionPolicy))
	if c.Organize.CollisionPolicy == "" {
		c.Organize.CollisionPolicy = defaultCollisionPolicy
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.SettleSeconds <= 0 {
		c.Watch.SettleSeconds = defaultSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
