package logging

import (
	"log/slog"
	"path/filepath"
	"strings"

	"sortd/internal/config"
)

// NewFromConfig creates a logger using application config defaults. Records go
// to stdout and, when a log directory is configured, to sortd.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputs := []string{"stdout"}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		outputs = append(outputs, filepath.Join(cfg.Paths.LogDir, "sortd.log"))
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
}
