// Package logging constructs slog loggers with the console and JSON handlers
// used across sortd, plus typed attribute helpers shared by all components.
package logging
