// Package logger defines the logging interface used across the planning
// pipeline. Core packages depend on this interface only; the zerolog
// adapter lives in infra/logger.
package logger

// Logger exposes leveled logging. Debugw carries structured fields for
// per-stage pipeline traces.
type Logger interface {
	Debugf(format string, args ...any)
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
