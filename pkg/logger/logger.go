package logger

import (
	"log/slog"
)

// Logger is the minimal logging surface the SDK depends on.
// Implementations must be safe for concurrent use.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// SlogAdapter adapts a log/slog handler to the Logger interface.
type SlogAdapter struct {
	logger *slog.Logger
}

func New(h slog.Handler) *SlogAdapter {
	return &SlogAdapter{logger: slog.New(h)}
}

func (a *SlogAdapter) Error(msg string, args ...any) {
	a.logger.Error(msg, args...)
}

func (a *SlogAdapter) Warn(msg string, args ...any) {
	a.logger.Warn(msg, args...)
}

func (a *SlogAdapter) Info(msg string, args ...any) {
	a.logger.Info(msg, args...)
}

func (a *SlogAdapter) Debug(msg string, args ...any) {
	a.logger.Debug(msg, args...)
}
