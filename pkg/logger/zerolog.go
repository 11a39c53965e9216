package logger

import (
	"github.com/rs/zerolog"
)

// ZerologAdapter adapts a zerolog.Logger to the Logger interface.
// Key/value args are attached as stringly-typed fields.
type ZerologAdapter struct {
	logger zerolog.Logger
}

func NewZerolog(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

func (a *ZerologAdapter) Error(msg string, args ...any) {
	a.emit(a.logger.Error(), msg, args)
}

func (a *ZerologAdapter) Warn(msg string, args ...any) {
	a.emit(a.logger.Warn(), msg, args)
}

func (a *ZerologAdapter) Info(msg string, args ...any) {
	a.emit(a.logger.Info(), msg, args)
}

func (a *ZerologAdapter) Debug(msg string, args ...any) {
	a.emit(a.logger.Debug(), msg, args)
}

func (a *ZerologAdapter) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
