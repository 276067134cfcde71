package logging

import (
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

type gocronLogger struct {
	logger zerolog.Logger
}

// NewGocronLogger adapts a zerolog logger to gocron's key/value Logger.
func NewGocronLogger(logger zerolog.Logger) gocron.Logger {
	return &gocronLogger{logger: logger}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.emit(l.logger.Debug(), msg, args) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.emit(l.logger.Info(), msg, args) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.emit(l.logger.Warn(), msg, args) }
func (l *gocronLogger) Error(msg string, args ...any) { l.emit(l.logger.Error(), msg, args) }

func (l *gocronLogger) emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ev = ev.Interface("extra", args[i])
			break
		}
		key := fmt.Sprint(args[i])
		if err, ok := args[i+1].(error); ok {
			ev = ev.AnErr(key, err)
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
