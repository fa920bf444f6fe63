package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ZerologLogger implements Logger using rs/zerolog.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger creates a ZerologLogger for the given component. APP_ENV
// selects the output format (console in dev, JSON otherwise) and
// EVACD_LOG_LEVEL the minimum level. Dev runs default to debug so planning
// traces show up without extra flags; everything else defaults to info.
func NewZerologLogger(component string) Logger {
	dev := strings.ToLower(os.Getenv("APP_ENV")) == "dev"

	var out io.Writer = os.Stdout
	if dev {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	z := zerolog.New(out).
		Level(minLevel(dev)).
		With().
		Timestamp().
		Str("service", "evacd").
		Str("component", component).
		Logger()
	return &ZerologLogger{log: z}
}

func minLevel(dev bool) zerolog.Level {
	switch strings.ToLower(os.Getenv("EVACD_LOG_LEVEL")) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "info":
		return zerolog.InfoLevel
	}
	if dev {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}

func (l *ZerologLogger) Debugf(format string, args ...any) {
	l.log.Debug().Msgf(format, args...)
}

func (l *ZerologLogger) Debugw(msg string, fields map[string]any) {
	ev := l.log.Debug()
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *ZerologLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

func (l *ZerologLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

func (l *ZerologLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
