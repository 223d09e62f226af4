package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// SetupLogger installs a JSON slog handler on w as the process default and
// routes the package-level provider through it. Used by cmd/lmctl.
func SetupLogger(w io.Writer, loglevel string) error {
	level, ok := ParseLevel(loglevel)
	if !ok {
		return fmt.Errorf("invalid log level: %s", loglevel)
	}
	ops := slog.HandlerOptions{
		AddSource: level == LevelDebug,
		Level:     slog.Level(level),
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				attr.Key = "severity"
			case slog.MessageKey:
				attr.Key = "message"
			}
			return attr
		},
	}
	handler := slog.NewJSONHandler(w, &ops)
	logger := slog.New(WrapByErrFmtHandler(handler))
	slog.SetDefault(logger)
	SetProvider(&slogProvider{logger: logger, level: level})
	return nil
}

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

// slogProvider adapts a *slog.Logger to LoggerProvider.
type slogProvider struct {
	logger *slog.Logger
	level  Level
}

func (p *slogProvider) GetLogger() Logger { return &slogLogger{l: p.logger} }

func (p *slogProvider) GetLoggerWithName(name string) Logger {
	return &slogLogger{l: p.logger.With(ComponentKey, name)}
}

// SetLevel is a no-op; the slog handler level is fixed at setup time.
func (p *slogProvider) SetLevel(level Level) { p.level = level }

type slogLogger struct {
	l *slog.Logger
}

func (s *slogLogger) Debug(msg string, fields ...any) { s.l.Debug(msg, fields...) }
func (s *slogLogger) Info(msg string, fields ...any)  { s.l.Info(msg, fields...) }
func (s *slogLogger) Warn(msg string, fields ...any)  { s.l.Warn(msg, fields...) }

func (s *slogLogger) Error(msg string, fields ...any) {
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			fields = append([]any{ErrAttr(err)}, fields[1:]...)
		}
	}
	s.l.Error(msg, fields...)
}

func (s *slogLogger) With(fields ...any) Logger { return &slogLogger{l: s.l.With(fields...)} }

func (s *slogLogger) Enabled(ctx context.Context, level Level) bool {
	return s.l.Enabled(ctx, slog.Level(level))
}
