package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"

	lmerrors "github.com/YuminosukeSato/learningmachine/pkg/errors"
)

var (
	providerMu     sync.RWMutex
	globalProvider LoggerProvider = NewZerologProvider(os.Stderr, LevelWarn)
)

func init() {
	// 学習器が発生させる警告を構造化ログへ流す
	lmerrors.SetZerologWarnFunc(func(w error) {
		l := GetLoggerWithName("warnings")
		if obj, ok := w.(zerolog.LogObjectMarshaler); ok {
			if zl, ok := l.(*zerologLogger); ok {
				zl.zl.Warn().Object("warning", obj).Msg(w.Error())
				return
			}
		}
		l.Warn(w.Error())
	})
}

// SetProvider replaces the package-level provider. A nil provider is ignored.
func SetProvider(p LoggerProvider) {
	if p == nil {
		return
	}
	providerMu.Lock()
	defer providerMu.Unlock()
	globalProvider = p
}

// CurrentProvider returns the package-level provider.
func CurrentProvider() LoggerProvider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return globalProvider
}

// GetLogger returns the default logger of the current provider.
func GetLogger() Logger { return CurrentProvider().GetLogger() }

// GetLoggerWithName returns a logger tagged with ComponentKey=name.
func GetLoggerWithName(name string) Logger { return CurrentProvider().GetLoggerWithName(name) }

// ZerologProvider creates zerolog-backed loggers writing JSON lines to one writer.
type ZerologProvider struct {
	mu   sync.Mutex
	base zerolog.Logger
}

// NewZerologProvider returns a provider writing to w at the given minimum level.
func NewZerologProvider(w io.Writer, level Level) *ZerologProvider {
	return &ZerologProvider{
		base: zerolog.New(w).With().Timestamp().Logger().Level(toZerologLevel(level)),
	}
}

func (p *ZerologProvider) GetLogger() Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{zl: p.base}
}

func (p *ZerologProvider) GetLoggerWithName(name string) Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return &zerologLogger{zl: p.base.With().Str(ComponentKey, name).Logger()}
}

// SetLevel affects loggers created after the call.
func (p *ZerologProvider) SetLevel(level Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.base.Level(toZerologLevel(level))
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }

func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			fields = fields[1:]
		}
	}
	l.emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	return &zerologLogger{zl: l.zl.With().Fields(pairs(fields)).Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return l.zl.GetLevel() <= toZerologLevel(level)
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	ev.Fields(pairs(fields)).Msg(msg)
}

// pairs は key-value 列を zerolog の Fields 用に整形する。奇数個の末尾は捨てる
func pairs(fields []any) []any {
	if len(fields)%2 == 1 {
		fields = fields[:len(fields)-1]
	}
	out := make([]any, 0, len(fields))
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out = append(out, key, fields[i+1])
	}
	return out
}
