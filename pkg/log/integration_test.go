package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	lmerrors "github.com/YuminosukeSato/learningmachine/pkg/errors"
)

func TestLoggerInterface(t *testing.T) {
	testLogger, buffer := NewTestLogger(LevelDebug)

	testLogger.Debug("debug message", "key1", "value1", "number", 42)
	testLogger.Info("info message", OperationKey, OperationTrain)
	testLogger.Warn("warning message", ReasonKey, "bad_tag")
	testLogger.Error("error message", fmt.Errorf("singular"), ErrorCodeKey, ErrorSingularMatrix)

	if buffer.Len() == 0 {
		t.Fatal("Expected log output, got empty buffer")
	}
	for _, msg := range []string{"debug message", "info message", "warning message", "error message"} {
		if !testLogger.ContainsMessage(msg) {
			t.Errorf("message %q not found in output", msg)
		}
	}
	if !testLogger.ContainsField("key1", "value1") {
		t.Error("Expected field key1=value1 not found")
	}
	if !testLogger.ContainsField("number", 42.0) {
		t.Error("Expected field number=42 not found")
	}
	if !testLogger.ContainsField(ErrAttrKey, "singular") {
		t.Error("Expected error attribute from leading error argument")
	}
}

func TestLoggerWith(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelDebug)

	child := testLogger.With(ModelNameKey, "LSSVM", ComponentKey, "learner.lssvm")
	child.Info("trained", SamplesKey, 20)

	if !testLogger.ContainsField(ModelNameKey, "LSSVM") {
		t.Error("model name not carried by child logger")
	}
	if !testLogger.ContainsField(ComponentKey, "learner.lssvm") {
		t.Error("component not carried by child logger")
	}
	if !testLogger.ContainsField(SamplesKey, 20.0) {
		t.Error("record field missing")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		name     string
		level    Level
		expected []string
	}{
		{"debug", LevelDebug, []string{"d", "i", "w", "e"}},
		{"info", LevelInfo, []string{"i", "w", "e"}},
		{"warn", LevelWarn, []string{"w", "e"}},
		{"error", LevelError, []string{"e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := NewTestLogger(tt.level)
			logger.Debug("msg-d")
			logger.Info("msg-i")
			logger.Warn("msg-w")
			logger.Error("msg-e")

			entries, err := logger.GetLogEntries()
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != len(tt.expected) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tt.expected))
			}
			for i, suffix := range tt.expected {
				if entries[i]["message"] != "msg-"+suffix {
					t.Errorf("entry %d = %v, want msg-%s", i, entries[i]["message"], suffix)
				}
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	logger, _ := NewTestLogger(LevelWarn)
	ctx := context.Background()
	if logger.Enabled(ctx, LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(ctx, LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"info", LevelInfo, true},
		{"warning", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestProviderSwap(t *testing.T) {
	prev := CurrentProvider()
	defer SetProvider(prev)

	provider, _ := NewTestLoggerProvider(LevelDebug)
	SetProvider(provider)
	GetLoggerWithName("core.portable").Debug("frame rejected", ReasonKey, "bad_count")

	if !provider.Logger().ContainsField(ComponentKey, "core.portable") {
		t.Error("named logger should carry component")
	}
	if !provider.Logger().ContainsField(ReasonKey, "bad_count") {
		t.Error("reason field missing")
	}

	SetProvider(nil)
	if CurrentProvider() != LoggerProvider(provider) {
		t.Error("nil provider must be ignored")
	}
}

func TestZerologProvider(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProvider(&buf, LevelInfo)
	logger := p.GetLoggerWithName("learner.rls").With(ModelNameKey, "RLS")

	logger.Debug("hidden")
	logger.Info("fed", SamplesKey, 3)
	logger.Error("train failed", fmt.Errorf("boom"), OperationKey, OperationTrain)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first[ComponentKey] != "learner.rls" || first[ModelNameKey] != "RLS" {
		t.Errorf("context fields missing: %v", first)
	}
	if first[SamplesKey] != 3.0 {
		t.Errorf("samples = %v, want 3", first[SamplesKey])
	}
	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatal(err)
	}
	if second["error"] != "boom" {
		t.Errorf("error field = %v, want boom", second["error"])
	}

	p.SetLevel(LevelDebug)
	if !p.GetLogger().Enabled(context.Background(), LevelDebug) {
		t.Error("SetLevel should affect new loggers")
	}
}

func TestWarningsAreLogged(t *testing.T) {
	prev := CurrentProvider()
	defer SetProvider(prev)

	var buf bytes.Buffer
	SetProvider(NewZerologProvider(&buf, LevelWarn))
	lmerrors.Warn(lmerrors.NewStaleModelWarning("LSSVM", 10, 12))

	out := buf.String()
	if !strings.Contains(out, "LSSVM") || !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("stale model warning not logged: %s", out)
	}
}

func TestSetupLogger(t *testing.T) {
	prev := CurrentProvider()
	defer SetProvider(prev)

	var buf bytes.Buffer
	if err := SetupLogger(&buf, "info"); err != nil {
		t.Fatal(err)
	}
	GetLogger().Info("hello", ModelNameKey, "Dummy")
	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("slog output missing message: %s", buf.String())
	}
	if err := SetupLogger(&buf, "loud"); err == nil {
		t.Error("invalid level should be rejected")
	}
}

func TestErrFmtHandlerStacktrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil)))

	err := lmerrors.SafeExecute("LSSVM.Train", func() error { panic("index out of range") })
	logger.Error("train failed", ErrAttr(err))

	var entry map[string]any
	if jerr := json.Unmarshal(buf.Bytes(), &entry); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	trace, _ := entry[StacktraceAttrKey].(string)
	if !strings.Contains(trace, "goroutine") {
		t.Errorf("stacktrace = %q, want recovered panic stack", trace)
	}

	buf.Reset()
	logger.Info("no error here")
	if strings.Contains(buf.String(), StacktraceAttrKey) {
		t.Error("records without an error should not carry a stacktrace")
	}
}
