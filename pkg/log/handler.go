package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	lmerrors "github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// ErrFmtHandler は ErrAttr で渡されたエラーのスタックトレースを
// StacktraceAttrKey 属性として別に出力する slog.Handler です。
type ErrFmtHandler struct {
	next slog.Handler
}

// WrapByErrFmtHandler は handler を ErrFmtHandler で包みます。
func WrapByErrFmtHandler(handler slog.Handler) slog.Handler {
	return &ErrFmtHandler{next: handler}
}

func (h *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			trace = stacktraceOf(err)
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithGroup(g)}
}

// stacktraceOf は recover した panic ならその時点のスタックを、
// それ以外は cockroachdb/errors が記録した最初のスタックを返す
func stacktraceOf(err error) string {
	var panicErr *lmerrors.PanicError
	if errors.As(err, &panicErr) {
		return panicErr.StackTrace
	}
	if details := errors.GetSafeDetails(err).SafeDetails; len(details) > 0 {
		return details[0]
	}
	return ""
}
