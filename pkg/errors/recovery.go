package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// PanicError は数値計算層で recover した panic を表すエラーです。
// gonum は形状の不一致などで panic するため、学習器の境界でこれに変換します。
type PanicError struct {
	PanicValue interface{} // panic() に渡された値
	StackTrace string      // recover した時点のスタックトレース
	Operation  string      // recover した操作名（例: "LSSVM.Train"）
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// String はスタックトレースを含めた詳細を返します。
func (e *PanicError) String() string {
	return fmt.Sprintf("%s\nStack trace:\n%s", e.Error(), e.StackTrace)
}

// Unwrap は panic の値が error の場合にそれを返します。
func (e *PanicError) Unwrap() error {
	if err, ok := e.PanicValue.(error); ok {
		return err
	}
	return nil
}

// MarshalZerologObject は zerolog のイベントに panic の情報を追加します。
func (e *PanicError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Operation).
		Interface("panic_value", e.PanicValue).
		Str("type", "PanicError")
}

// NewPanicError は呼び出し時点のスタックトレースを持つ PanicError を作成します。
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover は名前付きの error 戻り値へのポインタとともに defer します。
//
//	func (l *LSSVM) Train() (err error) {
//	    defer errors.Recover(&err, "LSSVM.Train")
//	    ...
//	}
//
// panic は *PanicError になります。既にエラーがある場合はそれを残し、panic の値を付け加えます。
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	if *err != nil {
		*err = errors.Wrapf(*err, "panic in %s: %v", operation, r)
		return
	}
	*err = NewPanicError(operation, r)
}

// SafeExecute は fn を実行し、panic をエラーに変換します。
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}
