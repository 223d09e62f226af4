// Package errors はプロジェクト全体のエラーハンドリングと警告システムを提供します。
// レジストリ、ワイヤーフォーマット、学習器の各層で共通のエラー型を使い、構造化されたエラー情報を提供します。
package errors

import (
	"fmt"
	"log"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// ===========================================================================
//
//	グローバル警告ハンドリング
//
// ===========================================================================
var (
	warningMutex   sync.Mutex
	warningHandler = func(w error) {
		// デフォルトのハンドラは標準エラー出力にログを出す
		log.Printf("learningmachine-Warning: %v\n", w)
	}
	// zerologロガー（循環importを避けるため遅延初期化）
	zerologWarnFunc func(warning error)
)

// SetWarningHandler はライブラリ全体の警告ハンドラを設定します。
//
// 例:
//
//	errors.SetWarningHandler(func(w error) {
//	    // 警告を無視する
//	})
func SetWarningHandler(handler func(w error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	warningHandler = handler
}

// SetZerologWarnFunc はzerolog警告関数を設定します（循環importを避けるため）。
func SetZerologWarnFunc(warnFunc func(warning error)) {
	warningMutex.Lock()
	defer warningMutex.Unlock()
	zerologWarnFunc = warnFunc
}

// Warn は警告を発生させます。
// zerologが設定されている場合は構造化ログとして出力し、そうでなければ従来のハンドラを使用します。
func Warn(w error) {
	warningMutex.Lock()
	defer warningMutex.Unlock()

	if zerologWarnFunc != nil {
		zerologWarnFunc(w)
		return
	}

	if warningHandler != nil {
		warningHandler(w)
	}
}

// ===========================================================================
//
//	警告型
//
// ===========================================================================

// StaleModelWarning は最後の学習以降にサンプルが追加された状態で予測した場合の警告です。
// 予測は最後に学習したサンプル集合に基づいて行われます。
type StaleModelWarning struct {
	Model     string
	Trained   int
	Collected int
}

func (w *StaleModelWarning) Error() string {
	return fmt.Sprintf("%s: predicting with a model trained on %d of %d collected samples. Call Train() to refresh.",
		w.Model, w.Trained, w.Collected)
}

// MarshalZerologObject はzerologのイベントに構造化された警告情報を追加します。
func (w *StaleModelWarning) MarshalZerologObject(e *zerolog.Event) {
	e.Str("model_name", w.Model).
		Int("trained", w.Trained).
		Int("collected", w.Collected).
		Str("type", "StaleModelWarning")
}

// NewStaleModelWarning は新しいStaleModelWarningを作成します。
func NewStaleModelWarning(model string, trained, collected int) *StaleModelWarning {
	return &StaleModelWarning{Model: model, Trained: trained, Collected: collected}
}

// ===========================================================================
//
//	構造化されたエラー型
//
// ===========================================================================

// DimensionError は入力ベクトルの次元が期待値と異なる場合のエラーです。
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0: 入力（domain）, 1: 出力（codomain）
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("learningmachine: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, axisName(e.Axis), e.Expected, e.Got)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("axis_name", axisName(e.Axis)).
		Str("type", "DimensionError")
}

func axisName(axis int) string {
	if axis == 1 {
		return "codomain"
	}
	return "domain"
}

// NewDimensionError は新しいDimensionErrorを作成し、スタックトレースを付与します。
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError は設定パラメータの検証に失敗した場合のエラーです。
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("learningmachine: validation failed for parameter '%s': %s (got: %v)", e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError は新しいValidationErrorを作成し、スタックトレースを付与します。
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ValueError は引数の値が不適切または不正な場合に発生するエラーです。
type ValueError struct {
	Op      string
	Message string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("learningmachine: %s: %s", e.Op, e.Message)
}

// NewValueError は新しいValueErrorを作成し、スタックトレースを付与します。
func NewValueError(op, message string) error {
	err := &ValueError{Op: op, Message: message}
	return errors.WithStack(err)
}

// ModelError は学習器に関する一般的なエラーです。
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("learningmachine: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("learningmachine: %s: %s", e.Op, e.Kind)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// NewModelError は新しいModelErrorを作成し、スタックトレースを付与します。
func NewModelError(op, kind string, err error) error {
	modelErr := &ModelError{Op: op, Kind: kind, Err: err}
	return errors.WithStack(modelErr)
}

// RegistryError はレジストリ操作（登録・生成）に失敗した場合のエラーです。
// Err には ErrDuplicateKey, ErrEmptyKey, ErrUnknownKey のいずれかが入ります。
type RegistryError struct {
	Op  string
	Key string
	Err error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("learningmachine: registry %s '%s': %v", e.Op, e.Key, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *RegistryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("key", e.Key).
		AnErr("cause", e.Err).
		Str("type", "RegistryError")
}

// NewRegistryError は新しいRegistryErrorを作成し、スタックトレースを付与します。
func NewRegistryError(op, key string, err error) error {
	return errors.WithStack(&RegistryError{Op: op, Key: key, Err: err})
}

// IndexError はスロット番号が範囲外の場合のエラーです。
type IndexError struct {
	Op    string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("learningmachine: %s: index %d out of bounds [0, %d)", e.Op, e.Index, e.Len)
}

// MarshalZerologObject はzerologのイベントに構造化されたエラー情報を追加します。
func (e *IndexError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("index", e.Index).
		Int("len", e.Len).
		Str("type", "IndexError")
}

// NewIndexError は新しいIndexErrorを作成し、スタックトレースを付与します。
func NewIndexError(op string, index, length int) error {
	return errors.WithStack(&IndexError{Op: op, Index: index, Len: length})
}

// IOError はファイルを開けなかった場合などの入出力エラーです。
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("learningmachine: %s: could not open file '%s': %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError は新しいIOErrorを作成し、スタックトレースを付与します。
func NewIOError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// ===========================================================================
//
//	cockroachdb/errors ラッパー関数
//
// ===========================================================================

// Is はエラーが特定のターゲットエラーかどうかを判定します。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As はエラーが特定の型にキャスト可能かどうかを判定します。
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap は既存のエラーをメッセージ付きでラップします。
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf は既存のエラーをフォーマット文字列でラップします。
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New は新しいエラーを作成します。
func New(message string) error {
	return errors.New(message)
}

// Newf は新しいフォーマット済みエラーを作成します。
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack はエラーにスタックトレースを付与します。
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Mark はエラーに参照エラーの印を付け、Is で判定できるようにします。
func Mark(err, reference error) error {
	return errors.Mark(err, reference)
}

// ===========================================================================
//
//	数値計算のエラー型
//
// ===========================================================================

// NumericalInstabilityError は数値計算が不安定になった場合のエラーです。
// NaN、Inf などを検出します。
type NumericalInstabilityError struct {
	Operation string                 // 発生した操作（例: "lssvm_solve"）
	Values    []float64              // 問題のある値
	Context   map[string]interface{} // デバッグ用の追加コンテキスト情報
	Iteration int                    // 発生したイテレーション番号
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("learningmachine: numerical instability detected in %s at iteration %d. Values: [%s]",
		e.Operation, e.Iteration, valStr)
}

// NewNumericalInstabilityError は新しいNumericalInstabilityErrorを作成します。
func NewNumericalInstabilityError(operation string, values []float64, iteration int) error {
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Iteration: iteration,
		Context:   make(map[string]interface{}),
	}
	return errors.WithStack(err)
}

// ===========================================================================
//
//	共通エラー変数
//
// ===========================================================================

var (
	// ErrEmptyData は空のデータが渡された場合のエラーです。
	ErrEmptyData = New("empty data")

	// ErrSingularMatrix は特異行列の場合のエラーです。
	ErrSingularMatrix = New("singular matrix")

	// ErrDuplicateKey は同じ名前のプロトタイプが既に登録されている場合のエラーです。
	ErrDuplicateKey = New("duplicate key")

	// ErrEmptyKey はプロトタイプの名前が空の場合のエラーです。
	ErrEmptyKey = New("empty key")

	// ErrUnknownKey は指定した名前のプロトタイプが登録されていない場合のエラーです。
	ErrUnknownKey = New("unknown key")

	// ErrNoWrapped はラッパーがインスタンスを保持していない場合のエラーです。
	ErrNoWrapped = New("no wrapped instance")

	// ErrMalformedFrame はワイヤーフレームが壊れている場合のエラーです。
	ErrMalformedFrame = New("malformed frame")

	// ErrVersionMismatch はペイロードのスキーマバージョンが一致しない場合のエラーです。
	ErrVersionMismatch = New("schema version mismatch")
)
