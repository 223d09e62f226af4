// Package model は学習器・変換器・スケーラが満たす能力インターフェースと、
// 固定次元の学習器に共通する基底を提供します。
package model

import (
	"encoding"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// Named は登録名を持つ型のインターフェース
type Named interface {
	Name() string
	SetName(name string)
}

// Configurable は Options による設定を受け付ける型のインターフェース
type Configurable interface {
	// Configure は認識したオプションを適用し、一つでも適用したら true を返す。
	// 認識しないキーは無視する
	Configure(opts *config.Options) (bool, error)

	// Info は現在の設定と状態の説明を返す
	Info() string

	// ConfigHelp は受け付けるオプションの説明を返す
	ConfigHelp() string
}

// Codec はバイナリとテキストの両方の直列化を提供する
type Codec interface {
	// EncodeWire はペイロードを書く。フレームヘッダと名前は Portable が書く
	EncodeWire(enc *wire.Encoder) error

	// DecodeWire は EncodeWire が書いたペイロードを読む
	DecodeWire(dec *wire.Decoder) error

	encoding.TextMarshaler
	encoding.TextUnmarshaler
}

// Learner は学習器のインターフェース
type Learner interface {
	Named
	Configurable
	Codec

	// Feed はサンプルを一つ追加する。次元が合わなければ DimensionError
	Feed(input, output mat.Vector) error

	// Train は追加済みのサンプルでモデルを学習する
	Train() error

	// Predict は入力に対する予測を返す
	Predict(input mat.Vector) (Prediction, error)

	// Reset は学習状態を初期化する。設定は保持する
	Reset()

	// Clone は設定とモデル状態を含む独立したコピーを返す
	Clone() Learner

	DomainSize() int
	CodomainSize() int
}

// Transformer はベクトル変換器のインターフェース
type Transformer interface {
	Named
	Configurable
	Codec

	// Transform は入力を変換した新しいベクトルを返す
	Transform(input mat.Vector) (*mat.VecDense, error)

	Reset()
	Clone() Transformer

	DomainSize() int
	CodomainSize() int
}

// Scaler はスカラー値の変換器のインターフェース
type Scaler interface {
	Named
	Configurable
	Codec

	// Transform は x を変換する。統計の更新が有効なら先に Update する
	Transform(x float64) float64

	// Update は x で内部統計を更新する
	Update(x float64)

	Reset()
	Clone() Scaler
}
