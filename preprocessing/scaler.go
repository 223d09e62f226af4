// Package preprocessing はスカラー値のスケーラを提供します。
//
// 各スケーラは model.Scaler を満たし、transform.ScaleTransformer の
// 次元ごとのスロットに置かれます。
package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// Fitter はまとまったデータから統計を初期化できるスケーラ
type Fitter interface {
	Fit(values []float64) error
}

var (
	_ model.Scaler = (*NullScaler)(nil)
	_ model.Scaler = (*LinearScaler)(nil)
	_ model.Scaler = (*Standardizer)(nil)
	_ model.Scaler = (*Normalizer)(nil)
	_ model.Scaler = (*FixedRangeScaler)(nil)
)

func encodeVersion(enc *wire.Encoder) {
	enc.Int(model.SchemaVersion)
}

func decodeVersion(dec *wire.Decoder) error {
	v := dec.Int()
	if err := dec.Err(); err != nil {
		return err
	}
	if v != model.SchemaVersion {
		return errors.Mark(errors.Newf("scaler schema version %d, want %d", v, model.SchemaVersion), errors.ErrVersionMismatch)
	}
	return nil
}

// floatOption は key が数値なら set を呼び、適用したかを返す
func floatOption(opts *config.Options, key string, set func(float64) bool) bool {
	v, ok := opts.Find(key)
	if !ok {
		return false
	}
	f, ok := v.AsFloat()
	if !ok {
		return false
	}
	return set(f)
}

// boolOption は key が真偽値なら dst に設定する
func boolOption(opts *config.Options, key string, dst *bool) bool {
	v, ok := opts.Find(key)
	if !ok {
		return false
	}
	b, ok := v.AsBool()
	if !ok {
		return false
	}
	*dst = b
	return true
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func helpHeader(name string) string {
	return fmt.Sprintf("Configuration options for %s:\n", name)
}

// NullScaler は値をそのまま返す
type NullScaler struct {
	model.Base
}

// NewNullScaler は恒等変換のスケーラを返す
func NewNullScaler() *NullScaler {
	return &NullScaler{Base: model.NewBase("null")}
}

func (s *NullScaler) Transform(x float64) float64 { return x }
func (s *NullScaler) Update(float64)              {}
func (s *NullScaler) Reset()                      {}

func (s *NullScaler) Clone() model.Scaler {
	cp := *s
	return &cp
}

func (s *NullScaler) Configure(*config.Options) (bool, error) { return false, nil }

func (s *NullScaler) Info() string       { return fmt.Sprintf("Type: %s\n", s.Name()) }
func (s *NullScaler) ConfigHelp() string { return helpHeader(s.Name()) }

func (s *NullScaler) EncodeWire(enc *wire.Encoder) error {
	encodeVersion(enc)
	return enc.Err()
}

func (s *NullScaler) DecodeWire(dec *wire.Decoder) error { return decodeVersion(dec) }

func (s *NullScaler) MarshalText() ([]byte, error) { return []byte("{}\n"), nil }
func (s *NullScaler) UnmarshalText([]byte) error   { return nil }
