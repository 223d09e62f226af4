package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// SchemaVersion はペイロード先頭に書くフォーマットバージョン
const SchemaVersion = 1

// Resizer は次元の変更を受け取る型。
// FixedSize を埋め込んだ型が次元変更時に内部を再確保したい場合は、自身の
// SetDomainSize/SetCodomainSize を実装して ConfigureDims と DecodeDims に渡す
type Resizer interface {
	SetDomainSize(n int) error
	SetCodomainSize(n int) error
}

// FixedSize は入出力の次元が固定された学習器・変換器の基底
type FixedSize struct {
	Base
	domain   int
	codomain int
}

// NewFixedSize は次元 dom, cod を持つ FixedSize を返す
func NewFixedSize(name string, dom, cod int) FixedSize {
	return FixedSize{Base: NewBase(name), domain: dom, codomain: cod}
}

// DomainSize は入力次元を返す
func (f *FixedSize) DomainSize() int { return f.domain }

// CodomainSize は出力次元を返す
func (f *FixedSize) CodomainSize() int { return f.codomain }

// SetDomainSize は入力次元を設定する。1 未満は ValidationError
func (f *FixedSize) SetDomainSize(n int) error {
	if n < 1 {
		return errors.NewValidationError("dom", "must be at least 1", n)
	}
	f.domain = n
	return nil
}

// SetCodomainSize は出力次元を設定する。1 未満は ValidationError
func (f *FixedSize) SetCodomainSize(n int) error {
	if n < 1 {
		return errors.NewValidationError("cod", "must be at least 1", n)
	}
	f.codomain = n
	return nil
}

// CheckDomain は入力ベクトルの長さを検証する
func (f *FixedSize) CheckDomain(op string, input mat.Vector) error {
	if n := vecLen(input); n != f.domain {
		return errors.NewDimensionError(op, f.domain, n, 0)
	}
	return nil
}

// CheckCodomain は出力ベクトルの長さを検証する
func (f *FixedSize) CheckCodomain(op string, output mat.Vector) error {
	if n := vecLen(output); n != f.codomain {
		return errors.NewDimensionError(op, f.codomain, n, 1)
	}
	return nil
}

// CheckSample は Feed の前に入出力の両方を検証する
func (f *FixedSize) CheckSample(op string, input, output mat.Vector) error {
	if err := f.CheckDomain(op, input); err != nil {
		return err
	}
	return f.CheckCodomain(op, output)
}

func vecLen(v mat.Vector) int {
	if IsNilVector(v) {
		return 0
	}
	return v.Len()
}

// ConfigureDims は dom と cod を解釈し、r の setter で適用する
func (f *FixedSize) ConfigureDims(opts *config.Options, r Resizer) (bool, error) {
	if r == nil {
		r = f
	}
	applied := false
	if v, ok := opts.Find("dom"); ok {
		n, ok := v.AsInt()
		if !ok {
			return false, errors.NewValidationError("dom", "must be an integer", v.String())
		}
		if err := r.SetDomainSize(n); err != nil {
			return false, err
		}
		applied = true
	}
	if v, ok := opts.Find("cod"); ok {
		n, ok := v.AsInt()
		if !ok {
			return applied, errors.NewValidationError("cod", "must be an integer", v.String())
		}
		if err := r.SetCodomainSize(n); err != nil {
			return applied, err
		}
		applied = true
	}
	return applied, nil
}

// EncodeDims はスキーマバージョンと次元を書く。派生型のフィールドより前に呼ぶ
func (f *FixedSize) EncodeDims(enc *wire.Encoder) {
	enc.Int(SchemaVersion)
	enc.Int(f.domain)
	enc.Int(f.codomain)
}

// DecodeDims は EncodeDims が書いた内容を読み、r の setter で適用する
func (f *FixedSize) DecodeDims(dec *wire.Decoder, r Resizer) error {
	if r == nil {
		r = f
	}
	version := dec.Int()
	dom := dec.Int()
	cod := dec.Int()
	if err := dec.Err(); err != nil {
		return err
	}
	if version != SchemaVersion {
		return errors.Mark(errors.Newf("payload schema version %d, want %d", version, SchemaVersion), errors.ErrVersionMismatch)
	}
	if err := r.SetDomainSize(dom); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	if err := r.SetCodomainSize(cod); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	return nil
}

// Dims は YAML ダンプ用の次元情報
type Dims struct {
	Domain   int `yaml:"domain"`
	Codomain int `yaml:"codomain"`
}

// Dims は現在の次元を返す
func (f *FixedSize) Dims() Dims { return Dims{Domain: f.domain, Codomain: f.codomain} }

// ApplyDims は YAML から読んだ次元を r の setter で適用する
func (f *FixedSize) ApplyDims(d Dims, r Resizer) error {
	if r == nil {
		r = f
	}
	if err := r.SetDomainSize(d.Domain); err != nil {
		return err
	}
	return r.SetCodomainSize(d.Codomain)
}

// DimsInfo は Info 用の次元の説明を返す
func (f *FixedSize) DimsInfo() string {
	return fmt.Sprintf("Domain size: %d\nCodomain size: %d\n", f.domain, f.codomain)
}

// DimsHelp は ConfigHelp 用の dom/cod の説明を返す
func (f *FixedSize) DimsHelp() string {
	return "  dom size              Domain size\n" +
		"  cod size              Codomain size\n"
}
