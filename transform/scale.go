// Package transform はベクトル変換器を提供します。
package transform

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/registry"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
	"github.com/YuminosukeSato/learningmachine/preprocessing"
)

var (
	_ model.Transformer = (*ScaleTransformer)(nil)
	_ model.Transformer = (*RandomFeature)(nil)
	_ model.Transformer = (*SparseSpectrumFeature)(nil)
)

// ScaleTransformer は入力の各次元に独立したスケーラを適用する。
// 入力次元と出力次元は常に等しく、スロット数は入力次元に一致する
type ScaleTransformer struct {
	model.FixedSize

	scalers *registry.Registry[model.Scaler]
	slots   []model.Scaler
}

// NewScaleTransformer は dom 個の null スケーラを持つ変換器を返す。
// スケーラは reg から生成される
func NewScaleTransformer(reg *registry.Registry[model.Scaler], dom int) *ScaleTransformer {
	t := &ScaleTransformer{
		FixedSize: model.NewFixedSize("Scaler", 1, 1),
		scalers:   reg,
	}
	if err := t.SetDomainSize(dom); err != nil {
		_ = t.SetDomainSize(1)
	}
	return t
}

// SetDomainSize は入出力次元を n にし、全スロットを null スケーラで作り直す
func (t *ScaleTransformer) SetDomainSize(n int) error {
	if err := t.FixedSize.SetDomainSize(n); err != nil {
		return err
	}
	if err := t.FixedSize.SetCodomainSize(n); err != nil {
		return err
	}
	t.Reset()
	return nil
}

// SetCodomainSize は SetDomainSize と同じ
func (t *ScaleTransformer) SetCodomainSize(n int) error { return t.SetDomainSize(n) }

// Reset は全スロットを null スケーラに戻す
func (t *ScaleTransformer) Reset() {
	t.slots = make([]model.Scaler, t.DomainSize())
	for i := range t.slots {
		t.slots[i] = preprocessing.NewNullScaler()
	}
}

// Len はスロット数を返す
func (t *ScaleTransformer) Len() int { return len(t.slots) }

// At は index 番目 (0 始まり) のスケーラを返す
func (t *ScaleTransformer) At(index int) (model.Scaler, error) {
	if index < 0 || index >= len(t.slots) {
		return nil, errors.NewIndexError("ScaleTransformer.At", index, len(t.slots))
	}
	return t.slots[index], nil
}

// SetAt は index 番目 (0 始まり) のスロットを name のスケーラで置き換える
func (t *ScaleTransformer) SetAt(index int, name string) error {
	if index < 0 || index >= len(t.slots) {
		return errors.NewIndexError("ScaleTransformer.SetAt", index, len(t.slots))
	}
	s, err := t.create(name)
	if err != nil {
		return err
	}
	t.slots[index] = s
	return nil
}

// SetAll は全スロットを name のスケーラで置き換える
func (t *ScaleTransformer) SetAll(name string) error {
	slots := make([]model.Scaler, len(t.slots))
	for i := range slots {
		s, err := t.create(name)
		if err != nil {
			return err
		}
		slots[i] = s
	}
	t.slots = slots
	return nil
}

func (t *ScaleTransformer) create(name string) (model.Scaler, error) {
	if t.scalers == nil {
		return nil, errors.NewRegistryError("create", name, errors.ErrUnknownKey)
	}
	return t.scalers.Create(name)
}

// Transform は各次元をそのスロットのスケーラで変換する
func (t *ScaleTransformer) Transform(input mat.Vector) (*mat.VecDense, error) {
	if err := t.CheckDomain("ScaleTransformer.Transform", input); err != nil {
		return nil, err
	}
	out := mat.NewVecDense(len(t.slots), nil)
	for i, s := range t.slots {
		out.SetVec(i, s.Transform(input.AtVec(i)))
	}
	return out, nil
}

// Fit は X の各列で Fitter を満たすスケーラの統計を初期化する
func (t *ScaleTransformer) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if cols != len(t.slots) {
		return errors.NewDimensionError("ScaleTransformer.Fit", len(t.slots), cols, 1)
	}
	if rows == 0 {
		return errors.NewModelError("ScaleTransformer.Fit", "empty data", errors.ErrEmptyData)
	}
	col := make([]float64, rows)
	for j, s := range t.slots {
		f, ok := s.(preprocessing.Fitter)
		if !ok {
			continue
		}
		for i := range col {
			col[i] = X.At(i, j)
		}
		if err := f.Fit(col); err != nil {
			return errors.Wrapf(err, "fit scaler %d", j+1)
		}
	}
	return nil
}

func (t *ScaleTransformer) Clone() model.Transformer {
	cp := &ScaleTransformer{FixedSize: t.FixedSize, scalers: t.scalers}
	cp.slots = make([]model.Scaler, len(t.slots))
	for i, s := range t.slots {
		cp.slots[i] = s.Clone()
	}
	return cp
}

func (t *ScaleTransformer) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", t.Name())
	b.WriteString(t.DimsInfo())
	b.WriteString("Scalers:\n")
	for i, s := range t.slots {
		fmt.Fprintf(&b, "  [%d] %s", i+1, s.Info())
	}
	return b.String()
}

func (t *ScaleTransformer) ConfigHelp() string {
	return fmt.Sprintf("Configuration options for %s:\n", t.Name()) +
		t.DimsHelp() +
		"  type idx|all id       Scaler type\n" +
		"  type (id id ...)      Scaler type per dimension\n" +
		"  config idx|all key v  Set scaler configuration option\n"
}

// Configure は dom/cod に加えて次の形式を受け付ける。index は 1 始まり
//
//	(type (linear null ...))
//	(type idx|all name)
//	(config idx|all key value ...)
func (t *ScaleTransformer) Configure(opts *config.Options) (bool, error) {
	applied, err := t.ConfigureDims(opts, t)
	if err != nil {
		return applied, err
	}
	if group, ok := opts.FindGroup("type"); ok && len(group) > 0 {
		set, err := t.configureType(group)
		if err != nil {
			return applied, err
		}
		applied = applied || set
	}
	if group, ok := opts.FindGroup("config"); ok && len(group) > 1 {
		set, err := t.configureScalers(group)
		if err != nil {
			return applied, err
		}
		applied = applied || set
	}
	return applied, nil
}

func (t *ScaleTransformer) configureType(group []config.Value) (bool, error) {
	names := group
	if group[0].IsList() {
		names = group[0].Items()
	} else if len(group) == 2 {
		// type idx|all name
		name := group[1].AsString()
		if sel := group[0].AsString(); sel == "all" {
			return true, t.SetAll(name)
		}
		if idx, ok := group[0].AsInt(); ok {
			return true, t.SetAt(idx-1, name)
		}
	}
	for i, v := range names {
		if err := t.SetAt(i, v.AsString()); err != nil {
			return i > 0, err
		}
	}
	return len(names) > 0, nil
}

func (t *ScaleTransformer) configureScalers(group []config.Value) (bool, error) {
	sub := config.New().Set(group[1].AsString(), group[2:]...)
	if group[0].AsString() == "all" {
		applied := false
		for i, s := range t.slots {
			ok, err := s.Configure(sub)
			if err != nil {
				return applied, errors.Wrapf(err, "configure scaler %d", i+1)
			}
			applied = applied || ok
		}
		return applied, nil
	}
	idx, ok := group[0].AsInt()
	if !ok {
		return false, errors.NewValidationError("config", "index must be an integer or all", group[0].String())
	}
	s, err := t.At(idx - 1)
	if err != nil {
		return false, err
	}
	return s.Configure(sub)
}

// EncodeWire は次元に続けて、次元ごとにスケーラ名とそのペイロードを書く
func (t *ScaleTransformer) EncodeWire(enc *wire.Encoder) error {
	t.EncodeDims(enc)
	for _, s := range t.slots {
		enc.String(s.Name())
		if err := s.EncodeWire(enc); err != nil {
			return err
		}
	}
	return enc.Err()
}

func (t *ScaleTransformer) DecodeWire(dec *wire.Decoder) error {
	if err := t.DecodeDims(dec, t); err != nil {
		return err
	}
	for i := range t.slots {
		name := dec.String()
		if err := dec.Err(); err != nil {
			return err
		}
		if err := t.SetAt(i, name); err != nil {
			return errors.Mark(err, errors.ErrMalformedFrame)
		}
		if err := t.slots[i].DecodeWire(dec); err != nil {
			return err
		}
	}
	t.logger().Debug("decoded scalers", log.DomainKey, len(t.slots))
	return nil
}

type scalerDoc struct {
	Type  string `yaml:"type"`
	State string `yaml:"state"`
}

type scaleDoc struct {
	model.Dims `yaml:",inline"`

	Scalers []scalerDoc `yaml:"scalers"`
}

func (t *ScaleTransformer) MarshalText() ([]byte, error) {
	doc := scaleDoc{Dims: t.Dims(), Scalers: make([]scalerDoc, len(t.slots))}
	for i, s := range t.slots {
		text, err := s.MarshalText()
		if err != nil {
			return nil, err
		}
		doc.Scalers[i] = scalerDoc{Type: s.Name(), State: string(text)}
	}
	return yaml.Marshal(&doc)
}

func (t *ScaleTransformer) UnmarshalText(text []byte) error {
	var doc scaleDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "ScaleTransformer: parse text")
	}
	if len(doc.Scalers) != doc.Domain {
		return errors.NewValueError("ScaleTransformer.UnmarshalText",
			fmt.Sprintf("%d scalers for domain size %d", len(doc.Scalers), doc.Domain))
	}
	if err := t.ApplyDims(doc.Dims, t); err != nil {
		return err
	}
	for i, sd := range doc.Scalers {
		if err := t.SetAt(i, sd.Type); err != nil {
			return err
		}
		if err := t.slots[i].UnmarshalText([]byte(sd.State)); err != nil {
			return err
		}
	}
	return nil
}

func (t *ScaleTransformer) logger() log.Logger {
	return log.GetLoggerWithName("transform.scale").With(log.ModelNameKey, t.Name())
}
