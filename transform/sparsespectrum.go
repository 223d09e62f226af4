package transform

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// SparseSpectrumFeature は次元ごとの長さスケール ell を持つ RBF カーネルを
// cod/2 本の周波数で近似するスパーススペクトル特徴への写像。
//
//	z = sigma / sqrt(cod/2) * [cos(W x); sin(W x)],  W[i][j] ~ N(0, 1) / ell[j]
//
// z(x)・z(x') は sigma^2 * exp(-Σ ((x_j - x'_j) / ell_j)^2 / 2) に近づく。
// cod は偶数でなければならない
type SparseSpectrumFeature struct {
	model.FixedSize

	sigma float64
	ell   []float64 // dom
	seed  int

	w *mat.Dense // cod/2 x dom
}

// NewSparseSpectrumFeature は dom 次元の入力を cod 個 (偶数) の特徴に写す変換器を返す。
// ell はすべて 1 で始まる
func NewSparseSpectrumFeature(dom, cod int, sigma float64, seed int) *SparseSpectrumFeature {
	t := &SparseSpectrumFeature{FixedSize: model.NewFixedSize("SparseSpectrumFeature", 1, 2), sigma: 1}
	_ = t.FixedSize.SetDomainSize(dom)
	if t.checkEven(cod) == nil {
		_ = t.FixedSize.SetCodomainSize(cod)
	}
	t.ell = ones(t.DomainSize())
	_ = t.SetSigma(sigma)
	_ = t.SetSeed(seed)
	t.regenerate()
	return t
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

func (t *SparseSpectrumFeature) Sigma() float64 { return t.sigma }
func (t *SparseSpectrumFeature) Seed() int      { return t.seed }

// Ell は長さスケールのコピーを返す
func (t *SparseSpectrumFeature) Ell() []float64 { return append([]float64(nil), t.ell...) }

// SetSigma は出力の振幅 sigma (> 0) を設定する。射影は変わらない
func (t *SparseSpectrumFeature) SetSigma(s float64) error {
	if !(s > 0) || math.IsInf(s, 0) {
		return errors.NewValidationError("sigma", "must be positive", s)
	}
	t.sigma = s
	return nil
}

// SetEll は長さスケールを設定し射影を作り直す。
// 1 つだけ渡すと全次元に同じ値を使う。それ以外は dom 個必要
func (t *SparseSpectrumFeature) SetEll(ell ...float64) error {
	dom := t.DomainSize()
	if len(ell) == 1 && dom > 1 {
		v := ell[0]
		ell = make([]float64, dom)
		for i := range ell {
			ell[i] = v
		}
	}
	if len(ell) != dom {
		return errors.NewDimensionError("SparseSpectrumFeature.SetEll", dom, len(ell), 0)
	}
	for _, v := range ell {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.NewValidationError("ell", "must be positive", v)
		}
	}
	t.ell = append([]float64(nil), ell...)
	t.regenerate()
	return nil
}

// SetSeed は乱数シード (0 以上の int32) を設定し射影を作り直す
func (t *SparseSpectrumFeature) SetSeed(seed int) error {
	if seed < 0 || seed > math.MaxInt32 {
		return errors.NewValidationError("seed", "must be in [0, 2^31)", seed)
	}
	t.seed = seed
	t.regenerate()
	return nil
}

// SetDomainSize は入力次元を変え、ell を 1 に戻す
func (t *SparseSpectrumFeature) SetDomainSize(n int) error {
	if err := t.FixedSize.SetDomainSize(n); err != nil {
		return err
	}
	t.ell = ones(n)
	t.regenerate()
	return nil
}

// SetCodomainSize は特徴数を変える。奇数は ValidationError
func (t *SparseSpectrumFeature) SetCodomainSize(n int) error {
	if err := t.checkEven(n); err != nil {
		return err
	}
	if err := t.FixedSize.SetCodomainSize(n); err != nil {
		return err
	}
	t.regenerate()
	return nil
}

func (t *SparseSpectrumFeature) checkEven(n int) error {
	if n < 2 || n%2 != 0 {
		return errors.NewValidationError("cod", "must be a positive even number", n)
	}
	return nil
}

func (t *SparseSpectrumFeature) regenerate() {
	dom, half := t.DomainSize(), t.CodomainSize()/2
	if len(t.ell) != dom {
		t.ell = ones(dom)
	}
	rng := rand.New(rand.NewPCG(uint64(t.seed), seedStream))
	w := make([]float64, half*dom)
	for i := 0; i < half; i++ {
		for j := 0; j < dom; j++ {
			w[i*dom+j] = rng.NormFloat64() / t.ell[j]
		}
	}
	t.w = mat.NewDense(half, dom, w)
}

func (t *SparseSpectrumFeature) Transform(input mat.Vector) (*mat.VecDense, error) {
	if err := t.CheckDomain("SparseSpectrumFeature.Transform", input); err != nil {
		return nil, err
	}
	half := t.CodomainSize() / 2
	var u mat.VecDense
	u.MulVec(t.w, input)
	scale := t.sigma / math.Sqrt(float64(half))
	z := mat.NewVecDense(2*half, nil)
	for i := 0; i < half; i++ {
		s, c := math.Sincos(u.AtVec(i))
		z.SetVec(i, scale*c)
		z.SetVec(half+i, scale*s)
	}
	return z, nil
}

// Reset は何もしない。射影は設定から決まる
func (t *SparseSpectrumFeature) Reset() {}

func (t *SparseSpectrumFeature) Clone() model.Transformer {
	cp := *t
	cp.ell = t.Ell()
	cp.w = model.CopyDense(t.w)
	return &cp
}

func (t *SparseSpectrumFeature) Info() string {
	parts := make([]string, len(t.ell))
	for i, v := range t.ell {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return fmt.Sprintf("Type: %s\n", t.Name()) + t.DimsInfo() +
		fmt.Sprintf("Sigma: %g | Ell: [%s] | Seed: %d\n", t.sigma, strings.Join(parts, " "), t.seed)
}

func (t *SparseSpectrumFeature) ConfigHelp() string {
	return fmt.Sprintf("Configuration options for %s:\n", t.Name()) +
		t.DimsHelp() +
		"  sigma val             Signal amplitude of the approximated kernel\n" +
		"  ell val | (v1 .. vn)  Length scale, one value or one per input dimension\n" +
		"  seed val              Random seed for the frequencies\n"
}

// ellValues は (ell 0.5)、(ell 0.5 2)、(ell (0.5 2)) のいずれも受け付ける
func ellValues(group []config.Value) ([]float64, error) {
	if len(group) == 1 && group[0].IsList() {
		group = group[0].Items()
	}
	out := make([]float64, 0, len(group))
	for _, v := range group {
		f, ok := v.AsFloat()
		if !ok {
			return nil, errors.NewValidationError("ell", "must be a number", v.String())
		}
		out = append(out, f)
	}
	return out, nil
}

// Configure は dom, cod を先に、その後 sigma, ell, seed を解釈する
func (t *SparseSpectrumFeature) Configure(opts *config.Options) (bool, error) {
	applied, err := t.ConfigureDims(opts, t)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("sigma"); ok {
		s, ok := v.AsFloat()
		if !ok {
			return applied, errors.NewValidationError("sigma", "must be a number", v.String())
		}
		if err := t.SetSigma(s); err != nil {
			return applied, err
		}
		applied = true
	}
	if group, ok := opts.FindGroup("ell"); ok {
		ell, err := ellValues(group)
		if err != nil {
			return applied, err
		}
		if err := t.SetEll(ell...); err != nil {
			return applied, err
		}
		applied = true
	}
	if v, ok := opts.Find("seed"); ok {
		s, ok := v.AsInt()
		if !ok {
			return applied, errors.NewValidationError("seed", "must be an integer", v.String())
		}
		if err := t.SetSeed(s); err != nil {
			return applied, err
		}
		applied = true
	}
	return applied, nil
}

// EncodeWire は次元、sigma, seed, ell を書く。周波数は seed と ell から再生成する
func (t *SparseSpectrumFeature) EncodeWire(enc *wire.Encoder) error {
	t.EncodeDims(enc)
	enc.Float(t.sigma)
	enc.Int(t.seed)
	enc.Vector(mat.NewVecDense(len(t.ell), t.Ell()))
	return enc.Err()
}

func (t *SparseSpectrumFeature) DecodeWire(dec *wire.Decoder) error {
	if err := t.DecodeDims(dec, t); err != nil {
		return err
	}
	sigma, seed := dec.Float(), dec.Int()
	ell := model.VectorToSlice(dec.Vector())
	if err := dec.Err(); err != nil {
		return err
	}
	return t.restore(sigma, seed, ell)
}

func (t *SparseSpectrumFeature) restore(sigma float64, seed int, ell []float64) error {
	if len(ell) != t.DomainSize() {
		return errors.Mark(errors.NewDimensionError("SparseSpectrumFeature.restore", t.DomainSize(), len(ell), 0), errors.ErrMalformedFrame)
	}
	if err := t.SetSigma(sigma); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	if err := t.SetEll(ell...); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	if err := t.SetSeed(seed); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	return nil
}

type sparseSpectrumDoc struct {
	model.Dims `yaml:",inline"`

	Sigma float64   `yaml:"sigma"`
	Ell   []float64 `yaml:"ell"`
	Seed  int       `yaml:"seed"`
}

func (t *SparseSpectrumFeature) MarshalText() ([]byte, error) {
	return yaml.Marshal(&sparseSpectrumDoc{Dims: t.Dims(), Sigma: t.sigma, Ell: t.Ell(), Seed: t.seed})
}

func (t *SparseSpectrumFeature) UnmarshalText(text []byte) error {
	var doc sparseSpectrumDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "SparseSpectrumFeature: parse text")
	}
	if err := t.ApplyDims(doc.Dims, t); err != nil {
		return err
	}
	return t.restore(doc.Sigma, doc.Seed, doc.Ell)
}
