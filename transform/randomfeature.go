package transform

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// seedStream は PCG の第2シード
const seedStream = 0x9e3779b97f4a7c15

// RandomFeature は RBF カーネルを近似するランダムフーリエ特徴への写像。
//
//	z = sqrt(2/cod) * cos(W x + b),  W ~ N(0, 2*gamma),  b ~ U(0, 2*pi)
//
// W と b は seed から決定的に生成され、設定が変わるたびに作り直される
type RandomFeature struct {
	model.FixedSize

	gamma float64
	seed  int

	w *mat.Dense    // cod x dom
	b *mat.VecDense // cod
}

// NewRandomFeature は dom 次元の入力を cod 個の特徴に写す変換器を返す
func NewRandomFeature(dom, cod int, gamma float64, seed int) *RandomFeature {
	t := &RandomFeature{FixedSize: model.NewFixedSize("RandomFeature", 1, 1), gamma: 1}
	_ = t.FixedSize.SetDomainSize(dom)
	_ = t.FixedSize.SetCodomainSize(cod)
	_ = t.SetGamma(gamma)
	_ = t.SetSeed(seed)
	t.regenerate()
	return t
}

func (t *RandomFeature) Gamma() float64 { return t.gamma }
func (t *RandomFeature) Seed() int      { return t.seed }

// SetGamma は gamma (> 0) を設定し W と b を作り直す
func (t *RandomFeature) SetGamma(g float64) error {
	if !(g > 0) || math.IsInf(g, 0) {
		return errors.NewValidationError("gamma", "must be positive", g)
	}
	t.gamma = g
	t.regenerate()
	return nil
}

// SetSeed は乱数シード (0 以上の int32) を設定し W と b を作り直す
func (t *RandomFeature) SetSeed(seed int) error {
	if seed < 0 || seed > math.MaxInt32 {
		return errors.NewValidationError("seed", "must be in [0, 2^31)", seed)
	}
	t.seed = seed
	t.regenerate()
	return nil
}

func (t *RandomFeature) SetDomainSize(n int) error {
	if err := t.FixedSize.SetDomainSize(n); err != nil {
		return err
	}
	t.regenerate()
	return nil
}

func (t *RandomFeature) SetCodomainSize(n int) error {
	if err := t.FixedSize.SetCodomainSize(n); err != nil {
		return err
	}
	t.regenerate()
	return nil
}

func (t *RandomFeature) regenerate() {
	dom, cod := t.DomainSize(), t.CodomainSize()
	rng := rand.New(rand.NewPCG(uint64(t.seed), seedStream))
	std := math.Sqrt(2 * t.gamma)

	w := make([]float64, cod*dom)
	for i := range w {
		w[i] = rng.NormFloat64() * std
	}
	b := make([]float64, cod)
	for i := range b {
		b[i] = rng.Float64() * 2 * math.Pi
	}
	t.w = mat.NewDense(cod, dom, w)
	t.b = mat.NewVecDense(cod, b)
}

func (t *RandomFeature) Transform(input mat.Vector) (*mat.VecDense, error) {
	if err := t.CheckDomain("RandomFeature.Transform", input); err != nil {
		return nil, err
	}
	cod := t.CodomainSize()
	z := mat.NewVecDense(cod, nil)
	z.MulVec(t.w, input)
	z.AddVec(z, t.b)
	scale := math.Sqrt(2 / float64(cod))
	for i := 0; i < cod; i++ {
		z.SetVec(i, scale*math.Cos(z.AtVec(i)))
	}
	return z, nil
}

// Reset は何もしない。W と b は設定から決まる
func (t *RandomFeature) Reset() {}

func (t *RandomFeature) Clone() model.Transformer {
	cp := *t
	cp.w = model.CopyDense(t.w)
	cp.b = model.CopyVector(t.b)
	return &cp
}

func (t *RandomFeature) Info() string {
	return fmt.Sprintf("Type: %s\n", t.Name()) + t.DimsInfo() +
		fmt.Sprintf("Gamma: %g | Seed: %d\n", t.gamma, t.seed)
}

func (t *RandomFeature) ConfigHelp() string {
	return fmt.Sprintf("Configuration options for %s:\n", t.Name()) +
		t.DimsHelp() +
		"  gamma val             Kernel width of the approximated RBF kernel\n" +
		"  seed val              Random seed for the projection\n"
}

func (t *RandomFeature) Configure(opts *config.Options) (bool, error) {
	applied, err := t.ConfigureDims(opts, t)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("gamma"); ok {
		g, ok := v.AsFloat()
		if !ok {
			return applied, errors.NewValidationError("gamma", "must be a number", v.String())
		}
		if err := t.SetGamma(g); err != nil {
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

// EncodeWire は次元、gamma, seed を書く。射影は seed から再生成する
func (t *RandomFeature) EncodeWire(enc *wire.Encoder) error {
	t.EncodeDims(enc)
	enc.Float(t.gamma)
	enc.Int(t.seed)
	return enc.Err()
}

func (t *RandomFeature) DecodeWire(dec *wire.Decoder) error {
	if err := t.DecodeDims(dec, t); err != nil {
		return err
	}
	gamma, seed := dec.Float(), dec.Int()
	if err := dec.Err(); err != nil {
		return err
	}
	return t.restore(gamma, seed)
}

func (t *RandomFeature) restore(gamma float64, seed int) error {
	if err := t.SetGamma(gamma); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	if err := t.SetSeed(seed); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	return nil
}

type randomFeatureDoc struct {
	model.Dims `yaml:",inline"`

	Gamma float64 `yaml:"gamma"`
	Seed  int     `yaml:"seed"`
}

func (t *RandomFeature) MarshalText() ([]byte, error) {
	return yaml.Marshal(&randomFeatureDoc{Dims: t.Dims(), Gamma: t.gamma, Seed: t.seed})
}

func (t *RandomFeature) UnmarshalText(text []byte) error {
	var doc randomFeatureDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "RandomFeature: parse text")
	}
	if err := t.ApplyDims(doc.Dims, t); err != nil {
		return err
	}
	return t.restore(doc.Gamma, doc.Seed)
}
