package learner

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// LinearGPR は線形カーネルのガウス過程回帰 (重みの事前分布 N(0, I))。
//
//	A = sigma^2 I + X^T X,  B = X^T Y
//	mean = x^T A^-1 B,  variance = sigma^2 (1 + x^T A^-1 x)
//
// Feed で A と B を更新し、予測時に Cholesky 分解を必要なときだけ計算し直す
type LinearGPR struct {
	model.FixedSize

	sigma   float64
	samples int
	a       *mat.SymDense // domain x domain
	b       *mat.Dense    // domain x codomain

	chol  *mat.Cholesky
	dirty bool
}

// NewLinearGPR は次元 dom, cod とノイズ sigma を持つ LinearGPR を返す
func NewLinearGPR(dom, cod int, sigma float64) *LinearGPR {
	l := &LinearGPR{FixedSize: model.NewFixedSize("LinearGPR", 1, 1), sigma: 1}
	_ = l.FixedSize.SetDomainSize(dom)
	_ = l.FixedSize.SetCodomainSize(cod)
	if sigma > 0 {
		l.sigma = sigma
	}
	l.Reset()
	return l
}

func (l *LinearGPR) Sigma() float64 { return l.sigma }

// SetSigma はノイズを設定し、モデルを初期化する
func (l *LinearGPR) SetSigma(s float64) error {
	if !(s > 0) {
		return errors.NewValidationError("sigma", "must be positive", s)
	}
	l.sigma = s
	l.Reset()
	return nil
}

func (l *LinearGPR) SetDomainSize(n int) error {
	if err := l.FixedSize.SetDomainSize(n); err != nil {
		return err
	}
	l.Reset()
	return nil
}

func (l *LinearGPR) SetCodomainSize(n int) error {
	if err := l.FixedSize.SetCodomainSize(n); err != nil {
		return err
	}
	l.Reset()
	return nil
}

func (l *LinearGPR) Feed(input, output mat.Vector) error {
	if err := l.CheckSample("LinearGPR.Feed", input, output); err != nil {
		return err
	}
	l.a.SymRankOne(l.a, 1, input)
	var xy mat.Dense
	xy.Outer(1, input, output)
	l.b.Add(l.b, &xy)
	l.samples++
	l.dirty = true
	l.SetState(model.Collecting)
	return nil
}

// Train は A を分解する。分解できなければ ErrSingularMatrix
func (l *LinearGPR) Train() error {
	if err := l.factorize(); err != nil {
		return err
	}
	if l.samples > 0 {
		l.SetState(model.Trained)
	}
	return nil
}

func (l *LinearGPR) factorize() error {
	if !l.dirty && l.chol != nil {
		return nil
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(l.a); !ok {
		return errors.Mark(errors.Newf("LinearGPR: A is not positive definite"), errors.ErrSingularMatrix)
	}
	l.chol = &chol
	l.dirty = false
	return nil
}

// Predict は平均と分散を返す。Train していなくても現在のサンプルで予測する
func (l *LinearGPR) Predict(input mat.Vector) (model.Prediction, error) {
	if err := l.CheckDomain("LinearGPR.Predict", input); err != nil {
		return model.Prediction{}, err
	}
	if err := l.factorize(); err != nil {
		return model.Prediction{}, err
	}
	cod := l.CodomainSize()

	var w mat.Dense
	if err := l.chol.SolveTo(&w, l.b); err != nil {
		return model.Prediction{}, errors.Mark(errors.Wrap(err, "LinearGPR.Predict"), errors.ErrSingularMatrix)
	}
	mean := mat.NewVecDense(cod, nil)
	mean.MulVec(w.T(), input)

	var ax mat.VecDense
	if err := l.chol.SolveVecTo(&ax, input); err != nil {
		return model.Prediction{}, errors.Mark(errors.Wrap(err, "LinearGPR.Predict"), errors.ErrSingularMatrix)
	}
	v := l.sigma * l.sigma * (1 + mat.Dot(input, &ax))
	variance := mat.NewVecDense(cod, nil)
	for i := 0; i < cod; i++ {
		variance.SetVec(i, v)
	}
	return model.NewPredictionWithVariance(mean, variance), nil
}

// Reset は A を sigma^2 I、B を 0 に戻す
func (l *LinearGPR) Reset() {
	dom, cod := l.DomainSize(), l.CodomainSize()
	l.a = mat.NewSymDense(dom, nil)
	for i := 0; i < dom; i++ {
		l.a.SetSym(i, i, l.sigma*l.sigma)
	}
	l.b = mat.NewDense(dom, cod, nil)
	l.samples = 0
	l.chol = nil
	l.dirty = true
	l.ResetState()
}

func (l *LinearGPR) Clone() model.Learner {
	a := mat.NewSymDense(l.DomainSize(), nil)
	a.CopySym(l.a)
	return &LinearGPR{
		FixedSize: l.FixedSize,
		sigma:     l.sigma,
		samples:   l.samples,
		a:         a,
		b:         mat.DenseCopyOf(l.b),
		dirty:     true,
	}
}

func (l *LinearGPR) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", l.Name())
	b.WriteString(l.DimsInfo())
	fmt.Fprintf(&b, "Sigma: %g | Samples: %d\n", l.sigma, l.samples)
	return b.String()
}

func (l *LinearGPR) ConfigHelp() string {
	return configHelpHeader(l.Name()) + l.DimsHelp() +
		"  sigma val             Noise standard deviation\n"
}

func (l *LinearGPR) Configure(opts *config.Options) (bool, error) {
	applied, err := l.ConfigureDims(opts, l)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("sigma"); ok {
		if f, ok := v.AsFloat(); ok && l.SetSigma(f) == nil {
			applied = true
		}
	}
	return applied, nil
}

func (l *LinearGPR) EncodeWire(enc *wire.Encoder) error {
	l.EncodeDims(enc)
	enc.Float(l.sigma)
	enc.Int(l.samples)
	enc.Matrix(l.a)
	enc.Matrix(l.b)
	return enc.Err()
}

func (l *LinearGPR) DecodeWire(dec *wire.Decoder) error {
	if err := l.DecodeDims(dec, l); err != nil {
		return err
	}
	sigma := dec.Float()
	samples := dec.Int()
	a := dec.Matrix()
	b := dec.Matrix()
	if err := dec.Err(); err != nil {
		return err
	}
	if err := l.restore(sigma, samples, a, b); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	return nil
}

func (l *LinearGPR) restore(sigma float64, samples int, a, b *mat.Dense) error {
	if err := l.SetSigma(sigma); err != nil {
		return err
	}
	dom, cod := l.DomainSize(), l.CodomainSize()
	if a == nil || b == nil {
		return errors.NewValueError("LinearGPR.restore", "missing statistics")
	}
	if r, c := a.Dims(); r != dom || c != dom {
		return errors.NewValueError("LinearGPR.restore", fmt.Sprintf("A is %dx%d, want %dx%d", r, c, dom, dom))
	}
	if r, c := b.Dims(); r != dom || c != cod {
		return errors.NewValueError("LinearGPR.restore", fmt.Sprintf("B is %dx%d, want %dx%d", r, c, dom, cod))
	}
	sym := mat.NewSymDense(dom, nil)
	for i := 0; i < dom; i++ {
		for j := i; j < dom; j++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	l.a, l.b, l.samples = sym, b, samples
	l.dirty = true
	if samples > 0 {
		l.SetState(model.Collecting)
	}
	return nil
}

type linearGPRDoc struct {
	model.Dims `yaml:",inline"`

	Sigma   float64     `yaml:"sigma"`
	Samples int         `yaml:"samples"`
	A       [][]float64 `yaml:"a"`
	B       [][]float64 `yaml:"b"`
}

func (l *LinearGPR) MarshalText() ([]byte, error) {
	return yaml.Marshal(&linearGPRDoc{
		Dims:    l.Dims(),
		Sigma:   l.sigma,
		Samples: l.samples,
		A:       model.DenseToRows(mat.DenseCopyOf(l.a)),
		B:       model.DenseToRows(l.b),
	})
}

func (l *LinearGPR) UnmarshalText(text []byte) error {
	var doc linearGPRDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "LinearGPR: parse text")
	}
	if err := l.ApplyDims(doc.Dims, l); err != nil {
		return err
	}
	a, err := model.RowsToDense(doc.A)
	if err != nil {
		return err
	}
	b, err := model.RowsToDense(doc.B)
	if err != nil {
		return err
	}
	return l.restore(doc.Sigma, doc.Samples, a, b)
}
