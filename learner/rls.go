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

// RLS は正則化付き逐次最小二乗法。Feed のたびに重みを更新する。
//
//	P_0 = I / lambda
//	g   = P x / (1 + x^T P x)
//	P   = P - g (P x)^T
//	W   = W + g (y - W^T x)^T
type RLS struct {
	model.FixedSize

	lambda  float64
	samples int
	w       *mat.Dense // domain x codomain
	p       *mat.Dense // domain x domain
}

// NewRLS は次元 dom, cod と正則化 lambda を持つ RLS を返す。無効な値は既定値のまま
func NewRLS(dom, cod int, lambda float64) *RLS {
	l := &RLS{FixedSize: model.NewFixedSize("RLS", 1, 1), lambda: 1}
	_ = l.FixedSize.SetDomainSize(dom)
	_ = l.FixedSize.SetCodomainSize(cod)
	if lambda > 0 {
		l.lambda = lambda
	}
	l.Reset()
	return l
}

func (l *RLS) Lambda() float64 { return l.lambda }

// SetLambda は正則化を設定し、モデルを初期化する
func (l *RLS) SetLambda(lambda float64) error {
	if !(lambda > 0) {
		return errors.NewValidationError("lambda", "must be positive", lambda)
	}
	l.lambda = lambda
	l.Reset()
	return nil
}

// SetDomainSize は次元を変えてモデルを初期化する
func (l *RLS) SetDomainSize(n int) error {
	if err := l.FixedSize.SetDomainSize(n); err != nil {
		return err
	}
	l.Reset()
	return nil
}

// SetCodomainSize は次元を変えてモデルを初期化する
func (l *RLS) SetCodomainSize(n int) error {
	if err := l.FixedSize.SetCodomainSize(n); err != nil {
		return err
	}
	l.Reset()
	return nil
}

func (l *RLS) Feed(input, output mat.Vector) error {
	if err := l.CheckSample("RLS.Feed", input, output); err != nil {
		return err
	}
	dom := l.DomainSize()

	var px mat.VecDense
	px.MulVec(l.p, input)
	denom := 1 + mat.Dot(input, &px)
	if err := errors.CheckScalar("RLS.Feed", denom, l.samples); err != nil {
		return err
	}

	g := mat.NewVecDense(dom, nil)
	g.ScaleVec(1/denom, &px)

	var gpx mat.Dense
	gpx.Outer(1, g, &px)
	l.p.Sub(l.p, &gpx)

	var pred mat.VecDense
	pred.MulVec(l.w.T(), input)
	errVec := mat.NewVecDense(l.CodomainSize(), nil)
	errVec.SubVec(output, &pred)

	var dw mat.Dense
	dw.Outer(1, g, errVec)
	l.w.Add(l.w, &dw)

	l.samples++
	l.SetState(model.Trained)
	return nil
}

// Train は何もしない。RLS は Feed で学習する
func (l *RLS) Train() error { return nil }

func (l *RLS) Predict(input mat.Vector) (model.Prediction, error) {
	if err := l.CheckDomain("RLS.Predict", input); err != nil {
		return model.Prediction{}, err
	}
	mean := mat.NewVecDense(l.CodomainSize(), nil)
	mean.MulVec(l.w.T(), input)
	return model.NewPrediction(mean), nil
}

// Reset は重みを 0、P を I/lambda に戻す
func (l *RLS) Reset() {
	dom, cod := l.DomainSize(), l.CodomainSize()
	l.w = mat.NewDense(dom, cod, nil)
	l.p = mat.NewDense(dom, dom, nil)
	for i := 0; i < dom; i++ {
		l.p.Set(i, i, 1/l.lambda)
	}
	l.samples = 0
	l.ResetState()
}

func (l *RLS) Clone() model.Learner {
	return &RLS{
		FixedSize: l.FixedSize,
		lambda:    l.lambda,
		samples:   l.samples,
		w:         mat.DenseCopyOf(l.w),
		p:         mat.DenseCopyOf(l.p),
	}
}

// Weights は重み行列のコピーを返す
func (l *RLS) Weights() *mat.Dense { return mat.DenseCopyOf(l.w) }

func (l *RLS) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", l.Name())
	b.WriteString(l.DimsInfo())
	fmt.Fprintf(&b, "Lambda: %g | Samples: %d\n", l.lambda, l.samples)
	return b.String()
}

func (l *RLS) ConfigHelp() string {
	return configHelpHeader(l.Name()) + l.DimsHelp() +
		"  lambda val            Regularization parameter\n"
}

func (l *RLS) Configure(opts *config.Options) (bool, error) {
	applied, err := l.ConfigureDims(opts, l)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("lambda"); ok {
		if f, ok := v.AsFloat(); ok && l.SetLambda(f) == nil {
			applied = true
		}
	}
	return applied, nil
}

func (l *RLS) EncodeWire(enc *wire.Encoder) error {
	l.EncodeDims(enc)
	enc.Float(l.lambda)
	enc.Int(l.samples)
	enc.Matrix(l.w)
	enc.Matrix(l.p)
	return enc.Err()
}

func (l *RLS) DecodeWire(dec *wire.Decoder) error {
	if err := l.DecodeDims(dec, l); err != nil {
		return err
	}
	lambda := dec.Float()
	samples := dec.Int()
	w := dec.Matrix()
	p := dec.Matrix()
	if err := dec.Err(); err != nil {
		return err
	}
	if err := l.restore(lambda, samples, w, p); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	return nil
}

func (l *RLS) restore(lambda float64, samples int, w, p *mat.Dense) error {
	if err := l.SetLambda(lambda); err != nil {
		return err
	}
	dom, cod := l.DomainSize(), l.CodomainSize()
	if w == nil || p == nil {
		return errors.NewValueError("RLS.restore", "missing weights")
	}
	if r, c := w.Dims(); r != dom || c != cod {
		return errors.NewValueError("RLS.restore", fmt.Sprintf("weights are %dx%d, want %dx%d", r, c, dom, cod))
	}
	if r, c := p.Dims(); r != dom || c != dom {
		return errors.NewValueError("RLS.restore", fmt.Sprintf("P is %dx%d, want %dx%d", r, c, dom, dom))
	}
	if samples < 0 {
		return errors.NewValueError("RLS.restore", "negative sample count")
	}
	l.w, l.p, l.samples = w, p, samples
	if samples > 0 {
		l.SetState(model.Trained)
	}
	return nil
}

type rlsDoc struct {
	model.Dims `yaml:",inline"`

	Lambda  float64     `yaml:"lambda"`
	Samples int         `yaml:"samples"`
	W       [][]float64 `yaml:"w"`
	P       [][]float64 `yaml:"p"`
}

func (l *RLS) MarshalText() ([]byte, error) {
	return yaml.Marshal(&rlsDoc{
		Dims:    l.Dims(),
		Lambda:  l.lambda,
		Samples: l.samples,
		W:       model.DenseToRows(l.w),
		P:       model.DenseToRows(l.p),
	})
}

func (l *RLS) UnmarshalText(text []byte) error {
	var doc rlsDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "RLS: parse text")
	}
	if err := l.ApplyDims(doc.Dims, l); err != nil {
		return err
	}
	w, err := model.RowsToDense(doc.W)
	if err != nil {
		return err
	}
	p, err := model.RowsToDense(doc.P)
	if err != nil {
		return err
	}
	return l.restore(doc.Lambda, doc.Samples, w, p)
}
