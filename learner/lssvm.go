package learner

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/parallel"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// kernelParallelThreshold を超えるサンプル数ではカーネル行列を並列に計算する
const kernelParallelThreshold = 128

// LSSVM は RBF カーネルを用いた最小二乗サポートベクターマシン。
//
// Train はバイアス付きの双対系
//
//	[ K + I/C  1 ] [alphas]   [Y]
//	[ 1^T      0 ] [bias  ] = [0]
//
// を逆行列で解き、逆行列の対角から leave-one-out 誤差を求める。
// Feed したサンプルは Reset まで保持され、Train しない限りモデルは更新されない
type LSSVM struct {
	model.FixedSize

	kernel *RBFKernel
	c      float64

	inputs  []*mat.VecDense
	outputs []*mat.VecDense

	alphas *mat.Dense    // n x codomain
	bias   *mat.VecDense // codomain
	loo    *mat.VecDense // codomain

	staleWarned bool
}

// NewLSSVM は次元 dom, cod と正則化パラメータ c を持つ LSSVM を返す。
// 無効な値は既定値 (1) のままになる
func NewLSSVM(dom, cod int, c float64) *LSSVM {
	l := &LSSVM{
		FixedSize: model.NewFixedSize("LSSVM", 1, 1),
		kernel:    NewRBFKernel(1),
		c:         1,
	}
	_ = l.SetDomainSize(dom)
	_ = l.SetCodomainSize(cod)
	_ = l.SetC(c)
	return l
}

// C は正則化パラメータを返す
func (l *LSSVM) C() float64 { return l.c }

// SetC は正則化パラメータを設定する。正でなければ ValidationError
func (l *LSSVM) SetC(c float64) error {
	if !(c > 0) {
		return errors.NewValidationError("c", "must be positive", c)
	}
	l.c = c
	return nil
}

// Kernel はカーネルを返す
func (l *LSSVM) Kernel() *RBFKernel { return l.kernel }

// Feed はサンプルを追加する。学習はしない
func (l *LSSVM) Feed(input, output mat.Vector) error {
	if err := l.CheckSample("LSSVM.Feed", input, output); err != nil {
		return err
	}
	l.inputs = append(l.inputs, mat.VecDenseCopyOf(input))
	l.outputs = append(l.outputs, mat.VecDenseCopyOf(output))
	l.SetState(model.Collecting)
	return nil
}

// Train は保持しているサンプルで双対系を解く。サンプルがなければ何もしない
func (l *LSSVM) Train() (err error) {
	defer errors.Recover(&err, "LSSVM.Train")

	n := len(l.inputs)
	if n == 0 {
		return nil
	}
	logger := l.logger()
	start := time.Now()

	size := n + 1
	k := mat.NewDense(size, size, nil)
	parallel.Triangular(n, kernelParallelThreshold, func(from, to int) {
		for r := from; r < to; r++ {
			for c := 0; c <= r; c++ {
				v := l.kernel.Evaluate(l.inputs[r], l.inputs[c])
				k.Set(r, c, v)
				k.Set(c, r, v)
			}
			k.Set(r, r, k.At(r, r)+1/l.c)
		}
	})
	for i := 0; i < n; i++ {
		k.Set(i, n, 1)
		k.Set(n, i, 1)
	}

	var kinv mat.Dense
	if ierr := kinv.Inverse(k); ierr != nil {
		logger.Error("kernel matrix inversion failed", ierr,
			log.OperationKey, log.OperationTrain,
			log.SamplesKey, n,
			log.ErrorCodeKey, log.ErrorSingularMatrix,
		)
		return errors.Mark(errors.Wrapf(ierr, "LSSVM.Train: invert %dx%d kernel matrix", size, size), errors.ErrSingularMatrix)
	}

	cod := l.CodomainSize()
	y := mat.NewDense(size, cod, nil)
	for r, out := range l.outputs {
		for c := 0; c < cod; c++ {
			y.Set(r, c, out.AtVec(c))
		}
	}

	var result mat.Dense
	result.Mul(&kinv, y)
	if err := errors.CheckMatrix("LSSVM.Train", &result, n); err != nil {
		return err
	}

	l.alphas = mat.DenseCopyOf(result.Slice(0, n, 0, cod))
	l.bias = mat.NewVecDense(cod, mat.Row(nil, n, &result))

	l.loo = mat.NewVecDense(cod, nil)
	for c := 0; c < cod; c++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			e := l.alphas.At(j, c) / kinv.At(j, j)
			sum += e * e
		}
		l.loo.SetVec(c, sum/float64(n))
	}

	l.SetState(model.Trained)
	l.staleWarned = false
	logger.Debug("LSSVM trained",
		log.OperationKey, log.OperationTrain,
		log.SamplesKey, n,
		log.RegularizationKey, l.c,
		log.GammaKey, l.kernel.Gamma(),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Predict は alphas^T k(x) + bias を返す。一度も学習していなければゼロベクトル。
// 最後の Train 以降に追加されたサンプルは使わず、一度だけ StaleModelWarning を出す
func (l *LSSVM) Predict(input mat.Vector) (model.Prediction, error) {
	if err := l.CheckDomain("LSSVM.Predict", input); err != nil {
		return model.Prediction{}, err
	}
	cod := l.CodomainSize()
	trained := 0
	if l.alphas != nil {
		trained, _ = l.alphas.Dims()
	}
	if trained < len(l.inputs) && !l.staleWarned {
		errors.Warn(errors.NewStaleModelWarning(l.Name(), trained, len(l.inputs)))
		l.staleWarned = true
	}
	if trained == 0 {
		return model.NewPrediction(model.Zeros(cod)), nil
	}

	kv := mat.NewVecDense(trained, nil)
	for i := 0; i < trained; i++ {
		kv.SetVec(i, l.kernel.Evaluate(l.inputs[i], input))
	}
	mean := mat.NewVecDense(cod, nil)
	mean.MulVec(l.alphas.T(), kv)
	mean.AddVec(mean, l.bias)
	return model.NewPrediction(mean), nil
}

// Reset はサンプルと学習結果を消す。設定は残る
func (l *LSSVM) Reset() {
	l.inputs = nil
	l.outputs = nil
	l.alphas = nil
	l.bias = nil
	l.loo = nil
	l.staleWarned = false
	l.ResetState()
}

// Clone は独立したコピーを返す
func (l *LSSVM) Clone() model.Learner {
	c := &LSSVM{
		FixedSize: l.FixedSize,
		kernel:    l.kernel.Clone(),
		c:         l.c,
		alphas:    model.CopyDense(l.alphas),
		bias:      model.CopyVector(l.bias),
		loo:       model.CopyVector(l.loo),
	}
	c.inputs = copyVectors(l.inputs)
	c.outputs = copyVectors(l.outputs)
	return c
}

// LOO は出力ごとの leave-one-out 二乗誤差を返す。未学習なら nil
func (l *LSSVM) LOO() *mat.VecDense { return model.CopyVector(l.loo) }

// Alphas は双対係数を返す。未学習なら nil
func (l *LSSVM) Alphas() *mat.Dense { return model.CopyDense(l.alphas) }

// Bias はバイアスを返す。未学習なら nil
func (l *LSSVM) Bias() *mat.VecDense { return model.CopyVector(l.bias) }

// SampleCount は保持しているサンプル数を返す
func (l *LSSVM) SampleCount() int { return len(l.inputs) }

func (l *LSSVM) Info() string {
	trained := 0
	if l.alphas != nil {
		trained, _ = l.alphas.Dims()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", l.Name())
	b.WriteString(l.DimsInfo())
	fmt.Fprintf(&b, "C: %g | Collected Samples: %d | Training Samples: %d | Kernel: %s\n",
		l.c, len(l.inputs), trained, l.kernel.Info())
	fmt.Fprintf(&b, "LOO: %s\n", formatVector(l.loo))
	return b.String()
}

func (l *LSSVM) ConfigHelp() string {
	return configHelpHeader(l.Name()) + l.DimsHelp() +
		"  c val                 Tradeoff parameter C\n" +
		l.kernel.ConfigHelp()
}

// Configure は dom, cod, c とカーネルのオプションを解釈する。
// c は正の数値のみ受け付け、それ以外は無視する
func (l *LSSVM) Configure(opts *config.Options) (bool, error) {
	applied, err := l.ConfigureDims(opts, l)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("c"); ok {
		if c, ok := v.AsFloat(); ok && l.SetC(c) == nil {
			applied = true
		}
	}
	if l.kernel.Configure(opts) {
		applied = true
	}
	return applied, nil
}

// EncodeWire は次元、gamma, C, bias, alphas, LOO, 入力、出力の順に書く
func (l *LSSVM) EncodeWire(enc *wire.Encoder) error {
	l.EncodeDims(enc)
	enc.Float(l.kernel.Gamma())
	enc.Float(l.c)
	enc.Vector(l.bias)
	enc.Matrix(l.alphas)
	enc.Vector(l.loo)
	writeVectors(enc, l.inputs)
	writeVectors(enc, l.outputs)
	return enc.Err()
}

// DecodeWire は EncodeWire と同じ順に読む
func (l *LSSVM) DecodeWire(dec *wire.Decoder) error {
	if err := l.DecodeDims(dec, l); err != nil {
		return err
	}
	gamma := dec.Float()
	c := dec.Float()
	bias := dec.Vector()
	alphas := dec.Matrix()
	loo := dec.Vector()
	inputs := readVectors(dec)
	outputs := readVectors(dec)
	if err := dec.Err(); err != nil {
		return err
	}
	if err := l.restore(gamma, c, bias, alphas, inputs, outputs); err != nil {
		return errors.Mark(err, errors.ErrMalformedFrame)
	}
	if alphas != nil && l.CheckCodomain("LSSVM.DecodeWire", loo) == nil {
		l.loo = loo
	}
	return nil
}

// restore は読み込んだ状態の整合性を確認して適用する
func (l *LSSVM) restore(gamma, c float64, bias *mat.VecDense, alphas *mat.Dense, inputs, outputs []*mat.VecDense) error {
	if len(inputs) != len(outputs) {
		return errors.NewValueError("LSSVM.restore", fmt.Sprintf("%d inputs but %d outputs", len(inputs), len(outputs)))
	}
	for _, in := range inputs {
		if err := l.CheckDomain("LSSVM.restore", in); err != nil {
			return err
		}
	}
	for _, out := range outputs {
		if err := l.CheckCodomain("LSSVM.restore", out); err != nil {
			return err
		}
	}
	if alphas != nil {
		r, cc := alphas.Dims()
		if r > len(inputs) || cc != l.CodomainSize() {
			return errors.NewValueError("LSSVM.restore", fmt.Sprintf("alphas %dx%d do not match %d samples", r, cc, len(inputs)))
		}
		if err := l.CheckCodomain("LSSVM.restore", bias); err != nil {
			return err
		}
	}
	if err := l.kernel.SetGamma(gamma); err != nil {
		return err
	}
	if err := l.SetC(c); err != nil {
		return err
	}
	l.inputs = inputs
	l.outputs = outputs
	l.alphas = alphas
	l.bias = bias
	l.loo = nil
	l.staleWarned = false
	l.SetState(stateFor(len(inputs), alphas))
	return nil
}

type lssvmDoc struct {
	model.Dims `yaml:",inline"`

	C       float64     `yaml:"c"`
	Gamma   float64     `yaml:"gamma"`
	Bias    []float64   `yaml:"bias,omitempty"`
	Alphas  [][]float64 `yaml:"alphas,omitempty"`
	LOO     []float64   `yaml:"loo,omitempty"`
	Inputs  [][]float64 `yaml:"inputs,omitempty"`
	Outputs [][]float64 `yaml:"outputs,omitempty"`
}

// MarshalText は設定と全サンプル、学習結果を YAML で書く
func (l *LSSVM) MarshalText() ([]byte, error) {
	doc := lssvmDoc{
		Dims:    l.Dims(),
		C:       l.c,
		Gamma:   l.kernel.Gamma(),
		Bias:    model.VectorToSlice(l.bias),
		Alphas:  model.DenseToRows(l.alphas),
		LOO:     model.VectorToSlice(l.loo),
		Inputs:  vectorsToRows(l.inputs),
		Outputs: vectorsToRows(l.outputs),
	}
	return yaml.Marshal(&doc)
}

// UnmarshalText は MarshalText の出力を読む
func (l *LSSVM) UnmarshalText(text []byte) error {
	var doc lssvmDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "LSSVM: parse text")
	}
	if err := l.ApplyDims(doc.Dims, l); err != nil {
		return err
	}
	alphas, err := model.RowsToDense(doc.Alphas)
	if err != nil {
		return err
	}
	if err := l.restore(doc.Gamma, doc.C, model.SliceToVector(doc.Bias), alphas,
		rowsToVectors(doc.Inputs), rowsToVectors(doc.Outputs)); err != nil {
		return err
	}
	l.loo = model.SliceToVector(doc.LOO)
	return nil
}

func (l *LSSVM) logger() log.Logger {
	return log.GetLoggerWithName("learner.lssvm").With(log.ModelNameKey, l.Name())
}
