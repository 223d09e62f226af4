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

// Dummy は何も学習しない学習器。サンプル数だけを数え、
// 入力を出力次元に切り詰めるか 0 で埋めたものを予測として返す
type Dummy struct {
	model.FixedSize

	samples int
	trained int
}

// NewDummy は次元 dom, cod の Dummy を返す
func NewDummy(dom, cod int) *Dummy {
	d := &Dummy{FixedSize: model.NewFixedSize("Dummy", 1, 1)}
	_ = d.SetDomainSize(dom)
	_ = d.SetCodomainSize(cod)
	return d
}

func (d *Dummy) Feed(input, output mat.Vector) error {
	if err := d.CheckSample("Dummy.Feed", input, output); err != nil {
		return err
	}
	d.samples++
	d.SetState(model.Collecting)
	return nil
}

func (d *Dummy) Train() error {
	d.trained = d.samples
	if d.samples > 0 {
		d.SetState(model.Trained)
	}
	return nil
}

func (d *Dummy) Predict(input mat.Vector) (model.Prediction, error) {
	if err := d.CheckDomain("Dummy.Predict", input); err != nil {
		return model.Prediction{}, err
	}
	cod := d.CodomainSize()
	out := mat.NewVecDense(cod, nil)
	for i := 0; i < cod && i < input.Len(); i++ {
		out.SetVec(i, input.AtVec(i))
	}
	return model.NewPrediction(out), nil
}

func (d *Dummy) Reset() {
	d.samples = 0
	d.trained = 0
	d.ResetState()
}

func (d *Dummy) Clone() model.Learner {
	cp := *d
	return &cp
}

// Samples は Feed された数を返す
func (d *Dummy) Samples() int { return d.samples }

func (d *Dummy) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", d.Name())
	b.WriteString(d.DimsInfo())
	fmt.Fprintf(&b, "Collected Samples: %d | Training Samples: %d\n", d.samples, d.trained)
	return b.String()
}

func (d *Dummy) ConfigHelp() string {
	return configHelpHeader(d.Name()) + d.DimsHelp()
}

func (d *Dummy) Configure(opts *config.Options) (bool, error) {
	return d.ConfigureDims(opts, d)
}

func (d *Dummy) EncodeWire(enc *wire.Encoder) error {
	d.EncodeDims(enc)
	enc.Int(d.samples)
	enc.Int(d.trained)
	return enc.Err()
}

func (d *Dummy) DecodeWire(dec *wire.Decoder) error {
	if err := d.DecodeDims(dec, d); err != nil {
		return err
	}
	samples := dec.Count()
	trained := dec.Count()
	if err := dec.Err(); err != nil {
		return err
	}
	return d.restore(samples, trained)
}

func (d *Dummy) restore(samples, trained int) error {
	if trained > samples || samples < 0 || trained < 0 {
		return errors.Mark(errors.NewValueError("Dummy.restore", "inconsistent sample counts"), errors.ErrMalformedFrame)
	}
	d.samples, d.trained = samples, trained
	switch {
	case samples == 0:
		d.SetState(model.Empty)
	case trained == samples:
		d.SetState(model.Trained)
	default:
		d.SetState(model.Collecting)
	}
	return nil
}

type dummyDoc struct {
	model.Dims `yaml:",inline"`

	Samples int `yaml:"samples"`
	Trained int `yaml:"trained"`
}

func (d *Dummy) MarshalText() ([]byte, error) {
	return yaml.Marshal(&dummyDoc{Dims: d.Dims(), Samples: d.samples, Trained: d.trained})
}

func (d *Dummy) UnmarshalText(text []byte) error {
	var doc dummyDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "Dummy: parse text")
	}
	if err := d.ApplyDims(doc.Dims, d); err != nil {
		return err
	}
	return d.restore(doc.Samples, doc.Trained)
}
