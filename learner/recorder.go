package learner

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// Recorder は Feed されたサンプルをテキストファイルに一行ずつ追記する。
// 行は入力成分、出力成分の順に空白区切り。予測は常にゼロベクトル
type Recorder struct {
	model.FixedSize

	filename  string
	precision int
	samples   int
}

// NewRecorder は filename に記録する Recorder を返す
func NewRecorder(filename string) *Recorder {
	if filename == "" {
		filename = "dataset.dat"
	}
	return &Recorder{
		FixedSize: model.NewFixedSize("Recorder", 1, 1),
		filename:  filename,
		precision: 8,
	}
}

func (r *Recorder) Filename() string { return r.filename }

func (r *Recorder) Feed(input, output mat.Vector) error {
	if err := r.CheckSample("Recorder.Feed", input, output); err != nil {
		return err
	}
	f, err := os.OpenFile(r.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.NewIOError("Recorder.Feed", r.filename, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	w.WriteString(r.formatLine(input, output))
	w.WriteByte('\n')
	if err := w.Flush(); err != nil {
		return errors.NewIOError("Recorder.Feed", r.filename, err)
	}
	r.samples++
	r.SetState(model.Collecting)
	return nil
}

func (r *Recorder) formatLine(input, output mat.Vector) string {
	parts := make([]string, 0, input.Len()+output.Len())
	for i := 0; i < input.Len(); i++ {
		parts = append(parts, strconv.FormatFloat(input.AtVec(i), 'g', r.precision, 64))
	}
	for i := 0; i < output.Len(); i++ {
		parts = append(parts, strconv.FormatFloat(output.AtVec(i), 'g', r.precision, 64))
	}
	return strings.Join(parts, " ")
}

func (r *Recorder) Train() error { return nil }

func (r *Recorder) Predict(input mat.Vector) (model.Prediction, error) {
	if err := r.CheckDomain("Recorder.Predict", input); err != nil {
		return model.Prediction{}, err
	}
	return model.NewPrediction(model.Zeros(r.CodomainSize())), nil
}

// Reset はカウンタを戻す。ファイルは消さない
func (r *Recorder) Reset() {
	r.samples = 0
	r.ResetState()
}

func (r *Recorder) Clone() model.Learner {
	cp := *r
	return &cp
}

func (r *Recorder) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Type: %s\n", r.Name())
	b.WriteString(r.DimsInfo())
	fmt.Fprintf(&b, "Filename: %s | Precision: %d | Samples: %d\n", r.filename, r.precision, r.samples)
	return b.String()
}

func (r *Recorder) ConfigHelp() string {
	return configHelpHeader(r.Name()) + r.DimsHelp() +
		"  filename file         Output filename\n" +
		"  precision val         Number of significant digits\n"
}

func (r *Recorder) Configure(opts *config.Options) (bool, error) {
	applied, err := r.ConfigureDims(opts, r)
	if err != nil {
		return applied, err
	}
	if v, ok := opts.Find("filename"); ok {
		if name := v.AsString(); name != "" {
			r.filename = name
			applied = true
		}
	}
	if v, ok := opts.Find("precision"); ok {
		if p, ok := v.AsInt(); ok && p > 0 {
			r.precision = p
			applied = true
		}
	}
	return applied, nil
}

func (r *Recorder) EncodeWire(enc *wire.Encoder) error {
	r.EncodeDims(enc)
	enc.String(r.filename)
	enc.Int(r.precision)
	enc.Int(r.samples)
	return enc.Err()
}

func (r *Recorder) DecodeWire(dec *wire.Decoder) error {
	if err := r.DecodeDims(dec, r); err != nil {
		return err
	}
	filename := dec.String()
	precision := dec.Int()
	samples := dec.Count()
	if err := dec.Err(); err != nil {
		return err
	}
	return r.restore(filename, precision, samples)
}

func (r *Recorder) restore(filename string, precision, samples int) error {
	if filename == "" || precision < 1 || samples < 0 {
		return errors.Mark(errors.NewValueError("Recorder.restore", "invalid recorder state"), errors.ErrMalformedFrame)
	}
	r.filename, r.precision, r.samples = filename, precision, samples
	if samples > 0 {
		r.SetState(model.Collecting)
	}
	return nil
}

type recorderDoc struct {
	model.Dims `yaml:",inline"`

	Filename  string `yaml:"filename"`
	Precision int    `yaml:"precision"`
	Samples   int    `yaml:"samples"`
}

func (r *Recorder) MarshalText() ([]byte, error) {
	return yaml.Marshal(&recorderDoc{Dims: r.Dims(), Filename: r.filename, Precision: r.precision, Samples: r.samples})
}

func (r *Recorder) UnmarshalText(text []byte) error {
	var doc recorderDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "Recorder: parse text")
	}
	if err := r.ApplyDims(doc.Dims, r); err != nil {
		return err
	}
	return r.restore(doc.Filename, doc.Precision, doc.Samples)
}
