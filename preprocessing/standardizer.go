package preprocessing

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// minStd 未満の標準偏差は 1 として扱う（ゼロ除算を避ける）
const minStd = 1e-8

// Standardizer は値を平均0、標準偏差1に変換する。
// update が有効なら Transform のたびに平均と分散を逐次更新する (Welford 法)
type Standardizer struct {
	model.Base

	// 目標の平均と標準偏差
	desiredMean float64
	desiredStd  float64
	update      bool

	count int
	mean  float64
	m2    float64
}

// NewStandardizer は統計の逐次更新が有効な Standardizer を返す
func NewStandardizer() *Standardizer {
	return &Standardizer{Base: model.NewBase("standardizer"), desiredStd: 1, update: true}
}

// Fit は values から平均と分散を計算し直す
//
// パラメータ:
//   - values: 学習に使う値
//
// 戻り値:
//   - error: values が空なら ErrEmptyData
func (s *Standardizer) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.NewModelError("Standardizer.Fit", "empty data", errors.ErrEmptyData)
	}
	s.Reset()
	for _, v := range values {
		s.Update(v)
	}
	return nil
}

// Update は Welford 法で平均と分散を更新する
func (s *Standardizer) Update(x float64) {
	s.count++
	d := x - s.mean
	s.mean += d / float64(s.count)
	s.m2 += d * (x - s.mean)
}

// Mean は観測した平均を返す
func (s *Standardizer) Mean() float64 { return s.mean }

// Std は観測した母標準偏差を返す
func (s *Standardizer) Std() float64 {
	if s.count == 0 {
		return 0
	}
	return math.Sqrt(s.m2 / float64(s.count))
}

func (s *Standardizer) Transform(x float64) float64 {
	if s.update {
		s.Update(x)
	}
	std := s.Std()
	if std < minStd {
		std = 1
	}
	return (x-s.mean)/std*s.desiredStd + s.desiredMean
}

func (s *Standardizer) Reset() {
	s.count = 0
	s.mean = 0
	s.m2 = 0
}

func (s *Standardizer) Clone() model.Scaler {
	cp := *s
	return &cp
}

// Configure は mean, std (変換後の目標値) と update を受け付ける
func (s *Standardizer) Configure(opts *config.Options) (bool, error) {
	applied := floatOption(opts, "mean", func(f float64) bool {
		if !finite(f) {
			return false
		}
		s.desiredMean = f
		return true
	})
	if floatOption(opts, "std", func(f float64) bool {
		if !(f > 0) || !finite(f) {
			return false
		}
		s.desiredStd = f
		return true
	}) {
		applied = true
	}
	if boolOption(opts, "update", &s.update) {
		applied = true
	}
	return applied, nil
}

func (s *Standardizer) Info() string {
	return fmt.Sprintf("Type: %s\nMean: %g | Std: %g | Samples: %d | Desired mean: %g | Desired std: %g | Update: %s\n",
		s.Name(), s.mean, s.Std(), s.count, s.desiredMean, s.desiredStd, onOff(s.update))
}

func (s *Standardizer) ConfigHelp() string {
	return helpHeader(s.Name()) +
		"  mean val              Desired mean\n" +
		"  std val               Desired standard deviation\n" +
		"  update on|off         Update statistics on every transform\n"
}

func (s *Standardizer) EncodeWire(enc *wire.Encoder) error {
	encodeVersion(enc)
	enc.Float(s.desiredMean)
	enc.Float(s.desiredStd)
	enc.Bool(s.update)
	enc.Int(s.count)
	enc.Float(s.mean)
	enc.Float(s.m2)
	return enc.Err()
}

func (s *Standardizer) DecodeWire(dec *wire.Decoder) error {
	if err := decodeVersion(dec); err != nil {
		return err
	}
	doc := standardizerDoc{
		DesiredMean: dec.Float(),
		DesiredStd:  dec.Float(),
		Update:      dec.Bool(),
		Count:       dec.Count(),
		Mean:        dec.Float(),
		M2:          dec.Float(),
	}
	if err := dec.Err(); err != nil {
		return err
	}
	return s.apply(doc)
}

type standardizerDoc struct {
	DesiredMean float64 `yaml:"desired_mean"`
	DesiredStd  float64 `yaml:"desired_std"`
	Update      bool    `yaml:"update"`
	Count       int     `yaml:"count"`
	Mean        float64 `yaml:"mean"`
	M2          float64 `yaml:"m2"`
}

func (s *Standardizer) apply(doc standardizerDoc) error {
	if !(doc.DesiredStd > 0) || doc.Count < 0 || doc.M2 < 0 {
		return errors.Mark(errors.NewValueError("Standardizer", "invalid state"), errors.ErrMalformedFrame)
	}
	s.desiredMean, s.desiredStd, s.update = doc.DesiredMean, doc.DesiredStd, doc.Update
	s.count, s.mean, s.m2 = doc.Count, doc.Mean, doc.M2
	return nil
}

func (s *Standardizer) MarshalText() ([]byte, error) {
	return yaml.Marshal(&standardizerDoc{
		DesiredMean: s.desiredMean,
		DesiredStd:  s.desiredStd,
		Update:      s.update,
		Count:       s.count,
		Mean:        s.mean,
		M2:          s.m2,
	})
}

func (s *Standardizer) UnmarshalText(text []byte) error {
	var doc standardizerDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "standardizer: parse text")
	}
	return s.apply(doc)
}
