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

// Normalizer は観測した最小値と最大値を [lower, upper] に写す。
// 観測範囲が 0 の間は区間の中点を返す
type Normalizer struct {
	model.Base

	lower  float64
	upper  float64
	update bool

	seen bool
	min  float64
	max  float64
}

// NewNormalizer は出力区間 [-1, 1] の Normalizer を返す
func NewNormalizer() *Normalizer {
	return &Normalizer{Base: model.NewBase("normalizer"), lower: -1, upper: 1, update: true}
}

// Fit は values の最小値と最大値で範囲を初期化する
func (s *Normalizer) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.NewModelError("Normalizer.Fit", "empty data", errors.ErrEmptyData)
	}
	s.Reset()
	for _, v := range values {
		s.Update(v)
	}
	return nil
}

func (s *Normalizer) Update(x float64) {
	if !s.seen {
		s.min, s.max, s.seen = x, x, true
		return
	}
	s.min = math.Min(s.min, x)
	s.max = math.Max(s.max, x)
}

// Range は観測した最小値と最大値を返す
func (s *Normalizer) Range() (float64, float64) { return s.min, s.max }

// Bounds は出力区間を返す
func (s *Normalizer) Bounds() (float64, float64) { return s.lower, s.upper }

func (s *Normalizer) Transform(x float64) float64 {
	if s.update {
		s.Update(x)
	}
	span := s.max - s.min
	if !s.seen || span == 0 {
		return (s.lower + s.upper) / 2
	}
	return s.lower + (x-s.min)/span*(s.upper-s.lower)
}

func (s *Normalizer) Reset() {
	s.seen = false
	s.min = 0
	s.max = 0
}

func (s *Normalizer) Clone() model.Scaler {
	cp := *s
	return &cp
}

// Configure は lower, upper, update を受け付ける。lower < upper を満たさない値は無視する
func (s *Normalizer) Configure(opts *config.Options) (bool, error) {
	lower, upper := s.lower, s.upper
	applied := floatOption(opts, "lower", func(f float64) bool {
		lower = f
		return true
	})
	if floatOption(opts, "upper", func(f float64) bool {
		upper = f
		return true
	}) {
		applied = true
	}
	if applied {
		if !finite(lower) || !finite(upper) || !(lower < upper) {
			return false, errors.NewValidationError("lower/upper", "lower must be below upper", fmt.Sprintf("[%g, %g]", lower, upper))
		}
		s.lower, s.upper = lower, upper
	}
	if boolOption(opts, "update", &s.update) {
		applied = true
	}
	return applied, nil
}

func (s *Normalizer) Info() string {
	return fmt.Sprintf("Type: %s\nMin: %g | Max: %g | Lower: %g | Upper: %g | Update: %s\n",
		s.Name(), s.min, s.max, s.lower, s.upper, onOff(s.update))
}

func (s *Normalizer) ConfigHelp() string {
	return helpHeader(s.Name()) +
		"  lower val             Lower bound of the output range\n" +
		"  upper val             Upper bound of the output range\n" +
		"  update on|off         Update the observed range on every transform\n"
}

type normalizerDoc struct {
	Lower  float64 `yaml:"lower"`
	Upper  float64 `yaml:"upper"`
	Update bool    `yaml:"update"`
	Seen   bool    `yaml:"seen"`
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
}

func (s *Normalizer) doc() normalizerDoc {
	return normalizerDoc{Lower: s.lower, Upper: s.upper, Update: s.update, Seen: s.seen, Min: s.min, Max: s.max}
}

func (s *Normalizer) apply(doc normalizerDoc) error {
	if !(doc.Lower < doc.Upper) || (doc.Seen && doc.Min > doc.Max) {
		return errors.Mark(errors.NewValueError("Normalizer", "invalid state"), errors.ErrMalformedFrame)
	}
	s.lower, s.upper, s.update = doc.Lower, doc.Upper, doc.Update
	s.seen, s.min, s.max = doc.Seen, doc.Min, doc.Max
	return nil
}

func (s *Normalizer) EncodeWire(enc *wire.Encoder) error {
	encodeVersion(enc)
	enc.Float(s.lower)
	enc.Float(s.upper)
	enc.Bool(s.update)
	enc.Bool(s.seen)
	enc.Float(s.min)
	enc.Float(s.max)
	return enc.Err()
}

func (s *Normalizer) DecodeWire(dec *wire.Decoder) error {
	if err := decodeVersion(dec); err != nil {
		return err
	}
	doc := normalizerDoc{
		Lower:  dec.Float(),
		Upper:  dec.Float(),
		Update: dec.Bool(),
		Seen:   dec.Bool(),
		Min:    dec.Float(),
		Max:    dec.Float(),
	}
	if err := dec.Err(); err != nil {
		return err
	}
	return s.apply(doc)
}

func (s *Normalizer) MarshalText() ([]byte, error) {
	doc := s.doc()
	return yaml.Marshal(&doc)
}

func (s *Normalizer) UnmarshalText(text []byte) error {
	var doc normalizerDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "normalizer: parse text")
	}
	return s.apply(doc)
}
