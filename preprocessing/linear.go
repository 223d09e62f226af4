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

// LinearScaler は y = (x - offset) * gain を返す
type LinearScaler struct {
	model.Base
	offset float64
	gain   float64
}

// NewLinearScaler は offset と gain を持つスケーラを返す
func NewLinearScaler(offset, gain float64) *LinearScaler {
	return &LinearScaler{Base: model.NewBase("linear"), offset: offset, gain: gain}
}

func (s *LinearScaler) Offset() float64 { return s.offset }
func (s *LinearScaler) Gain() float64   { return s.gain }

func (s *LinearScaler) Transform(x float64) float64 { return (x - s.offset) * s.gain }
func (s *LinearScaler) Update(float64)              {}
func (s *LinearScaler) Reset()                      {}

func (s *LinearScaler) Clone() model.Scaler {
	cp := *s
	return &cp
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Configure は offset と gain を受け付ける
func (s *LinearScaler) Configure(opts *config.Options) (bool, error) {
	applied := floatOption(opts, "offset", func(f float64) bool {
		if !finite(f) {
			return false
		}
		s.offset = f
		return true
	})
	if floatOption(opts, "gain", func(f float64) bool {
		if !finite(f) {
			return false
		}
		s.gain = f
		return true
	}) {
		applied = true
	}
	return applied, nil
}

func (s *LinearScaler) Info() string {
	return fmt.Sprintf("Type: %s\nOffset: %g | Gain: %g\n", s.Name(), s.offset, s.gain)
}

func (s *LinearScaler) ConfigHelp() string {
	return helpHeader(s.Name()) +
		"  offset val            Offset subtracted before scaling\n" +
		"  gain val              Multiplicative gain\n"
}

func (s *LinearScaler) EncodeWire(enc *wire.Encoder) error {
	encodeVersion(enc)
	enc.Float(s.offset)
	enc.Float(s.gain)
	return enc.Err()
}

func (s *LinearScaler) DecodeWire(dec *wire.Decoder) error {
	if err := decodeVersion(dec); err != nil {
		return err
	}
	offset, gain := dec.Float(), dec.Float()
	if err := dec.Err(); err != nil {
		return err
	}
	s.offset, s.gain = offset, gain
	return nil
}

type linearDoc struct {
	Offset float64 `yaml:"offset"`
	Gain   float64 `yaml:"gain"`
}

func (s *LinearScaler) MarshalText() ([]byte, error) {
	return yaml.Marshal(&linearDoc{Offset: s.offset, Gain: s.gain})
}

func (s *LinearScaler) UnmarshalText(text []byte) error {
	var doc linearDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "linear scaler: parse text")
	}
	s.offset, s.gain = doc.Offset, doc.Gain
	return nil
}
