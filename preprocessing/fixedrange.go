package preprocessing

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

// FixedRangeScaler は固定の入力区間を固定の出力区間へ線形に写す
type FixedRangeScaler struct {
	model.Base
	lowerIn, upperIn   float64
	lowerOut, upperOut float64
}

// NewFixedRangeScaler は [lowerIn, upperIn] を [lowerOut, upperOut] に写すスケーラを返す
func NewFixedRangeScaler(lowerIn, upperIn, lowerOut, upperOut float64) *FixedRangeScaler {
	return &FixedRangeScaler{
		Base:     model.NewBase("fixedrange"),
		lowerIn:  lowerIn,
		upperIn:  upperIn,
		lowerOut: lowerOut,
		upperOut: upperOut,
	}
}

func (s *FixedRangeScaler) Transform(x float64) float64 {
	span := s.upperIn - s.lowerIn
	if span == 0 {
		return (s.lowerOut + s.upperOut) / 2
	}
	return s.lowerOut + (x-s.lowerIn)/span*(s.upperOut-s.lowerOut)
}

func (s *FixedRangeScaler) Update(float64) {}
func (s *FixedRangeScaler) Reset()         {}

func (s *FixedRangeScaler) Clone() model.Scaler {
	cp := *s
	return &cp
}

// Configure は lowerin, upperin, lowerout, upperout を受け付ける
func (s *FixedRangeScaler) Configure(opts *config.Options) (bool, error) {
	applied := false
	for _, o := range []struct {
		key string
		dst *float64
	}{
		{"lowerin", &s.lowerIn},
		{"upperin", &s.upperIn},
		{"lowerout", &s.lowerOut},
		{"upperout", &s.upperOut},
	} {
		dst := o.dst
		if floatOption(opts, o.key, func(f float64) bool {
			if !finite(f) {
				return false
			}
			*dst = f
			return true
		}) {
			applied = true
		}
	}
	return applied, nil
}

func (s *FixedRangeScaler) Info() string {
	return fmt.Sprintf("Type: %s\nInput: [%g, %g] | Output: [%g, %g]\n",
		s.Name(), s.lowerIn, s.upperIn, s.lowerOut, s.upperOut)
}

func (s *FixedRangeScaler) ConfigHelp() string {
	return helpHeader(s.Name()) +
		"  lowerin val           Lower bound of the input range\n" +
		"  upperin val           Upper bound of the input range\n" +
		"  lowerout val          Lower bound of the output range\n" +
		"  upperout val          Upper bound of the output range\n"
}

func (s *FixedRangeScaler) EncodeWire(enc *wire.Encoder) error {
	encodeVersion(enc)
	enc.Float(s.lowerIn)
	enc.Float(s.upperIn)
	enc.Float(s.lowerOut)
	enc.Float(s.upperOut)
	return enc.Err()
}

func (s *FixedRangeScaler) DecodeWire(dec *wire.Decoder) error {
	if err := decodeVersion(dec); err != nil {
		return err
	}
	li, ui, lo, uo := dec.Float(), dec.Float(), dec.Float(), dec.Float()
	if err := dec.Err(); err != nil {
		return err
	}
	s.lowerIn, s.upperIn, s.lowerOut, s.upperOut = li, ui, lo, uo
	return nil
}

type fixedRangeDoc struct {
	LowerIn  float64 `yaml:"lower_in"`
	UpperIn  float64 `yaml:"upper_in"`
	LowerOut float64 `yaml:"lower_out"`
	UpperOut float64 `yaml:"upper_out"`
}

func (s *FixedRangeScaler) MarshalText() ([]byte, error) {
	return yaml.Marshal(&fixedRangeDoc{LowerIn: s.lowerIn, UpperIn: s.upperIn, LowerOut: s.lowerOut, UpperOut: s.upperOut})
}

func (s *FixedRangeScaler) UnmarshalText(text []byte) error {
	var doc fixedRangeDoc
	if err := yaml.Unmarshal(text, &doc); err != nil {
		return errors.Wrap(err, "fixedrange scaler: parse text")
	}
	s.lowerIn, s.upperIn, s.lowerOut, s.upperOut = doc.LowerIn, doc.UpperIn, doc.LowerOut, doc.UpperOut
	return nil
}
