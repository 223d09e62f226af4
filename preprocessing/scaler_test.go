package preprocessing

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

func allScalers() []model.Scaler {
	return []model.Scaler{
		NewNullScaler(),
		NewLinearScaler(1, 2),
		NewStandardizer(),
		NewNormalizer(),
		NewFixedRangeScaler(0, 10, -1, 1),
	}
}

func TestNullScaler(t *testing.T) {
	s := NewNullScaler()
	assert.Equal(t, "null", s.Name())
	assert.Equal(t, 3.5, s.Transform(3.5))

	applied, err := s.Configure(config.MustParse("(gain 2)"))
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLinearScaler(t *testing.T) {
	s := NewLinearScaler(0, 1)

	applied, err := s.Configure(config.MustParse("(offset 1) (gain 2.5)"))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.InDelta(t, 5.0, s.Transform(3), 1e-12) // (3-1)*2.5
	assert.Contains(t, s.Info(), "Offset: 1 | Gain: 2.5")

	applied, err = s.Configure(config.MustParse("(gain abc)"))
	require.NoError(t, err)
	assert.False(t, applied, "non-numeric gain must be ignored")
	assert.Equal(t, 2.5, s.Gain())
}

func TestStandardizer(t *testing.T) {
	t.Run("Fit", func(t *testing.T) {
		s := NewStandardizer()
		require.NoError(t, s.Fit([]float64{1, 2, 3, 4, 5}))
		assert.InDelta(t, 3.0, s.Mean(), 1e-12)
		assert.InDelta(t, math.Sqrt(2), s.Std(), 1e-12)

		_, err := s.Configure(config.MustParse("(update off)"))
		require.NoError(t, err)
		assert.InDelta(t, 0.0, s.Transform(3), 1e-12)
		assert.InDelta(t, 2/math.Sqrt(2), s.Transform(5), 1e-12)
	})

	t.Run("EmptyFit", func(t *testing.T) {
		err := NewStandardizer().Fit(nil)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("RunningUpdate", func(t *testing.T) {
		s := NewStandardizer()
		for _, v := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
			s.Transform(v)
		}
		assert.InDelta(t, 5.0, s.Mean(), 1e-12)
		assert.InDelta(t, 2.0, s.Std(), 1e-12)
	})

	t.Run("ConstantInput", func(t *testing.T) {
		s := NewStandardizer()
		require.NoError(t, s.Fit([]float64{3, 3, 3}))
		_, err := s.Configure(config.MustParse("(update off) (mean 10)"))
		require.NoError(t, err)
		assert.Equal(t, 10.0, s.Transform(3))
	})

	t.Run("InvalidStd", func(t *testing.T) {
		s := NewStandardizer()
		applied, err := s.Configure(config.MustParse("(std -1)"))
		require.NoError(t, err)
		assert.False(t, applied)
	})
}

func TestNormalizer(t *testing.T) {
	s := NewNormalizer()
	assert.Equal(t, 0.0, s.Transform(5), "single observation maps to the midpoint")

	require.NoError(t, s.Fit([]float64{0, 10}))
	_, err := s.Configure(config.MustParse("(update off)"))
	require.NoError(t, err)
	assert.InDelta(t, -1.0, s.Transform(0), 1e-12)
	assert.InDelta(t, 0.0, s.Transform(5), 1e-12)
	assert.InDelta(t, 1.0, s.Transform(10), 1e-12)

	applied, err := s.Configure(config.MustParse("(lower 0) (upper 100)"))
	require.NoError(t, err)
	assert.True(t, applied)
	assert.InDelta(t, 25.0, s.Transform(2.5), 1e-12)

	var verr *errors.ValidationError
	_, err = s.Configure(config.MustParse("(lower 5) (upper 1)"))
	require.True(t, errors.As(err, &verr), "err = %v", err)
	lower, upper := s.Bounds()
	assert.Equal(t, [2]float64{0, 100}, [2]float64{lower, upper})
}

func TestFixedRangeScaler(t *testing.T) {
	s := NewFixedRangeScaler(0, 1, 0, 1)
	_, err := s.Configure(config.MustParse("(lowerin -2) (upperin 2) (lowerout 0) (upperout 8)"))
	require.NoError(t, err)
	assert.InDelta(t, 6.0, s.Transform(1), 1e-12)
	assert.InDelta(t, 0.0, s.Transform(-2), 1e-12)

	flat := NewFixedRangeScaler(1, 1, 0, 4)
	assert.Equal(t, 2.0, flat.Transform(7))
}

func TestScalerCodecs(t *testing.T) {
	for _, s := range allScalers() {
		s := s
		t.Run(s.Name(), func(t *testing.T) {
			for _, v := range []float64{-3, 0.5, 8} {
				s.Transform(v)
			}

			var buf bytes.Buffer
			require.NoError(t, s.EncodeWire(wire.NewEncoder(&buf)))
			fromWire := s.Clone()
			fromWire.Reset()
			require.NoError(t, fromWire.DecodeWire(wire.NewDecoder(&buf)))
			assert.Equal(t, s.Info(), fromWire.Info())

			text, err := s.MarshalText()
			require.NoError(t, err)
			fromText := s.Clone()
			fromText.Reset()
			require.NoError(t, fromText.UnmarshalText(text))
			assert.Equal(t, s.Info(), fromText.Info())
		})
	}
}

func TestScalerVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	enc.Int(model.SchemaVersion + 1)
	require.NoError(t, enc.Err())

	err := NewLinearScaler(0, 1).DecodeWire(wire.NewDecoder(&buf))
	assert.True(t, errors.Is(err, errors.ErrVersionMismatch), "err = %v", err)
}

func TestScalerCloneIndependent(t *testing.T) {
	s := NewStandardizer()
	require.NoError(t, s.Fit([]float64{1, 2, 3}))
	cp := s.Clone().(*Standardizer)
	cp.Update(100)
	assert.InDelta(t, 2.0, s.Mean(), 1e-12)
	assert.NotEqual(t, s.Mean(), cp.Mean())
}

// 出力区間に収まる性質
func TestNormalizerBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Float64Range(-1e6, 1e6), 1, 50).Draw(t, "values")
		s := NewNormalizer()
		for _, v := range values {
			y := s.Transform(v)
			if y < -1-1e-9 || y > 1+1e-9 {
				t.Fatalf("Transform(%g) = %g outside [-1, 1]", v, y)
			}
		}
	})
}
