package learner

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
	"pgregory.net/rapid"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/registry"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/log"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

func vec(xs ...float64) *mat.VecDense {
	return mat.NewVecDense(len(xs), xs)
}

// identitySamples は [-1, 1]^2 上の 5x4 格子で output = input のサンプルを作る
func identitySamples() []model.Sample {
	var samples []model.Sample
	for _, x := range []float64{-1, -0.5, 0, 0.5, 1} {
		for _, y := range []float64{-1, -1.0 / 3, 1.0 / 3, 1} {
			samples = append(samples, model.Sample{Input: vec(x, y), Output: vec(x, y)})
		}
	}
	return samples
}

func trainedIdentityLSSVM(t *testing.T) *LSSVM {
	t.Helper()
	l := NewLSSVM(2, 2, 100)
	if _, err := l.Configure(config.MustParse("(gamma 1.0)")); err != nil {
		t.Fatal(err)
	}
	for _, s := range identitySamples() {
		if err := l.Feed(s.Input, s.Output); err != nil {
			t.Fatalf("Feed failed: %v", err)
		}
	}
	if err := l.Train(); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	return l
}

func TestLSSVMUntrainedPredictsZero(t *testing.T) {
	l := NewLSSVM(2, 2, 1)
	p, err := l.Predict(vec(0.1, 0.2))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if p.Len() != 2 || p.Mean().AtVec(0) != 0 || p.Mean().AtVec(1) != 0 {
		t.Errorf("untrained prediction = %v, want zero vector", p)
	}
	if l.State() != model.Empty {
		t.Errorf("state = %v, want empty", l.State())
	}
}

// 未学習の LSSVM は bias, alphas, LOO を持たない。説明、複製、両方の形式への書き出しが成功すること
func TestLSSVMUntrainedCodecs(t *testing.T) {
	l := NewLSSVM(2, 2, 1)

	info := l.Info()
	if !strings.Contains(info, "Training Samples: 0") || !strings.Contains(info, "LOO: []") {
		t.Errorf("Info() = %q", info)
	}

	c, ok := l.Clone().(*LSSVM)
	if !ok {
		t.Fatal("Clone did not return *LSSVM")
	}
	if c.Bias() != nil || c.Alphas() != nil || c.LOO() != nil {
		t.Error("clone of an untrained LSSVM should have no model state")
	}

	text, err := l.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	fromText := NewLSSVM(1, 1, 1)
	if err := fromText.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if fromText.Info() != info {
		t.Errorf("text round trip Info = %q, want %q", fromText.Info(), info)
	}

	var buf bytes.Buffer
	if err := l.EncodeWire(wire.NewEncoder(&buf)); err != nil {
		t.Fatalf("EncodeWire failed: %v", err)
	}
	fromWire := NewLSSVM(1, 1, 1)
	if err := fromWire.DecodeWire(wire.NewDecoder(&buf)); err != nil {
		t.Fatalf("DecodeWire failed: %v", err)
	}
	if fromWire.Info() != info {
		t.Errorf("wire round trip Info = %q, want %q", fromWire.Info(), info)
	}
	p, err := fromWire.Predict(vec(0.1, 0.2))
	if err != nil || p.Mean().AtVec(0) != 0 || p.Mean().AtVec(1) != 0 {
		t.Errorf("restored untrained Predict = %v, %v; want zero vector", p, err)
	}
}

func TestLSSVMCreateFromRegistry(t *testing.T) {
	reg := registry.New[model.Learner]("learner")
	reg.MustRegister(NewLSSVM(2, 2, 1))

	a, err := reg.Create("LSSVM")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := a.Feed(vec(1, 2), vec(1, 2)); err != nil {
		t.Fatal(err)
	}
	b, err := reg.Create("LSSVM")
	if err != nil {
		t.Fatal(err)
	}
	if b.(*LSSVM).SampleCount() != 0 {
		t.Error("second Create should not see samples fed to the first instance")
	}
}

func TestLSSVMTrainEmptyIsNoop(t *testing.T) {
	l := NewLSSVM(1, 1, 1)
	if err := l.Train(); err != nil {
		t.Errorf("Train on empty set failed: %v", err)
	}
	if l.Alphas() != nil {
		t.Error("alphas should stay empty")
	}
}

func TestLSSVMFitIdentity(t *testing.T) {
	l := trainedIdentityLSSVM(t)

	probes := []*mat.VecDense{vec(0.25, 0.1), vec(-0.3, 0.6), vec(0.7, -0.2)}
	for _, x := range probes {
		p, err := l.Predict(x)
		if err != nil {
			t.Fatal(err)
		}
		for d := 0; d < 2; d++ {
			diff := p.Mean().AtVec(d) - x.AtVec(d)
			if diff*diff >= 0.05 {
				t.Errorf("Predict(%v)[%d] = %v, squared error %v >= 0.05", x.RawVector().Data, d, p.Mean().AtVec(d), diff*diff)
			}
		}
	}

	if r, c := l.Alphas().Dims(); r != 20 || c != 2 {
		t.Errorf("alphas dims = %dx%d, want 20x2", r, c)
	}
	loo := l.LOO()
	if loo == nil || loo.Len() != 2 {
		t.Fatalf("LOO = %v", loo)
	}
	for d := 0; d < 2; d++ {
		if loo.AtVec(d) < 0 || math.IsNaN(loo.AtVec(d)) {
			t.Errorf("LOO[%d] = %v", d, loo.AtVec(d))
		}
	}
	if l.State() != model.Trained {
		t.Errorf("state = %v, want trained", l.State())
	}
}

func TestLSSVMDeterministic(t *testing.T) {
	a := trainedIdentityLSSVM(t)
	b := trainedIdentityLSSVM(t)
	if !mat.EqualApprox(a.Alphas(), b.Alphas(), 1e-9) {
		t.Error("alphas differ between identical trainings")
	}
	if !mat.EqualApprox(a.Bias(), b.Bias(), 1e-9) {
		t.Error("bias differs between identical trainings")
	}

	// 同じインスタンスで再学習しても同じ結果
	before := a.Alphas()
	if err := a.Train(); err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(before, a.Alphas(), 1e-9) {
		t.Error("retraining changed alphas")
	}
}

func TestLSSVMSingularMatrix(t *testing.T) {
	l := NewLSSVM(1, 1, math.MaxFloat64)
	for i := 0; i < 2; i++ {
		if err := l.Feed(vec(0.5), vec(1)); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Train(); !errors.Is(err, errors.ErrSingularMatrix) {
		t.Errorf("Train err = %v, want ErrSingularMatrix", err)
	}
}

func TestLSSVMStaleModelWarnsOnce(t *testing.T) {
	prev := log.CurrentProvider()
	defer log.SetProvider(prev)
	provider, _ := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(provider)

	l := trainedIdentityLSSVM(t)
	before, err := l.Predict(vec(0.2, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Feed(vec(0.2, 0.2), vec(5, 5)); err != nil {
		t.Fatal(err)
	}
	after, err := l.Predict(vec(0.2, 0.2))
	if err != nil {
		t.Fatal(err)
	}
	if !mat.EqualApprox(before.Mean(), after.Mean(), 1e-12) {
		t.Error("stale prediction should use the last trained model")
	}
	_, _ = l.Predict(vec(0.1, 0.1))

	entries, err := provider.Logger().GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	warnings := 0
	for _, e := range entries {
		if e["level"] == "WARN" {
			warnings++
		}
	}
	if warnings != 1 {
		t.Errorf("got %d stale warnings, want 1", warnings)
	}
	if !provider.Logger().ContainsMessage("trained on 20 of 21") {
		t.Error("warning should mention the sample counts")
	}
}

func TestLSSVMReset(t *testing.T) {
	l := trainedIdentityLSSVM(t)
	l.Reset()
	if l.SampleCount() != 0 || l.Alphas() != nil || l.LOO() != nil || l.Bias() != nil {
		t.Error("Reset should clear samples and model")
	}
	if l.C() != 100 || l.Kernel().Gamma() != 1 {
		t.Error("Reset should keep configuration")
	}
	p, _ := l.Predict(vec(1, 1))
	if p.Mean().AtVec(0) != 0 {
		t.Error("predict after Reset should be zero")
	}
}

func TestLSSVMConfigure(t *testing.T) {
	tests := []struct {
		name    string
		opts    string
		applied bool
		c       float64
		gamma   float64
	}{
		{"c", "(c 10)", true, 10, 1},
		{"negative c ignored", "(c -1)", false, 1, 1},
		{"zero c ignored", "(c 0)", false, 1, 1},
		{"gamma forwarded", "(gamma 0.5)", true, 1, 0.5},
		{"bad gamma ignored", "(gamma -2)", false, 1, 1},
		{"unknown", "(lambda 3)", false, 1, 1},
		{"string c", `(c "2.5")`, true, 2.5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLSSVM(1, 1, 1)
			applied, err := l.Configure(config.MustParse(tt.opts))
			if err != nil {
				t.Fatal(err)
			}
			if applied != tt.applied {
				t.Errorf("applied = %v, want %v", applied, tt.applied)
			}
			if l.C() != tt.c || l.Kernel().Gamma() != tt.gamma {
				t.Errorf("c = %v gamma = %v, want %v %v", l.C(), l.Kernel().Gamma(), tt.c, tt.gamma)
			}
		})
	}
}

func TestLSSVMCloneIsIndependent(t *testing.T) {
	l := trainedIdentityLSSVM(t)
	c := l.Clone().(*LSSVM)
	if err := c.Feed(vec(0, 0), vec(9, 9)); err != nil {
		t.Fatal(err)
	}
	if err := c.Train(); err != nil {
		t.Fatal(err)
	}
	if l.SampleCount() != 20 {
		t.Errorf("original sample count changed to %d", l.SampleCount())
	}
	if r, _ := l.Alphas().Dims(); r != 20 {
		t.Errorf("original alphas changed to %d rows", r)
	}
	if l.Info() == c.Info() {
		t.Error("clone and original should now differ")
	}
}

func TestLSSVMWireRoundTrip(t *testing.T) {
	src := trainedIdentityLSSVM(t)

	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	if err := src.EncodeWire(enc); err != nil {
		t.Fatal(err)
	}

	dst := NewLSSVM(1, 1, 1)
	if err := dst.DecodeWire(wire.NewDecoder(&buf)); err != nil {
		t.Fatalf("DecodeWire failed: %v", err)
	}
	if dst.DomainSize() != 2 || dst.CodomainSize() != 2 || dst.C() != 100 {
		t.Errorf("restored config mismatch: %s", dst.Info())
	}
	for _, x := range []*mat.VecDense{vec(0, 0), vec(0.3, -0.4), vec(-0.9, 0.9)} {
		want, _ := src.Predict(x)
		got, _ := dst.Predict(x)
		if !mat.EqualApprox(want.Mean(), got.Mean(), 1e-12) {
			t.Errorf("Predict(%v) = %v, want %v", x.RawVector().Data, got, want)
		}
	}
}

func TestLSSVMTextRoundTrip(t *testing.T) {
	src := trainedIdentityLSSVM(t)
	text, err := src.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	dst := NewLSSVM(1, 1, 1)
	if err := dst.UnmarshalText(text); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if dst.Info() != src.Info() {
		t.Errorf("Info mismatch:\n%s\nvs\n%s", dst.Info(), src.Info())
	}
	x := vec(0.45, -0.15)
	want, _ := src.Predict(x)
	got, _ := dst.Predict(x)
	if !mat.EqualApprox(want.Mean(), got.Mean(), 1e-12) {
		t.Errorf("Predict = %v, want %v", got, want)
	}
}

func TestLSSVMDecodeRejectsInconsistentPayload(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewEncoder(&buf)
	f := model.NewFixedSize("LSSVM", 1, 1)
	f.EncodeDims(enc)
	enc.Float(1) // gamma
	enc.Float(1) // C
	enc.Vector(nil)
	enc.Matrix(nil)
	enc.Vector(nil)
	enc.Int(1) // 入力 1 件
	enc.Vector(vec(0.5))
	enc.Int(0) // 出力 0 件

	l := NewLSSVM(1, 1, 1)
	if err := l.DecodeWire(wire.NewDecoder(&buf)); !errors.Is(err, errors.ErrMalformedFrame) {
		t.Errorf("err = %v, want ErrMalformedFrame", err)
	}
}

func TestLSSVMPredictionMatchesDualSolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "n")
		l := NewLSSVM(1, 1, 10)
		for i := 0; i < n; i++ {
			x := rapid.Float64Range(-2, 2).Draw(t, "x")
			y := rapid.Float64Range(-2, 2).Draw(t, "y")
			if err := l.Feed(vec(x), vec(y)); err != nil {
				t.Fatal(err)
			}
		}
		if err := l.Train(); err != nil {
			t.Fatal(err)
		}
		// 双対系の最終行: sum(alphas) = 0
		sum := 0.0
		alphas := l.Alphas()
		for i := 0; i < n; i++ {
			sum += alphas.At(i, 0)
		}
		if math.Abs(sum) > 1e-6 {
			t.Fatalf("sum of alphas = %v, want 0", sum)
		}
	})
}
