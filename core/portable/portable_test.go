package portable_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
	"pgregory.net/rapid"

	"github.com/YuminosukeSato/learningmachine/catalogue"
	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/core/portable"
	"github.com/YuminosukeSato/learningmachine/learner"
	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

func trainedLSSVM(t *testing.T) *learner.LSSVM {
	t.Helper()
	l := learner.NewLSSVM(1, 1, 10)
	for i := 0; i < 10; i++ {
		x := float64(i) / 10
		if err := l.Feed(mat.NewVecDense(1, []float64{x}), mat.NewVecDense(1, []float64{x * x})); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Train(); err != nil {
		t.Fatal(err)
	}
	return l
}

func predict(t *testing.T, l model.Learner, x float64) float64 {
	t.Helper()
	p, err := l.Predict(mat.NewVecDense(1, []float64{x}))
	if err != nil {
		t.Fatal(err)
	}
	return p.Mean().AtVec(0)
}

func TestWireRoundTrip(t *testing.T) {
	reg := catalogue.Learners()
	src := portable.Wrap[model.Learner](reg, trainedLSSVM(t))

	var buf bytes.Buffer
	if !src.Write(&buf) {
		t.Fatal("Write returned false")
	}

	dst := portable.New(reg)
	if !dst.Read(&buf) {
		t.Fatal("Read returned false")
	}
	got, err := dst.Wrapped()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := src.Wrapped()
	if got.Name() != "LSSVM" {
		t.Errorf("Name = %q", got.Name())
	}
	for _, x := range []float64{0.05, 0.33, 0.71, 0.95} {
		if a, b := predict(t, want, x), predict(t, got, x); a != b {
			t.Errorf("predict(%g) = %g after round trip, want %g", x, b, a)
		}
	}
	if got.Info() != want.Info() {
		t.Errorf("Info changed:\n%s\nwant:\n%s", got.Info(), want.Info())
	}
}

func TestConsecutiveFrames(t *testing.T) {
	reg := catalogue.Learners()
	var buf bytes.Buffer
	for _, name := range []string{"Dummy", "RLS", "LinearGPR"} {
		p, err := portable.NewNamed(reg, name)
		if err != nil {
			t.Fatal(err)
		}
		if !p.Write(&buf) {
			t.Fatalf("Write %s failed", name)
		}
	}

	p := portable.New(reg)
	for _, name := range []string{"Dummy", "RLS", "LinearGPR"} {
		if !p.Read(&buf) {
			t.Fatalf("Read %s failed", name)
		}
		w, _ := p.Wrapped()
		if w.Name() != name {
			t.Errorf("read %s, want %s", w.Name(), name)
		}
	}
	if p.Read(&buf) {
		t.Error("Read on an exhausted stream should fail")
	}
}

func TestWriteEmpty(t *testing.T) {
	p := portable.New(catalogue.Learners())
	var buf bytes.Buffer
	if p.Write(&buf) {
		t.Error("Write without a wrapped instance should return false")
	}
	if buf.Len() != 0 {
		t.Errorf("Write without a wrapped instance wrote %d bytes", buf.Len())
	}
	if _, err := p.Wrapped(); !errors.Is(err, errors.ErrNoWrapped) {
		t.Errorf("Wrapped() err = %v", err)
	}
}

func TestReadRejectsMalformedFrames(t *testing.T) {
	frame := func(build func(enc *wire.Encoder)) []byte {
		var buf bytes.Buffer
		build(wire.NewEncoder(&buf))
		return buf.Bytes()
	}
	valid := frame(func(enc *wire.Encoder) {
		enc.Header(portable.FrameElements)
		enc.String("Dummy")
		_ = learner.NewDummy(1, 1).EncodeWire(enc)
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad tag", frame(func(enc *wire.Encoder) {
			enc.Int(2)
			enc.String("Dummy")
		})},
		{"bad count", frame(func(enc *wire.Encoder) {
			enc.Header(3)
			enc.String("Dummy")
		})},
		{"name not a string", frame(func(enc *wire.Encoder) {
			enc.Header(2)
			enc.Int(7)
		})},
		{"unknown name", frame(func(enc *wire.Encoder) {
			enc.Header(2)
			enc.String("NoSuchLearner")
		})},
		{"truncated payload", valid[:len(valid)-3]},
		{"version mismatch", frame(func(enc *wire.Encoder) {
			enc.Header(2)
			enc.String("Dummy")
			enc.Int(model.SchemaVersion + 1)
			enc.Int(1)
			enc.Int(1)
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := catalogue.Learners()
			p, _ := portable.NewNamed(reg, "RLS")
			before, _ := p.Wrapped()

			if p.Read(bytes.NewReader(tt.data)) {
				t.Fatal("Read accepted a malformed frame")
			}
			after, err := p.Wrapped()
			if err != nil || after != before {
				t.Error("a failed Read must keep the current instance")
			}
		})
	}
}

func TestReadNilSource(t *testing.T) {
	p := portable.New(catalogue.Learners())
	if p.Read(nil) {
		t.Error("Read(nil) should return false")
	}
}

func TestSetWrappedReturnsPrevious(t *testing.T) {
	reg := catalogue.Learners()
	p, _ := portable.NewNamed(reg, "Dummy")
	first, _ := p.Wrapped()

	prev := p.SetWrapped(learner.NewRLS(1, 1, 1))
	if prev != first {
		t.Error("SetWrapped should return the previous instance")
	}
	if err := p.SetWrappedByName("Unknown"); !errors.Is(err, errors.ErrUnknownKey) {
		t.Errorf("SetWrappedByName err = %v", err)
	}
	w, _ := p.Wrapped()
	if w.Name() != "RLS" {
		t.Errorf("failed SetWrappedByName replaced the instance with %s", w.Name())
	}
	p.Clear()
	if p.HasWrapped() {
		t.Error("Clear should release the instance")
	}
}

func TestCloneIsDeep(t *testing.T) {
	reg := catalogue.Learners()
	p := portable.Wrap[model.Learner](reg, trainedLSSVM(t))
	c := p.Clone()

	orig, _ := p.Wrapped()
	cp, _ := c.Wrapped()
	if orig == cp {
		t.Fatal("Clone shares the wrapped instance")
	}
	before := predict(t, orig, 0.5)
	cp.Reset()
	if got := predict(t, orig, 0.5); got != before {
		t.Errorf("resetting the clone changed the original: %g -> %g", before, got)
	}

	empty := portable.New(reg)
	empty.CopyFrom(portable.New(reg))
	if empty.HasWrapped() {
		t.Error("copying an empty wrapper should stay empty")
	}
}

func TestFileRoundTrip(t *testing.T) {
	reg := catalogue.Learners()
	p := portable.Wrap[model.Learner](reg, trainedLSSVM(t))
	path := filepath.Join(t.TempDir(), "model.txt")
	if err := p.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("LSSVM\n")) {
		t.Errorf("file should start with the registered name, got %q", data[:min(len(data), 20)])
	}

	q := portable.New(reg)
	if err := q.ReadFile(path); err != nil {
		t.Fatal(err)
	}
	want, _ := p.Wrapped()
	got, _ := q.Wrapped()
	if got.Info() != want.Info() {
		t.Errorf("Info changed:\n%s\nwant:\n%s", got.Info(), want.Info())
	}
	if a, b := predict(t, want, 0.42), predict(t, got, 0.42); a != b {
		t.Errorf("predict after file round trip = %g, want %g", b, a)
	}
}

func TestFileErrors(t *testing.T) {
	reg := catalogue.Learners()
	dir := t.TempDir()

	var ioErr *errors.IOError
	if err := portable.New(reg).ReadFile(filepath.Join(dir, "missing.txt")); !errors.As(err, &ioErr) {
		t.Errorf("ReadFile missing: err = %v", err)
	}
	if err := portable.New(reg).WriteFile(filepath.Join(dir, "empty.txt")); !errors.Is(err, errors.ErrNoWrapped) {
		t.Errorf("WriteFile empty: err = %v", err)
	}
	p, _ := portable.NewNamed(reg, "Dummy")
	if err := p.WriteFile(filepath.Join(dir, "no-such-dir", "m.txt")); !errors.As(err, &ioErr) {
		t.Errorf("WriteFile into missing dir: err = %v", err)
	}

	blank := filepath.Join(dir, "blank.txt")
	if err := os.WriteFile(blank, []byte("\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := portable.New(reg).ReadFile(blank); !errors.Is(err, errors.ErrMalformedFrame) {
		t.Errorf("ReadFile without name line: err = %v", err)
	}
}

func TestTransformerPortable(t *testing.T) {
	c := catalogue.Default()
	p, err := portable.NewNamed(c.Transformers, "Scaler")
	if err != nil {
		t.Fatal(err)
	}
	w, _ := p.Wrapped()
	if _, err := w.Configure(config.MustParse("(dom 2) (type (linear normalizer)) (config 1 gain 3)")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if !p.Write(&buf) {
		t.Fatal("Write failed")
	}
	q := portable.New(c.Transformers)
	if !q.Read(&buf) {
		t.Fatal("Read failed")
	}
	got, _ := q.Wrapped()
	out, err := got.Transform(mat.NewVecDense(2, []float64{2, 0}))
	if err != nil {
		t.Fatal(err)
	}
	if out.AtVec(0) != 6 {
		t.Errorf("linear slot = %g, want 6", out.AtVec(0))
	}
}

// 任意のバイト列でパニックせず、失敗時は状態を変えない
func TestReadArbitraryBytes(t *testing.T) {
	reg := catalogue.Learners()
	rapid.Check(t, func(t *rapid.T) {
		data := rapid.SliceOfN(rapid.Byte(), 0, 256).Draw(t, "data")
		p, _ := portable.NewNamed(reg, "Dummy")
		before, _ := p.Wrapped()
		if !p.Read(bytes.NewReader(data)) {
			after, _ := p.Wrapped()
			if after != before {
				t.Fatal("failed Read replaced the instance")
			}
		}
	})
}
