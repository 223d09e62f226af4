// Package learningmachine provides online and batch regression learners,
// vector transformers and per-dimension scalers for Go, together with a
// self-describing binary wire format that can carry any registered
// implementation across a process or network boundary.
//
// Every learner, transformer and scaler is registered by name in a
// prototype registry. A Portable wraps one instance and writes it as a
// frame holding the registered name and the instance payload, so a
// receiver that only knows the name can rebuild the right concrete type.
//
// # Installation
//
//	go get github.com/YuminosukeSato/learningmachine
//
// # Quick Start
//
// Train an LSSVM with an RBF kernel and ship it over a byte stream:
//
//	package main
//
//	import (
//	    "bytes"
//	    "fmt"
//
//	    "github.com/YuminosukeSato/learningmachine/catalogue"
//	    "github.com/YuminosukeSato/learningmachine/core/portable"
//	    "github.com/YuminosukeSato/learningmachine/pkg/config"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    cat := catalogue.Default()
//	    p, _ := portable.NewNamed(cat.Learners, "LSSVM")
//	    l, _ := p.Wrapped()
//	    l.Configure(config.MustParse("(c 100) (gamma 2)"))
//
//	    for i := 0; i < 20; i++ {
//	        x := float64(i) / 10
//	        l.Feed(mat.NewVecDense(1, []float64{x}), mat.NewVecDense(1, []float64{x * x}))
//	    }
//	    l.Train()
//
//	    var buf bytes.Buffer
//	    p.Write(&buf)
//
//	    q := portable.New(cat.Learners)
//	    q.Read(&buf)
//	    r, _ := q.Wrapped()
//	    pred, _ := r.Predict(mat.NewVecDense(1, []float64{0.5}))
//	    fmt.Println(pred)
//	}
//
// # Packages
//
//   - core/model: Learner, Transformer and Scaler interfaces, fixed-size base, streaming helpers
//   - core/registry: name-keyed prototype registry
//   - core/portable: wire and file wrapper for registered instances
//   - core/parallel: range partitioning across CPU cores
//   - learner: Dummy, RLS, LinearGPR, LSSVM and Recorder
//   - transform: Scaler (per-dimension pipeline), RandomFeature and SparseSpectrumFeature
//   - preprocessing: null, linear, standardizer, normalizer and fixedrange scalers
//   - catalogue: registries pre-populated with every implementation above
//   - metrics: MSE, RMSE, MAE, R² and per-dimension MSE
//   - store: snapshot store backed by memory (go-cache) or SQLite
//   - pkg/config: option lists such as "(dom 2) (c 10)"
//   - pkg/wire: tagged binary element codec
//   - pkg/errors, pkg/log: error taxonomy and structured logging
//   - cmd/lmctl: command line tool for training, inspecting and predicting
//
// # License
//
// learningmachine is released under the MIT License.
package learningmachine
