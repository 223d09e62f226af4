package learner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/config"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// RBFKernel は exp(-gamma * ||x1 - x2||^2) を計算する
type RBFKernel struct {
	gamma float64
}

// NewRBFKernel は gamma を持つカーネルを返す。gamma <= 0 なら 1 を使う
func NewRBFKernel(gamma float64) *RBFKernel {
	k := &RBFKernel{gamma: 1}
	_ = k.SetGamma(gamma)
	return k
}

// Evaluate はカーネル値を返す。a と b は同じ長さであること
func (k *RBFKernel) Evaluate(a, b mat.Vector) float64 {
	sum := 0.0
	for i := 0; i < a.Len(); i++ {
		d := a.AtVec(i) - b.AtVec(i)
		sum += d * d
	}
	return math.Exp(-k.gamma * sum)
}

func (k *RBFKernel) Gamma() float64 { return k.gamma }

// SetGamma は gamma を設定する。正でなければ ValidationError
func (k *RBFKernel) SetGamma(g float64) error {
	if !(g > 0) || math.IsInf(g, 0) {
		return errors.NewValidationError("gamma", "must be positive", g)
	}
	k.gamma = g
	return nil
}

// Configure は gamma を解釈する。正でない値は無視する
func (k *RBFKernel) Configure(opts *config.Options) bool {
	v, ok := opts.Find("gamma")
	if !ok {
		return false
	}
	g, ok := v.AsFloat()
	if !ok {
		return false
	}
	return k.SetGamma(g) == nil
}

func (k *RBFKernel) Clone() *RBFKernel {
	return &RBFKernel{gamma: k.gamma}
}

func (k *RBFKernel) Info() string {
	return fmt.Sprintf("RBF (gamma: %g)", k.gamma)
}

func (k *RBFKernel) ConfigHelp() string {
	return "  gamma val             RBF gamma parameter\n"
}
