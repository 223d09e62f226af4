package model

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Prediction は予測結果。平均と、学習器によっては出力ごとの分散を持つ
type Prediction struct {
	mean     *mat.VecDense
	variance *mat.VecDense
}

// NewPrediction は平均のみの予測を作る
func NewPrediction(mean *mat.VecDense) Prediction {
	return Prediction{mean: mean}
}

// NewPredictionWithVariance は分散付きの予測を作る
func NewPredictionWithVariance(mean, variance *mat.VecDense) Prediction {
	return Prediction{mean: mean, variance: variance}
}

// Mean は予測平均を返す
func (p Prediction) Mean() *mat.VecDense { return p.mean }

// Variance は分散を返す。HasVariance が false なら nil
func (p Prediction) Variance() *mat.VecDense { return p.variance }

func (p Prediction) HasVariance() bool { return p.variance != nil }

// Len は出力次元を返す
func (p Prediction) Len() int {
	if p.mean == nil {
		return 0
	}
	return p.mean.Len()
}

func (p Prediction) String() string {
	var b strings.Builder
	b.WriteString("mean: ")
	b.WriteString(formatVec(p.mean))
	if p.HasVariance() {
		b.WriteString(" variance: ")
		b.WriteString(formatVec(p.variance))
	}
	return b.String()
}

func formatVec(v *mat.VecDense) string {
	if v == nil {
		return "[]"
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprintf("%.6g", v.AtVec(i))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
