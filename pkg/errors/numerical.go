package errors

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxReportedValues は NumericalInstabilityError に含める値の上限
const maxReportedValues = 10

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CheckScalar は v が NaN または Inf なら NumericalInstabilityError を返す
func CheckScalar(operation string, v float64, samples int) error {
	if finite(v) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{v}, samples)
}

// CheckVector は v の全成分が有限かを調べる。nil は常に成功
func CheckVector(operation string, v mat.Vector, samples int) error {
	if vd, ok := v.(*mat.VecDense); v == nil || (ok && vd == nil) {
		return nil
	}
	var bad []float64
	for i := 0; i < v.Len() && len(bad) < maxReportedValues; i++ {
		if x := v.AtVec(i); !finite(x) {
			bad = append(bad, x)
		}
	}
	if len(bad) > 0 {
		return NewNumericalInstabilityError(operation, bad, samples)
	}
	return nil
}

// CheckMatrix は m の全成分が有限かを調べる。最初に見つかった行の値だけを報告する
func CheckMatrix(operation string, m mat.Matrix, samples int) error {
	if d, ok := m.(*mat.Dense); m == nil || (ok && d == nil) {
		return nil
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		var bad []float64
		for j := 0; j < c && len(bad) < maxReportedValues; j++ {
			if x := m.At(i, j); !finite(x) {
				bad = append(bad, x)
			}
		}
		if len(bad) > 0 {
			return NewNumericalInstabilityError(operation, bad, samples)
		}
	}
	return nil
}
