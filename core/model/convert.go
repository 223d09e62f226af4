package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// IsNilVector は v が nil か、nil の *mat.VecDense を包んだインターフェースなら true を返す
func IsNilVector(v mat.Vector) bool {
	switch t := v.(type) {
	case nil:
		return true
	case *mat.VecDense:
		return t == nil
	}
	return false
}

// IsNilMatrix は m が nil か、nil の gonum 行列を包んだインターフェースなら true を返す
func IsNilMatrix(m mat.Matrix) bool {
	switch t := m.(type) {
	case nil:
		return true
	case *mat.Dense:
		return t == nil
	case *mat.VecDense:
		return t == nil
	case *mat.SymDense:
		return t == nil
	}
	return false
}

// VectorToSlice は v の成分をコピーしたスライスを返す。nil は nil
func VectorToSlice(v mat.Vector) []float64 {
	if IsNilVector(v) || v.Len() == 0 {
		return nil
	}
	out := make([]float64, v.Len())
	for i := range out {
		out[i] = v.AtVec(i)
	}
	return out
}

// SliceToVector は s をコピーしたベクトルを返す。空なら nil
func SliceToVector(s []float64) *mat.VecDense {
	if len(s) == 0 {
		return nil
	}
	return mat.NewVecDense(len(s), append([]float64(nil), s...))
}

// CopyVector は v の独立したコピーを返す
func CopyVector(v mat.Vector) *mat.VecDense {
	if IsNilVector(v) || v.Len() == 0 {
		return nil
	}
	return mat.VecDenseCopyOf(v)
}

// CopyDense は m の独立したコピーを返す
func CopyDense(m *mat.Dense) *mat.Dense {
	if m == nil {
		return nil
	}
	return mat.DenseCopyOf(m)
}

// DenseToRows は m を行のスライスに変換する
func DenseToRows(m *mat.Dense) [][]float64 {
	if m == nil {
		return nil
	}
	r, _ := m.Dims()
	rows := make([][]float64, r)
	for i := range rows {
		rows[i] = mat.Row(nil, i, m)
	}
	return rows
}

// RowsToDense は行のスライスから行列を作る。行の長さが揃っていなければエラー
func RowsToDense(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	c := len(rows[0])
	if c == 0 {
		return nil, errors.NewValueError("RowsToDense", "empty row")
	}
	data := make([]float64, 0, len(rows)*c)
	for i, row := range rows {
		if len(row) != c {
			return nil, errors.NewValueError("RowsToDense", fmt.Sprintf("row %d has %d columns, want %d", i, len(row), c))
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), c, data), nil
}

// Zeros は長さ n のゼロベクトルを返す
func Zeros(n int) *mat.VecDense {
	return mat.NewVecDense(n, nil)
}
