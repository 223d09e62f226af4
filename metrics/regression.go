// Package metrics は回帰の評価指標を提供します。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// check は長さを検証して要素数を返す
func check(op string, yTrue, yPred mat.Vector) (int, error) {
	if model.IsNilVector(yTrue) || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if model.IsNilVector(yPred) || yPred.Len() != n {
		got := 0
		if !model.IsNilVector(yPred) {
			got = yPred.Len()
		}
		return 0, errors.NewDimensionError(op, n, got, 0)
	}
	return n, nil
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
func MSE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := check("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	// MSE = (1/n) * Σ(yTrue - yPred)²
	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}
	return sum / float64(n), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred mat.Vector) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred mat.Vector) (float64, error) {
	n, err := check("MAE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(yTrue.AtVec(i) - yPred.AtVec(i))
	}
	return sum / float64(n), nil
}

// R2Score は決定係数（R²）を計算する
func R2Score(yTrue, yPred mat.Vector) (float64, error) {
	n, err := check("R2Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var yMean float64
	for i := 0; i < n; i++ {
		yMean += yTrue.AtVec(i)
	}
	yMean /= float64(n)

	// 全変動（TSS）と残差変動（RSS）
	var tss, rss float64
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i), yPred.AtVec(i)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}

	// すべての yTrue が同じ値
	if tss == 0 {
		return 0, errors.Newf("R2Score: total sum of squares is zero (no variance in yTrue)")
	}
	return 1 - rss/tss, nil
}

// MSEPerDim はサンプル列 truth と pred から出力次元ごとの MSE を計算する。
// 全サンプルは同じ次元でなければならない
func MSEPerDim(truth, pred []*mat.VecDense) (*mat.VecDense, error) {
	if len(truth) == 0 {
		return nil, errors.NewModelError("MSEPerDim", "empty data", errors.ErrEmptyData)
	}
	if len(pred) != len(truth) {
		return nil, errors.NewDimensionError("MSEPerDim", len(truth), len(pred), 0)
	}
	dim := truth[0].Len()
	sum := make([]float64, dim)
	for i := range truth {
		if truth[i].Len() != dim {
			return nil, errors.NewDimensionError("MSEPerDim", dim, truth[i].Len(), 1)
		}
		if pred[i] == nil || pred[i].Len() != dim {
			got := 0
			if pred[i] != nil {
				got = pred[i].Len()
			}
			return nil, errors.NewDimensionError("MSEPerDim", dim, got, 1)
		}
		for k := 0; k < dim; k++ {
			d := truth[i].AtVec(k) - pred[i].AtVec(k)
			sum[k] += d * d
		}
	}
	out := mat.NewVecDense(dim, sum)
	out.ScaleVec(1/float64(len(truth)), out)
	return out, nil
}
