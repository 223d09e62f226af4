package learner

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/core/model"
	"github.com/YuminosukeSato/learningmachine/pkg/wire"
)

func configHelpHeader(name string) string {
	return fmt.Sprintf("Configuration options for %s:\n", name)
}

func formatVector(v mat.Vector) string {
	if model.IsNilVector(v) {
		return "[]"
	}
	parts := make([]string, v.Len())
	for i := range parts {
		parts[i] = fmt.Sprintf("%.6g", v.AtVec(i))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func copyVectors(vs []*mat.VecDense) []*mat.VecDense {
	if vs == nil {
		return nil
	}
	out := make([]*mat.VecDense, len(vs))
	for i, v := range vs {
		out[i] = mat.VecDenseCopyOf(v)
	}
	return out
}

func writeVectors(enc *wire.Encoder, vs []*mat.VecDense) {
	enc.Int(len(vs))
	for _, v := range vs {
		enc.Vector(v)
	}
}

func readVectors(dec *wire.Decoder) []*mat.VecDense {
	n := dec.Count()
	if dec.Err() != nil || n == 0 {
		return nil
	}
	out := make([]*mat.VecDense, 0, n)
	for i := 0; i < n; i++ {
		v := dec.Vector()
		if dec.Err() != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}

func vectorsToRows(vs []*mat.VecDense) [][]float64 {
	if len(vs) == 0 {
		return nil
	}
	rows := make([][]float64, len(vs))
	for i, v := range vs {
		rows[i] = model.VectorToSlice(v)
	}
	return rows
}

func rowsToVectors(rows [][]float64) []*mat.VecDense {
	if len(rows) == 0 {
		return nil
	}
	out := make([]*mat.VecDense, len(rows))
	for i, r := range rows {
		out[i] = model.SliceToVector(r)
	}
	return out
}

// stateFor はサンプル数と alphas から状態を決める
func stateFor(samples int, alphas *mat.Dense) model.State {
	if samples == 0 {
		return model.Empty
	}
	if alphas != nil {
		if r, _ := alphas.Dims(); r == samples {
			return model.Trained
		}
	}
	return model.Collecting
}
