package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// dataset は CSV から読んだサンプル列
type dataset struct {
	inputs  []*mat.VecDense
	outputs []*mat.VecDense
}

func (d *dataset) Len() int { return len(d.inputs) }

// readCSV は各行が dom 個の入力と cod 個の出力からなる CSV を読む。
// '#' で始まる行と空行は無視する
func readCSV(path string, dom, cod int) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("read data", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	ds := &dataset{}
	for line := 1; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewIOError("read data", path, err)
		}
		if len(rec) != dom+cod {
			return nil, errors.NewDimensionError("readCSV", dom+cod, len(rec), 1)
		}
		values := make([]float64, len(rec))
		for i, field := range rec {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, errors.NewValidationError("data", "line "+strconv.Itoa(line)+": not a number", field)
			}
			values[i] = v
		}
		ds.inputs = append(ds.inputs, mat.NewVecDense(dom, values[:dom]))
		ds.outputs = append(ds.outputs, mat.NewVecDense(cod, values[dom:]))
	}
	if ds.Len() == 0 {
		return nil, errors.NewModelError("readCSV", "empty data", errors.ErrEmptyData)
	}
	return ds, nil
}
