package main

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/learningmachine/pkg/errors"
)

// savePlot は出力次元 dim の予測値と真値の散布図を path に書く。
// 形式は拡張子 (.png, .svg, .pdf) で決まる
func savePlot(truth, pred []*mat.VecDense, dim int, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Prediction vs truth (output %d)", dim+1)
	p.X.Label.Text = "truth"
	p.Y.Label.Text = "prediction"

	pts := make(plotter.XYs, len(truth))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range truth {
		pts[i].X = truth[i].AtVec(dim)
		pts[i].Y = pred[i].AtVec(dim)
		lo = math.Min(lo, math.Min(pts[i].X, pts[i].Y))
		hi = math.Max(hi, math.Max(pts[i].X, pts[i].Y))
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "plot: scatter")
	}
	s.GlyphStyle.Radius = vg.Points(2)

	ideal, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "plot: line")
	}
	ideal.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(s, ideal)
	p.Legend.Add("samples", s)
	p.Legend.Add("y = x", ideal)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.NewIOError("save plot", path, err)
	}
	return nil
}
