package report

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

var (
	leftRGBA  = color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}
	rightRGBA = color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}
)

const (
	plotWidth  = 12 * vg.Inch
	plotHeight = 5 * vg.Inch
)

func toXYs(pts []xy) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i] = plotter.XY{X: p.x, Y: p.y}
	}
	return out
}

// HeelPlot builds the heel-height plot of s: one line per leg with the
// detected contacts marked. Undetected samples are left out.
func HeelPlot(s *Series) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Heel height - %s", s.RunID)
	p.X.Label.Text = "Video time (s)"
	p.Y.Label.Text = "Heel y (larger is lower)"
	p.Add(plotter.NewGrid())

	legs := []struct {
		name  string
		heel  []float64
		peaks []int
		color color.Color
	}{
		{"left", s.LeftHeel, s.LeftPeaks, leftRGBA},
		{"right", s.RightHeel, s.RightPeaks, rightRGBA},
	}
	for _, leg := range legs {
		pts := points(s.T, leg.heel)
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(toXYs(pts))
		if err != nil {
			return nil, err
		}
		line.Color = leg.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(leg.name+" heel", line)

		peaks := peakPoints(s.T, leg.heel, leg.peaks)
		if len(peaks) == 0 {
			continue
		}
		marks, err := plotter.NewScatter(toXYs(peaks))
		if err != nil {
			return nil, err
		}
		marks.GlyphStyle.Color = leg.color
		marks.GlyphStyle.Radius = vg.Points(4)
		marks.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(marks)
		p.Legend.Add(leg.name+" contact", marks)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// WritePNG renders the heel-height plot of s to w.
func WritePNG(w io.Writer, s *Series) error {
	p, err := HeelPlot(s)
	if err != nil {
		return fmt.Errorf("failed to build heel plot: %w", err)
	}
	wt, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return fmt.Errorf("failed to render heel plot: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write heel plot: %w", err)
	}
	return nil
}

// SavePNG writes the heel-height plot of s to path, creating its directory.
func SavePNG(path string, s *Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	p, err := HeelPlot(s)
	if err != nil {
		return fmt.Errorf("failed to build heel plot: %w", err)
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return fmt.Errorf("save heel plot: %w", err)
	}
	return nil
}
