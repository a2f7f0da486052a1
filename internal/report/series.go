// Package report renders the heel-height series and per-contact metrics of
// a run as an interactive HTML page and as a PNG plot.
package report

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/contact"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// Series is what the charts draw for one run. Heel values are normalised
// image y (larger is lower) and NaN where no pose was detected.
type Series struct {
	RunID      string
	Source     string
	T          []float64
	LeftHeel   []float64
	RightHeel  []float64
	LeftPeaks  []int
	RightPeaks []int
	Contacts   []model.ContactMetric
}

// NewSeries extracts the heel series of both legs from sampled frames.
func NewSeries(runID, source string, frames []model.FrameRecord, leftPeaks, rightPeaks []int, contacts []model.ContactMetric) *Series {
	return &Series{
		RunID:      runID,
		Source:     source,
		T:          contact.Times(frames),
		LeftHeel:   contact.HeelSeries(frames, model.LegLeft),
		RightHeel:  contact.HeelSeries(frames, model.LegRight),
		LeftPeaks:  leftPeaks,
		RightPeaks: rightPeaks,
		Contacts:   contacts,
	}
}

// xy is one drawable point.
type xy struct{ x, y float64 }

// points pairs t with y, dropping samples that cannot be drawn.
func points(t, y []float64) []xy {
	n := min(len(t), len(y))
	out := make([]xy, 0, n)
	for i := 0; i < n; i++ {
		if finite(t[i]) && finite(y[i]) {
			out = append(out, xy{t[i], y[i]})
		}
	}
	return out
}

// peakPoints returns the drawable points at the given indices.
func peakPoints(t, y []float64, peaks []int) []xy {
	out := make([]xy, 0, len(peaks))
	for _, i := range peaks {
		if i < 0 || i >= len(t) || i >= len(y) {
			continue
		}
		if finite(t[i]) && finite(y[i]) {
			out = append(out, xy{t[i], y[i]})
		}
	}
	return out
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
