// Package contact finds initial foot contacts as local maxima of the heel
// height series. Larger y is closer to the ground, so contacts are peaks.
package contact

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/geom"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// CandidatePercentile is the heel-y percentile a sample must reach to be a
// contact candidate.
const CandidatePercentile = 0.80

// FindPeaks returns the indices of contact peaks in y. A peak is strictly
// above its predecessor, not below its successor, at or above the 80th
// percentile of y, and at least minStepSec after the previously accepted
// peak. Samples next to a non-finite value are skipped.
func FindPeaks(y, t []float64, minStepSec float64) []int {
	thr := geom.Percentile(y, CandidatePercentile)
	if math.IsNaN(thr) {
		return nil
	}

	var peaks []int
	last := math.Inf(-1)
	for i := 1; i < len(y)-1 && i < len(t); i++ {
		y0, y1, y2, ti := y[i-1], y[i], y[i+1], t[i]
		if !finite(y0) || !finite(y1) || !finite(y2) || !finite(ti) {
			continue
		}
		if y1 < thr {
			continue
		}
		if y1 > y0 && y1 >= y2 && ti-last >= minStepSec {
			peaks = append(peaks, i)
			last = ti
		}
	}
	return peaks
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// HeelPart returns the heel landmark for leg.
func HeelPart(leg model.Leg) model.BodyPart {
	if leg == model.LegLeft {
		return model.LeftHeel
	}
	return model.RightHeel
}

// HeelSeries returns the heel y of leg for every frame, NaN where the frame
// has no pose.
func HeelSeries(frames []model.FrameRecord, leg model.Leg) []float64 {
	part := HeelPart(leg)
	out := make([]float64, len(frames))
	for i, f := range frames {
		if f.Landmarks == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = f.Landmarks.At(part).Y
	}
	return out
}

// Times returns the sample time of every frame.
func Times(frames []model.FrameRecord) []float64 {
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = f.T
	}
	return out
}

// Detect runs FindPeaks on the heel series of leg.
func Detect(frames []model.FrameRecord, leg model.Leg, minStepSec float64) []int {
	return FindPeaks(HeelSeries(frames, leg), Times(frames), minStepSec)
}
