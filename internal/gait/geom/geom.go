// Package geom holds the 2D vector, angle and robust-statistics helpers used
// by the gait pipeline. All functions are pure.
package geom

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

// Midpoint returns the point halfway between a and b, scored with the lower
// of the two scores.
func Midpoint(a, b model.Landmark) model.Landmark {
	return model.Landmark{
		X:     (a.X + b.X) / 2,
		Y:     (a.Y + b.Y) / 2,
		Score: math.Min(a.Score, b.Score),
	}
}

// Dist2D is the Euclidean distance between a and b.
func Dist2D(a, b model.Landmark) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// AngleDeg returns the angle ABC at vertex b in degrees, in [0, 180].
// It is NaN when either ray has zero length.
func AngleDeg(a, b, c model.Landmark) float64 {
	abx, aby := a.X-b.X, a.Y-b.Y
	cbx, cby := c.X-b.X, c.Y-b.Y

	ab := math.Hypot(abx, aby)
	cb := math.Hypot(cbx, cby)
	if ab == 0 || cb == 0 {
		return math.NaN()
	}

	cos := (abx*cbx + aby*cby) / (ab * cb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// Finite returns the finite values of xs in their original order.
func Finite(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			out = append(out, x)
		}
	}
	return out
}

// Percentile linearly interpolates between the closest ranks of the finite
// values in xs. p is a fraction in [0, 1]. NaN when nothing is finite.
func Percentile(xs []float64, p float64) float64 {
	sorted := Finite(xs)
	if len(sorted) == 0 {
		return math.NaN()
	}
	sort.Float64s(sorted)

	idx := float64(len(sorted)-1) * math.Max(0, math.Min(1, p))
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(idx-float64(lo))
}

// Median is Percentile(xs, 0.5).
func Median(xs []float64) float64 {
	return Percentile(xs, 0.5)
}

// Mean averages the finite values of xs. NaN when nothing is finite.
func Mean(xs []float64) float64 {
	finite := Finite(xs)
	if len(finite) == 0 {
		return math.NaN()
	}
	return stat.Mean(finite, nil)
}

// Clamp01 limits x to [0, 1]. NaN passes through.
func Clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return x
	}
	return math.Max(0, math.Min(1, x))
}
