// Package direction infers which way the runner faces from landmark samples
// and keeps the per-frame votes used to validate that facing.
package direction

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/geom"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// DeadZone is the smallest |nose.x - hip.x| that counts as a facing signal.
const DeadZone = 0.015

// Sign returns +1 when the runner faces right, -1 when facing left and 0 when
// the nose is too close to the hip midpoint horizontally to tell.
func Sign(p *model.Pose) int {
	if p == nil {
		return 0
	}
	nose := p.At(model.Nose)
	hip := geom.Midpoint(p.At(model.LeftHip), p.At(model.RightHip))
	dx := nose.X - hip.X
	if math.IsNaN(dx) || math.IsInf(dx, 0) || math.Abs(dx) < DeadZone {
		return 0
	}
	if dx > 0 {
		return 1
	}
	return -1
}

// Estimate is Sign with an indeterminate result defaulting to rightward.
func Estimate(p *model.Pose) int {
	if s := Sign(p); s != 0 {
		return s
	}
	return 1
}

// Resolve applies the configured direction mode: "right" and "left" force
// the sign, anything else estimates it from the pose.
func Resolve(mode string, p *model.Pose) int {
	switch mode {
	case "right":
		return 1
	case "left":
		return -1
	default:
		return Estimate(p)
	}
}

// Votes counts per-frame facing signs over a run.
type Votes struct {
	Left  int
	Right int
}

// Add records one sign; zero is ignored.
func (v *Votes) Add(sign int) {
	switch {
	case sign > 0:
		v.Right++
	case sign < 0:
		v.Left++
	}
}

// Samples is the number of directional votes.
func (v Votes) Samples() int {
	return v.Left + v.Right
}

// FlipRatio is the minority share of votes, or 0 when only one direction
// was seen.
func (v Votes) FlipRatio() float64 {
	if v.Left == 0 || v.Right == 0 {
		return 0
	}
	return float64(min(v.Left, v.Right)) / float64(v.Samples())
}

// Majority returns +1 when rightward votes are at least as many as leftward
// ones, else -1.
func (v Votes) Majority() int {
	if v.Right >= v.Left {
		return 1
	}
	return -1
}
