package framerate

import (
	"math"

	"github.com/banshee-data/stride.report/internal/config"
)

// Mode is the capture mode implied by a measured frame rate.
type Mode string

const (
	ModeUnknown     Mode = "unknown"
	ModeNormal      Mode = "normal"
	ModeSlowMotion  Mode = "slow_motion"
	ModeUnsupported Mode = "unsupported"
)

// Bands are the accepted frame-rate ranges.
type Bands struct {
	NormalFPS       float64
	NormalTolerance float64
	SlowMoFPS       float64
	SlowMoTolerance float64
	SlowMoFactor    float64
}

// BandsFrom reads the frame-rate bands from the tuning config.
func BandsFrom(cfg *config.TuningConfig) Bands {
	return Bands{
		NormalFPS:       cfg.GetNormalFPS(),
		NormalTolerance: cfg.GetNormalFPSTolerance(),
		SlowMoFPS:       cfg.GetSlowMoFPS(),
		SlowMoTolerance: cfg.GetSlowMoFPSTolerance(),
		SlowMoFactor:    cfg.GetSlowMoFactor(),
	}
}

// DefaultBands returns 30±6 fps normal and 240±20 fps slow motion at 8x.
func DefaultBands() Bands {
	return BandsFrom(config.EmptyTuningConfig())
}

// Classify maps fps to a capture mode and its slow-motion factor. The factor
// is 1 for normal capture and NaN when the mode is unknown or unsupported.
func (b Bands) Classify(fps float64) (Mode, float64) {
	switch {
	case math.IsNaN(fps) || math.IsInf(fps, 0):
		return ModeUnknown, math.NaN()
	case math.Abs(fps-b.NormalFPS) <= b.NormalTolerance:
		return ModeNormal, 1
	case math.Abs(fps-b.SlowMoFPS) <= b.SlowMoTolerance:
		return ModeSlowMotion, b.SlowMoFactor
	default:
		return ModeUnsupported, math.NaN()
	}
}

// Classify uses DefaultBands.
func Classify(fps float64) (Mode, float64) {
	return DefaultBands().Classify(fps)
}
