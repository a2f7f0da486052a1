// Package summary applies the validity gates of an analysis run and reduces
// per-contact metrics to run-level statistics.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/gait/direction"
	"github.com/banshee-data/stride.report/internal/gait/framerate"
	"github.com/banshee-data/stride.report/internal/gait/geom"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// Gates holds the thresholds checked in order during a run. Each check
// returns nil when the run may continue.
type Gates struct {
	MinLongEdge         int
	MinShortEdge        int
	MinDurationSec      float64
	MinDetectedFrames   int
	MinDetectionRatio   float64
	MinDirectionSamples int
	MaxFlipRatio        float64
	MinContacts         int
	Bands               framerate.Bands
}

// GatesFrom reads gate thresholds from the tuning config.
func GatesFrom(cfg *config.TuningConfig) Gates {
	return Gates{
		MinLongEdge:         cfg.GetMinLongEdge(),
		MinShortEdge:        cfg.GetMinShortEdge(),
		MinDurationSec:      cfg.GetMinDurationSec(),
		MinDetectedFrames:   cfg.GetMinDetectedFrames(),
		MinDetectionRatio:   cfg.GetMinDetectionRatio(),
		MinDirectionSamples: cfg.GetMinDirectionSamples(),
		MaxFlipRatio:        cfg.GetMaxDirectionFlipRatio(),
		MinContacts:         cfg.GetMinContacts(),
		Bands:               framerate.BandsFrom(cfg),
	}
}

// CheckResolution rejects footage whose long or short edge is below the
// minimum. Orientation does not matter.
func (g Gates) CheckResolution(width, height int) *model.Issue {
	if max(width, height) < g.MinLongEdge || min(width, height) < g.MinShortEdge {
		return &model.Issue{
			Kind:         model.IssueResolutionLow,
			Width:        width,
			Height:       height,
			MinLongEdge:  g.MinLongEdge,
			MinShortEdge: g.MinShortEdge,
		}
	}
	return nil
}

// CheckFrameRate classifies fps and checks the real-time duration it
// implies. It returns the slow-motion factor when the run may continue.
func (g Gates) CheckFrameRate(fps, durationSec float64) (float64, *model.Issue) {
	mode, factor := g.Bands.Classify(fps)
	switch mode {
	case framerate.ModeUnknown:
		return math.NaN(), &model.Issue{Kind: model.IssueFPSUnknown}
	case framerate.ModeUnsupported:
		return math.NaN(), &model.Issue{Kind: model.IssueFPSUnsupported, FPS: model.Float(fps)}
	}

	realSec := durationSec / factor
	if realSec < g.MinDurationSec {
		return factor, &model.Issue{
			Kind:             model.IssueVideoTooShort,
			VideoDurationSec: durationSec,
			RealDurationSec:  realSec,
			MinDurationSec:   g.MinDurationSec,
		}
	}
	return factor, nil
}

// CheckDetection requires enough frames with a detected runner.
func (g Gates) CheckDetection(detected, total int) *model.Issue {
	if detected == 0 {
		return &model.Issue{Kind: model.IssueNoRunner, TotalFrames: total}
	}
	ratio := 0.0
	if total > 0 {
		ratio = float64(detected) / float64(total)
	}
	if detected < g.MinDetectedFrames || ratio < g.MinDetectionRatio {
		return &model.Issue{
			Kind:           model.IssueLowDetection,
			DetectedFrames: detected,
			TotalFrames:    total,
			DetectionRatio: ratio,
		}
	}
	return nil
}

// CheckDirection requires enough directional votes and a consistent facing.
func (g Gates) CheckDirection(v direction.Votes) *model.Issue {
	if v.Samples() < g.MinDirectionSamples {
		return &model.Issue{Kind: model.IssueDirectionUnclear, DirectionLeft: v.Left, DirectionRight: v.Right}
	}
	if flip := v.FlipRatio(); flip > g.MaxFlipRatio {
		return &model.Issue{
			Kind:           model.IssueDirectionInconsistent,
			DirectionLeft:  v.Left,
			DirectionRight: v.Right,
			FlipRatio:      flip,
		}
	}
	return nil
}

// CheckContacts requires enough measured contacts over both legs.
func (g Gates) CheckContacts(left, right int) *model.Issue {
	if left+right < g.MinContacts {
		return &model.Issue{Kind: model.IssueFewStrides, LeftContacts: left, RightContacts: right}
	}
	return nil
}

// Merge returns the contacts of both legs ordered by time. Ties keep left
// before right.
func Merge(left, right []model.ContactMetric) []model.ContactMetric {
	all := make([]model.ContactMetric, 0, len(left)+len(right))
	all = append(all, left...)
	all = append(all, right...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].T < all[j].T })
	return all
}

// Aggregate reduces the time-ordered contacts of a run. Medians ignore NaN
// values; the heel-strike rate is over contacts with a known strike and NaN
// when there are none.
func Aggregate(all []model.ContactMetric) model.Summary {
	n := len(all)
	overstride := make([]float64, n)
	knee := make([]float64, n)
	trunk := make([]float64, n)
	retract := make([]float64, n)
	heel := make([]float64, 0, n)
	for i, m := range all {
		overstride[i] = float64(m.OverstrideRatio)
		knee[i] = float64(m.KneeAngle)
		trunk[i] = float64(m.TrunkLeanDeg)
		retract[i] = float64(m.RetractSpeed)
		switch m.Strike {
		case model.StrikeHeel:
			heel = append(heel, 1)
		case model.StrikeMidfoot, model.StrikeForefoot:
			heel = append(heel, 0)
		}
	}

	rate := math.NaN()
	if len(heel) > 0 {
		rate = float64(floats.Count(func(x float64) bool { return x == 1 }, heel)) / float64(len(heel))
	}

	return model.Summary{
		OverstrideRatioMedian: model.Float(geom.Median(overstride)),
		KneeAngleMedian:       model.Float(geom.Median(knee)),
		TrunkLeanMedian:       model.Float(geom.Median(trunk)),
		HeelStrikeRate:        model.Float(rate),
		RetractSpeedMedian:    model.Float(geom.Median(retract)),
		ContactCount:          n,
	}
}
