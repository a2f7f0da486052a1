// Package metrics measures overstride, knee angle, trunk lean, foot strike
// and leg retraction at each detected contact.
package metrics

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/geom"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

// StrikeThreshold is the heel-minus-toe height difference, in normalised
// units, that separates heel and forefoot strikes from midfoot.
const StrikeThreshold = 0.012

// RetractWindowSec is the real-time window over which retraction speed is
// measured before contact.
const RetractWindowSec = 0.12

type legParts struct {
	knee, ankle, heel, toe model.BodyPart
}

func partsFor(leg model.Leg) legParts {
	if leg == model.LegLeft {
		return legParts{model.LeftKnee, model.LeftAnkle, model.LeftHeel, model.LeftFootIndex}
	}
	return legParts{model.RightKnee, model.RightAnkle, model.RightHeel, model.RightFootIndex}
}

// ClassifyFootStrike compares heel and toe height at contact.
func ClassifyFootStrike(heel, toe model.Landmark) model.Strike {
	dy := heel.Y - toe.Y
	switch {
	case math.IsNaN(dy) || math.IsInf(dy, 0):
		return model.StrikeUnknown
	case dy > StrikeThreshold:
		return model.StrikeHeel
	case dy < -StrikeThreshold:
		return model.StrikeForefoot
	default:
		return model.StrikeMidfoot
	}
}

func hipMid(p *model.Pose) model.Landmark {
	return geom.Midpoint(p.At(model.LeftHip), p.At(model.RightHip))
}

// Compute measures every contact index of leg in frames. dir is +1 for a
// runner moving right and -1 for left. timeScale is the slow-motion factor
// (1 for real-time footage). Contacts on frames without a pose are skipped.
func Compute(frames []model.FrameRecord, contacts []int, leg model.Leg, dir int, timeScale float64) []model.ContactMetric {
	parts := partsFor(leg)
	d := float64(dir)
	out := make([]model.ContactMetric, 0, len(contacts))

	for _, i := range contacts {
		if i < 0 || i >= len(frames) || frames[i].Landmarks == nil {
			continue
		}
		f := frames[i]
		L := f.Landmarks

		hip := hipMid(L)
		shoulder := geom.Midpoint(L.At(model.LeftShoulder), L.At(model.RightShoulder))
		knee := L.At(parts.knee)
		ankle := L.At(parts.ankle)

		legLen := geom.Dist2D(hip, knee) + geom.Dist2D(knee, ankle)
		overstride := (ankle.X - hip.X) * d
		ratio := math.NaN()
		if legLen > 0 {
			ratio = overstride / legLen
		}

		lean := math.NaN()
		dx := (shoulder.X - hip.X) * d
		dy := hip.Y - shoulder.Y
		if dy != 0 {
			lean = math.Atan(dx/dy) * 180 / math.Pi
		}

		out = append(out, model.ContactMetric{
			T:               f.T,
			Leg:             leg,
			OverstrideRatio: model.Float(ratio),
			KneeAngle:       model.Float(geom.AngleDeg(hip, knee, ankle)),
			TrunkLeanDeg:    model.Float(lean),
			Strike:          ClassifyFootStrike(L.At(parts.heel), L.At(parts.toe)),
			RetractSpeed:    model.Float(retractSpeed(frames, i, parts.ankle, d, timeScale)),
			LegLen:          model.Float(legLen),
			Overstride:      model.Float(overstride),
		})
	}
	return out
}

// retractSpeed is the rate at which the ankle moves back towards the hip
// over the window before contact i, in normalised units per real second.
// Positive means the foot is being pulled back.
func retractSpeed(frames []model.FrameRecord, i int, ankle model.BodyPart, dir, timeScale float64) float64 {
	f := frames[i]
	w := 2
	if f.SampleFPS > 0 {
		w = max(2, int(math.Floor(float64(f.SampleFPS)*RetractWindowSec*timeScale)))
	}
	f0 := frames[max(0, i-w)]
	if f0.Landmarks == nil {
		return math.NaN()
	}

	rel0 := (f0.Landmarks.At(ankle).X - hipMid(f0.Landmarks).X) * dir
	rel1 := (f.Landmarks.At(ankle).X - hipMid(f.Landmarks).X) * dir
	dt := (f.T - f0.T) / timeScale
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt <= 0 {
		return math.NaN()
	}
	return -(rel1 - rel0) / dt
}
