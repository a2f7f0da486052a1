// Package interpret turns gait metrics into graded assessments, summary
// flags and coaching advice. Text is returned as stable message keys; the
// caller owns translation.
package interpret

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

// Level grades an assessment.
type Level string

const (
	LevelGood Level = "good"
	LevelWarn Level = "warn"
	LevelBad  Level = "bad"
	LevelNA   Level = "na"
)

// Assessment is a graded reading of one value.
type Assessment struct {
	Key   string `json:"key"`
	Level Level  `json:"level"`
}

func valid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Overstride grades an overstride ratio.
func Overstride(ratio float64) Assessment {
	switch {
	case !valid(ratio):
		return Assessment{"interpret.overstride.unknown", LevelNA}
	case ratio >= 0.20:
		return Assessment{"interpret.overstride.severe", LevelBad}
	case ratio >= 0.12:
		return Assessment{"interpret.overstride.moderate", LevelWarn}
	case ratio >= 0.06:
		return Assessment{"interpret.overstride.mild", LevelWarn}
	default:
		return Assessment{"interpret.overstride.good", LevelGood}
	}
}

// Knee grades the knee angle at contact in degrees.
func Knee(angle float64) Assessment {
	switch {
	case !valid(angle):
		return Assessment{"interpret.knee.unknown", LevelNA}
	case angle >= 170:
		return Assessment{"interpret.knee.locked", LevelBad}
	case angle >= 160:
		return Assessment{"interpret.knee.extended", LevelWarn}
	default:
		return Assessment{"interpret.knee.good", LevelGood}
	}
}

// TrunkLean grades trunk lean in degrees; positive leans into the running
// direction.
func TrunkLean(deg float64) Assessment {
	switch {
	case !valid(deg):
		return Assessment{"interpret.trunk.unknown", LevelNA}
	case deg < -2:
		return Assessment{"interpret.trunk.backward", LevelBad}
	case deg < 0:
		return Assessment{"interpret.trunk.slightBackward", LevelWarn}
	case deg <= 12:
		return Assessment{"interpret.trunk.reasonable", LevelGood}
	default:
		return Assessment{"interpret.trunk.largeForward", LevelWarn}
	}
}

// Retraction grades leg retraction speed; positive means the foot is pulled
// back before contact.
func Retraction(speed float64) Assessment {
	switch {
	case !valid(speed):
		return Assessment{"interpret.retraction.unknown", LevelNA}
	case speed < -0.02:
		return Assessment{"interpret.retraction.forwardReach", LevelBad}
	case speed < 0.02:
		return Assessment{"interpret.retraction.slowPull", LevelWarn}
	default:
		return Assessment{"interpret.retraction.good", LevelGood}
	}
}

// Contact grades every metric of one contact.
type Contact struct {
	Overstride Assessment `json:"overstride"`
	Knee       Assessment `json:"knee"`
	TrunkLean  Assessment `json:"trunkLean"`
	Retraction Assessment `json:"retraction"`
}

// AssessContact grades m.
func AssessContact(m model.ContactMetric) Contact {
	return Contact{
		Overstride: Overstride(float64(m.OverstrideRatio)),
		Knee:       Knee(float64(m.KneeAngle)),
		TrunkLean:  TrunkLean(float64(m.TrunkLeanDeg)),
		Retraction: Retraction(float64(m.RetractSpeed)),
	}
}

// Flags summarises a run as one flag per metric.
func Flags(s model.Summary) []Assessment {
	if s.ContactCount == 0 {
		return []Assessment{{"flags.noContacts", LevelWarn}}
	}

	flags := make([]Assessment, 0, 5)
	flags = append(flags, threshold(float64(s.OverstrideRatioMedian), func(x float64) bool { return x >= 0.12 },
		"flags.overstrideBad", "flags.overstrideGood", "flags.overstrideUnknown"))
	flags = append(flags, threshold(float64(s.KneeAngleMedian), func(x float64) bool { return x >= 165 },
		"flags.kneeBad", "flags.kneeGood", "flags.kneeUnknown"))
	flags = append(flags, threshold(float64(s.TrunkLeanMedian), func(x float64) bool { return x < -1 },
		"flags.trunkBad", "flags.trunkGood", "flags.trunkUnknown"))

	switch rate := float64(s.HeelStrikeRate); {
	case !valid(rate):
		flags = append(flags, Assessment{"flags.heelUnknown", LevelWarn})
	case rate >= 0.6:
		flags = append(flags, Assessment{"flags.heelMostly", LevelWarn})
	case rate <= 0.2:
		flags = append(flags, Assessment{"flags.heelMostlyNon", LevelGood})
	default:
		flags = append(flags, Assessment{"flags.heelMixed", LevelWarn})
	}

	switch speed := float64(s.RetractSpeedMedian); {
	case !valid(speed):
		flags = append(flags, Assessment{"flags.retractionUnknown", LevelWarn})
	case speed < 0.02:
		flags = append(flags, Assessment{"flags.retractionSlow", LevelWarn})
	default:
		flags = append(flags, Assessment{"flags.retractionGood", LevelGood})
	}
	return flags
}

func threshold(x float64, bad func(float64) bool, badKey, goodKey, unknownKey string) Assessment {
	switch {
	case !valid(x):
		return Assessment{unknownKey, LevelWarn}
	case bad(x):
		return Assessment{badKey, LevelBad}
	default:
		return Assessment{goodKey, LevelGood}
	}
}

// Advice returns coaching message keys in priority order.
func Advice(s model.Summary) []string {
	if s.ContactCount == 0 {
		return []string{"advice.noContacts"}
	}

	overstride := float64(s.OverstrideRatioMedian)
	var out []string
	switch {
	case !valid(overstride):
		out = append(out, "advice.overstrideUnknown")
	case overstride >= 0.12:
		out = append(out, "advice.overstridePriority1", "advice.overstridePriority2")
	default:
		out = append(out, "advice.overstrideGood")
	}

	if knee := float64(s.KneeAngleMedian); valid(knee) && knee >= 165 {
		out = append(out, "advice.knee")
	}
	if trunk := float64(s.TrunkLeanMedian); valid(trunk) && trunk < -1 {
		out = append(out, "advice.trunk")
	}
	if heel := float64(s.HeelStrikeRate); valid(heel) && valid(overstride) && heel >= 0.6 {
		if overstride < 0.12 {
			out = append(out, "advice.heelOk")
		} else {
			out = append(out, "advice.heelOverstride")
		}
	}

	return append(out, "advice.strength")
}
