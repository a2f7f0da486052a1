package interpret

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

func TestOverstride(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
		level Level
	}{
		{math.NaN(), "interpret.overstride.unknown", LevelNA},
		{0.25, "interpret.overstride.severe", LevelBad},
		{0.20, "interpret.overstride.severe", LevelBad},
		{0.15, "interpret.overstride.moderate", LevelWarn},
		{0.06, "interpret.overstride.mild", LevelWarn},
		{0.01, "interpret.overstride.good", LevelGood},
		{-0.05, "interpret.overstride.good", LevelGood},
	}
	for _, tt := range tests {
		got := Overstride(tt.ratio)
		assert.Equal(t, tt.want, got.Key, "ratio %v", tt.ratio)
		assert.Equal(t, tt.level, got.Level, "ratio %v", tt.ratio)
	}
}

func TestKneeTrunkRetraction(t *testing.T) {
	assert.Equal(t, LevelBad, Knee(175).Level)
	assert.Equal(t, LevelWarn, Knee(165).Level)
	assert.Equal(t, LevelGood, Knee(150).Level)
	assert.Equal(t, LevelNA, Knee(math.Inf(1)).Level)

	assert.Equal(t, "interpret.trunk.backward", TrunkLean(-3).Key)
	assert.Equal(t, "interpret.trunk.slightBackward", TrunkLean(-1).Key)
	assert.Equal(t, "interpret.trunk.reasonable", TrunkLean(0).Key)
	assert.Equal(t, "interpret.trunk.reasonable", TrunkLean(12).Key)
	assert.Equal(t, "interpret.trunk.largeForward", TrunkLean(15).Key)

	assert.Equal(t, "interpret.retraction.forwardReach", Retraction(-0.05).Key)
	assert.Equal(t, "interpret.retraction.slowPull", Retraction(0).Key)
	assert.Equal(t, "interpret.retraction.good", Retraction(0.02).Key)
}

func TestAssessContact(t *testing.T) {
	c := AssessContact(model.ContactMetric{
		OverstrideRatio: 0.13,
		KneeAngle:       171,
		TrunkLeanDeg:    5,
		RetractSpeed:    model.NaN(),
	})
	assert.Equal(t, LevelWarn, c.Overstride.Level)
	assert.Equal(t, LevelBad, c.Knee.Level)
	assert.Equal(t, LevelGood, c.TrunkLean.Level)
	assert.Equal(t, LevelNA, c.Retraction.Level)
}

func keys(as []Assessment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Key
	}
	return out
}

func TestFlags(t *testing.T) {
	assert.Equal(t, []string{"flags.noContacts"}, keys(Flags(model.Summary{})))

	good := model.Summary{
		OverstrideRatioMedian: 0.05,
		KneeAngleMedian:       155,
		TrunkLeanMedian:       6,
		HeelStrikeRate:        0.1,
		RetractSpeedMedian:    0.1,
		ContactCount:          6,
	}
	assert.Equal(t, []string{
		"flags.overstrideGood", "flags.kneeGood", "flags.trunkGood", "flags.heelMostlyNon", "flags.retractionGood",
	}, keys(Flags(good)))

	bad := model.Summary{
		OverstrideRatioMedian: 0.15,
		KneeAngleMedian:       168,
		TrunkLeanMedian:       -2,
		HeelStrikeRate:        0.8,
		RetractSpeedMedian:    model.NaN(),
		ContactCount:          6,
	}
	assert.Equal(t, []string{
		"flags.overstrideBad", "flags.kneeBad", "flags.trunkBad", "flags.heelMostly", "flags.retractionUnknown",
	}, keys(Flags(bad)))

	mixed := good
	mixed.HeelStrikeRate = 0.5
	mixed.RetractSpeedMedian = 0.01
	mixed.KneeAngleMedian = model.NaN()
	assert.Equal(t, []string{
		"flags.overstrideGood", "flags.kneeUnknown", "flags.trunkGood", "flags.heelMixed", "flags.retractionSlow",
	}, keys(Flags(mixed)))
}

func TestAdvice(t *testing.T) {
	assert.Equal(t, []string{"advice.noContacts"}, Advice(model.Summary{}))

	s := model.Summary{
		OverstrideRatioMedian: 0.15,
		KneeAngleMedian:       168,
		TrunkLeanMedian:       -2,
		HeelStrikeRate:        0.7,
		ContactCount:          5,
	}
	assert.Equal(t, []string{
		"advice.overstridePriority1", "advice.overstridePriority2", "advice.knee", "advice.trunk",
		"advice.heelOverstride", "advice.strength",
	}, Advice(s))

	s = model.Summary{
		OverstrideRatioMedian: 0.05,
		KneeAngleMedian:       150,
		TrunkLeanMedian:       4,
		HeelStrikeRate:        0.7,
		ContactCount:          5,
	}
	assert.Equal(t, []string{"advice.overstrideGood", "advice.heelOk", "advice.strength"}, Advice(s))

	s.OverstrideRatioMedian = model.NaN()
	assert.Equal(t, []string{"advice.overstrideUnknown", "advice.strength"}, Advice(s))
}
