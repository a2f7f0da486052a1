package summary

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/gait/direction"
	"github.com/banshee-data/stride.report/internal/gait/model"
)

func defaultGates() Gates {
	return GatesFrom(config.EmptyTuningConfig())
}

func kind(i *model.Issue) model.IssueKind {
	if i == nil {
		return ""
	}
	return i.Kind
}

func TestCheckResolution(t *testing.T) {
	g := defaultGates()
	tests := []struct {
		w, h int
		want model.IssueKind
	}{
		{1920, 1080, ""},
		{1080, 1920, ""},
		{3840, 2160, ""},
		{1280, 720, model.IssueResolutionLow},
		{1920, 1079, model.IssueResolutionLow},
		{0, 0, model.IssueResolutionLow},
	}
	for _, tt := range tests {
		if got := kind(g.CheckResolution(tt.w, tt.h)); got != tt.want {
			t.Errorf("CheckResolution(%d, %d) = %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}

	issue := g.CheckResolution(1280, 720)
	want := &model.Issue{Kind: model.IssueResolutionLow, Width: 1280, Height: 720, MinLongEdge: 1920, MinShortEdge: 1080}
	if diff := cmp.Diff(want, issue); diff != "" {
		t.Errorf("issue mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckFrameRate(t *testing.T) {
	g := defaultGates()
	tests := []struct {
		name       string
		fps        float64
		duration   float64
		want       model.IssueKind
		wantFactor float64
	}{
		{"normal", 30, 10, "", 1},
		{"slow motion long enough", 240, 24, "", 8},
		{"unknown", math.NaN(), 10, model.IssueFPSUnknown, math.NaN()},
		{"unsupported", 60, 10, model.IssueFPSUnsupported, math.NaN()},
		{"too short", 30, 2.9, model.IssueVideoTooShort, 1},
		{"slow motion too short", 240, 23.2, model.IssueVideoTooShort, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factor, issue := g.CheckFrameRate(tt.fps, tt.duration)
			if got := kind(issue); got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
			if math.IsNaN(tt.wantFactor) != math.IsNaN(factor) || (!math.IsNaN(factor) && factor != tt.wantFactor) {
				t.Errorf("factor = %v, want %v", factor, tt.wantFactor)
			}
		})
	}

	_, issue := g.CheckFrameRate(240, 23.2)
	if math.Abs(issue.RealDurationSec-2.9) > 1e-12 || issue.VideoDurationSec != 23.2 || issue.MinDurationSec != 3 {
		t.Errorf("too-short issue = %+v", issue)
	}
}

func TestCheckDetection(t *testing.T) {
	g := defaultGates()
	tests := []struct {
		detected, total int
		want            model.IssueKind
	}{
		{0, 100, model.IssueNoRunner},
		{7, 10, model.IssueLowDetection},
		{19, 100, model.IssueLowDetection},
		{20, 100, ""},
		{8, 8, ""},
	}
	for _, tt := range tests {
		if got := kind(g.CheckDetection(tt.detected, tt.total)); got != tt.want {
			t.Errorf("CheckDetection(%d, %d) = %q, want %q", tt.detected, tt.total, got, tt.want)
		}
	}
}

func TestCheckDirection(t *testing.T) {
	g := defaultGates()
	tests := []struct {
		name  string
		votes direction.Votes
		want  model.IssueKind
	}{
		{"too few", direction.Votes{Left: 3, Right: 4}, model.IssueDirectionUnclear},
		{"consistent", direction.Votes{Right: 40}, ""},
		{"flip at limit", direction.Votes{Left: 10, Right: 30}, ""},
		{"flip above limit", direction.Votes{Left: 11, Right: 29}, model.IssueDirectionInconsistent},
		{"alternating", direction.Votes{Left: 20, Right: 20}, model.IssueDirectionInconsistent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := kind(g.CheckDirection(tt.votes)); got != tt.want {
				t.Errorf("CheckDirection(%+v) = %q, want %q", tt.votes, got, tt.want)
			}
		})
	}
}

func TestCheckContacts(t *testing.T) {
	g := defaultGates()
	if issue := g.CheckContacts(2, 1); kind(issue) != model.IssueFewStrides || issue.LeftContacts != 2 || issue.RightContacts != 1 {
		t.Errorf("CheckContacts(2, 1) = %+v", issue)
	}
	if issue := g.CheckContacts(2, 2); issue != nil {
		t.Errorf("CheckContacts(2, 2) = %+v, want nil", issue)
	}
}

func metric(t float64, leg model.Leg, ratio float64, strike model.Strike) model.ContactMetric {
	return model.ContactMetric{
		T:               t,
		Leg:             leg,
		OverstrideRatio: model.Float(ratio),
		KneeAngle:       model.Float(150 + 10*ratio),
		TrunkLeanDeg:    model.Float(5),
		Strike:          strike,
		RetractSpeed:    model.Float(math.NaN()),
	}
}

func TestMerge(t *testing.T) {
	left := []model.ContactMetric{metric(0.2, model.LegLeft, 0, model.StrikeHeel), metric(0.9, model.LegLeft, 0, model.StrikeHeel)}
	right := []model.ContactMetric{metric(0.5, model.LegRight, 0, model.StrikeHeel), metric(0.9, model.LegRight, 0, model.StrikeHeel)}
	all := Merge(left, right)

	var got []string
	for _, m := range all {
		got = append(got, string(m.Leg))
	}
	if diff := cmp.Diff([]string{"L", "R", "L", "R"}, got); diff != "" {
		t.Errorf("Merge order mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate(t *testing.T) {
	all := []model.ContactMetric{
		metric(0.1, model.LegLeft, 0.1, model.StrikeHeel),
		metric(0.4, model.LegRight, 0.2, model.StrikeMidfoot),
		metric(0.7, model.LegLeft, math.NaN(), model.StrikeHeel),
		metric(1.0, model.LegRight, 0.3, model.StrikeUnknown),
	}
	s := Aggregate(all)

	if s.ContactCount != 4 {
		t.Errorf("ContactCount = %d, want 4", s.ContactCount)
	}
	if float64(s.OverstrideRatioMedian) != 0.2 {
		t.Errorf("OverstrideRatioMedian = %v, want 0.2", s.OverstrideRatioMedian)
	}
	if math.Abs(float64(s.HeelStrikeRate)-2.0/3) > 1e-12 {
		t.Errorf("HeelStrikeRate = %v, want 2/3", s.HeelStrikeRate)
	}
	if float64(s.TrunkLeanMedian) != 5 {
		t.Errorf("TrunkLeanMedian = %v, want 5", s.TrunkLeanMedian)
	}
	if s.RetractSpeedMedian.Valid() {
		t.Errorf("RetractSpeedMedian = %v, want NaN", s.RetractSpeedMedian)
	}

	unknown := Aggregate([]model.ContactMetric{metric(0, model.LegLeft, 0.1, model.StrikeUnknown)})
	if unknown.HeelStrikeRate.Valid() {
		t.Errorf("HeelStrikeRate with no known strikes = %v, want NaN", unknown.HeelStrikeRate)
	}

	empty := Aggregate(nil)
	if empty.ContactCount != 0 || empty.OverstrideRatioMedian.Valid() {
		t.Errorf("Aggregate(nil) = %+v", empty)
	}
}
