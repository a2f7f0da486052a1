package geom

import (
	"math"
	"testing"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

func lm(x, y float64) model.Landmark {
	return model.Landmark{X: x, Y: y, Score: 1}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestMidpointAndDistance(t *testing.T) {
	m := Midpoint(lm(0, 0), model.Landmark{X: 2, Y: 4, Score: 0.5})
	if m.X != 1 || m.Y != 2 {
		t.Errorf("Midpoint = (%v, %v), want (1, 2)", m.X, m.Y)
	}
	if m.Score != 0.5 {
		t.Errorf("Midpoint score = %v, want 0.5", m.Score)
	}
	if d := Dist2D(lm(0, 0), lm(3, 4)); d != 5 {
		t.Errorf("Dist2D = %v, want 5", d)
	}
}

func TestAngleDeg(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c model.Landmark
		want    float64
	}{
		{"right angle", lm(1, 0), lm(0, 0), lm(0, 1), 90},
		{"straight", lm(-1, 0), lm(0, 0), lm(1, 0), 180},
		{"folded", lm(1, 0), lm(0, 0), lm(2, 0), 0},
		{"45 degrees", lm(1, 0), lm(0, 0), lm(1, 1), 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AngleDeg(tt.a, tt.b, tt.c)
			if !almostEqual(got, tt.want) {
				t.Errorf("AngleDeg = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAngleDegDegenerate(t *testing.T) {
	b := lm(0.3, 0.4)
	if got := AngleDeg(b, b, lm(1, 1)); !math.IsNaN(got) {
		t.Errorf("AngleDeg(a==b) = %v, want NaN", got)
	}
	if got := AngleDeg(lm(1, 1), b, b); !math.IsNaN(got) {
		t.Errorf("AngleDeg(c==b) = %v, want NaN", got)
	}
}

func TestAngleDegRange(t *testing.T) {
	pts := []model.Landmark{lm(0.1, 0.9), lm(0.5, 0.5), lm(0.9, 0.2), lm(0.2, 0.2), lm(0.7, 0.8)}
	for _, a := range pts {
		for _, b := range pts {
			for _, c := range pts {
				if a == b || c == b {
					continue
				}
				got := AngleDeg(a, b, c)
				if got < 0 || got > 180 || math.IsNaN(got) {
					t.Fatalf("AngleDeg(%v, %v, %v) = %v, outside [0, 180]", a, b, c, got)
				}
			}
		}
	}
}

func TestPercentile(t *testing.T) {
	xs := []float64{5, 1, math.NaN(), 3, math.Inf(1), 2, 4}
	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{0.25, 2},
		{0.5, 3},
		{0.8, 4.2},
		{1, 5},
	}
	for _, tt := range tests {
		if got := Percentile(xs, tt.p); !almostEqual(got, tt.want) {
			t.Errorf("Percentile(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestPercentileMonotonic(t *testing.T) {
	xs := []float64{0.61, 0.72, 0.55, 0.9, 0.88, 0.4, math.NaN(), 0.77}
	prev := math.Inf(-1)
	for p := 0.0; p <= 1.0; p += 0.05 {
		got := Percentile(xs, p)
		if got < prev {
			t.Fatalf("Percentile(%v) = %v decreased from %v", p, got, prev)
		}
		prev = got
	}
	if Median(xs) != Percentile(xs, 0.5) {
		t.Errorf("Median = %v, Percentile(0.5) = %v", Median(xs), Percentile(xs, 0.5))
	}
}

func TestEmptyInputs(t *testing.T) {
	empty := []float64{math.NaN(), math.Inf(-1)}
	if got := Percentile(empty, 0.5); !math.IsNaN(got) {
		t.Errorf("Percentile(empty) = %v, want NaN", got)
	}
	if got := Mean(nil); !math.IsNaN(got) {
		t.Errorf("Mean(nil) = %v, want NaN", got)
	}
	if got := Mean(empty); !math.IsNaN(got) {
		t.Errorf("Mean(non-finite) = %v, want NaN", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, math.NaN(), 6}); !almostEqual(got, 3) {
		t.Errorf("Mean = %v, want 3", got)
	}
}

func TestClamp01(t *testing.T) {
	if Clamp01(-0.2) != 0 || Clamp01(1.3) != 1 || Clamp01(0.4) != 0.4 {
		t.Error("Clamp01 did not clamp")
	}
	if !math.IsNaN(Clamp01(math.NaN())) {
		t.Error("Clamp01(NaN) should stay NaN")
	}
}
