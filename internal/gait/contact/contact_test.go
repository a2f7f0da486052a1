package contact

import (
	"math"
	"reflect"
	"testing"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

func timesAt(n int, dt float64) []float64 {
	t := make([]float64, n)
	for i := range t {
		t[i] = float64(i) * dt
	}
	return t
}

func TestFindPeaks(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		y       []float64
		dt      float64
		minStep float64
		want    []int
	}{
		{
			name:    "two clear peaks",
			y:       []float64{0.5, 0.6, 0.9, 0.6, 0.5, 0.6, 0.9, 0.6, 0.5, 0.5},
			dt:      0.1,
			minStep: 0.3,
			want:    []int{2, 6},
		},
		{
			name:    "peaks too close, earlier wins",
			y:       []float64{0.5, 0.9, 0.5, 0.95, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
			dt:      0.1,
			minStep: 0.3,
			want:    []int{1},
		},
		{
			name:    "plateau counts once at its first sample",
			y:       []float64{0.5, 0.5, 0.9, 0.9, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
			dt:      0.1,
			minStep: 0.05,
			want:    []int{2},
		},
		{
			name:    "below threshold ignored",
			y:       []float64{0.1, 0.2, 0.1, 0.9, 0.8, 0.9, 0.95, 0.92, 0.1, 0.1},
			dt:      0.1,
			minStep: 0.05,
			want:    []int{6},
		},
		{
			name:    "neighbour NaN skipped",
			y:       []float64{0.5, nan, 0.9, 0.5, 0.5, 0.6, 0.9, 0.6, 0.5, 0.5},
			dt:      0.1,
			minStep: 0.3,
			want:    []int{6},
		},
		{
			name:    "all NaN",
			y:       []float64{nan, nan, nan, nan},
			dt:      0.1,
			minStep: 0.3,
			want:    nil,
		},
		{
			name:    "too short",
			y:       []float64{0.9, 0.1},
			dt:      0.1,
			minStep: 0.3,
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.y, timesAt(len(tt.y), tt.dt), tt.minStep)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindPeaks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindPeaksSpacing(t *testing.T) {
	// Sinusoid at 3 Hz sampled at 24 fps with small jitter between peaks.
	n := 96
	y := make([]float64, n)
	ts := timesAt(n, 1.0/24)
	for i := range y {
		y[i] = 0.8 + 0.05*math.Sin(2*math.Pi*3*ts[i]) + 0.002*math.Sin(2*math.Pi*11*ts[i])
	}
	minStep := 0.3
	peaks := FindPeaks(y, ts, minStep)
	if len(peaks) == 0 {
		t.Fatal("expected peaks")
	}
	for i := 1; i < len(peaks); i++ {
		if gap := ts[peaks[i]] - ts[peaks[i-1]]; gap < minStep {
			t.Errorf("peaks %d and %d only %.3fs apart", peaks[i-1], peaks[i], gap)
		}
	}
}

func TestHeelSeries(t *testing.T) {
	var p model.Pose
	p[model.LeftHeel].Y = 0.8
	p[model.RightHeel].Y = 0.7
	frames := []model.FrameRecord{
		{T: 0, Landmarks: &p},
		{T: 0.1},
		{T: 0.2, Landmarks: &p},
	}

	left := HeelSeries(frames, model.LegLeft)
	if left[0] != 0.8 || !math.IsNaN(left[1]) || left[2] != 0.8 {
		t.Errorf("left series = %v", left)
	}
	right := HeelSeries(frames, model.LegRight)
	if right[0] != 0.7 {
		t.Errorf("right series = %v", right)
	}
	if got := Times(frames); !reflect.DeepEqual(got, []float64{0, 0.1, 0.2}) {
		t.Errorf("Times() = %v", got)
	}
}
