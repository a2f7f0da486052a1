package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

func testFrames() []model.FrameRecord {
	frames := make([]model.FrameRecord, 12)
	for i := range frames {
		frames[i] = model.FrameRecord{T: float64(i) / 10, SampleFPS: 10}
		if i == 5 {
			continue
		}
		var p model.Pose
		p[model.LeftHeel] = model.Landmark{Y: 0.8 + 0.01*float64(i%4)}
		p[model.RightHeel] = model.Landmark{Y: 0.8 + 0.01*float64((i+2)%4)}
		frames[i].Landmarks = &p
	}
	return frames
}

func testSeries() *Series {
	contacts := []model.ContactMetric{
		{T: 0.3, Leg: model.LegLeft, OverstrideRatio: 0.11, KneeAngle: 162, RetractSpeed: 0.4},
		{T: 0.1, Leg: model.LegRight, OverstrideRatio: model.NaN(), KneeAngle: 158, RetractSpeed: model.NaN()},
	}
	return NewSeries("run-1", "clip.json", testFrames(), []int{3, 7, 11}, []int{1, 9}, contacts)
}

func TestNewSeries(t *testing.T) {
	s := testSeries()
	if len(s.T) != 12 || len(s.LeftHeel) != 12 || len(s.RightHeel) != 12 {
		t.Fatalf("series lengths = %d/%d/%d, want 12", len(s.T), len(s.LeftHeel), len(s.RightHeel))
	}
	if !math.IsNaN(s.LeftHeel[5]) {
		t.Errorf("LeftHeel[5] = %v, want NaN for the undetected frame", s.LeftHeel[5])
	}
	if got := len(points(s.T, s.LeftHeel)); got != 11 {
		t.Errorf("drawable points = %d, want 11", got)
	}
	if got := peakPoints(s.T, s.LeftHeel, []int{3, 5, 40, -1}); len(got) != 1 || got[0].x != 0.3 {
		t.Errorf("peakPoints = %v, want only the point at 0.3s", got)
	}
}

func TestRenderHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, testSeries()); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	html := buf.String()
	for _, want := range []string{"Heel height", "run-1", "Overstride ratio", "L 0.30s", "R 0.10s"} {
		if !strings.Contains(html, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(html, "NaN") {
		t.Error("page contains NaN")
	}
}

func TestRenderHTMLEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, &Series{RunID: "empty"}); err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, testSeries()); err != nil {
		t.Fatalf("WritePNG() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plots", "heel.png")
	if err := SavePNG(path, testSeries()); err != nil {
		t.Fatalf("SavePNG() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("empty PNG")
	}
}
