package posetrack

import (
	"math"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

// SynthParams describes a generated side-view running clip.
type SynthParams struct {
	Name   string
	Width  int
	Height int
	// FPS is the recorded frame rate. SlowMoFactor is how many times slower
	// than real time the clip plays; 1 for normal footage.
	FPS          float64
	SlowMoFactor float64
	Duration     float64
	// Direction is +1 for a runner moving right, -1 for left.
	Direction int
	// StrideHz is contacts per second per leg in real time and
	// FirstContactSec the real time of the first left contact.
	StrideHz        float64
	FirstContactSec float64
	Score           float64
	// LowConfidenceRatio is the share of frames whose keypoint scores drop
	// to LowScore.
	LowConfidenceRatio float64
	LowScore           float64
	// FlipEveryFrame mirrors the facing on every other frame.
	FlipEveryFrame bool
}

// DefaultSynthParams is a clean 5 s 1080p clip at 30 fps with three contacts
// per leg.
func DefaultSynthParams() SynthParams {
	return SynthParams{
		Name:            "synthetic",
		Width:           1920,
		Height:          1080,
		FPS:             30,
		SlowMoFactor:    1,
		Duration:        5,
		Direction:       1,
		StrideHz:        0.6,
		FirstContactSec: 0.5,
		Score:           0.9,
		LowScore:        0.1,
	}
}

// Synthesize generates a track with one pose per recorded frame. Heel
// height peaks at each contact, the ankle swings ahead of the hip and is
// already moving back when the foot lands, and the heel sits lower than the
// toe at contact.
func Synthesize(p SynthParams) *Track {
	slowMo := p.SlowMoFactor
	if !(slowMo > 0) {
		slowMo = 1
	}
	n := int(math.Floor(p.Duration*p.FPS+1e-9)) + 1
	t := &Track{
		Name:     p.Name,
		Width:    p.Width,
		Height:   p.Height,
		Duration: p.Duration,
		FPS:      p.FPS,
		Frames:   make([]Frame, n),
	}

	lowFrames := int(math.Round(p.LowConfidenceRatio * 100))
	for i := range t.Frames {
		tv := float64(i) / p.FPS
		dir := float64(p.Direction)
		if dir == 0 {
			dir = 1
		}
		if p.FlipEveryFrame && i%2 == 1 {
			dir = -dir
		}
		score := p.Score
		if i%100 < lowFrames {
			score = p.LowScore
		}
		phase := 2 * math.Pi * p.StrideHz * (tv/slowMo - p.FirstContactSec)
		t.Frames[i] = Frame{T: tv, Keypoints: runnerPose(phase, dir, score)}
	}
	return t
}

func runnerPose(phase, dir, score float64) []Point {
	const hipX, hipY = 0.5, 0.5
	pts := make([]Point, model.NumLandmarks)
	set := func(part model.BodyPart, x, y float64) {
		pts[part] = Point{X: model.Float(x), Y: model.Float(y), Score: model.Float(score)}
	}

	noseX := hipX + 0.06*dir
	for part := model.Nose; part <= model.MouthRight; part++ {
		set(part, noseX, 0.18)
	}
	shoulderX := hipX + 0.03*dir
	set(model.LeftShoulder, shoulderX, 0.28)
	set(model.RightShoulder, shoulderX, 0.28)
	for part := model.LeftElbow; part <= model.RightThumb; part++ {
		set(part, shoulderX, 0.4)
	}
	set(model.LeftHip, hipX, hipY)
	set(model.RightHip, hipX, hipY)

	leg := func(knee, ankle, heel, toe model.BodyPart, phase float64) {
		heelY := 0.86 + 0.04*math.Cos(phase)
		rel := 0.05 * math.Cos(phase+0.3)
		ankleX := hipX + rel*dir
		set(knee, hipX+(0.5*rel+0.04)*dir, 0.68)
		set(ankle, ankleX, heelY-0.02)
		set(heel, ankleX-0.015*dir, heelY)
		set(toe, ankleX+0.05*dir, heelY-0.018)
	}
	leg(model.LeftKnee, model.LeftAnkle, model.LeftHeel, model.LeftFootIndex, phase)
	leg(model.RightKnee, model.RightAnkle, model.RightHeel, model.RightFootIndex, phase-math.Pi)
	return pts
}
