// Package posetrack stores pose detections recorded from a video and
// replays them as a seekable, playable video with a matching pose
// estimator, so the analysis pipeline can run without a decoder or model.
package posetrack

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/banshee-data/stride.report/internal/gait/model"
)

// maxTrackFileSize caps how much a track file may hold.
const maxTrackFileSize = 64 * 1024 * 1024

// maxEdge bounds each video dimension; Replay allocates a frame of the
// full video size.
const maxEdge = 8192

// Point is one keypoint in normalised image coordinates.
type Point struct {
	X     model.Float `json:"x"`
	Y     model.Float `json:"y"`
	Score model.Float `json:"score"`
}

// Frame is the detection recorded for one decoded frame. Keypoints is empty
// when nobody was detected. Score is the estimator's pose score if it gave
// one.
type Frame struct {
	T         float64  `json:"t"`
	Score     *float64 `json:"score,omitempty"`
	Keypoints []Point  `json:"keypoints,omitempty"`
}

// Track is a recorded pose sequence with the properties of its source video.
type Track struct {
	Name     string  `json:"name,omitempty"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	FPS      float64 `json:"fps"`
	Frames   []Frame `json:"frames"`
}

// Validate checks the track is playable.
func (t *Track) Validate() error {
	if t.Width <= 0 || t.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", t.Width, t.Height)
	}
	if t.Width > maxEdge || t.Height > maxEdge {
		return fmt.Errorf("size %dx%d exceeds %d pixels per edge", t.Width, t.Height, maxEdge)
	}
	if !(t.Duration > 0) || math.IsInf(t.Duration, 0) {
		return fmt.Errorf("invalid duration %v", t.Duration)
	}
	if !(t.FPS > 0) || math.IsInf(t.FPS, 0) {
		return fmt.Errorf("invalid fps %v", t.FPS)
	}
	for i, f := range t.Frames {
		if i > 0 && f.T <= t.Frames[i-1].T {
			return fmt.Errorf("frame %d at %.4fs is not after frame %d at %.4fs", i, f.T, i-1, t.Frames[i-1].T)
		}
		if n := len(f.Keypoints); n != 0 && n != model.NumLandmarks {
			return fmt.Errorf("frame %d has %d keypoints, want %d", i, n, model.NumLandmarks)
		}
	}
	return nil
}

// Decode reads and validates a track.
func Decode(r io.Reader) (*Track, error) {
	var t Track
	if err := json.NewDecoder(io.LimitReader(r, maxTrackFileSize)).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to parse track: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid track: %w", err)
	}
	return &t, nil
}

// Load reads a track from a .json file.
func Load(path string) (*Track, error) {
	cleanPath := filepath.Clean(path)
	if filepath.Ext(cleanPath) != ".json" {
		return nil, fmt.Errorf("track file must have .json extension, got: %s", filepath.Ext(cleanPath))
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat track file: %w", err)
	}
	if info.Size() > maxTrackFileSize {
		return nil, fmt.Errorf("track file too large: %d bytes (max %d)", info.Size(), maxTrackFileSize)
	}

	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open track file: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	if t.Name == "" {
		t.Name = filepath.Base(cleanPath)
	}
	return t, nil
}

// Save writes t to path as JSON.
func (t *Track) Save(path string) error {
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create track file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(t); err != nil {
		f.Close()
		return fmt.Errorf("failed to write track: %w", err)
	}
	return f.Close()
}
