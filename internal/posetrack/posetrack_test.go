package posetrack

import (
	"context"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stride.report/internal/gait/framerate"
	"github.com/banshee-data/stride.report/internal/gait/model"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

var replayStart = time.Date(2026, 5, 2, 7, 30, 0, 0, time.UTC)

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{"bad size", `{"width":0,"height":1080,"duration":1,"fps":30}`, "invalid size"},
		{"oversized", `{"width":2147483647,"height":2147483647,"duration":5,"fps":30,"frames":[]}`, "exceeds"},
		{"one edge too long", `{"width":60000,"height":1080,"duration":5,"fps":30}`, "exceeds"},
		{"bad duration", `{"width":1920,"height":1080,"duration":0,"fps":30}`, "invalid duration"},
		{"bad fps", `{"width":1920,"height":1080,"duration":1,"fps":-1}`, "invalid fps"},
		{"unordered", `{"width":1920,"height":1080,"duration":1,"fps":30,"frames":[{"t":0.5},{"t":0.2}]}`, "not after"},
		{"partial pose", `{"width":1920,"height":1080,"duration":1,"fps":30,"frames":[{"t":0,"keypoints":[{"x":0.1,"y":0.2,"score":0.9}]}]}`, "keypoints"},
		{"malformed", `{"width":`, "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.json))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	tr, err := Decode(strings.NewReader(`{"width":1920,"height":1080,"duration":1,"fps":30,"frames":[{"t":0},{"t":0.5}]}`))
	require.NoError(t, err)
	assert.Len(t, tr.Frames, 2)
	assert.Nil(t, tr.Frames[0].Score)

	tr, err = Decode(strings.NewReader(`{"width":8192,"height":1080,"duration":1,"fps":30}`))
	require.NoError(t, err)
	frame, err := NewReplay(tr, timeutil.NewMockClock(replayStart)).Frame()
	require.NoError(t, err)
	assert.Equal(t, 8192, frame.Bounds().Dx())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.json")

	orig := Synthesize(DefaultSynthParams())
	orig.Name = ""
	orig.Frames[3].Keypoints[model.LeftHeel].Y = model.NaN()
	require.NoError(t, orig.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "clip.json", loaded.Name)
	assert.Equal(t, len(orig.Frames), len(loaded.Frames))
	assert.True(t, math.IsNaN(float64(loaded.Frames[3].Keypoints[model.LeftHeel].Y)))
	assert.Equal(t, orig.Frames[10].Keypoints[model.Nose], loaded.Frames[10].Keypoints[model.Nose])

	yaml := filepath.Join(dir, "clip.yaml")
	require.NoError(t, os.WriteFile(yaml, []byte("width: 1"), 0644))
	_, err = Load(yaml)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSynthesize(t *testing.T) {
	tr := Synthesize(DefaultSynthParams())
	require.NoError(t, tr.Validate())
	assert.Len(t, tr.Frames, 151)
	assert.Equal(t, 5.0, tr.Frames[150].T)

	// first left contact at 0.5 s is frame 15: heel lowest, ahead of hip,
	// heel below toe
	contact := tr.Frames[15].Keypoints
	assert.InDelta(t, 0.90, float64(contact[model.LeftHeel].Y), 1e-12)
	assert.Greater(t, float64(contact[model.LeftAnkle].X), 0.5)
	assert.Greater(t, float64(contact[model.LeftHeel].Y-contact[model.LeftFootIndex].Y), 0.012)
	assert.Less(t, float64(contact[model.RightHeel].Y), 0.85)

	p := DefaultSynthParams()
	p.LowConfidenceRatio = 0.95
	p.FlipEveryFrame = true
	tr = Synthesize(p)
	assert.Equal(t, model.Float(0.1), tr.Frames[0].Keypoints[0].Score)
	assert.Equal(t, model.Float(0.9), tr.Frames[95].Keypoints[0].Score)
	assert.Greater(t, float64(tr.Frames[0].Keypoints[model.Nose].X), 0.5)
	assert.Less(t, float64(tr.Frames[1].Keypoints[model.Nose].X), 0.5)
}

func TestReplaySeekAndEstimate(t *testing.T) {
	tr := Synthesize(DefaultSynthParams())
	r := NewReplay(tr, timeutil.NewMockClock(replayStart))
	ctx := context.Background()

	w, h := r.Size()
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)
	assert.Equal(t, "synthetic", r.Name())

	require.NoError(t, r.Seek(ctx, 0.51))
	assert.Equal(t, 0.51, r.Position())
	assert.Equal(t, &tr.Frames[15], r.current())

	require.NoError(t, r.Seek(ctx, 99))
	assert.Equal(t, 5.0, r.Position())
	assert.Error(t, r.Seek(ctx, math.NaN()))

	frame, err := r.Frame()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1920, 1080), frame.Bounds())

	require.NoError(t, r.Seek(ctx, 0.5))
	buf := image.NewRGBA(image.Rect(0, 0, 640, 360))
	poses, err := r.Estimator().EstimatePoses(ctx, buf, 1)
	require.NoError(t, err)
	require.Len(t, poses, 1)
	assert.Len(t, poses[0].Keypoints, model.NumLandmarks)
	assert.True(t, math.IsNaN(poses[0].Score))
	assert.InDelta(t, 0.9*360, poses[0].Keypoints[model.LeftHeel].Y, 1e-9)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.Estimator().EstimatePoses(cancelled, buf, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReplayPlayback(t *testing.T) {
	clock := timeutil.NewMockClock(replayStart)
	r := NewReplay(Synthesize(DefaultSynthParams()), clock)
	ctx := context.Background()

	assert.True(t, r.Paused())
	require.NoError(t, r.Play(ctx))
	assert.False(t, r.Paused())

	clock.Advance(time.Second)
	assert.InDelta(t, 1.0, r.Position(), 1e-9)
	assert.Equal(t, 30, r.TotalVideoFrames())

	r.Pause()
	clock.Advance(time.Second)
	assert.InDelta(t, 1.0, r.Position(), 1e-9)
	assert.Equal(t, 30, r.TotalVideoFrames())

	r.SetPlaybackRate(2)
	require.NoError(t, r.Play(ctx))
	clock.Advance(time.Second)
	assert.InDelta(t, 3.0, r.Position(), 1e-9)
	assert.Equal(t, 90, r.TotalVideoFrames())

	// playback stops counting at the end
	clock.Advance(5 * time.Second)
	assert.InDelta(t, 5.0, r.Position(), 1e-9)
	assert.Equal(t, 150, r.TotalVideoFrames())
	r.Pause()
}

func TestReplayNotifyFrames(t *testing.T) {
	clock := timeutil.NewMockClock(replayStart)
	r := NewReplay(Synthesize(DefaultSynthParams()), clock)

	got := make(chan time.Time, 4)
	cancel := r.NotifyFrames(func(at time.Time) { got <- at })
	require.NoError(t, r.Play(context.Background()))
	defer r.Pause()

	// wait for the presenting goroutine to register its ticker
	deadline := time.After(2 * time.Second)
	for {
		clock.Advance(time.Second / 30)
		select {
		case at := <-got:
			assert.False(t, at.Before(replayStart))
			cancel()
			return
		case <-deadline:
			t.Fatal("no frame presented")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestReplayFrameRateProbe(t *testing.T) {
	for _, tc := range []struct {
		fps  float64
		want float64
	}{
		{30, 22 / 0.75},
		{240, 240},
	} {
		p := DefaultSynthParams()
		p.FPS = tc.fps
		p.Duration = 3
		clock := timeutil.NewMockClock(replayStart)
		r := NewReplay(Synthesize(p), clock)
		est := framerate.NewEstimator(framerate.ProbeConfig{
			Window:       600 * time.Millisecond,
			TimeoutExtra: 600 * time.Millisecond,
			MinFrames:    8,
		}, clock)

		type result struct {
			probe framerate.Probe
			err   error
		}
		ch := make(chan result, 1)
		go func() {
			pr, err := est.Estimate(context.Background(), r)
			ch <- result{pr, err}
		}()
		clock.BlockUntil(2)
		clock.Advance(750 * time.Millisecond)

		res := <-ch
		require.NoError(t, res.err)
		assert.Equal(t, framerate.MethodQualityCounter, res.probe.Method)
		assert.InDelta(t, tc.want, res.probe.FPS, 1e-9)
		assert.True(t, r.Paused())
		assert.Equal(t, 0.0, r.Position())
		assert.False(t, r.Muted())
		assert.Equal(t, 1.0, r.PlaybackRate())
	}
}
