package posetrack

import (
	"context"
	"fmt"
	"image"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/banshee-data/stride.report/internal/gait/model"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

// Replay plays a Track back as a video. Playback advances with the clock at
// the track's frame rate times the playback rate; decoded frames are
// counted and reported to frame callbacks as they would be by a player.
type Replay struct {
	track *Track
	clock timeutil.Clock

	mu        sync.Mutex
	frame     *image.Gray
	base      float64
	playing   bool
	playedAt  time.Time
	decoded   int
	muted     bool
	rate      float64
	stop      chan struct{}
	notifiers map[int]func(time.Time)
	nextID    int
}

// NewReplay creates a paused Replay at position 0. A nil clock uses wall
// time.
func NewReplay(track *Track, clock timeutil.Clock) *Replay {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Replay{
		track:     track,
		clock:     clock,
		rate:      1,
		notifiers: make(map[int]func(time.Time)),
	}
}

func (r *Replay) Name() string          { return r.track.Name }
func (r *Replay) Duration() float64     { return r.track.Duration }
func (r *Replay) Size() (int, int)      { return r.track.Width, r.track.Height }
func (r *Replay) Track() *Track         { return r.track }
func (r *Replay) Estimator() *Estimator { return &Estimator{replay: r} }

// Seek moves the playhead to t, clamped to the video.
func (r *Replay) Seek(ctx context.Context, t float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if math.IsNaN(t) {
		return fmt.Errorf("invalid seek target %v", t)
	}
	t = math.Max(0, math.Min(r.track.Duration, t))

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		r.decoded += r.framesSinceLocked(r.clock.Now())
		r.playedAt = r.clock.Now()
	}
	r.base = t
	return nil
}

// Frame returns a blank frame of the video size. Pixel content is not
// recorded; the Estimator reads the landmarks for the current position.
func (r *Replay) Frame() (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frame == nil {
		r.frame = image.NewGray(image.Rect(0, 0, r.track.Width, r.track.Height))
	}
	return r.frame, nil
}

func (r *Replay) positionLocked(now time.Time) float64 {
	if !r.playing {
		return r.base
	}
	p := r.base + now.Sub(r.playedAt).Seconds()*r.rate
	return math.Min(p, r.track.Duration)
}

func (r *Replay) framesSinceLocked(now time.Time) int {
	if !r.playing {
		return 0
	}
	return int(math.Floor((r.positionLocked(now) - r.base) * r.track.FPS))
}

// Position returns the playhead in seconds.
func (r *Replay) Position() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.positionLocked(r.clock.Now())
}

// Play starts playback from the current position, or from the start when
// the playhead is at the end.
func (r *Replay) Play(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		return nil
	}
	if r.base >= r.track.Duration {
		r.base = 0
	}
	r.playing = true
	r.playedAt = r.clock.Now()
	r.stop = make(chan struct{})
	go r.presentFrames(r.stop, r.rate)
	return nil
}

// presentFrames reports a presented frame to callbacks on every frame
// interval until playback stops.
func (r *Replay) presentFrames(stop <-chan struct{}, rate float64) {
	interval := time.Duration(float64(time.Second) / (r.track.FPS * rate))
	if interval <= 0 {
		return
	}
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C():
			r.mu.Lock()
			ended := r.positionLocked(now) >= r.track.Duration
			fns := make([]func(time.Time), 0, len(r.notifiers))
			for _, fn := range r.notifiers {
				fns = append(fns, fn)
			}
			r.mu.Unlock()
			for _, fn := range fns {
				fn(now)
			}
			if ended {
				r.endPlayback(stop)
				return
			}
		}
	}
}

// endPlayback pauses at the end of the video unless playback was already
// restarted with a new stop channel.
func (r *Replay) endPlayback(stop <-chan struct{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing && (<-chan struct{})(r.stop) == stop {
		r.pauseLocked()
	}
}

func (r *Replay) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.playing {
		r.pauseLocked()
	}
}

func (r *Replay) pauseLocked() {
	now := r.clock.Now()
	r.decoded += r.framesSinceLocked(now)
	r.base = r.positionLocked(now)
	r.playing = false
	close(r.stop)
}

func (r *Replay) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.playing
}

func (r *Replay) Muted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.muted
}

func (r *Replay) SetMuted(muted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.muted = muted
}

func (r *Replay) PlaybackRate() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rate
}

// SetPlaybackRate changes the speed. A running playback continues from the
// current position at the new rate.
func (r *Replay) SetPlaybackRate(rate float64) {
	if !(rate > 0) {
		return
	}
	r.mu.Lock()
	playing := r.playing
	r.mu.Unlock()
	if playing {
		r.Pause()
	}
	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()
	if playing {
		_ = r.Play(context.Background())
	}
}

// TotalVideoFrames counts frames decoded by playback so far.
func (r *Replay) TotalVideoFrames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.decoded + r.framesSinceLocked(r.clock.Now())
}

// NotifyFrames registers fn for every presented frame.
func (r *Replay) NotifyFrames(fn func(presented time.Time)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.notifiers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.notifiers, id)
	}
}

// current returns the recorded frame nearest the playhead, or nil for an
// empty track. Ties go to the later frame.
func (r *Replay) current() *Frame {
	frames := r.track.Frames
	if len(frames) == 0 {
		return nil
	}
	t := r.Position()
	j := sort.Search(len(frames), func(i int) bool { return frames[i].T >= t })
	switch {
	case j == len(frames):
		j--
	case j > 0 && t-frames[j-1].T < frames[j].T-t:
		j--
	}
	return &frames[j]
}

// Estimator returns the recorded pose for the replay's current frame,
// scaled to the pixel space of the image it is given.
type Estimator struct {
	replay *Replay
}

func (e *Estimator) EstimatePoses(ctx context.Context, img image.Image, maxPoses int) ([]model.DetectedPose, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f := e.replay.current()
	if f == nil || len(f.Keypoints) == 0 || maxPoses < 1 {
		return nil, nil
	}

	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	kps := make([]model.Keypoint, len(f.Keypoints))
	for i, p := range f.Keypoints {
		kps[i] = model.Keypoint{X: float64(p.X) * w, Y: float64(p.Y) * h, Score: float64(p.Score)}
	}
	score := math.NaN()
	if f.Score != nil {
		score = *f.Score
	}
	return []model.DetectedPose{{Keypoints: kps, Score: score}}, nil
}
