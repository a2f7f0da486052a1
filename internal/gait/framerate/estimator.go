// Package framerate measures the playback frame rate of a video by briefly
// playing it, and classifies the result into the supported capture modes.
package framerate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/monitoring"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

var logf = monitoring.Component("FrameRate")

// ErrProbeTimeout is returned when the probe does not finish within its
// window plus the timeout slack on a desktop profile.
var ErrProbeTimeout = errors.New("frame-rate probe timed out")

// settleDelay is how long the probe keeps waiting after the counting window
// so late frames are delivered before the count is read.
const settleDelay = 150 * time.Millisecond

// Method records which signal produced a probe result.
type Method string

const (
	MethodFrameCallback  Method = "frame_callback"
	MethodQualityCounter Method = "quality_counter"
	MethodFallback       Method = "fallback"
	MethodTimeout        Method = "timeout"
	MethodNone           Method = "none"
)

// ProbeConfig holds the probe timings for one device profile.
type ProbeConfig struct {
	Window       time.Duration
	TimeoutExtra time.Duration
	MinFrames    int
	// Constrained devices substitute FallbackFPS when probing gives no
	// usable answer.
	Constrained bool
	FallbackFPS float64
}

// ProbeConfigFrom derives probe timings from the tuning config.
func ProbeConfigFrom(cfg *config.TuningConfig) ProbeConfig {
	return ProbeConfig{
		Window:       cfg.GetProbeWindow(),
		TimeoutExtra: cfg.GetProbeTimeoutExtra(),
		MinFrames:    cfg.GetProbeMinFrames(),
		Constrained:  cfg.Constrained(),
		FallbackFPS:  cfg.GetFallbackFPS(),
	}
}

// Probe is the outcome of one measurement. FPS is NaN when unknown.
type Probe struct {
	FPS     float64
	Method  Method
	Frames  int
	Elapsed time.Duration
}

// Estimator runs frame-rate probes.
type Estimator struct {
	cfg   ProbeConfig
	clock timeutil.Clock
}

// NewEstimator creates an Estimator. A nil clock uses wall time.
func NewEstimator(cfg ProbeConfig, clock timeutil.Clock) *Estimator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Estimator{cfg: cfg, clock: clock}
}

func (e *Estimator) fallback(method Method) Probe {
	return Probe{FPS: e.cfg.FallbackFPS, Method: method}
}

// Estimate plays p muted at normal speed for the probe window and derives
// the frame rate from presented frames, or from the decoded-frame counter
// when too few frame callbacks arrived. The player's position, mute state,
// rate and paused state are restored before Estimate returns.
func (e *Estimator) Estimate(ctx context.Context, p Player) (Probe, error) {
	notifier, hasNotifier := p.(FrameNotifier)
	counter, hasCounter := p.(QualityCounter)
	logf("probe start (frame_callback=%t, quality_counter=%t, paused=%t)", hasNotifier, hasCounter, p.Paused())

	if !hasNotifier && !hasCounter {
		if e.cfg.Constrained {
			logf("probe unsupported; using fallback %.0ffps", e.cfg.FallbackFPS)
			return e.fallback(MethodFallback), nil
		}
		return Probe{FPS: math.NaN(), Method: MethodNone}, nil
	}

	probeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	saved := capture(p)
	var once sync.Once
	cleanup := func(stopFrames func()) {
		once.Do(func() {
			if stopFrames != nil {
				stopFrames()
			}
			saved.restore(context.WithoutCancel(ctx), p)
		})
	}

	timeout := e.clock.NewTimer(e.cfg.Window + e.cfg.TimeoutExtra)
	defer timeout.Stop()

	p.SetMuted(true)
	p.SetPlaybackRate(1)

	counting := newFrameCounter(e.cfg.Window)
	var stopFrames func()
	if hasNotifier {
		stopFrames = notifier.NotifyFrames(counting.observe)
	}
	qualityStart := 0
	if hasCounter {
		qualityStart = counter.TotalVideoFrames()
	}
	startWall := e.clock.Now()

	done := make(chan Probe, 1)
	go func() {
		playStart := e.clock.Now()
		if err := p.Play(probeCtx); err != nil {
			logf("play failed during probe: %v", err)
		}
		logf("play returned in %v (paused=%t)", e.clock.Since(playStart).Round(time.Millisecond), p.Paused())
		if probeCtx.Err() != nil {
			return
		}

		wait := e.clock.NewTimer(e.cfg.Window + settleDelay)
		defer wait.Stop()
		select {
		case <-wait.C():
		case <-probeCtx.Done():
			return
		}

		frames, first, last := counting.snapshot()
		elapsed := e.clock.Since(startWall)
		if !first.IsZero() {
			elapsed = e.clock.Since(first)
		}

		if elapsed <= 0 {
			// a single late frame carries no interval
			elapsed = e.clock.Since(startWall)
		}

		result := Probe{FPS: math.NaN(), Method: MethodNone, Frames: frames, Elapsed: elapsed}
		qualityDelta := 0
		switch {
		case hasNotifier && frames >= e.cfg.MinFrames && last.After(first):
			// frames-1 intervals between the first and last presented frame,
			// rather than frames over the whole window including the settle
			// delay
			span := last.Sub(first)
			result.FPS = float64(frames-1) / span.Seconds()
			result.Method = MethodFrameCallback
			result.Elapsed = span
		case hasCounter && elapsed > 0:
			qualityDelta = counter.TotalVideoFrames() - qualityStart
			if qualityDelta >= e.cfg.MinFrames {
				result.FPS = float64(qualityDelta) / elapsed.Seconds()
				result.Method = MethodQualityCounter
				result.Frames = qualityDelta
			}
		}
		logf("probe done method=%s, frames=%d, quality_delta=%d, elapsed=%v, fps=%.2f",
			result.Method, frames, qualityDelta, elapsed.Round(time.Millisecond), result.FPS)
		done <- result
	}()

	select {
	case result := <-done:
		cleanup(stopFrames)
		if math.IsNaN(result.FPS) && e.cfg.Constrained {
			logf("probe returned no rate; using fallback %.0ffps", e.cfg.FallbackFPS)
			fb := e.fallback(MethodFallback)
			fb.Frames, fb.Elapsed = result.Frames, result.Elapsed
			return fb, nil
		}
		return result, nil

	case <-timeout.C():
		cancel()
		cleanup(stopFrames)
		limit := e.cfg.Window + e.cfg.TimeoutExtra
		if e.cfg.Constrained {
			logf("probe timeout after %v; using fallback %.0ffps", limit, e.cfg.FallbackFPS)
			fb := e.fallback(MethodTimeout)
			fb.Elapsed = limit
			return fb, nil
		}
		return Probe{}, fmt.Errorf("failed to measure frame rate within %v: %w", limit, ErrProbeTimeout)

	case <-ctx.Done():
		cancel()
		cleanup(stopFrames)
		return Probe{}, fmt.Errorf("frame-rate probe cancelled: %w", ctx.Err())
	}
}

// frameCounter counts presented frames until the window has elapsed since
// the first one.
type frameCounter struct {
	mu      sync.Mutex
	window  time.Duration
	first   time.Time
	last    time.Time
	frames  int
	stopped bool
}

func newFrameCounter(window time.Duration) *frameCounter {
	return &frameCounter{window: window}
}

func (c *frameCounter) observe(presented time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	if c.first.IsZero() {
		c.first = presented
	}
	c.frames++
	c.last = presented
	if presented.Sub(c.first) >= c.window {
		c.stopped = true
	}
}

func (c *frameCounter) snapshot() (int, time.Time, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames, c.first, c.last
}
