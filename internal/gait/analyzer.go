// Package gait runs the running-gait analysis: input gates, frame-rate
// probing, landmark sampling, contact detection, per-contact metrics and
// the run summary.
package gait

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/gait/contact"
	"github.com/banshee-data/stride.report/internal/gait/framerate"
	"github.com/banshee-data/stride.report/internal/gait/metrics"
	"github.com/banshee-data/stride.report/internal/gait/model"
	"github.com/banshee-data/stride.report/internal/gait/sampling"
	"github.com/banshee-data/stride.report/internal/gait/summary"
	"github.com/banshee-data/stride.report/internal/monitoring"
	"github.com/banshee-data/stride.report/internal/timeutil"
)

var logf = monitoring.Component("Analyzer")

// ErrBusy is returned when Analyze is called while another run is active on
// the same Analyzer.
var ErrBusy = errors.New("analysis already in progress")

// Source is a video that can be both seeked frame by frame and played back
// for frame-rate probing.
type Source interface {
	sampling.Video
	framerate.Player
}

// Named is implemented by sources that can describe where they came from.
type Named interface {
	Name() string
}

// Notes attached to every result.
var resultNotes = []string{
	"meta.notes.normalisedUnits",
	"meta.notes.sideView",
}

// Outcome is the product of one run. On a nil error exactly one of Result
// and Issue is set. Frames and peaks are kept whenever sampling completed.
type Outcome struct {
	RunID      string
	Result     *model.Result
	Issue      *model.Issue
	Frames     []model.FrameRecord
	LeftPeaks  []int
	RightPeaks []int
	// InputFPS is the probed frame rate, NaN when unknown.
	InputFPS float64
}

// Analyzer runs analyses one at a time.
type Analyzer struct {
	cfg       *config.TuningConfig
	estimator sampling.PoseEstimator
	modelInfo model.ModelInfo
	clock     timeutil.Clock

	// Progress, when set, receives coarse progress in percent.
	Progress func(pct float64)

	mu sync.Mutex
}

// NewAnalyzer creates an Analyzer. A nil cfg uses the built-in defaults.
func NewAnalyzer(cfg *config.TuningConfig, estimator sampling.PoseEstimator, info model.ModelInfo) *Analyzer {
	if cfg == nil {
		cfg = config.DefaultTuningConfig()
	}
	return &Analyzer{
		cfg:       cfg,
		estimator: estimator,
		modelInfo: info,
		clock:     timeutil.RealClock{},
	}
}

// SetClock replaces the clock used for probing and timestamps.
func (a *Analyzer) SetClock(c timeutil.Clock) {
	a.clock = c
}

func (a *Analyzer) progress(pct float64) {
	if a.Progress != nil {
		a.Progress(pct)
	}
}

// Analyze runs the full pipeline on src. Gating outcomes are reported in
// the Outcome; errors are reserved for seek, decode and probe failures and
// for cancellation.
//
// In auto direction mode the metrics use the majority facing vote taken
// over all sampled frames. A forced left or right mode keeps the forced
// direction for the metrics even when the vote disagrees.
func (a *Analyzer) Analyze(ctx context.Context, src Source) (*Outcome, error) {
	if !a.mu.TryLock() {
		return nil, ErrBusy
	}
	defer a.mu.Unlock()

	out := &Outcome{RunID: uuid.NewString()}
	started := a.clock.Now()
	gates := summary.GatesFrom(a.cfg)
	a.progress(0)

	width, height := src.Size()
	duration := src.Duration()
	logf("run %s: %dx%d, %.2fs", out.RunID, width, height, duration)
	if issue := gates.CheckResolution(width, height); issue != nil {
		return a.stop(out, issue), nil
	}

	if err := src.Seek(ctx, 0); err != nil {
		return nil, fmt.Errorf("failed to rewind video: %w", err)
	}
	a.progress(5)

	probe, err := framerate.NewEstimator(framerate.ProbeConfigFrom(a.cfg), a.clock).Estimate(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate frame rate: %w", err)
	}
	out.InputFPS = probe.FPS
	logf("run %s: input fps %.2f via %s", out.RunID, probe.FPS, probe.Method)

	slowMo, issue := gates.CheckFrameRate(probe.FPS, duration)
	if issue != nil {
		return a.stop(out, issue), nil
	}
	a.progress(15)

	params := sampling.ParamsFrom(a.cfg)
	minStep := a.cfg.GetMinStepSec() * slowMo
	run := sampling.NewRun(src, a.estimator, params)
	run.Progress = func(done, total int) {
		a.progress(15 + float64(done)/float64(max(1, total))*70)
	}
	if err := run.Sample(ctx); err != nil {
		return nil, fmt.Errorf("failed to sample frames: %w", err)
	}
	out.Frames = run.Frames
	a.progress(90)

	if issue := gates.CheckDetection(run.Detected, len(run.Frames)); issue != nil {
		return a.stop(out, issue), nil
	}
	if issue := gates.CheckDirection(run.Votes); issue != nil {
		return a.stop(out, issue), nil
	}

	dir := run.Direction
	if a.cfg.GetDirectionMode() == config.DirectionAuto && run.Votes.Samples() > 0 {
		dir = run.Votes.Majority()
	}

	out.LeftPeaks = contact.Detect(run.Frames, model.LegLeft, minStep)
	out.RightPeaks = contact.Detect(run.Frames, model.LegRight, minStep)
	left := metrics.Compute(run.Frames, out.LeftPeaks, model.LegLeft, dir, slowMo)
	right := metrics.Compute(run.Frames, out.RightPeaks, model.LegRight, dir, slowMo)
	if issue := gates.CheckContacts(len(left), len(right)); issue != nil {
		return a.stop(out, issue), nil
	}

	all := summary.Merge(left, right)
	out.Result = &model.Result{
		Meta: model.Meta{
			RunID:            out.RunID,
			CreatedAt:        a.clock.Now().UTC(),
			Source:           sourceName(src),
			DurationSec:      duration,
			RealDurationSec:  duration / slowMo,
			InputFPSEstimate: model.Float(probe.FPS),
			SlowMoFactor:     slowMo,
			SampleFPS:        params.SampleFPS,
			MinStepSec:       minStep,
			Direction:        dir,
			DirectionMode:    a.cfg.GetDirectionMode(),
			Model:            a.modelInfo,
			Notes:            append([]string(nil), resultNotes...),
		},
		Contacts: model.Contacts{Left: left, Right: right, All: all},
		Summary:  summary.Aggregate(all),
	}
	a.progress(100)
	logf("run %s: %d contacts (L=%d R=%d) in %v", out.RunID, len(all), len(left), len(right),
		a.clock.Since(started).Round(time.Millisecond))
	return out, nil
}

func (a *Analyzer) stop(out *Outcome, issue *model.Issue) *Outcome {
	logf("run %s stopped: %s", out.RunID, issue)
	out.Issue = issue
	return out
}

func sourceName(src Source) string {
	if n, ok := src.(Named); ok {
		return n.Name()
	}
	return ""
}
