// Package sampling walks a video at a fixed time step, runs pose estimation
// on each sampled frame and records the normalised landmarks.
package sampling

import (
	"context"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/banshee-data/stride.report/internal/config"
	"github.com/banshee-data/stride.report/internal/gait/direction"
	"github.com/banshee-data/stride.report/internal/gait/geom"
	"github.com/banshee-data/stride.report/internal/gait/model"
	"github.com/banshee-data/stride.report/internal/monitoring"
)

var logf = monitoring.Component("Sampling")

// Video is a seekable decoded video. Times are media seconds.
type Video interface {
	Duration() float64
	Size() (width, height int)
	// Seek blocks until the frame at t is ready to be read.
	Seek(ctx context.Context, t float64) error
	// Frame returns the frame at the current position. The image may be
	// reused by the next Seek.
	Frame() (image.Image, error)
}

// PoseEstimator detects people in an image. Keypoints are in the pixel
// space of img.
type PoseEstimator interface {
	EstimatePoses(ctx context.Context, img image.Image, maxPoses int) ([]model.DetectedPose, error)
}

// Params control one sampling pass.
type Params struct {
	SampleFPS     int
	MaxSamples    int
	InferLongEdge int
	MinPoseScore  float64
	YieldEvery    int
	DirectionMode string
}

// ParamsFrom reads sampling parameters from the tuning config.
func ParamsFrom(cfg *config.TuningConfig) Params {
	return Params{
		SampleFPS:     cfg.GetSampleFPS(),
		MaxSamples:    cfg.GetMaxSamples(),
		InferLongEdge: cfg.GetInferLongEdge(),
		MinPoseScore:  cfg.GetMinPoseScore(),
		YieldEvery:    cfg.GetYieldEvery(),
		DirectionMode: cfg.GetDirectionMode(),
	}
}

// Steps returns the number of sampling intervals for a video of the given
// duration: ceil(duration * clamp(sampleFPS, 5, 60)), at least 1 and at
// most maxSamples. A pass visits Steps+1 instants.
func Steps(duration float64, sampleFPS, maxSamples int) int {
	dtNominal := 1 / float64(min(60, max(5, sampleFPS)))
	steps := int(math.Ceil(duration / dtNominal))
	steps = max(1, steps)
	if maxSamples > 0 && steps > maxSamples {
		steps = maxSamples
	}
	return steps
}

// InferenceSize scales w x h so the long edge is at most longEdge, keeping
// the aspect ratio. Frames are never upscaled.
func InferenceSize(w, h, longEdge int) (int, int) {
	long := max(w, h)
	if long == 0 || min(w, h) == 0 {
		return 0, 0
	}
	scale := math.Min(1, float64(longEdge)/float64(long))
	outW := max(1, int(math.Round(float64(w)*scale)))
	outH := max(1, int(math.Round(float64(h)*scale)))
	return outW, outH
}

// Normalize converts a detection in a w x h buffer to a Pose. It returns nil
// when the pose is missing, incomplete or scores below minScore. The pose
// score is the estimator's own score when finite, else the mean keypoint
// score with missing scores counted as zero.
func Normalize(p *model.DetectedPose, w, h int, minScore float64) *model.Pose {
	if p == nil || len(p.Keypoints) != model.NumLandmarks {
		return nil
	}
	score := p.Score
	if math.IsNaN(score) || math.IsInf(score, 0) {
		scores := make([]float64, len(p.Keypoints))
		for i, kp := range p.Keypoints {
			scores[i] = finiteOrZero(kp.Score)
		}
		score = geom.Mean(scores)
	}
	if math.IsNaN(score) || score < minScore {
		return nil
	}

	var pose model.Pose
	for i, kp := range p.Keypoints {
		x, y := math.NaN(), math.NaN()
		if isFinite(kp.X) && w > 0 {
			x = kp.X / float64(w)
		}
		if isFinite(kp.Y) && h > 0 {
			y = kp.Y / float64(h)
		}
		pose[i] = model.Landmark{
			X:     geom.Clamp01(x),
			Y:     geom.Clamp01(y),
			Score: finiteOrZero(kp.Score),
		}
	}
	return &pose
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func finiteOrZero(x float64) float64 {
	if isFinite(x) {
		return x
	}
	return 0
}

// Run holds the state of one sampling pass. It is not safe for concurrent
// use and is discarded after the analysis that created it.
type Run struct {
	params    Params
	video     Video
	estimator PoseEstimator

	// Progress, when set, is called at every cooperative checkpoint.
	Progress func(done, total int)

	buf *image.RGBA

	Frames   []model.FrameRecord
	Votes    direction.Votes
	Detected int
	// Direction is the provisional facing locked from the first detection.
	Direction int
	locked    bool
}

// NewRun prepares a sampling pass over video.
func NewRun(video Video, estimator PoseEstimator, params Params) *Run {
	return &Run{
		params:    params,
		video:     video,
		estimator: estimator,
		Direction: 1,
	}
}

// DetectionRatio is the share of sampled frames with a pose.
func (r *Run) DetectionRatio() float64 {
	if len(r.Frames) == 0 {
		return 0
	}
	return float64(r.Detected) / float64(len(r.Frames))
}

// Sample visits every sampling instant in order. Seek and frame errors abort
// the pass; estimator errors are logged and recorded as missing poses.
func (r *Run) Sample(ctx context.Context) error {
	duration := r.video.Duration()
	if math.IsNaN(duration) || duration <= 0 {
		return fmt.Errorf("invalid video duration %v", duration)
	}
	vw, vh := r.video.Size()
	inW, inH := InferenceSize(vw, vh, r.params.InferLongEdge)
	if inW == 0 {
		return fmt.Errorf("invalid video size %dx%d", vw, vh)
	}
	r.buf = image.NewRGBA(image.Rect(0, 0, inW, inH))

	steps := Steps(duration, r.params.SampleFPS, r.params.MaxSamples)
	dt := duration / float64(steps)
	yieldEvery := max(1, r.params.YieldEvery)
	logEvery := max(1, steps/10)
	logf("starting: duration=%.2fs, sample_fps=%d, steps=%d, inference=%dx%d",
		duration, r.params.SampleFPS, steps, inW, inH)

	r.Frames = make([]model.FrameRecord, 0, steps+1)
	for k := 0; k <= steps; k++ {
		t := math.Min(duration, float64(k)*dt)
		if err := r.video.Seek(ctx, t); err != nil {
			return fmt.Errorf("failed to seek to %.3fs: %w", t, err)
		}
		frame, err := r.video.Frame()
		if err != nil {
			return fmt.Errorf("failed to read frame at %.3fs: %w", t, err)
		}

		landmarks := r.detect(ctx, frame, t)
		if landmarks != nil {
			r.Detected++
			r.Votes.Add(direction.Sign(landmarks))
			if !r.locked {
				r.Direction = direction.Resolve(r.params.DirectionMode, landmarks)
				r.locked = true
			}
		}
		r.Frames = append(r.Frames, model.FrameRecord{
			T:         t,
			Landmarks: landmarks,
			SampleFPS: r.params.SampleFPS,
		})

		if k%yieldEvery == 0 {
			if r.Progress != nil {
				r.Progress(k, steps)
			}
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("sampling cancelled at %.3fs: %w", t, err)
			}
		}
		if k > 0 && k%logEvery == 0 {
			logf("progress %d%%", int(math.Round(float64(k)/float64(steps)*100)))
		}
	}
	return nil
}

func (r *Run) detect(ctx context.Context, frame image.Image, t float64) *model.Pose {
	draw.ApproxBiLinear.Scale(r.buf, r.buf.Bounds(), frame, frame.Bounds(), draw.Src, nil)
	poses, err := r.estimator.EstimatePoses(ctx, r.buf, 1)
	if err != nil {
		logf("pose detection failed at %.2fs: %v", t, err)
		return nil
	}
	if len(poses) == 0 {
		return nil
	}
	b := r.buf.Bounds()
	return Normalize(&poses[0], b.Dx(), b.Dy(), r.params.MinPoseScore)
}
