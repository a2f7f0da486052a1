package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/gait.defaults.json"

// Device profiles. Constrained devices probe for a shorter time, sample fewer
// frames and run inference on a smaller buffer.
const (
	ProfileDesktop     = "desktop"
	ProfileConstrained = "constrained"
)

// Direction modes.
const (
	DirectionAuto  = "auto"
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// TuningConfig holds every threshold the gait pipeline uses. Fields are
// pointers so a partial JSON file only overrides what it names; the Get*
// methods fall back to the built-in defaults.
type TuningConfig struct {
	Profile       *string `json:"profile,omitempty"`
	DirectionMode *string `json:"direction_mode,omitempty"`

	// Sampling params
	SampleFPS     *int     `json:"sample_fps,omitempty"`
	MinStepSec    *float64 `json:"min_step_sec,omitempty"`
	MinPoseScore  *float64 `json:"min_pose_score,omitempty"`
	MaxSamples    *int     `json:"max_samples,omitempty"`
	InferLongEdge *int     `json:"infer_long_edge,omitempty"`
	YieldEvery    *int     `json:"yield_every,omitempty"`

	// Input gates
	MinLongEdge    *int     `json:"min_long_edge,omitempty"`
	MinShortEdge   *int     `json:"min_short_edge,omitempty"`
	MinDurationSec *float64 `json:"min_duration_sec,omitempty"`

	// Frame-rate bands
	NormalFPS          *float64 `json:"normal_fps,omitempty"`
	NormalFPSTolerance *float64 `json:"normal_fps_tolerance,omitempty"`
	SlowMoFPS          *float64 `json:"slowmo_fps,omitempty"`
	SlowMoFPSTolerance *float64 `json:"slowmo_fps_tolerance,omitempty"`
	SlowMoFactor       *float64 `json:"slowmo_factor,omitempty"`

	// Frame-rate probe
	ProbeWindow       *string  `json:"probe_window,omitempty"` // duration string like "600ms"
	ProbeTimeoutExtra *string  `json:"probe_timeout_extra,omitempty"`
	ProbeMinFrames    *int     `json:"probe_min_frames,omitempty"`
	FallbackFPS       *float64 `json:"fallback_fps,omitempty"`

	// Detection and direction gates
	MinDetectedFrames     *int     `json:"min_detected_frames,omitempty"`
	MinDetectionRatio     *float64 `json:"min_detection_ratio,omitempty"`
	MinDirectionSamples   *int     `json:"min_direction_samples,omitempty"`
	MaxDirectionFlipRatio *float64 `json:"max_direction_flip_ratio,omitempty"`
	MinContacts           *int     `json:"min_contacts,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields unset.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a config with every profile-independent field
// populated. Sample cap, inference size and probe window/min frames are left
// unset so they follow the profile.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		Profile:               ptrString(ProfileDesktop),
		DirectionMode:         ptrString(DirectionAuto),
		SampleFPS:             ptrInt(24),
		MinStepSec:            ptrFloat64(0.3),
		MinPoseScore:          ptrFloat64(0.2),
		YieldEvery:            ptrInt(8),
		MinLongEdge:           ptrInt(1920),
		MinShortEdge:          ptrInt(1080),
		MinDurationSec:        ptrFloat64(3),
		NormalFPS:             ptrFloat64(30),
		NormalFPSTolerance:    ptrFloat64(6),
		SlowMoFPS:             ptrFloat64(240),
		SlowMoFPSTolerance:    ptrFloat64(20),
		SlowMoFactor:          ptrFloat64(8),
		ProbeTimeoutExtra:     ptrString("600ms"),
		FallbackFPS:           ptrFloat64(30),
		MinDetectedFrames:     ptrInt(8),
		MinDetectionRatio:     ptrFloat64(0.2),
		MinDirectionSamples:   ptrInt(8),
		MaxDirectionFlipRatio: ptrFloat64(0.25),
		MinContacts:           ptrInt(4),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Fields omitted from
// the file keep their defaults through the Get* methods.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from the
// working directory. Panics if the file cannot be loaded; intended for tests.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/gait/<pkg>/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configured values are usable.
func (c *TuningConfig) Validate() error {
	if c.Profile != nil && *c.Profile != ProfileDesktop && *c.Profile != ProfileConstrained {
		return fmt.Errorf("profile must be %q or %q, got %q", ProfileDesktop, ProfileConstrained, *c.Profile)
	}
	if c.DirectionMode != nil {
		switch *c.DirectionMode {
		case DirectionAuto, DirectionLeft, DirectionRight:
		default:
			return fmt.Errorf("direction_mode must be auto, left or right, got %q", *c.DirectionMode)
		}
	}
	if c.SampleFPS != nil && *c.SampleFPS <= 0 {
		return fmt.Errorf("sample_fps must be positive, got %d", *c.SampleFPS)
	}
	if c.MaxSamples != nil && *c.MaxSamples < 1 {
		return fmt.Errorf("max_samples must be at least 1, got %d", *c.MaxSamples)
	}
	if c.InferLongEdge != nil && *c.InferLongEdge < 1 {
		return fmt.Errorf("infer_long_edge must be at least 1, got %d", *c.InferLongEdge)
	}
	if c.YieldEvery != nil && *c.YieldEvery < 1 {
		return fmt.Errorf("yield_every must be at least 1, got %d", *c.YieldEvery)
	}
	for name, v := range map[string]*float64{
		"min_pose_score":           c.MinPoseScore,
		"min_detection_ratio":      c.MinDetectionRatio,
		"max_direction_flip_ratio": c.MaxDirectionFlipRatio,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}
	if c.MinStepSec != nil && *c.MinStepSec < 0 {
		return fmt.Errorf("min_step_sec must be non-negative, got %f", *c.MinStepSec)
	}
	if c.SlowMoFactor != nil && *c.SlowMoFactor <= 0 {
		return fmt.Errorf("slowmo_factor must be positive, got %f", *c.SlowMoFactor)
	}
	for name, v := range map[string]*string{
		"probe_window":        c.ProbeWindow,
		"probe_timeout_extra": c.ProbeTimeoutExtra,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}
	return nil
}

// GetProfile returns the device profile or "desktop".
func (c *TuningConfig) GetProfile() string {
	if c.Profile == nil || *c.Profile == "" {
		return ProfileDesktop
	}
	return *c.Profile
}

// Constrained reports whether the constrained-device profile is active.
func (c *TuningConfig) Constrained() bool {
	return c.GetProfile() == ProfileConstrained
}

// GetDirectionMode returns the direction mode or "auto".
func (c *TuningConfig) GetDirectionMode() string {
	if c.DirectionMode == nil || *c.DirectionMode == "" {
		return DirectionAuto
	}
	return *c.DirectionMode
}

// GetSampleFPS returns the nominal sampling rate.
func (c *TuningConfig) GetSampleFPS() int {
	if c.SampleFPS == nil {
		return 24
	}
	return *c.SampleFPS
}

// GetMinStepSec returns the minimum real-time spacing between contacts.
func (c *TuningConfig) GetMinStepSec() float64 {
	if c.MinStepSec == nil {
		return 0.3
	}
	return *c.MinStepSec
}

// GetMinPoseScore returns the aggregate confidence below which a pose is dropped.
func (c *TuningConfig) GetMinPoseScore() float64 {
	if c.MinPoseScore == nil {
		return 0.2
	}
	return *c.MinPoseScore
}

// GetMaxSamples returns the sample-count cap, which depends on the profile
// when unset.
func (c *TuningConfig) GetMaxSamples() int {
	if c.MaxSamples == nil {
		if c.Constrained() {
			return 150
		}
		return 240
	}
	return *c.MaxSamples
}

// GetInferLongEdge returns the inference-buffer long edge in pixels.
func (c *TuningConfig) GetInferLongEdge() int {
	if c.InferLongEdge == nil {
		if c.Constrained() {
			return 384
		}
		return 640
	}
	return *c.InferLongEdge
}

// GetYieldEvery returns how many samples pass between cooperative checkpoints.
func (c *TuningConfig) GetYieldEvery() int {
	if c.YieldEvery == nil {
		return 8
	}
	return *c.YieldEvery
}

// GetMinLongEdge returns the minimum accepted long edge in pixels.
func (c *TuningConfig) GetMinLongEdge() int {
	if c.MinLongEdge == nil {
		return 1920
	}
	return *c.MinLongEdge
}

// GetMinShortEdge returns the minimum accepted short edge in pixels.
func (c *TuningConfig) GetMinShortEdge() int {
	if c.MinShortEdge == nil {
		return 1080
	}
	return *c.MinShortEdge
}

// GetMinDurationSec returns the minimum real-time clip length.
func (c *TuningConfig) GetMinDurationSec() float64 {
	if c.MinDurationSec == nil {
		return 3
	}
	return *c.MinDurationSec
}

func (c *TuningConfig) GetNormalFPS() float64 {
	if c.NormalFPS == nil {
		return 30
	}
	return *c.NormalFPS
}

func (c *TuningConfig) GetNormalFPSTolerance() float64 {
	if c.NormalFPSTolerance == nil {
		return 6
	}
	return *c.NormalFPSTolerance
}

func (c *TuningConfig) GetSlowMoFPS() float64 {
	if c.SlowMoFPS == nil {
		return 240
	}
	return *c.SlowMoFPS
}

func (c *TuningConfig) GetSlowMoFPSTolerance() float64 {
	if c.SlowMoFPSTolerance == nil {
		return 20
	}
	return *c.SlowMoFPSTolerance
}

// GetSlowMoFactor returns the capture-to-real-time ratio for slow-motion clips.
func (c *TuningConfig) GetSlowMoFactor() float64 {
	if c.SlowMoFactor == nil {
		return 8
	}
	return *c.SlowMoFactor
}

// GetProbeWindow returns how long the frame-rate probe plays the video.
func (c *TuningConfig) GetProbeWindow() time.Duration {
	def := 600 * time.Millisecond
	if c.Constrained() {
		def = 350 * time.Millisecond
	}
	return parseDurationOr(c.ProbeWindow, def)
}

// GetProbeTimeoutExtra returns the slack added to the probe window before the
// probe is abandoned.
func (c *TuningConfig) GetProbeTimeoutExtra() time.Duration {
	return parseDurationOr(c.ProbeTimeoutExtra, 600*time.Millisecond)
}

// GetProbeMinFrames returns the frame count needed to trust a probe result.
func (c *TuningConfig) GetProbeMinFrames() int {
	if c.ProbeMinFrames == nil {
		if c.Constrained() {
			return 4
		}
		return 8
	}
	return *c.ProbeMinFrames
}

// GetFallbackFPS returns the frame rate assumed on constrained devices when
// probing fails.
func (c *TuningConfig) GetFallbackFPS() float64 {
	if c.FallbackFPS == nil {
		return 30
	}
	return *c.FallbackFPS
}

func (c *TuningConfig) GetMinDetectedFrames() int {
	if c.MinDetectedFrames == nil {
		return 8
	}
	return *c.MinDetectedFrames
}

func (c *TuningConfig) GetMinDetectionRatio() float64 {
	if c.MinDetectionRatio == nil {
		return 0.2
	}
	return *c.MinDetectionRatio
}

func (c *TuningConfig) GetMinDirectionSamples() int {
	if c.MinDirectionSamples == nil {
		return 8
	}
	return *c.MinDirectionSamples
}

func (c *TuningConfig) GetMaxDirectionFlipRatio() float64 {
	if c.MaxDirectionFlipRatio == nil {
		return 0.25
	}
	return *c.MaxDirectionFlipRatio
}

func (c *TuningConfig) GetMinContacts() int {
	if c.MinContacts == nil {
		return 4
	}
	return *c.MinContacts
}

func parseDurationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}
