package model

import "time"

// Leg identifies which foot a contact belongs to.
type Leg string

const (
	LegLeft  Leg = "L"
	LegRight Leg = "R"
)

// Strike is the foot-strike classification at initial contact.
type Strike string

const (
	StrikeHeel     Strike = "heel"
	StrikeMidfoot  Strike = "midfoot"
	StrikeForefoot Strike = "forefoot"
	StrikeUnknown  Strike = "unknown"
)

// ContactMetric holds the biomechanical indicators measured at one contact.
// Every numeric field may be NaN independently of the others.
type ContactMetric struct {
	T               float64 `json:"t"`
	Leg             Leg     `json:"leg"`
	OverstrideRatio Float   `json:"overstrideRatio"`
	KneeAngle       Float   `json:"kneeAngle"`
	TrunkLeanDeg    Float   `json:"trunkLeanDeg"`
	Strike          Strike  `json:"strike"`
	RetractSpeed    Float   `json:"retractSpeed"`
	LegLen          Float   `json:"legLen"`
	Overstride      Float   `json:"overstride"`
}

// Summary reduces all contacts of a run.
type Summary struct {
	OverstrideRatioMedian Float `json:"overstrideRatioMedian"`
	KneeAngleMedian       Float `json:"kneeAngleMedian"`
	TrunkLeanMedian       Float `json:"trunkLeanMedian"`
	HeelStrikeRate        Float `json:"heelStrikeRate"`
	RetractSpeedMedian    Float `json:"retractSpeedMedian"`
	ContactCount          int   `json:"contactCount"`
}

// ModelInfo describes the pose estimator that produced the landmarks.
type ModelInfo struct {
	Name      string `json:"name"`
	Runtime   string `json:"runtime,omitempty"`
	ModelType string `json:"modelType,omitempty"`
	Backend   string `json:"backend,omitempty"`
}

// Meta records the run parameters alongside the result.
type Meta struct {
	RunID            string    `json:"runId"`
	CreatedAt        time.Time `json:"createdAt"`
	Source           string    `json:"source,omitempty"`
	DurationSec      float64   `json:"durationSec"`
	RealDurationSec  float64   `json:"realDurationSec"`
	InputFPSEstimate Float     `json:"inputFpsEstimate"`
	SlowMoFactor     float64   `json:"slowMoFactor"`
	SampleFPS        int       `json:"sampleFps"`
	MinStepSec       float64   `json:"minStepSec"`
	Direction        int       `json:"direction"`
	DirectionMode    string    `json:"directionMode"`
	Model            ModelInfo `json:"model"`
	Notes            []string  `json:"notes,omitempty"`
}

// Contacts groups per-leg metrics; All is both legs ordered by time.
type Contacts struct {
	Left  []ContactMetric `json:"left"`
	Right []ContactMetric `json:"right"`
	All   []ContactMetric `json:"all"`
}

// Result is the terminal artifact of a successful run.
type Result struct {
	Meta     Meta     `json:"meta"`
	Contacts Contacts `json:"contacts"`
	Summary  Summary  `json:"summary"`
}
