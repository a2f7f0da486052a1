package model

import "fmt"

// IssueKind classifies why a run stopped before producing metrics.
type IssueKind string

const (
	IssueResolutionLow         IssueKind = "resolution_low"
	IssueFPSUnknown            IssueKind = "fps_unknown"
	IssueFPSUnsupported        IssueKind = "fps_unsupported"
	IssueVideoTooShort         IssueKind = "video_too_short"
	IssueNoRunner              IssueKind = "no_runner"
	IssueLowDetection          IssueKind = "low_detection"
	IssueDirectionUnclear      IssueKind = "direction_unclear"
	IssueDirectionInconsistent IssueKind = "direction_inconsistent"
	IssueFewStrides            IssueKind = "few_strides"
)

// Issue is a classified gating outcome. Only the parameters relevant to
// Kind are set; the rest stay at their zero value and are omitted from JSON.
type Issue struct {
	Kind IssueKind `json:"kind"`

	Width        int `json:"width,omitempty"`
	Height       int `json:"height,omitempty"`
	MinLongEdge  int `json:"minLongEdge,omitempty"`
	MinShortEdge int `json:"minShortEdge,omitempty"`

	FPS Float `json:"fps,omitempty"`

	VideoDurationSec float64 `json:"videoDurationSec,omitempty"`
	RealDurationSec  float64 `json:"realDurationSec,omitempty"`
	MinDurationSec   float64 `json:"minDurationSec,omitempty"`

	DetectedFrames int     `json:"detectedFrames,omitempty"`
	TotalFrames    int     `json:"totalFrames,omitempty"`
	DetectionRatio float64 `json:"detectionRatio,omitempty"`

	DirectionLeft  int     `json:"directionLeft,omitempty"`
	DirectionRight int     `json:"directionRight,omitempty"`
	FlipRatio      float64 `json:"flipRatio,omitempty"`

	LeftContacts  int `json:"leftContacts,omitempty"`
	RightContacts int `json:"rightContacts,omitempty"`
}

func (i *Issue) String() string {
	switch i.Kind {
	case IssueResolutionLow:
		return fmt.Sprintf("%s: %dx%d below %dx%d", i.Kind, i.Width, i.Height, i.MinLongEdge, i.MinShortEdge)
	case IssueFPSUnsupported:
		return fmt.Sprintf("%s: %.1f fps", i.Kind, float64(i.FPS))
	case IssueVideoTooShort:
		return fmt.Sprintf("%s: %.2fs real (%.2fs video), need %.1fs", i.Kind, i.RealDurationSec, i.VideoDurationSec, i.MinDurationSec)
	case IssueLowDetection:
		return fmt.Sprintf("%s: %d/%d frames (%.2f)", i.Kind, i.DetectedFrames, i.TotalFrames, i.DetectionRatio)
	case IssueDirectionUnclear, IssueDirectionInconsistent:
		return fmt.Sprintf("%s: left=%d right=%d", i.Kind, i.DirectionLeft, i.DirectionRight)
	case IssueFewStrides:
		return fmt.Sprintf("%s: left=%d right=%d", i.Kind, i.LeftContacts, i.RightContacts)
	default:
		return string(i.Kind)
	}
}
