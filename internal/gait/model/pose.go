package model

// BodyPart names a slot in the 33-point pose topology. The numeric values
// are the positional indices used by the pose estimator and must not change.
type BodyPart int

const (
	Nose BodyPart = iota
	LeftEyeInner
	LeftEye
	LeftEyeOuter
	RightEyeInner
	RightEye
	RightEyeOuter
	LeftEar
	RightEar
	MouthLeft
	MouthRight
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftPinky
	RightPinky
	LeftIndex
	RightIndex
	LeftThumb
	RightThumb
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftHeel
	RightHeel
	LeftFootIndex
	RightFootIndex

	// NumLandmarks is the size of a complete pose.
	NumLandmarks int = iota
)

// Landmark is one body point in normalised image coordinates. X grows to the
// right, Y grows downwards, so a larger Y is closer to the ground.
type Landmark struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// Pose is a complete detection. Slots are addressed through BodyPart only.
type Pose [NumLandmarks]Landmark

// At returns the landmark for part.
func (p *Pose) At(part BodyPart) Landmark {
	return p[part]
}

// Keypoint is a raw estimator keypoint in source-image pixel space.
// Score is NaN when the estimator does not report one.
type Keypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Score float64 `json:"score"`
}

// DetectedPose is what a pose estimator returns for one person. Score is NaN
// when only per-keypoint scores are available.
type DetectedPose struct {
	Keypoints []Keypoint
	Score     float64
}

// FrameRecord is one sampled instant. Landmarks is nil when nothing usable
// was detected; it is never partially filled.
type FrameRecord struct {
	T         float64
	Landmarks *Pose
	SampleFPS int
}

// Detected reports whether the frame carries a pose.
func (f FrameRecord) Detected() bool {
	return f.Landmarks != nil
}
