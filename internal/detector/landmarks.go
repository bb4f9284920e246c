// Package detector provides pose and hand landmark detection for posture tracking.
package detector

import "image"

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Pose landmark indices following MediaPipe convention. Only the upper body
// is listed; the model reports NumPoseLandmarks points.
// See: https://developers.google.com/mediapipe/solutions/vision/pose_landmarker
const (
	PoseNose          = 0
	PoseLeftShoulder  = 11
	PoseRightShoulder = 12
	PoseLeftElbow     = 13
	PoseRightElbow    = 14
	PoseLeftWrist     = 15
	PoseRightWrist    = 16
	NumPoseLandmarks  = 33
)

// Knuckles are the MCP joints of the four fingers.
var Knuckles = [...]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}

// HandConnections lists the landmark pairs joined when drawing a hand.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// Point3D is a landmark position. X and Y are normalized to [0,1] by image
// width and height; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Pixel converts the normalized position to pixel coordinates in an image of
// the given size. Coordinates are truncated toward zero.
func (p Point3D) Pixel(width, height int) image.Point {
	return image.Point{
		X: int(p.X * float64(width)),
		Y: int(p.Y * float64(height)),
	}
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// PoseLandmarks represents the body landmarks detected by MediaPipe Pose.
type PoseLandmarks struct {
	Points     [NumPoseLandmarks]Point3D `json:"points"`
	Visibility [NumPoseLandmarks]float64 `json:"visibility"`
}

// Landmarks is everything detected in one frame. Pose is nil and Hands is
// empty when nothing was found.
type Landmarks struct {
	Pose  *PoseLandmarks  `json:"pose,omitempty"`
	Hands []HandLandmarks `json:"hands"`
}

// RightElbow returns the tracked elbow, if a pose was detected.
func (l *Landmarks) RightElbow() (Point3D, bool) {
	if l == nil || l.Pose == nil {
		return Point3D{}, false
	}
	return l.Pose.Points[PoseRightElbow], true
}

// PrimaryWrist returns the wrist of the first detected hand.
func (l *Landmarks) PrimaryWrist() (Point3D, bool) {
	if l == nil || len(l.Hands) == 0 {
		return Point3D{}, false
	}
	return l.Hands[0].Points[Wrist], true
}
