package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	landmarks Landmarks
	err       error
	calls     int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetLandmarks sets the landmarks that will be returned by Detect.
func (m *MockDetector) SetLandmarks(lm Landmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.landmarks = lm
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured landmarks or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return Landmarks{}, m.err
	}
	return m.landmarks, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// armPose returns a pose with the right arm placed at the given normalized heights.
func armPose(shoulderY, elbowY float64) *PoseLandmarks {
	pose := &PoseLandmarks{}
	for i := range pose.Visibility {
		pose.Visibility[i] = 0.9
	}
	pose.Points[PoseNose] = Point3D{X: 0.5, Y: 0.2}
	pose.Points[PoseLeftShoulder] = Point3D{X: 0.62, Y: shoulderY}
	pose.Points[PoseRightShoulder] = Point3D{X: 0.38, Y: shoulderY}
	pose.Points[PoseLeftElbow] = Point3D{X: 0.70, Y: elbowY}
	pose.Points[PoseRightElbow] = Point3D{X: 0.30, Y: elbowY}
	return pose
}

// handAt returns a flat right hand whose wrist sits at (x, y).
func handAt(x, y float64) HandLandmarks {
	hand := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}
	hand.Points[Wrist] = Point3D{X: x, Y: y}
	for i := 1; i < NumLandmarks; i++ {
		finger := float64((i-1)/4) * 0.02
		joint := float64((i-1)%4+1) * 0.02
		hand.Points[i] = Point3D{X: x - 0.04 + finger, Y: y - joint - 0.02}
	}
	return hand
}

// TypingLandmarks returns a preset with the wrist resting below the elbow,
// as when typing with relaxed forearms.
// In a 640x480 frame the elbow is at row 240 and the wrist at row 312.
func TypingLandmarks() Landmarks {
	return Landmarks{
		Pose:  armPose(0.35, 0.5),
		Hands: []HandLandmarks{handAt(0.40, 0.65)},
	}
}

// RaisedWristLandmarks returns a preset with the wrist well above the elbow.
// In a 640x480 frame the elbow is at row 240 and the wrist at row 144.
func RaisedWristLandmarks() Landmarks {
	return Landmarks{
		Pose:  armPose(0.35, 0.5),
		Hands: []HandLandmarks{handAt(0.40, 0.30)},
	}
}

// PoseOnlyLandmarks returns a preset where the body is tracked but no hand is visible.
func PoseOnlyLandmarks() Landmarks {
	return Landmarks{Pose: armPose(0.35, 0.5)}
}
