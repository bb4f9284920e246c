package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the detected pose and hands.
	// Finding nothing is not an error: the result is simply empty.
	Detect(frame *gocv.Mat) (Landmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ModelComplexity selects the pose model (0, 1 or 2; 2 is the most accurate).
	ModelComplexity int

	// Python is the interpreter used for the MediaPipe service. Empty means
	// a virtualenv interpreter if one is found, otherwise python3.
	Python string

	// Script is the path to pose_service.py. Empty means search the usual locations.
	Script string
}

// DefaultConfig returns a Config tuned for a single person at a desk.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
		ModelComplexity: 2,
	}
}
