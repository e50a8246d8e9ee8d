package landmark

import "gocv.io/x/gocv"

// Extractor turns a video frame into a holistic landmark frame.
type Extractor interface {
	// Extract returns a frame with NaN for every landmark not detected.
	Extract(frame *gocv.Mat) (Frame, error)

	// Close releases any resources held by the extractor.
	Close() error
}

// Config holds the MediaPipe Holistic options.
type Config struct {
	// MinDetectionConf is the minimum detection confidence (0.0-1.0).
	MinDetectionConf float64

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64

	// Python is the interpreter used to run Script. Empty means a local
	// venv if one exists, otherwise python3.
	Python string

	// Script is the path of the holistic service.
	Script string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinDetectionConf: 0.5,
		MinTrackingConf:  0.5,
		Script:           "scripts/holistic_service.py",
	}
}
