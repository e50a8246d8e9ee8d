package landmark

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockExtractor is a test implementation of the Extractor interface.
// It allows tests to control the extraction results.
type MockExtractor struct {
	mu    sync.Mutex
	frame Frame
	err   error
	calls int
}

// NewMockExtractor returns a mock that reports every landmark missing.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{frame: NewFrame()}
}

// SetFrame sets the frame that will be returned by Extract.
func (m *MockExtractor) SetFrame(f Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
}

// SetError sets the error that will be returned by Extract.
func (m *MockExtractor) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Extract returns the pre-configured frame or error.
func (m *MockExtractor) Extract(frame *gocv.Mat) (Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return NewFrame(), m.err
	}
	return m.frame, nil
}

// Calls returns how many times Extract ran.
func (m *MockExtractor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close is a no-op for the mock extractor.
func (m *MockExtractor) Close() error {
	return nil
}

// ThumbsUpFrame returns a frame with only a right-hand thumbs up detected.
func ThumbsUpFrame() Frame {
	f := NewFrame()
	f.SetRightHand(ThumbsUpHand())
	return f
}

// OpenPalmFrame returns a frame with only a right-hand open palm detected.
func OpenPalmFrame() Frame {
	f := NewFrame()
	f.SetRightHand(OpenPalmHand())
	return f
}

// ThumbsUpHand returns a hand with the thumb extended upward while the
// other fingers are curled.
func ThumbsUpHand() Hand {
	var h Hand

	h[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	// Thumb pointing up (Y decreases going up)
	h[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.0}
	h[ThumbMCP] = Point{X: 0.58, Y: 0.65, Z: 0.0}
	h[ThumbIP] = Point{X: 0.58, Y: 0.50, Z: 0.0}
	h[ThumbTip] = Point{X: 0.58, Y: 0.35, Z: 0.0}

	// Fingers curled, tips near the palm
	h[IndexMCP] = Point{X: 0.55, Y: 0.70, Z: -0.02}
	h[IndexPIP] = Point{X: 0.55, Y: 0.68, Z: -0.05}
	h[IndexDIP] = Point{X: 0.52, Y: 0.70, Z: -0.04}
	h[IndexTip] = Point{X: 0.50, Y: 0.72, Z: -0.02}

	h[MiddleMCP] = Point{X: 0.50, Y: 0.68, Z: -0.02}
	h[MiddlePIP] = Point{X: 0.50, Y: 0.66, Z: -0.05}
	h[MiddleDIP] = Point{X: 0.47, Y: 0.68, Z: -0.04}
	h[MiddleTip] = Point{X: 0.45, Y: 0.70, Z: -0.02}

	h[RingMCP] = Point{X: 0.45, Y: 0.70, Z: -0.02}
	h[RingPIP] = Point{X: 0.45, Y: 0.68, Z: -0.05}
	h[RingDIP] = Point{X: 0.42, Y: 0.70, Z: -0.04}
	h[RingTip] = Point{X: 0.40, Y: 0.72, Z: -0.02}

	h[PinkyMCP] = Point{X: 0.40, Y: 0.72, Z: -0.02}
	h[PinkyPIP] = Point{X: 0.40, Y: 0.70, Z: -0.05}
	h[PinkyDIP] = Point{X: 0.37, Y: 0.72, Z: -0.04}
	h[PinkyTip] = Point{X: 0.35, Y: 0.74, Z: -0.02}

	return h
}

// OpenPalmHand returns a hand with all fingers extended.
func OpenPalmHand() Hand {
	var h Hand

	h[Wrist] = Point{X: 0.5, Y: 0.8, Z: 0.0}

	h[ThumbCMC] = Point{X: 0.55, Y: 0.75, Z: 0.02}
	h[ThumbMCP] = Point{X: 0.62, Y: 0.70, Z: 0.03}
	h[ThumbIP] = Point{X: 0.68, Y: 0.65, Z: 0.03}
	h[ThumbTip] = Point{X: 0.73, Y: 0.60, Z: 0.03}

	h[IndexMCP] = Point{X: 0.55, Y: 0.68, Z: 0.0}
	h[IndexPIP] = Point{X: 0.57, Y: 0.55, Z: 0.0}
	h[IndexDIP] = Point{X: 0.58, Y: 0.45, Z: 0.0}
	h[IndexTip] = Point{X: 0.58, Y: 0.35, Z: 0.0}

	h[MiddleMCP] = Point{X: 0.50, Y: 0.66, Z: 0.0}
	h[MiddlePIP] = Point{X: 0.50, Y: 0.52, Z: 0.0}
	h[MiddleDIP] = Point{X: 0.50, Y: 0.40, Z: 0.0}
	h[MiddleTip] = Point{X: 0.50, Y: 0.28, Z: 0.0}

	h[RingMCP] = Point{X: 0.45, Y: 0.68, Z: 0.0}
	h[RingPIP] = Point{X: 0.43, Y: 0.55, Z: 0.0}
	h[RingDIP] = Point{X: 0.42, Y: 0.45, Z: 0.0}
	h[RingTip] = Point{X: 0.42, Y: 0.35, Z: 0.0}

	h[PinkyMCP] = Point{X: 0.40, Y: 0.70, Z: 0.0}
	h[PinkyPIP] = Point{X: 0.37, Y: 0.60, Z: 0.0}
	h[PinkyDIP] = Point{X: 0.35, Y: 0.50, Z: 0.0}
	h[PinkyTip] = Point{X: 0.34, Y: 0.42, Z: 0.0}

	return h
}
