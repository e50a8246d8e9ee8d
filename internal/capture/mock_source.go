package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-recorded or blank frames for testing.
type MockSource struct {
	frames []*gocv.Mat
	// blank, when positive, makes the source emit that many generated frames.
	blank   int
	loop    bool
	kind    Kind
	openErr error
	readErr error

	mu      sync.Mutex
	index   int
	running bool
	opens   int
}

// NewMockSource replays frames in order, cloning each one.
func NewMockSource(frames []*gocv.Mat, loop bool) *MockSource {
	return &MockSource{frames: frames, loop: loop, kind: KindFile}
}

// NewBlankSource emits n black 640x480 frames and then ErrEndOfStream.
func NewBlankSource(n int) *MockSource {
	return &MockSource{blank: n, kind: KindFile}
}

// AsWebcam makes the mock report itself as a webcam.
func (s *MockSource) AsWebcam() *MockSource {
	s.kind = KindWebcam
	return s
}

// SetOpenError makes Open fail with err.
func (s *MockSource) SetOpenError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

// SetReadError makes every ReadFrame fail with err.
func (s *MockSource) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *MockSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.running = true
	s.index = 0
	s.opens++
	return nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil, ErrSourceNotOpen
	}
	if s.readErr != nil {
		return nil, s.readErr
	}

	total := len(s.frames)
	if s.blank > 0 {
		total = s.blank
	}
	if total == 0 {
		return nil, ErrEndOfStream
	}
	if s.index >= total {
		if !s.loop {
			return nil, ErrEndOfStream
		}
		s.index = 0
	}

	var frame gocv.Mat
	if s.blank > 0 {
		frame = gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	} else {
		frame = s.frames[s.index].Clone()
	}
	s.index++

	return &frame, nil
}

func (s *MockSource) FPS() float64 { return 0 }

func (s *MockSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *MockSource) Kind() Kind   { return s.kind }
func (s *MockSource) Name() string { return "mock " + string(s.kind) }

// Opens returns how many times Open succeeded.
func (s *MockSource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

// Read returns how many frames have been handed out since the last Open.
func (s *MockSource) Read() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// NewEndlessSource emits blank frames until closed, like a webcam.
func NewEndlessSource() *MockSource {
	return &MockSource{blank: 1, loop: true, kind: KindWebcam}
}
