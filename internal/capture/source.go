// Package capture reads video frames from webcams and video files using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Default webcam settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrSourceNotOpen is returned when reading from a source that is not open.
	ErrSourceNotOpen = errors.New("video source is not open")
	// ErrEndOfStream is returned by file sources once every frame has been read.
	ErrEndOfStream = errors.New("end of video stream")
)

// Kind tells webcams and files apart.
type Kind string

const (
	KindWebcam Kind = "webcam"
	KindFile   Kind = "file"
)

// Source is a stream of frames. Implementations are not required to be safe
// for concurrent ReadFrame calls from more than one goroutine.
type Source interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes the Mat.
	ReadFrame() (*gocv.Mat, error)
	// FPS is the native frame rate, or 0 when unknown.
	FPS() float64
	IsOpen() bool
	Kind() Kind
	Name() string
}

// videoSource wraps gocv.VideoCapture for both device indexes and file paths.
type videoSource struct {
	kind     Kind
	deviceID int
	path     string
	// wantFPS is the frame rate requested from a webcam; 0 keeps the default.
	wantFPS  int

	mu      sync.Mutex
	capture *gocv.VideoCapture
	fps     float64
}

// NewWebcam returns a Source reading the given camera device.
func NewWebcam(deviceID int) Source {
	return &videoSource{kind: KindWebcam, deviceID: deviceID}
}

// NewWebcamFPS is NewWebcam with a requested frame rate. Drivers may
// ignore the request.
func NewWebcamFPS(deviceID, fps int) Source {
	return &videoSource{kind: KindWebcam, deviceID: deviceID, wantFPS: fps}
}

// NewFile returns a Source reading a video file from disk.
func NewFile(path string) Source {
	return &videoSource{kind: KindFile, path: path}
}

// Open opens the device or file. Webcams are asked for 640x480.
func (s *videoSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil {
		return nil
	}

	var (
		capture *gocv.VideoCapture
		err     error
	)
	if s.kind == KindWebcam {
		capture, err = gocv.OpenVideoCapture(s.deviceID)
	} else {
		capture, err = gocv.OpenVideoCapture(s.path)
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Name(), err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return fmt.Errorf("open %s: device not available", s.Name())
	}

	if s.kind == KindWebcam {
		capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
		capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)
		if s.wantFPS > 0 {
			capture.Set(gocv.VideoCaptureFPS, float64(s.wantFPS))
		}
	}
	s.fps = capture.Get(gocv.VideoCaptureFPS)
	s.capture = capture

	return nil
}

// Close releases the capture. Closing a closed source is a no-op.
func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}
	err := s.capture.Close()
	s.capture = nil
	return err
}

// ReadFrame reads one frame. Files report ErrEndOfStream when exhausted;
// a webcam that stops delivering frames is an error.
func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, ErrSourceNotOpen
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if s.kind == KindFile {
			return nil, ErrEndOfStream
		}
		return nil, errors.New("failed to read frame from camera")
	}

	return &mat, nil
}

func (s *videoSource) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *videoSource) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capture != nil
}

func (s *videoSource) Kind() Kind { return s.kind }

func (s *videoSource) Name() string {
	if s.kind == KindWebcam {
		return fmt.Sprintf("webcam %d", s.deviceID)
	}
	return s.path
}
