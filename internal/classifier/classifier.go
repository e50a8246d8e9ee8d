// Package classifier maps windows of landmark frames to sign labels.
package classifier

import (
	"errors"

	"github.com/silenttalk/signlens/internal/landmark"
)

// ErrEmptyWindow is returned when Classify gets no frames.
var ErrEmptyWindow = errors.New("classifier: empty landmark window")

// Prediction is the top-1 result of one classification.
type Prediction struct {
	Index int     `json:"index"`
	Label string  `json:"label"`
	Score float32 `json:"score"`
}

// Classifier runs one inference over a window of frames. There is no
// confidence threshold: every successful call yields exactly one label.
type Classifier interface {
	Classify(window []landmark.Frame) (Prediction, error)
	Close() error
}

// ArgMax returns the index and value of the largest element, or -1 for an
// empty slice. NaN values never win.
func ArgMax(values []float32) (int, float32) {
	best := -1
	var bestVal float32
	for i, v := range values {
		if v != v {
			continue
		}
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	return best, bestVal
}

// Window keeps the most recent sampled frames, oldest first.
type Window struct {
	size   int
	frames []landmark.Frame
}

// NewWindow returns a window holding at most size frames (minimum 1).
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, frames: make([]landmark.Frame, 0, size)}
}

// Push appends f, evicting the oldest frame when full.
func (w *Window) Push(f landmark.Frame) {
	if len(w.frames) == w.size {
		copy(w.frames, w.frames[1:])
		w.frames = w.frames[:w.size-1]
	}
	w.frames = append(w.frames, f)
}

// Frames returns the buffered frames. The slice is reused by Push.
func (w *Window) Frames() []landmark.Frame { return w.frames }

func (w *Window) Len() int { return len(w.frames) }

// Reset drops all buffered frames.
func (w *Window) Reset() { w.frames = w.frames[:0] }
