// Package pipeline runs the per-frame loop: read, extract landmarks,
// classify sampled frames, annotate and publish.
package pipeline

import (
	"fmt"

	"github.com/silenttalk/signlens/internal/capture"
)

// Stage names the step of the frame loop that failed.
type Stage string

const (
	StageSourceOpen  Stage = "source-open"
	StageFrameDecode Stage = "frame-decode"
	StageLandmark    Stage = "landmark"
	StageInference   Stage = "inference"
	StageEncode      Stage = "encode"
)

// StageError is an error tagged with the stage and 1-based frame index.
// Frame is 0 for errors raised before the first frame.
type StageError struct {
	Stage  Stage
	Frame  int
	Source capture.Kind
	Err    error
}

func (e *StageError) Error() string {
	if e.Frame > 0 {
		return fmt.Sprintf("%s (frame %d): %v", e.Stage, e.Frame, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Fatal reports whether the stream cannot continue after this error.
// Files report running out of frames as capture.ErrEndOfStream, so a
// frame-decode error always means a broken source.
func (e *StageError) Fatal() bool {
	return e.Stage == StageSourceOpen || e.Stage == StageFrameDecode
}
