// Package session owns the single recognition session: which source is
// streaming, whether detection is on, and the signs detected so far.
package session

import (
	"slices"
	"time"
)

// Phase is the state of the session's stream.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOpening
	PhaseStreaming
	PhaseDetecting
	PhaseStopping
	PhaseClosed
)

var phaseNames = [...]string{"idle", "opening", "streaming", "detecting", "stopping", "closed"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Streaming reports whether a source is active in this phase.
func (p Phase) Streaming() bool {
	return p == PhaseOpening || p == PhaseStreaming || p == PhaseDetecting
}

// PredictionHistory is the number of raw predictions kept in a snapshot.
const PredictionHistory = 5

// Ring keeps the last n strings pushed.
type Ring struct {
	items []string
	next  int
	full  bool
}

// NewRing returns an empty ring of capacity n.
func NewRing(n int) *Ring {
	return &Ring{items: make([]string, n)}
}

func (r *Ring) Push(s string) {
	if len(r.items) == 0 {
		return
	}
	r.items[r.next] = s
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

// Items returns the contents oldest first.
func (r *Ring) Items() []string {
	if !r.full {
		return slices.Clone(r.items[:r.next])
	}
	return append(slices.Clone(r.items[r.next:]), r.items[:r.next]...)
}

func (r *Ring) Reset() {
	clear(r.items)
	r.next = 0
	r.full = false
}

// AppendDistinct appends s unless it equals the last element. It reports
// whether s was appended.
func AppendDistinct(signs []string, s string) ([]string, bool) {
	if n := len(signs); n > 0 && signs[n-1] == s {
		return signs, false
	}
	return append(signs, s), true
}

// Snapshot is a copy of the session state.
type Snapshot struct {
	Phase     Phase  `json:"-"`
	PhaseName string `json:"phase"`
	Streaming bool   `json:"streaming"`
	// Detecting is true while detection is armed, even before a stream opens.
	Detecting       bool      `json:"detecting"`
	StreamID        string    `json:"streamId,omitempty"`
	Source          string    `json:"source,omitempty"`
	VideoPath       string    `json:"videoPath,omitempty"`
	DetectedSigns   []string  `json:"detectedSigns"`
	Sentence        string    `json:"sentence"`
	English         string    `json:"english"`
	Vietnamese      string    `json:"vietnamese"`
	LastPredictions []string  `json:"lastPredictions"`
	Frames          int64     `json:"frames"`
	Classifications int       `json:"classifications"`
	LastError       string    `json:"lastError,omitempty"`
	StartedAt       time.Time `json:"startedAt,omitzero"`
}

// Result is what stopping detection or the stream produces.
type Result struct {
	Signs      []string
	English    string
	Vietnamese string
	// RemovedFile is the uploaded file deleted by Stop, if any.
	RemovedFile string
}

// Listener is notified of session changes. Calls are made on the
// supervisor goroutine and must not block.
type Listener interface {
	SignDetected(sign string, signs []string)
	StateChanged(s Snapshot)
}
