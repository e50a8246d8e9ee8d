// Package landmark extracts holistic body, hand and face landmarks from video frames.
package landmark

import "math"

// Holistic frame layout. Rows are stored face, left hand, pose, right hand.
const (
	FacePoints = 468
	HandPoints = 21
	PosePoints = 33

	FaceOffset      = 0
	LeftHandOffset  = FaceOffset + FacePoints
	PoseOffset      = LeftHandOffset + HandPoints
	RightHandOffset = PoseOffset + PosePoints

	// RowsPerFrame is the number of landmark rows in one frame.
	RowsPerFrame = RightHandOffset + HandPoints
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist     = 0
	ThumbCMC  = 1
	ThumbMCP  = 2
	ThumbIP   = 3
	ThumbTip  = 4
	IndexMCP  = 5
	IndexPIP  = 6
	IndexDIP  = 7
	IndexTip  = 8
	MiddleMCP = 9
	MiddlePIP = 10
	MiddleDIP = 11
	MiddleTip = 12
	RingMCP   = 13
	RingPIP   = 14
	RingDIP   = 15
	RingTip   = 16
	PinkyMCP  = 17
	PinkyPIP  = 18
	PinkyDIP  = 19
	PinkyTip  = 20
)

// Point is a normalized landmark coordinate. Missing landmarks are NaN.
type Point struct {
	X, Y, Z float32
}

var missing = Point{X: nan32(), Y: nan32(), Z: nan32()}

// Valid reports whether all three coordinates are present.
func (p Point) Valid() bool {
	return !isNaN(p.X) && !isNaN(p.Y) && !isNaN(p.Z)
}

// Hand is one detected hand.
type Hand [HandPoints]Point

// Frame is one holistic landmark frame of RowsPerFrame rows.
type Frame [RowsPerFrame]Point

// NewFrame returns a frame with every landmark missing.
func NewFrame() Frame {
	var f Frame
	for i := range f {
		f[i] = missing
	}
	return f
}

// HasAny reports whether at least one coordinate was detected.
func (f *Frame) HasAny() bool {
	for _, p := range f {
		if !isNaN(p.X) || !isNaN(p.Y) || !isNaN(p.Z) {
			return true
		}
	}
	return false
}

// Region returns the rows of one body part.
func (f *Frame) Region(offset, n int) []Point {
	return f[offset : offset+n]
}

// SetRightHand copies h into the right hand rows.
func (f *Frame) SetRightHand(h Hand) {
	copy(f[RightHandOffset:RightHandOffset+HandPoints], h[:])
}

// SetLeftHand copies h into the left hand rows.
func (f *Frame) SetLeftHand(h Hand) {
	copy(f[LeftHandOffset:LeftHandOffset+HandPoints], h[:])
}

// Flatten appends the frame as x,y,z triples.
func (f *Frame) Flatten(dst []float32) []float32 {
	for _, p := range f {
		dst = append(dst, p.X, p.Y, p.Z)
	}
	return dst
}

func nan32() float32 { return float32(math.NaN()) }

func isNaN(v float32) bool { return v != v }
