package landmark

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Overlay colors (BGR order is handled by gocv; these are RGBA).
var (
	faceColor      = color.RGBA{R: 80, G: 110, B: 10, A: 0}
	poseColor      = color.RGBA{R: 80, G: 22, B: 10, A: 0}
	leftHandColor  = color.RGBA{R: 121, G: 22, B: 76, A: 0}
	rightHandColor = color.RGBA{R: 245, G: 117, B: 66, A: 0}
)

// HandConnections are the bone pairs of a MediaPipe hand.
var HandConnections = [][2]int{
	{Wrist, ThumbCMC}, {ThumbCMC, ThumbMCP}, {ThumbMCP, ThumbIP}, {ThumbIP, ThumbTip},
	{Wrist, IndexMCP}, {IndexMCP, IndexPIP}, {IndexPIP, IndexDIP}, {IndexDIP, IndexTip},
	{IndexMCP, MiddleMCP}, {MiddleMCP, MiddlePIP}, {MiddlePIP, MiddleDIP}, {MiddleDIP, MiddleTip},
	{MiddleMCP, RingMCP}, {RingMCP, RingPIP}, {RingPIP, RingDIP}, {RingDIP, RingTip},
	{RingMCP, PinkyMCP}, {Wrist, PinkyMCP}, {PinkyMCP, PinkyPIP}, {PinkyPIP, PinkyDIP}, {PinkyDIP, PinkyTip},
}

// PoseConnections covers the upper body: shoulders, arms and hips.
var PoseConnections = [][2]int{
	{11, 12}, {11, 13}, {13, 15}, {12, 14}, {14, 16},
	{11, 23}, {12, 24}, {23, 24},
	{15, 17}, {15, 19}, {15, 21}, {16, 18}, {16, 20}, {16, 22},
}

// Draw renders the detected landmarks of f onto img in place.
func Draw(img *gocv.Mat, f *Frame) {
	if img == nil || img.Empty() || f == nil {
		return
	}
	w, h := img.Cols(), img.Rows()

	for _, p := range f.Region(FaceOffset, FacePoints) {
		if pt, ok := toPixel(p, w, h); ok {
			gocv.Circle(img, pt, 1, faceColor, -1)
		}
	}

	drawPart(img, f.Region(PoseOffset, PosePoints), PoseConnections, poseColor, 4)
	drawPart(img, f.Region(LeftHandOffset, HandPoints), HandConnections, leftHandColor, 3)
	drawPart(img, f.Region(RightHandOffset, HandPoints), HandConnections, rightHandColor, 3)
}

func drawPart(img *gocv.Mat, pts []Point, conns [][2]int, c color.RGBA, radius int) {
	w, h := img.Cols(), img.Rows()
	for _, conn := range conns {
		a, okA := toPixel(pts[conn[0]], w, h)
		b, okB := toPixel(pts[conn[1]], w, h)
		if okA && okB {
			gocv.Line(img, a, b, c, 2)
		}
	}
	for _, p := range pts {
		if pt, ok := toPixel(p, w, h); ok {
			gocv.Circle(img, pt, radius, c, -1)
		}
	}
}

// toPixel maps normalized coordinates to pixels. Points outside the frame
// are still drawn by OpenCV clipping; missing points are skipped.
func toPixel(p Point, w, h int) (image.Point, bool) {
	if isNaN(p.X) || isNaN(p.Y) {
		return image.Point{}, false
	}
	return image.Pt(int(p.X*float32(w)), int(p.Y*float32(h))), true
}
