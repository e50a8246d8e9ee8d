package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"
)

const (
	bandHeight = 180
	bandAlpha  = 0.7
	// captionSigns is how many recent signs the caption shows.
	captionSigns = 5
	captionChars = 40
	captionRows  = 2

	ellipsis = "..."
)

var (
	bandColor    = color.RGBA{R: 40, G: 40, B: 40, A: 0}
	activeColor  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	pausedColor  = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	captionColor = color.RGBA{R: 255, G: 255, B: 255, A: 0}
	labelColor   = color.RGBA{R: 255, G: 230, B: 0, A: 0}
)

// drawStatus blends a dark band along the bottom of img and writes the
// detection status and the last few detected signs on it.
func drawStatus(img *gocv.Mat, detecting bool, signs []string) {
	w, h := img.Cols(), img.Rows()
	top := h - bandHeight
	if top < 0 {
		top = 0
	}

	overlay := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, img.Type())
	defer overlay.Close()
	gocv.Rectangle(&overlay, image.Rect(0, top, w, h), bandColor, -1)
	gocv.AddWeighted(*img, 1, overlay, bandAlpha, 0, img)

	status, c := "PAUSED", pausedColor
	if detecting {
		status, c = "DETECTING", activeColor
	}
	gocv.PutText(img, status, image.Pt(20, 50), gocv.FontHersheySimplex, 1, c, 2)

	gocv.PutText(img, "Sentence:", image.Pt(20, h-90), gocv.FontHersheySimplex, 0.7, labelColor, 2)
	for i, line := range captionLines(signs) {
		gocv.PutText(img, line, image.Pt(20, h-60+30*i), gocv.FontHersheySimplex, 0.9, captionColor, 2)
	}
}

// captionLines joins the last captionSigns signs and wraps the result on
// word boundaries into at most captionRows lines of captionChars runes.
// Text that does not fit ends the last line with an ellipsis.
func captionLines(signs []string) []string {
	if len(signs) > captionSigns {
		signs = signs[len(signs)-captionSigns:]
	}

	var lines []string
	var cur []rune
	for _, word := range strings.Fields(strings.Join(signs, " ")) {
		w := []rune(word)
		switch {
		case len(cur) == 0:
		case len(cur)+1+len(w) <= captionChars:
			cur = append(cur, ' ')
		default:
			lines = append(lines, string(cur))
			cur = nil
		}
		cur = append(cur, w...)
		for len(cur) > captionChars {
			lines = append(lines, string(cur[:captionChars]))
			cur = cur[captionChars:]
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}

	if len(lines) > captionRows {
		last := []rune(lines[captionRows-1])
		if len(last) > captionChars-len(ellipsis) {
			last = last[:captionChars-len(ellipsis)]
		}
		lines = append(lines[:captionRows-1], string(last)+ellipsis)
	}
	return lines
}

// EncodeJPEG encodes img and returns a Go-owned copy of the bytes.
func EncodeJPEG(img gocv.Mat, quality int) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	if len(data) == 0 {
		return nil, fmt.Errorf("encode jpeg: empty output")
	}
	return append([]byte(nil), data...), nil
}
