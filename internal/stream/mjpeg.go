package stream

import (
	"fmt"
	"io"
)

// Boundary separates parts of the multipart MJPEG response.
const Boundary = "frame"

// ContentType is the Content-Type of an MJPEG response.
const ContentType = "multipart/x-mixed-replace; boundary=" + Boundary

// WriteFrame writes one JPEG as a multipart part.
func WriteFrame(w io.Writer, jpeg []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", Boundary, len(jpeg)); err != nil {
		return err
	}
	if _, err := w.Write(jpeg); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
