package server

import (
	"net/http"
	"time"

	"github.com/silenttalk/signlens/internal/metrics"
	"github.com/silenttalk/signlens/internal/stream"
)

// StreamHandler serves annotated frames as MJPEG.
type StreamHandler struct {
	frames      *stream.Broadcaster
	placeholder []byte
	keepAlive   time.Duration
	metrics     *metrics.Metrics
}

// NewStreamHandler creates a new StreamHandler. placeholder is sent while
// no stream is producing frames.
func NewStreamHandler(frames *stream.Broadcaster, placeholder []byte, keepAlive time.Duration, m *metrics.Metrics) *StreamHandler {
	return &StreamHandler{frames: frames, placeholder: placeholder, keepAlive: keepAlive, metrics: m}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, frames := h.frames.Subscribe()
	defer h.frames.Unsubscribe(id)
	h.metrics.ViewerJoined()
	defer h.metrics.ViewerLeft()

	w.Header().Set("Content-Type", stream.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	current := func() []byte {
		if latest := h.frames.Latest(); latest != nil {
			return latest
		}
		return h.placeholder
	}

	timer := time.NewTimer(h.keepAlive)
	defer timer.Stop()

	data := current()
	for {
		if data != nil {
			if err := stream.WriteFrame(w, data); err != nil {
				return
			}
			flusher.Flush()
		}

		timer.Reset(h.keepAlive)
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			data = frame
		case <-timer.C:
			data = current()
		}
	}
}
