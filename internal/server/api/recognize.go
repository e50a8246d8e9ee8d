package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/silenttalk/signlens/internal/capture"
	"github.com/silenttalk/signlens/internal/store"
)

// Recognizer runs whole-file recognition. cached reports whether the
// result came from an earlier run on identical content.
type Recognizer interface {
	Recognize(ctx context.Context, path, filename string) (rec *store.Recognition, cached bool, err error)
}

// RecognizeHandler serves POST /api/recognize.
type RecognizeHandler struct {
	recognizer Recognizer
	uploadDir  string
	maxBytes   int64
	logger     *slog.Logger
}

// NewRecognizeHandler creates a new RecognizeHandler. Uploads are staged
// in uploadDir and removed after recognition.
func NewRecognizeHandler(rec Recognizer, uploadDir string, maxBytes int64, logger *slog.Logger) *RecognizeHandler {
	return &RecognizeHandler{recognizer: rec, uploadDir: uploadDir, maxBytes: maxBytes, logger: logger}
}

type recognizeResponse struct {
	Success    bool      `json:"success"`
	ID         string    `json:"id"`
	SHA256     string    `json:"sha256"`
	Filename   string    `json:"filename"`
	Signs      []string  `json:"signs"`
	Prediction string    `json:"prediction"`
	Cached     bool      `json:"cached"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (h *RecognizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	file, header, err := r.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Video too large")
			return
		}
		writeError(w, http.StatusBadRequest, "No video file provided")
		return
	}
	defer file.Close()

	path, err := capture.SaveUpload(h.uploadDir, header.Filename, file)
	if err != nil {
		if errors.Is(err, capture.ErrInvalidFileType) || errors.Is(err, capture.ErrNoFile) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("stage upload", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "Error saving video")
		return
	}
	defer os.Remove(path)

	rec, cached, err := h.recognizer.Recognize(r.Context(), path, header.Filename)
	if err != nil {
		h.logger.Error("recognize video",
			slog.String("filename", header.Filename),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "Error processing video")
		return
	}

	signs := rec.Signs
	if signs == nil {
		signs = []string{}
	}
	writeJSON(w, http.StatusOK, recognizeResponse{
		Success:    true,
		ID:         rec.ID,
		SHA256:     rec.SHA256,
		Filename:   rec.Filename,
		Signs:      signs,
		Prediction: rec.Sentence,
		Cached:     cached,
		CreatedAt:  rec.CreatedAt,
	})
}
