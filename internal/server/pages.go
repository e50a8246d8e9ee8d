package server

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/silenttalk/signlens/internal/capture"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temporary file.
const multipartMemory = 32 << 20

// noSigns is shown in place of the sign list when nothing was detected.
const noSigns = "No signs detected"

// pageData is rendered by ASL.html.
type pageData struct {
	Message        string
	Error          string
	Preds          []string
	EnglishText    string
	VietnameseText string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("render template", slog.String("template", name), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, http.StatusOK, "about.html", nil)
}

func (s *Server) handleASL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.render(w, http.StatusOK, "ASL.html", pageData{})
}

// handleRecording serves /recordingASL: an upload in field "file", a
// "Start Webcam" submit-1 or a "Stop" submit-2.
func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, http.StatusOK, "ASL.html", pageData{})
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.config.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.render(w, http.StatusRequestEntityTooLarge, "ASL.html", pageData{Error: "File too large"})
			return
		}
		s.render(w, http.StatusBadRequest, "ASL.html", pageData{Error: "Invalid form"})
		return
	}

	switch {
	case s.hasFileField(r):
		s.handleUpload(w, r)
	case r.FormValue("submit-1") == "Start Webcam":
		if err := s.config.Session.StartWebcam(r.Context()); err != nil {
			s.log.Error("start webcam", slog.Any("error", err))
			s.render(w, http.StatusServiceUnavailable, "ASL.html", pageData{Error: "Could not start webcam"})
			return
		}
		s.render(w, http.StatusOK, "ASL.html", pageData{Message: "Webcam started"})
	case r.FormValue("submit-2") == "Stop":
		res, err := s.config.Session.Stop(r.Context())
		if err != nil {
			s.log.Error("stop session", slog.Any("error", err))
			s.render(w, http.StatusServiceUnavailable, "ASL.html", pageData{Error: "Could not stop"})
			return
		}
		preds := res.Signs
		if len(preds) == 0 {
			preds = []string{noSigns}
		}
		s.render(w, http.StatusOK, "ASL.html", pageData{
			Preds:          preds,
			EnglishText:    res.English,
			VietnameseText: res.Vietnamese,
		})
	default:
		s.render(w, http.StatusOK, "ASL.html", pageData{})
	}
}

// hasFileField reports whether the form carried a "file" field. A file
// input left empty arrives as a plain value with no file name.
func (s *Server) hasFileField(r *http.Request) bool {
	if r.MultipartForm == nil {
		return false
	}
	if len(r.MultipartForm.File["file"]) > 0 {
		return true
	}
	_, ok := r.MultipartForm.Value["file"]
	return ok
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 || headers[0].Filename == "" {
		s.render(w, http.StatusBadRequest, "ASL.html", pageData{Error: capture.ErrNoFile.Error()})
		return
	}
	header := headers[0]
	if err := capture.ValidateUpload(header.Filename); err != nil {
		s.render(w, http.StatusBadRequest, "ASL.html", pageData{Error: err.Error()})
		return
	}

	f, err := header.Open()
	if err != nil {
		s.render(w, http.StatusBadRequest, "ASL.html", pageData{Error: "Could not read upload"})
		return
	}
	defer f.Close()

	path, err := capture.SaveUpload(s.config.UploadDir, header.Filename, f)
	if err != nil {
		s.log.Error("save upload", slog.String("filename", header.Filename), slog.Any("error", err))
		s.render(w, http.StatusInternalServerError, "ASL.html", pageData{Error: "Could not save upload"})
		return
	}
	s.log.Info("file saved", slog.String("path", path))

	if err := s.config.Session.StartFile(r.Context(), path); err != nil {
		s.log.Error("start file stream", slog.Any("error", err))
		s.render(w, http.StatusServiceUnavailable, "ASL.html", pageData{Error: "Could not process video"})
		return
	}
	s.render(w, http.StatusOK, "ASL.html", pageData{
		Message: "Processing video: " + capture.SanitizeFilename(header.Filename),
	})
}

type toggleResponse struct {
	Status     string  `json:"status"`
	English    *string `json:"english,omitempty"`
	Vietnamese *string `json:"vietnamese,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// handleToggleDetection serves POST /toggle_detection with form field
// action=start|stop.
func (s *Server) handleToggleDetection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.FormValue("action") {
	case "start":
		if err := s.config.Session.StartDetection(r.Context()); err != nil {
			s.log.Error("start detection", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, toggleResponse{Status: "error", Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{Status: "started"})
	case "stop":
		res, err := s.config.Session.StopDetection(r.Context())
		if err != nil {
			s.log.Error("stop detection", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, toggleResponse{Status: "error", Message: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{
			Status:     "stopped",
			English:    &res.English,
			Vietnamese: &res.Vietnamese,
		})
	default:
		writeJSON(w, http.StatusOK, toggleResponse{Status: "error", Message: "Invalid action"})
	}
}
