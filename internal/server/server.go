// Package server provides the HTTP surface of the sign recognition demo.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/silenttalk/signlens/internal/lgr"
	"github.com/silenttalk/signlens/internal/metrics"
	"github.com/silenttalk/signlens/internal/server/api"
	"github.com/silenttalk/signlens/internal/session"
	"github.com/silenttalk/signlens/internal/stream"
	"github.com/silenttalk/signlens/internal/translate"
)

// Session is the part of the session supervisor the handlers drive.
type Session interface {
	StartWebcam(ctx context.Context) error
	StartFile(ctx context.Context, path string) error
	StartDetection(ctx context.Context) error
	StopDetection(ctx context.Context) (session.Result, error)
	Stop(ctx context.Context) (session.Result, error)
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// Config holds the server configuration. Nil optional fields disable
// the routes that need them.
type Config struct {
	Session    Session
	Frames     *stream.Broadcaster
	Translator translate.Translator
	Recognizer api.Recognizer
	Hub        *Hub
	Metrics    *metrics.Metrics

	UploadDir      string
	MaxUploadBytes int64
	ModelVersion   string
	// KeepAlive is how long a viewer waits for a frame before the
	// placeholder or last frame is resent.
	KeepAlive time.Duration
	Logger    *slog.Logger
}

// Server represents the HTTP server.
type Server struct {
	config      Config
	mux         *http.ServeMux
	handler     http.Handler
	start       time.Time
	log         *slog.Logger
	placeholder []byte
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = lgr.Logger
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if config.KeepAlive <= 0 {
		config.KeepAlive = 5 * time.Second
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    config.Logger,
	}
	placeholder, err := stream.Placeholder(640, 480, "No camera or video active")
	if err != nil {
		s.log.Error("render placeholder", slog.Any("error", err))
	}
	s.placeholder = placeholder

	s.setupRoutes()
	s.handler = requestID(recoverer(s.log, accessLog(s.log, s.mux)))
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/{$}", s.handleIndex)
	s.mux.HandleFunc("/ASL", s.handleASL)

	if s.config.Session != nil {
		s.mux.HandleFunc("/toggle_detection", s.handleToggleDetection)
		s.mux.HandleFunc("/recordingASL", s.handleRecording)
		s.mux.Handle("/api/session", api.NewSessionHandler(s.config.Session))
	}

	if s.config.Frames != nil {
		s.mux.Handle("/video_feed", NewStreamHandler(s.config.Frames, s.placeholder, s.config.KeepAlive, s.config.Metrics))
	}

	if s.config.Translator != nil {
		s.mux.Handle("/api/translate", api.NewTranslateHandler(s.config.Translator, s.log))
	}

	if s.config.Recognizer != nil {
		s.mux.Handle("/api/recognize", api.NewRecognizeHandler(
			s.config.Recognizer, s.config.UploadDir, s.config.MaxUploadBytes, s.log))
	}

	if s.config.Hub != nil {
		s.mux.Handle("/ws/signs", s.config.Hub)
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics.Handler())
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.ModelVersion != "" {
		response["modelVersion"] = s.config.ModelVersion
	}
	if s.config.Session != nil {
		if snap, err := s.config.Session.Snapshot(r.Context()); err == nil {
			response["phase"] = snap.PhaseName
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Debug("encode response", slog.Any("error", err))
	}
}
