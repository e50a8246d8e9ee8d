package api

import (
	"context"
	"net/http"

	"github.com/silenttalk/signlens/internal/session"
)

// SnapshotSource reports the session state.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (session.Snapshot, error)
}

// SessionHandler serves GET /api/session.
type SessionHandler struct {
	session SnapshotSource
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s SnapshotSource) *SessionHandler {
	return &SessionHandler{session: s}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := h.session.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
