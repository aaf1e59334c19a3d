package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// SessionManager is the session surface the HTTP layer needs.
type SessionManager interface {
	Create(ctx context.Context) (*entities.Session, error)
	Get(ctx context.Context, id string) (*entities.Session, error)
	SelectTabs(ctx context.Context, id string, sel services.TabSelection) (*entities.Session, error)
}

// SessionHandler handles session lifecycle and tab requests
type SessionHandler struct {
	sessions SessionManager
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions SessionManager) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Create(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, services.BuildView(session))
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}

// SelectTabs handles PATCH /api/sessions/{id}/tabs
func (h *SessionHandler) SelectTabs(w http.ResponseWriter, r *http.Request) {
	var sel services.TabSelection
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sel); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.sessions.SelectTabs(r.Context(), r.PathValue("id"), sel)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, services.BuildView(session))
}
