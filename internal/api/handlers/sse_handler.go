package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
)

const defaultHeartbeat = 30 * time.Second

// SSEHandler streams a session's view to the browser whenever the session
// is stored with new state.
type SSEHandler struct {
	sessions  SessionManager
	eventBus  providers.EventBus
	heartbeat time.Duration
	clients   atomic.Int64
}

// NewSSEHandler creates a new SSE handler
func NewSSEHandler(sessions SessionManager, eventBus providers.EventBus) *SSEHandler {
	return &SSEHandler{
		sessions:  sessions,
		eventBus:  eventBus,
		heartbeat: defaultHeartbeat,
	}
}

// WithHeartbeat overrides the keep-alive interval.
func (h *SSEHandler) WithHeartbeat(d time.Duration) *SSEHandler {
	h.heartbeat = d
	return h
}

// StreamSession handles GET /api/stream/sessions/{id}
func (h *SSEHandler) StreamSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")
	logger := observability.LoggerFromContext(ctx).With().Str("session_id", sessionID).Logger()

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// Subscribe before loading so no change between the two is lost
	eventChan, err := h.eventBus.Subscribe(ctx, providers.GetSessionChannel(sessionID))
	if err != nil {
		logger.Error().Err(err).Msg("failed to subscribe to session events")
		respondWithError(w, http.StatusServiceUnavailable, "session updates unavailable")
		return
	}

	session, err := h.sessions.Get(ctx, sessionID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	h.clients.Add(1)
	defer h.clients.Add(-1)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The current view first, so the client never waits for a change to render
	h.sendEvent(w, "view", services.BuildView(session))
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("client disconnected from session stream")
			return
		case <-ticker.C:
			h.sendEvent(w, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
			flusher.Flush()
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			current, err := h.sessions.Get(ctx, event.SessionID)
			if err != nil {
				// Expired while streaming
				h.sendEvent(w, "closed", map[string]string{"reason": "session not available"})
				flusher.Flush()
				return
			}
			h.sendEvent(w, "view", services.BuildView(current))
			flusher.Flush()
		}
	}
}

// ClientCount returns the number of connected stream clients
func (h *SSEHandler) ClientCount() int64 {
	return h.clients.Load()
}

// Stats handles GET /api/stream/stats
func (h *SSEHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{
		"clients": h.ClientCount(),
	})
}

func (h *SSEHandler) sendEvent(w http.ResponseWriter, eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
}
