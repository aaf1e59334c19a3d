package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

// SearchAnalytics reads back recorded search outcomes.
type SearchAnalytics interface {
	GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
	GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}

// AnalyticsHandler handles search analytics requests
type AnalyticsHandler struct {
	analytics SearchAnalytics
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analytics SearchAnalytics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GetZeroResultSearches handles GET /api/analytics/zero-result-searches
func (h *AnalyticsHandler) GetZeroResultSearches(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := h.analytics.GetZeroResultSearches(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"searches": events,
		"count":    len(events),
	})
}

// GetFailedSearches handles GET /api/analytics/failed-searches
func (h *AnalyticsHandler) GetFailedSearches(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	events, err := h.analytics.GetFailedSearches(r.Context(), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"searches": events,
		"count":    len(events),
	})
}

func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "limit must be an integer")
		return 0, false
	}
	return limit, true
}
