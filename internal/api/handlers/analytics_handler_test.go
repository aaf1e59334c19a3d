package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/handlers"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/entities"
)

type stubAnalytics struct {
	limit  int
	events []*entities.SearchEvent
	err    error
}

func (s *stubAnalytics) GetZeroResultSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	s.limit = limit
	return s.events, s.err
}

func (s *stubAnalytics) GetFailedSearches(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	s.limit = limit
	return s.events, s.err
}

func TestAnalyticsHandler_GetFailedSearches(t *testing.T) {
	stub := &stubAnalytics{events: []*entities.SearchEvent{
		{ID: "e1", Flow: entities.SearchFlowInsurance, Outcome: entities.SearchOutcomeFailed, ErrorKind: "http"},
	}}
	handler := handlers.NewAnalyticsHandler(stub)

	req := httptest.NewRequest("GET", "/api/analytics/failed-searches?limit=10", nil)
	w := httptest.NewRecorder()
	handler.GetFailedSearches(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, stub.limit)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
}

func TestAnalyticsHandler_DefaultLimit(t *testing.T) {
	stub := &stubAnalytics{events: []*entities.SearchEvent{}}
	handler := handlers.NewAnalyticsHandler(stub)

	req := httptest.NewRequest("GET", "/api/analytics/zero-result-searches", nil)
	w := httptest.NewRecorder()
	handler.GetZeroResultSearches(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, stub.limit)
}

func TestAnalyticsHandler_BadLimit(t *testing.T) {
	handler := handlers.NewAnalyticsHandler(&stubAnalytics{})

	req := httptest.NewRequest("GET", "/api/analytics/zero-result-searches?limit=ten", nil)
	w := httptest.NewRecorder()
	handler.GetZeroResultSearches(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsHandler_StorageError(t *testing.T) {
	handler := handlers.NewAnalyticsHandler(&stubAnalytics{err: errors.New("connection refused")})

	req := httptest.NewRequest("GET", "/api/analytics/failed-searches", nil)
	w := httptest.NewRecorder()
	handler.GetFailedSearches(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}
