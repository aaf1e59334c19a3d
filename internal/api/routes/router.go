package routes

import (
	"net/http"

	"github.com/zatekoja/healthcaresearch/backend/internal/api/handlers"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/middleware"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	sessionHandler   *handlers.SessionHandler
	searchHandler    *handlers.SearchHandler
	analyticsHandler *handlers.AnalyticsHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
	allowedOrigins  []string
}

// NewRouter creates a new router. analyticsHandler and cacheMiddleware may be nil.
func NewRouter(
	sessionHandler *handlers.SessionHandler,
	searchHandler *handlers.SearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
	allowedOrigins []string,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		sessionHandler:   sessionHandler,
		searchHandler:    searchHandler,
		analyticsHandler: analyticsHandler,
		cacheMiddleware:  cacheMiddleware,
		metrics:          metrics,
		allowedOrigins:   allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Session endpoints
	r.mux.HandleFunc("POST /api/sessions", r.sessionHandler.CreateSession)
	r.mux.HandleFunc("GET /api/sessions/{id}", r.sessionHandler.GetSession)
	r.mux.HandleFunc("PATCH /api/sessions/{id}/tabs", r.sessionHandler.SelectTabs)

	// Hospital search endpoints
	r.mux.HandleFunc("POST /api/sessions/{id}/hospitals/search", r.searchHandler.SearchHospitals)
	r.mux.HandleFunc("POST /api/sessions/{id}/hospitals/radius-search", r.searchHandler.SearchHospitalsByRadius)
	r.mux.HandleFunc("PUT /api/sessions/{id}/hospitals/filters", r.searchHandler.ApplyHospitalFilters)

	// Insurance search endpoints
	r.mux.HandleFunc("POST /api/sessions/{id}/insurance/search", r.searchHandler.SearchInsurance)
	r.mux.HandleFunc("PUT /api/sessions/{id}/insurance/filters", r.searchHandler.ApplyInsuranceFilters)

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("GET /api/analytics/zero-result-searches", r.analyticsHandler.GetZeroResultSearches)
		r.mux.HandleFunc("GET /api/analytics/failed-searches", r.analyticsHandler.GetFailedSearches)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)

	// CORS wraps everything so headers are set even on cache hits
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
