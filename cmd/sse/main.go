package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/events"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/session"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/handlers"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/middleware"
	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/observability"
	"github.com/zatekoja/healthcaresearch/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-sse", cfg.Env)
	log.Info().Msg("starting SSE server")

	// Sessions and their change events are shared with the API server
	// through Redis, so it is required here.
	redisClient, err := redis.NewClient(context.Background(), &cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Redis client")
	}
	defer redisClient.Close()

	eventBus := events.NewRedisEventBus(redisClient)
	sessionService := services.NewSessionService(session.NewRedisSessionRepository(redisClient, cfg.Search.SessionTTL))
	sseHandler := handlers.NewSSEHandler(sessionService, eventBus)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /api/stream/sessions/{id}", sseHandler.StreamSession)
	mux.HandleFunc("GET /api/stream/stats", sseHandler.Stats)

	// No compression or ETag here: both buffer the response
	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(cfg.CORS.AllowedOrigins)(handler)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streams stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("SSE server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("SSE server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("SSE server shutting down")

	// Closing the bus ends every open stream
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("error closing event bus")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("SSE server stopped")
}
