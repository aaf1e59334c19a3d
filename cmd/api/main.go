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
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/cache"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/database"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/events"
	"github.com/zatekoja/healthcaresearch/backend/internal/adapters/session"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/handlers"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/middleware"
	"github.com/zatekoja/healthcaresearch/backend/internal/api/routes"
	"github.com/zatekoja/healthcaresearch/backend/internal/application/services"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/providers"
	"github.com/zatekoja/healthcaresearch/backend/internal/domain/repositories"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/healthcaresearch/backend/internal/infrastructure/clients/searchapi"
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

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Sessions and the upstream response cache live in Redis when it is
	// configured, otherwise in process memory.
	var sessionRepo repositories.SessionRepository = session.NewMemorySessionRepository(cfg.Search.SessionTTL)
	var searchCache providers.CacheProvider = cache.NewMemoryAdapter()
	var httpCache *middleware.CacheMiddleware
	var eventBus providers.EventBus

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize Redis client")
		}
		defer redisClient.Close()

		sessionRepo = session.NewRedisSessionRepository(redisClient, cfg.Search.SessionTTL)
		searchCache = cache.NewRedisAdapter(redisClient)
		httpCache = middleware.NewCacheMiddleware(searchCache, 30*time.Second)

		// Session changes go to the SSE server over Redis pub/sub
		redisBus := events.NewRedisEventBus(redisClient)
		defer redisBus.Close()
		eventBus = redisBus
		log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("using Redis for sessions and caching")
	}

	// Search analytics are optional and need PostgreSQL
	var tracker services.SearchTracker
	var analyticsHandler *handlers.AnalyticsHandler

	if cfg.Database.Enabled {
		pgClient, err := postgres.NewClient(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		analyticsAdapter := database.NewSearchAnalyticsAdapter(pgClient)
		if err := analyticsAdapter.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare search analytics schema")
		}

		analyticsService := services.NewSearchAnalyticsService(analyticsAdapter)
		tracker = analyticsService
		analyticsHandler = handlers.NewAnalyticsHandler(analyticsService)
		log.Info().Msg("search analytics enabled")
	}

	// Upstream search API: HTTP client, then circuit breaker, then cache
	var searchAPI providers.SearchAPI = searchapi.NewClient(cfg.SearchAPI.BaseURL, cfg.SearchAPI.Timeout)
	if cfg.CircuitBreaker.Enabled {
		searchAPI = searchapi.NewCircuitBreakerClient(searchAPI, cfg.CircuitBreaker, "search-api")
	}
	if cfg.Cache.Enabled {
		searchAPI = searchapi.NewCachedSearchAPI(searchAPI, searchCache, cfg.Cache.TTL, metrics)
	}

	stalePolicy, err := services.ParseStalePolicy(cfg.Search.StalePolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid stale policy")
	}

	sessionService := services.NewSessionService(sessionRepo)
	if eventBus != nil {
		sessionService.WithEventBus(eventBus)
	}
	orchestrator := services.NewSearchOrchestrator(sessionService, searchAPI, stalePolicy, tracker, metrics)

	router := routes.NewRouter(
		handlers.NewSessionHandler(sessionService),
		handlers.NewSearchHandler(orchestrator),
		analyticsHandler,
		httpCache,
		metrics,
		cfg.CORS.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SearchAPI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", serverAddr).
			Str("search_api", cfg.SearchAPI.BaseURL).
			Str("stale_policy", string(stalePolicy)).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
