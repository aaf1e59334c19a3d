package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env            string
	Server         ServerConfig
	SearchAPI      SearchAPIConfig
	Search         SearchConfig
	CircuitBreaker CircuitBreakerConfig
	Cache          CacheConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	OTEL           OTELConfig
	CORS           CORSConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string
	Port int
}

// SearchAPIConfig points at the upstream hospital/insurance backend
type SearchAPIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SearchConfig holds search session behaviour
type SearchConfig struct {
	// StalePolicy is either "latest-issued" or "last-resolved".
	StalePolicy string
	SessionTTL  time.Duration
}

// CircuitBreakerConfig guards the upstream backend
type CircuitBreakerConfig struct {
	Enabled          bool
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// CacheConfig holds upstream response caching configuration
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DatabaseConfig holds the search analytics database configuration
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// CORSConfig lists the origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env: getEnv("ENV", "production"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		SearchAPI: SearchAPIConfig{
			BaseURL: getEnv("SEARCH_API_URL", "http://localhost:3001"),
			Timeout: getEnvAsDuration("SEARCH_API_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			StalePolicy: getEnv("SEARCH_STALE_POLICY", "latest-issued"),
			SessionTTL:  getEnvAsDuration("SEARCH_SESSION_TTL", 30*time.Minute),
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:          getEnvAsBool("CIRCUIT_BREAKER_ENABLED", true),
			MaxRequests:      uint32(getEnvAsInt("CIRCUIT_BREAKER_MAX_REQUESTS", 1)),
			Interval:         getEnvAsDuration("CIRCUIT_BREAKER_INTERVAL", 60*time.Second),
			Timeout:          getEnvAsDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
			ReadyToTripRatio: getEnvAsFloat("CIRCUIT_BREAKER_TRIP_RATIO", 0.6),
		},
		Cache: CacheConfig{
			Enabled: getEnvAsBool("SEARCH_CACHE_ENABLED", true),
			TTL:     getEnvAsDuration("SEARCH_CACHE_TTL", 2*time.Minute),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("ANALYTICS_ENABLED", false),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "healthcare_search"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "healthcare-search"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SearchAPI.BaseURL) == "" {
		return fmt.Errorf("SEARCH_API_URL must not be empty")
	}
	switch c.Search.StalePolicy {
	case "latest-issued", "last-resolved":
	default:
		return fmt.Errorf("SEARCH_STALE_POLICY must be latest-issued or last-resolved, got %q", c.Search.StalePolicy)
	}
	if c.Search.SessionTTL <= 0 {
		return fmt.Errorf("SEARCH_SESSION_TTL must be positive")
	}
	if c.CircuitBreaker.ReadyToTripRatio <= 0 || c.CircuitBreaker.ReadyToTripRatio > 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_TRIP_RATIO must be in (0, 1]")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
