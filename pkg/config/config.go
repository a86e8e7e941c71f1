package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Environment string
	ServerPort  int
	LogLevel    string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisURL string

	JWTSecret     string
	TokenLifetime time.Duration

	CacheTTL        time.Duration
	JanitorInterval time.Duration

	// Default page sizes when the limit query parameter is omitted.
	DefaultPageLimit int
	ProductPageLimit int

	RateLimitPerMinute int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnv("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	cacheTTL, err := strconv.Atoi(getEnv("CACHE_TTL_SECONDS", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL_SECONDS: %w", err)
	}

	janitorInterval, err := strconv.Atoi(getEnv("CACHE_JANITOR_INTERVAL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_JANITOR_INTERVAL_SECONDS: %w", err)
	}

	defaultLimit, err := strconv.Atoi(getEnv("DEFAULT_PAGE_LIMIT", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PAGE_LIMIT: %w", err)
	}

	productLimit, err := strconv.Atoi(getEnv("PRODUCT_PAGE_LIMIT", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRODUCT_PAGE_LIMIT: %w", err)
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	tokenLifetime, err := strconv.Atoi(getEnv("TOKEN_LIFETIME_MINUTES", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_LIFETIME_MINUTES: %w", err)
	}

	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		ServerPort:         port,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             dbPort,
		DBUser:             getEnv("DB_USER", "catalogapi"),
		DBPassword:         getEnv("DB_PASSWORD", "dev"),
		DBName:             getEnv("DB_NAME", "catalogapi"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		RedisURL:           getEnv("REDIS_URL", ""),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		TokenLifetime:      time.Duration(tokenLifetime) * time.Minute,
		CacheTTL:           time.Duration(cacheTTL) * time.Second,
		JanitorInterval:    time.Duration(janitorInterval) * time.Second,
		DefaultPageLimit:   defaultLimit,
		ProductPageLimit:   productLimit,
		RateLimitPerMinute: rateLimit,
		CORSAllowedOrigins: parseCSVEnv("CORS_ALLOWED_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:3000",
		}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSVEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			trimmed := strings.TrimSpace(p)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
