package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/catalogapi/internal/handler"
	"github.com/yourorg/catalogapi/internal/infrastructure/logger"
	"github.com/yourorg/catalogapi/internal/infrastructure/redis"
	"github.com/yourorg/catalogapi/internal/observability/metrics"
	"github.com/yourorg/catalogapi/internal/observability/tracing"
	"github.com/yourorg/catalogapi/internal/reliability/circuitbreaker"
	"github.com/yourorg/catalogapi/internal/reliability/retry"
	"github.com/yourorg/catalogapi/internal/repository"
	"github.com/yourorg/catalogapi/internal/security"
	"github.com/yourorg/catalogapi/internal/security/audit"
	"github.com/yourorg/catalogapi/internal/security/auth"
	"github.com/yourorg/catalogapi/internal/security/middleware"
	"github.com/yourorg/catalogapi/internal/security/ratelimit"
	"github.com/yourorg/catalogapi/internal/service"
	"github.com/yourorg/catalogapi/internal/worker"
	"github.com/yourorg/catalogapi/pkg/cache"
	"github.com/yourorg/catalogapi/pkg/config"
	"github.com/yourorg/catalogapi/pkg/database"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting catalogapi server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless OTEL_EXPORTER_OTLP_ENDPOINT is set)
	shutdownTracing, err := tracing.Init(ctx, log, "catalogapi", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Connect to Postgres with startup retries
	pool, err := retry.Do(ctx, retry.DefaultConfig(), log, "postgres connect",
		func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, &database.Config{
				Host:     cfg.DBHost,
				Port:     cfg.DBPort,
				User:     cfg.DBUser,
				Password: cfg.DBPassword,
				Database: cfg.DBName,
				SSLMode:  cfg.DBSSLMode,
			}, log)
		})
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	db := pool.GetDB()

	// 5. Pick the cache store: redis when configured, otherwise in-memory.
	// Redis sits behind a circuit breaker so a dead cache fails open fast.
	var cacheStore service.CacheStore
	var redisStore *redis.Store
	var janitor *worker.Janitor
	if cfg.RedisURL != "" {
		redisStore, err = retry.Do(ctx, retry.DefaultConfig(), log, "redis connect",
			func(ctx context.Context) (*redis.Store, error) {
				return redis.NewStore(cfg.RedisURL, log)
			})
		if err != nil {
			log.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisStore.Close()

		breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
		breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			log.Warn("cache circuit state changed",
				slog.Int("from", int(from)),
				slog.Int("to", int(to)),
			)
		})
		cacheStore = service.NewGuardedStore(redisStore, breaker)
		janitor = worker.NewJanitor(redisStore, log, cfg.JanitorInterval)
	} else {
		log.Info("REDIS_URL not set, using in-memory cache store")
		cacheStore = cache.New()
	}

	// 6. Repositories
	customerRepo := repository.NewPostgresCustomerRepository(db, log)
	userRepo := repository.NewPostgresUserRepository(db, log)
	productRepo := repository.NewPostgresProductRepository(db, log)

	// 7. Services and security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "catalogapi")
	authService := service.NewAuthService(userRepo, tokenManager, cfg.TokenLifetime, log)
	cacheService := service.NewCacheService(cacheStore, cfg.CacheTTL, log)
	authorizer := security.NewAuthorizer(log)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 8. Handlers
	events := handler.NewEventsHub(authorizer, cfg.CORSAllowedOrigins, log)
	loginHandler := handler.NewLoginHandler(authService, rateLimiter, log)
	customerHandler := handler.NewCustomerHandler(customerRepo, cacheService, authorizer, auditLogger, events, log, cfg.DefaultPageLimit)
	userHandler := handler.NewUserHandler(userRepo, cacheService, authorizer, auditLogger, events, log, cfg.DefaultPageLimit)
	productHandler := handler.NewProductHandler(productRepo, cacheService, authorizer, auditLogger, events, log, cfg.ProductPageLimit)

	var cachePinger handler.Pinger
	if redisStore != nil {
		cachePinger = redisStore
	}
	healthHandler := handler.NewHealthHandler(handler.PingerFunc(pool.Health), cachePinger, log)

	// 9. Routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/login", loginHandler)

	mux.HandleFunc("GET /api/customers", customerHandler.List)
	mux.HandleFunc("POST /api/customers", customerHandler.Create)
	mux.HandleFunc("GET /api/customers/{id}", customerHandler.Get)
	mux.HandleFunc("PUT /api/customers/{id}", customerHandler.Update)
	mux.HandleFunc("DELETE /api/customers/{id}", customerHandler.Delete)

	mux.HandleFunc("GET /api/users", userHandler.List)
	mux.HandleFunc("POST /api/users", userHandler.Create)
	mux.HandleFunc("GET /api/users/{id}", userHandler.Get)
	mux.HandleFunc("PUT /api/users/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/users/{id}", userHandler.Delete)

	mux.HandleFunc("GET /api/products", productHandler.List)
	mux.HandleFunc("POST /api/products", productHandler.Create)
	mux.HandleFunc("GET /api/products/{id}", productHandler.Get)
	mux.HandleFunc("PUT /api/products/{id}", productHandler.Update)
	mux.HandleFunc("DELETE /api/products/{id}", productHandler.Delete)

	mux.Handle("GET /ws/events", events)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)

	// Chain middleware: request ID -> metrics -> CORS -> JWT -> rate limit
	// -> content type -> audit. JWT runs before the rate limiter so the
	// limiter keys on the principal, not the remote address.
	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			corsMiddleware(cfg.CORSAllowedOrigins)(
				middleware.JWTMiddleware(tokenManager, log)(
					middleware.RateLimitMiddleware(rateLimiter, log)(
						middleware.ValidateJSONContentType(log)(
							middleware.AuditMiddleware(auditLogger)(mux),
						),
					),
				),
			),
		),
		log,
	)

	// 10. Start cache janitor when a redis store is in play
	if janitor != nil {
		go janitor.Start(ctx)
	}

	// 11. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      otelhttp.NewHandler(rootHandler, "catalogapi"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.Duration("cache_ttl", cfg.CacheTTL),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	events.Close()
	cancel() // stop the janitor
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

// corsMiddleware honors the configured origins and short-circuits preflight
// requests.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowedOrigins, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
