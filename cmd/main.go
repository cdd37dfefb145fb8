package main

import (
	"context"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/haletran/todo-auth-service/config"
	database "github.com/haletran/todo-auth-service/internal/core"
	"github.com/haletran/todo-auth-service/internal/core/repository"
	"github.com/haletran/todo-auth-service/internal/logger"
	logicv1 "github.com/haletran/todo-auth-service/internal/logic/v1"
	"github.com/haletran/todo-auth-service/internal/revocation"
	"github.com/haletran/todo-auth-service/internal/token"
	"github.com/haletran/todo-auth-service/internal/web/cookies"
	v1 "github.com/haletran/todo-auth-service/internal/web/v1"
	"github.com/haletran/todo-auth-service/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		panic("Configuration validation failed: " + err.Error())
	}

	// Initialize Zerolog with LOG_LEVEL from config
	logger.Setup(cfg.Logging.Level)

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("env", cfg.Service.Env).
		Str("port", cfg.Service.Port).
		Msg("Service starting")

	// Initialize OpenTelemetry tracing
	var tp interface{ Shutdown(context.Context) error }
	var err error
	if cfg.Tracing.Enabled {
		tp, err = middleware.InitTracing(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize tracing")
		} else {
			log.Info().
				Str("endpoint", cfg.Tracing.Endpoint).
				Float64("sample_rate", cfg.Tracing.SampleRate).
				Msg("Tracing initialized")
		}
	} else {
		log.Info().Msg("Tracing disabled (TRACING_ENABLED=false)")
	}

	// Initialize Pyroscope profiling
	if cfg.Profiling.Enabled {
		if err := middleware.InitProfiling(cfg); err != nil {
			log.Warn().Err(err).Msg("Failed to initialize profiling")
		} else {
			log.Info().
				Str("endpoint", cfg.Profiling.Endpoint).
				Msg("Profiling initialized")
			defer middleware.StopProfiling()
		}
	} else {
		log.Info().Msg("Profiling disabled (PROFILING_ENABLED=false)")
	}

	// Initialize database connection pool (pgx) and run migrations
	pool, err := database.Connect(context.Background(), cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()
	log.Info().Msg("Database connection pool established")

	// Optional logout revocation set, backed by Redis
	var revoked revocation.Store = revocation.Noop{}
	if cfg.Redis.Addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		store, err := revocation.NewRedisStore(context.Background(), redisClient)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		revoked = store
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Logout revocation set enabled")
	} else {
		log.Info().Msg("Logout revocation disabled (REDIS_ADDR not set)")
	}

	// Token manager owns the signing secret
	tokens, err := token.NewManager(cfg.Token.Secret, cfg.GetTokenTTLDuration())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token manager")
	}

	cookiePolicy := cookies.Policy{
		MaxAge: cfg.Token.TTLSeconds,
		Secure: cfg.IsProduction(),
	}

	users := repository.NewUserRepository(pool)
	auth := logicv1.NewAuthService(users, tokens, revoked)
	handler := v1.NewHandler(auth, cookiePolicy, cfg.Service.Name, cfg.Service.Version)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	var isShuttingDown atomic.Bool

	// Tracing middleware
	r.Use(middleware.TracingMiddleware(cfg.Service.Name))

	// Logging middleware
	r.Use(middleware.LoggingMiddleware())

	// Prometheus middleware
	r.Use(middleware.PrometheusMiddleware())

	// CORS for the browser frontend; credentials required for the cookie
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	// Health check
	r.GET("/health", handler.Health)

	// Readiness check
	// Returns 503 once shutdown has started, to drain traffic before HTTP shutdown.
	r.GET("/ready", func(c *gin.Context) {
		if isShuttingDown.Load() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "shutting_down"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth endpoints: legacy paths the frontend calls, plus the versioned API
	handler.RegisterRoutes(&r.RouterGroup)
	handler.RegisterRoutes(r.Group("/api/v1"))

	// Session gate over the dashboard page; the auth pages redirect valid
	// sessions away.
	r.GET(middleware.DashboardPath, middleware.SessionGate(tokens, cookiePolicy), func(c *gin.Context) {
		identity, _ := middleware.IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID, "email": identity.Email})
	})
	r.GET(middleware.LoginPath, middleware.RedirectAuthenticated(tokens, cookiePolicy), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": "login"})
	})
	r.GET("/signup", middleware.RedirectAuthenticated(tokens, cookiePolicy), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"page": "signup"})
	})

	r.NoRoute(handler.NotFound)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Service.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Service.Port).Msg("Starting auth service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	// Fail readiness first and wait for propagation before stopping HTTP.
	isShuttingDown.Store(true)
	drainDelay := cfg.GetReadinessDrainDelayDuration()
	if drainDelay > 0 {
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay started")
		time.Sleep(drainDelay)
		log.Info().Dur("delay", drainDelay).Msg("Readiness drain delay completed")
	}

	// Shutdown context with configurable timeout
	shutdownTimeout := cfg.GetShutdownTimeoutDuration()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info().Dur("timeout", shutdownTimeout).Msg("Shutting down server...")

	// 1. Shutdown HTTP server
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		log.Info().Msg("HTTP server shutdown complete")
	}

	// 2. Close database connections
	pool.Close()
	log.Info().Msg("Database pool closed")

	// 3. Shutdown tracer
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Tracer shutdown error")
		} else {
			log.Info().Msg("Tracer shutdown complete")
		}
	}

	log.Info().Msg("Graceful shutdown complete")
}
