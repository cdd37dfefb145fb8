// Package config loads service configuration from the environment.
// A local .env file is honored in development via godotenv.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the auth service.
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Token     TokenConfig
	CORS      CORSConfig
	Redis     RedisConfig
	Logging   LoggingConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig

	ShutdownTimeoutSeconds     int
	ReadinessDrainDelaySeconds int
}

type ServiceConfig struct {
	Name    string
	Version string
	Env     string
	Port    string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int32
	MinConns       int32
	ConnectTimeout time.Duration
	MaxConnIdle    time.Duration
	RunMigrations  bool
}

type TokenConfig struct {
	// Secret signs and verifies every issued token. Must match across
	// replicas and the task backend that validates the same cookie.
	Secret string
	// TTLSeconds bounds token validity and the cookie Max-Age.
	TTLSeconds int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RedisConfig struct {
	// Addr enables the logout revocation set when non-empty.
	Addr     string
	Password string
	DB       int
}

type LoggingConfig struct {
	Level string
}

type TracingConfig struct {
	Enabled    bool
	Endpoint   string
	SampleRate float64
}

type ProfilingConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from the environment, applying defaults for
// everything except the signing secret and database URL.
func Load() *Config {
	// Best effort; production deployments set real env vars.
	_ = godotenv.Load()

	return &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "todo-auth-service"),
			Version: getEnv("SERVICE_VERSION", "1.0.0"),
			Env:     getEnv("APP_ENV", "development"),
			Port:    getEnv("PORT", "3001"),
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MaxConns:       int32(getEnvInt("DB_MAX_CONNS", 10)),
			MinConns:       int32(getEnvInt("DB_MIN_CONNS", 2)),
			ConnectTimeout: time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
			MaxConnIdle:    time.Duration(getEnvInt("DB_MAX_CONN_IDLE_SECONDS", 30)) * time.Second,
			RunMigrations:  getEnvBool("DB_RUN_MIGRATIONS", true),
		},
		Token: TokenConfig{
			Secret:     os.Getenv("AUTH_SECRET"),
			TTLSeconds: getEnvInt("TOKEN_TTL_SECONDS", 900),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{
				"http://localhost:3000",
				"http://127.0.0.1:3000",
			}),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Tracing: TracingConfig{
			Enabled:    getEnvBool("TRACING_ENABLED", false),
			Endpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			SampleRate: getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PYROSCOPE_ENDPOINT", "http://localhost:4040"),
		},
		ShutdownTimeoutSeconds:     getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 10),
		ReadinessDrainDelaySeconds: getEnvInt("READINESS_DRAIN_DELAY_SECONDS", 0),
	}
}

// Validate checks the configuration that has no safe default.
func (c *Config) Validate() error {
	if c.Token.Secret == "" {
		return errors.New("AUTH_SECRET is required")
	}
	if c.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.Token.TTLSeconds <= 0 {
		return errors.New("TOKEN_TTL_SECONDS must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production. The session
// cookie is marked Secure only in production.
func (c *Config) IsProduction() bool {
	return c.Service.Env == "production"
}

// GetTokenTTLDuration returns the token lifetime as a duration.
func (c *Config) GetTokenTTLDuration() time.Duration {
	return time.Duration(c.Token.TTLSeconds) * time.Second
}

// GetShutdownTimeoutDuration returns how long graceful shutdown may take.
func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// GetReadinessDrainDelayDuration returns how long to fail readiness before
// the HTTP server starts shutting down.
func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return time.Duration(c.ReadinessDrainDelaySeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
