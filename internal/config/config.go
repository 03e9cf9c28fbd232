package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Session      SessionConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr                   string
	Password               string
	DB                     int
	MembershipCacheTTLSecs int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// SessionConfig defines session token verification parameters. Token
// issuance happens in the external identity service; this side only
// verifies.
type SessionConfig struct {
	JWTSecret string
}

// NotificationConfig holds external notification sink endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-desk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:                   getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:               os.Getenv("REDIS_PASSWORD"),
			DB:                     redisDB,
			MembershipCacheTTLSecs: getEnvAsInt("MEMBERSHIP_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Session: SessionConfig{
			JWTSecret: getEnv("SESSION_JWT_SECRET", "dev-secret"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// MembershipCacheTTL returns the membership cache expiry.
func (r RedisConfig) MembershipCacheTTL() time.Duration {
	if r.MembershipCacheTTLSecs <= 0 {
		return time.Minute
	}
	return time.Duration(r.MembershipCacheTTLSecs) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
