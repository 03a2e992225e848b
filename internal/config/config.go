package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the ticket core.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Tickets  TicketConfig
	Retry    RetryConfig
	Queue    QueueConfig
	Gateway  GatewayConfig
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
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// TicketConfig tunes the ticket lifecycle components.
type TicketConfig struct {
	RateLimitWindowSeconds int
	ConfigCacheTTLSeconds  int
	LookupCacheTTLSeconds  int
	CacheCapacity          int
	SweepIntervalSeconds   int
}

// RetryConfig parameterizes the store adapter retry policy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelayMS int
	MaxDelayMS  int
}

// QueueConfig holds event publishing settings.
type QueueConfig struct {
	URL      string
	Exchange string
}

// GatewayConfig points at the process bridging the chat platform.
type GatewayConfig struct {
	BaseURL        string
	Token          string
	TimeoutSeconds int
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
			Name:                  getEnv("APP_NAME", "ticketbot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Tickets: TicketConfig{
			RateLimitWindowSeconds: getEnvAsInt("TICKET_RATE_LIMIT_WINDOW_SECONDS", 300),
			ConfigCacheTTLSeconds:  getEnvAsInt("TICKET_CONFIG_CACHE_TTL_SECONDS", 300),
			LookupCacheTTLSeconds:  getEnvAsInt("TICKET_LOOKUP_CACHE_TTL_SECONDS", 60),
			CacheCapacity:          getEnvAsInt("TICKET_CACHE_CAPACITY", 500),
			SweepIntervalSeconds:   getEnvAsInt("TICKET_SWEEP_INTERVAL_SECONDS", 60),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvAsInt("STORE_RETRY_MAX_ATTEMPTS", 4),
			BaseDelayMS: getEnvAsInt("STORE_RETRY_BASE_DELAY_MS", 100),
			MaxDelayMS:  getEnvAsInt("STORE_RETRY_MAX_DELAY_MS", 2000),
		},
		Queue: QueueConfig{
			URL:      os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "ticket.events"),
		},
		Gateway: GatewayConfig{
			BaseURL:        os.Getenv("GATEWAY_BASE_URL"),
			Token:          os.Getenv("GATEWAY_TOKEN"),
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 10),
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

// RateLimitWindow returns the ticket creation cool-down window.
func (t TicketConfig) RateLimitWindow() time.Duration {
	return time.Duration(t.RateLimitWindowSeconds) * time.Second
}

// ConfigCacheTTL returns the TTL for cached panel configuration.
func (t TicketConfig) ConfigCacheTTL() time.Duration {
	return time.Duration(t.ConfigCacheTTLSeconds) * time.Second
}

// LookupCacheTTL returns the TTL for short-lived lookup entries.
func (t TicketConfig) LookupCacheTTL() time.Duration {
	return time.Duration(t.LookupCacheTTLSeconds) * time.Second
}

// SweepInterval returns the cadence of the stale-entry sweeper.
func (t TicketConfig) SweepInterval() time.Duration {
	return time.Duration(t.SweepIntervalSeconds) * time.Second
}

// Timeout returns the per-call gateway timeout.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// BaseDelay returns the first retry delay.
func (r RetryConfig) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff cap.
func (r RetryConfig) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
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
