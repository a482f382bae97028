// Package config manages environment configuration.
//
// It loads environment variables (optionally from a .env file via godotenv
// autoload), maps them into structured Go types with koanf, and validates
// required values with go-playground/validator so the process fails fast on
// bad or missing configuration.
//
// Env vars use the SEALEVEL_ prefix with double underscore as the nesting
// delimiter, e.g.:
//
//	SEALEVEL_SERVER__PORT            -> server.port
//	SEALEVEL_DATABASE__MAX_CONNS    -> database.max_conns
//
// The bare DATABASE_URL and REDIS_URL variables are honored as overrides so
// the service runs unchanged on platforms that inject them directly.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SEALEVEL_"

// Config is the root configuration object for the application.
type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database" validate:"required"`
	Redis    RedisConfig    `koanf:"redis"`
	Query    QueryConfig    `koanf:"query"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env"`
}

// ServerConfig groups settings for the HTTP server runtime. Timeouts are in
// seconds as provided by the environment.
type ServerConfig struct {
	Port               string   `koanf:"port"`
	ReadTimeout        int      `koanf:"read_timeout"`
	WriteTimeout       int      `koanf:"write_timeout"`
	IdleTimeout        int      `koanf:"idle_timeout"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
}

// DatabaseConfig contains the PostgreSQL connection string and pool tuning.
//
// MaxConns/MinConns bound the pool; MaxConnLifetime recycles idle connections
// to bound staleness; AcquireTimeout caps how long a caller may wait for a
// free connection before the pool reports exhaustion.
type DatabaseConfig struct {
	URL              string `koanf:"url" validate:"required"`
	MinConns         int    `koanf:"min_conns" validate:"gte=0"`
	MaxConns         int    `koanf:"max_conns" validate:"gtefield=MinConns"`
	MaxConnLifetime  int    `koanf:"max_conn_lifetime"`
	MaxConnIdleTime  int    `koanf:"max_conn_idle_time"`
	AcquireTimeout   int    `koanf:"acquire_timeout" validate:"gt=0"`
	ConnectTimeout   int    `koanf:"connect_timeout"`
	StatementTimeout int    `koanf:"statement_timeout"`
	PrePing          bool   `koanf:"pre_ping"`
	MaxRetries       int    `koanf:"max_retries"`
	// FailFatal controls the policy when startup retries exhaust: true makes
	// initialization fail hard, false falls back to a degraded single
	// unpooled connection.
	FailFatal bool `koanf:"fail_fatal"`
}

// RedisConfig contains the optional cache store connection string. An empty
// URL means the query cache is disabled, which is a supported mode.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// QueryConfig tunes the query executor and bulk writer.
type QueryConfig struct {
	DefaultCacheTTL  int `koanf:"default_cache_ttl"`
	DefaultChunkSize int `koanf:"default_chunk_size" validate:"gt=0"`
	// SlowQueryMillis is the threshold beyond which a query is counted and
	// logged as slow.
	SlowQueryMillis int `koanf:"slow_query_millis" validate:"gt=0"`
	BulkBatchSize   int `koanf:"bulk_batch_size" validate:"gt=0"`
	// CommitWindowBatches is the number of batches committed per transaction
	// window during bulk inserts. Larger windows are closer to all-or-nothing
	// semantics at the cost of longer-held locks.
	CommitWindowBatches int `koanf:"commit_window_batches" validate:"gt=0"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads, defaults, and validates the application configuration.
func Load() (*Config, error) {
	k := koanf.New(".")

	// SEALEVEL_DATABASE__MAX_CONNS -> database.max_conns
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := defaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Platform-injected connection strings take precedence.
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// defaultConfig mirrors the development defaults of the original deployment:
// a small pool with pre-ping, hour-long recycling, and a one second
// slow-query threshold.
func defaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "local"},
		Server: ServerConfig{
			Port:               "8000",
			ReadTimeout:        30,
			WriteTimeout:       30,
			IdleTimeout:        60,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: DatabaseConfig{
			MinConns:         2,
			MaxConns:         20,
			MaxConnLifetime:  3600,
			MaxConnIdleTime:  1800,
			AcquireTimeout:   30,
			ConnectTimeout:   10,
			StatementTimeout: 30,
			PrePing:          true,
			MaxRetries:       3,
		},
		Query: QueryConfig{
			DefaultCacheTTL:     300,
			DefaultChunkSize:    10000,
			SlowQueryMillis:     1000,
			BulkBatchSize:       1000,
			CommitWindowBatches: 10,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// AcquireTimeoutDuration returns the pool acquire timeout as a duration.
func (c DatabaseConfig) AcquireTimeoutDuration() time.Duration {
	return time.Duration(c.AcquireTimeout) * time.Second
}

// SlowQueryThreshold returns the slow-query threshold as a duration.
func (c QueryConfig) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryMillis) * time.Millisecond
}
