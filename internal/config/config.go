// Package config loads server settings from the environment
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/redis"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Catalog sources
const (
	CatalogBuiltin  = "builtin"
	CatalogFile     = "file"
	CatalogDnD5eAPI = "dnd5eapi"
)

// Log formats
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds every setting the server reads from the environment
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`
	GRPCAddr string `env:"GRPC_ADDR" envDefault:":50051"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	Storage string `env:"STORAGE" envDefault:"memory"`

	RedisMode       string   `env:"REDIS_MODE" envDefault:"single"`
	RedisEndpoints  []string `env:"REDIS_ENDPOINTS" envSeparator:"," envDefault:"localhost:6379"`
	RedisMasterName string   `env:"REDIS_MASTER_NAME"`
	RedisPassword   string   `env:"REDIS_PASSWORD"`
	RedisDB         int      `env:"REDIS_DB" envDefault:"0"`
	RedisTLS        bool     `env:"REDIS_TLS" envDefault:"false"`

	SQLitePath string `env:"SQLITE_PATH" envDefault:"builder.db"`

	CatalogSource      string        `env:"CATALOG_SOURCE" envDefault:"builtin"`
	CatalogFile        string        `env:"CATALOG_FILE"`
	CatalogAPIBaseURL  string        `env:"CATALOG_API_BASE_URL"`
	CatalogAPITimeout  time.Duration `env:"CATALOG_API_TIMEOUT" envDefault:"30s"`
	CatalogConcurrency int           `env:"CATALOG_CONCURRENCY" envDefault:"8"`

	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load reads an optional .env file and then the BUILDER_ prefixed environment
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "BUILDER_"}); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enum fields and the settings each backend depends on
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	errors.ValidateRequired("http_addr", c.HTTPAddr, vb)
	errors.ValidateRequired("grpc_addr", c.GRPCAddr, vb)
	errors.ValidateEnum("log_format", c.LogFormat, []string{LogFormatJSON, LogFormatText}, vb)
	errors.ValidateEnum("log_level", strings.ToLower(c.LogLevel), []string{"debug", "info", "warn", "error"}, vb)
	errors.ValidateEnum("storage", c.Storage, []string{StorageMemory, StorageRedis, StorageSQLite}, vb)
	errors.ValidateEnum("catalog_source", c.CatalogSource, []string{CatalogBuiltin, CatalogFile, CatalogDnD5eAPI}, vb)

	switch c.Storage {
	case StorageRedis:
		errors.ValidateEnum("redis_mode", c.RedisMode, []string{redis.ModeSingle, redis.ModeCluster, redis.ModeSentinel}, vb)
		if len(c.RedisEndpoints) == 0 {
			vb.RequiredField("redis_endpoints")
		}
		if c.RedisMode == redis.ModeSentinel {
			errors.ValidateRequired("redis_master_name", c.RedisMasterName, vb)
		}
	case StorageSQLite:
		errors.ValidateRequired("sqlite_path", c.SQLitePath, vb)
	}

	if c.CatalogSource == CatalogFile {
		errors.ValidateRequired("catalog_file", c.CatalogFile, vb)
	}
	if c.CatalogConcurrency < 1 {
		vb.Violation("catalog_concurrency", errors.ReasonOutOfRange, "must be at least 1")
	}

	return vb.Build()
}

// Redis returns the client settings for the configured deployment
func (c *Config) Redis() *redis.Config {
	return &redis.Config{
		Mode:       c.RedisMode,
		Endpoints:  c.RedisEndpoints,
		MasterName: c.RedisMasterName,
		Options: &redis.Options{
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			UseTLS:   c.RedisTLS,
		},
	}
}

// SlogLevel maps LogLevel onto slog levels
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
