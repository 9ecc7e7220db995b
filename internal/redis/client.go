// Package redis provides a wrapper around the go-redis client library
// for improved testing and abstraction.
package redis

import (
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Connection modes
const (
	ModeSingle   = "single"
	ModeCluster  = "cluster"
	ModeSentinel = "sentinel"
)

// Options configures Redis client behavior
type Options struct {
	PoolSize        int
	MinIdleConns    int
	ConnMaxIdleTime time.Duration
	MaxRetries      int
	Password        string
	DB              int // Ignored in cluster mode
	UseTLS          bool
	ReadOnly        bool // For cluster mode routing
}

// Config selects a connection mode and its endpoints
type Config struct {
	// Mode is single, cluster or sentinel (defaults to single)
	Mode string
	// Endpoints are host:port pairs; single mode uses the first
	Endpoints []string
	// MasterName is required in sentinel mode
	MasterName string
	Options    *Options
}

// New builds a client for cfg.Mode
func New(cfg *Config) (Client, error) {
	if cfg == nil {
		return nil, errors.New("redis: config is required")
	}

	switch strings.ToLower(cfg.Mode) {
	case "", ModeSingle:
		if len(cfg.Endpoints) == 0 {
			return nil, errors.New("redis: endpoint is required")
		}
		return NewClient(cfg.Endpoints[0], cfg.Options)
	case ModeCluster:
		return NewClusterClient(cfg.Endpoints, cfg.Options)
	case ModeSentinel:
		return NewFailoverClient(cfg.MasterName, cfg.Endpoints, cfg.Options)
	default:
		return nil, errors.New("redis: unknown mode " + cfg.Mode)
	}
}

func tlsConfig(opts *Options) *tls.Config {
	if !opts.UseTLS {
		return nil
	}
	return &tls.Config{
		InsecureSkipVerify: true, // #nosec G402 // For self-signed certs
	}
}

// NewClient creates a Redis client for a single instance
func NewClient(endpoint string, opts *Options) (Client, error) {
	if endpoint == "" {
		return nil, errors.New("redis: endpoint is required")
	}

	if opts == nil {
		opts = &Options{}
	}

	return redis.NewClient(&redis.Options{
		Addr:            endpoint,
		MinIdleConns:    opts.MinIdleConns,
		PoolSize:        opts.PoolSize,
		ConnMaxIdleTime: opts.ConnMaxIdleTime,
		MaxRetries:      opts.MaxRetries,
		Password:        opts.Password,
		DB:              opts.DB,
		TLSConfig:       tlsConfig(opts),
	}), nil
}

// NewClusterClient creates a Redis client for cluster mode
func NewClusterClient(endpoints []string, opts *Options) (Client, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("redis: at least one endpoint is required")
	}

	if opts == nil {
		opts = &Options{}
	}

	return redis.NewClusterClient(&redis.ClusterOptions{
		Addrs:        endpoints,
		MinIdleConns: opts.MinIdleConns,
		PoolSize:     opts.PoolSize,
		MaxRetries:   opts.MaxRetries,
		ReadOnly:     opts.ReadOnly,
		Password:     opts.Password,
		TLSConfig:    tlsConfig(opts),
	}), nil
}

// NewFailoverClient creates a Redis client with Sentinel support
func NewFailoverClient(masterName string, sentinelAddrs []string, opts *Options) (Client, error) {
	if masterName == "" {
		return nil, errors.New("redis: master name is required")
	}
	if len(sentinelAddrs) == 0 {
		return nil, errors.New("redis: at least one sentinel address is required")
	}

	if opts == nil {
		opts = &Options{}
	}

	return redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: sentinelAddrs,
		MinIdleConns:  opts.MinIdleConns,
		PoolSize:      opts.PoolSize,
		MaxRetries:    opts.MaxRetries,
		Password:      opts.Password,
		DB:            opts.DB,
		TLSConfig:     tlsConfig(opts),
	}), nil
}
