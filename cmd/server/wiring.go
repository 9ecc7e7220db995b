package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/KirkDiggler/rpg-builder/internal/catalog"
	"github.com/KirkDiggler/rpg-builder/internal/catalog/dnd5eapi"
	"github.com/KirkDiggler/rpg-builder/internal/config"
	"github.com/KirkDiggler/rpg-builder/internal/errors"
	"github.com/KirkDiggler/rpg-builder/internal/pkg/clock"
	"github.com/KirkDiggler/rpg-builder/internal/redis"
	"github.com/KirkDiggler/rpg-builder/internal/repositories/drafts"
)

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == config.LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newDraftRepository opens the configured store.
// The returned close function releases its connections.
func newDraftRepository(ctx context.Context, cfg *config.Config) (drafts.Repository, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Storage {
	case config.StorageRedis:
		client, err := redis.New(cfg.Redis())
		if err != nil {
			return nil, noClose, errors.Wrap(err, "failed to create redis client")
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noClose, errors.Wrap(err, "failed to reach redis")
		}
		repo, err := drafts.NewRedisRepository(&drafts.RedisConfig{
			Client: client,
			Clock:  clock.New(),
		})
		if err != nil {
			_ = client.Close()
			return nil, noClose, err
		}
		return repo, client.Close, nil

	case config.StorageSQLite:
		repo, err := drafts.NewSQLiteRepository(&drafts.SQLiteConfig{
			Path:  cfg.SQLitePath,
			Clock: clock.New(),
		})
		if err != nil {
			return nil, noClose, err
		}
		return repo, repo.Close, nil

	case config.StorageMemory:
		slog.Warn("using in-memory draft storage, drafts are lost on restart")
		return drafts.NewMemoryRepository(clock.New()), noClose, nil

	default:
		return nil, noClose, errors.InvalidArgumentf("unknown storage backend %q", cfg.Storage)
	}
}

func newCatalogSource(cfg *config.Config) (catalog.Source, error) {
	switch cfg.CatalogSource {
	case config.CatalogBuiltin:
		return catalog.Builtin(), nil
	case config.CatalogFile:
		return catalog.File(cfg.CatalogFile), nil
	case config.CatalogDnD5eAPI:
		return dnd5eapi.New(&dnd5eapi.Config{
			BaseURL:     cfg.CatalogAPIBaseURL,
			HTTPTimeout: cfg.CatalogAPITimeout,
			Concurrency: cfg.CatalogConcurrency,
		})
	default:
		return nil, errors.InvalidArgumentf("unknown catalog source %q", cfg.CatalogSource)
	}
}
