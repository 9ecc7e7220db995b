package catalog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KirkDiggler/rpg-builder/internal/errors"
)

// Provider hands out the current snapshot.
// Catalog returns errors.CatalogUnavailable until a snapshot is ready.
type Provider interface {
	Catalog() (*Catalog, error)
}

// StoreConfig configures a Store
type StoreConfig struct {
	Source Source
}

// Validate ensures all required dependencies are present
func (cfg *StoreConfig) Validate() error {
	vb := errors.NewValidationBuilder()

	if cfg.Source == nil {
		vb.RequiredField("Source")
	}

	return vb.Build()
}

// Store caches one process-wide Catalog fetched from a Source
type Store struct {
	source  Source
	current atomic.Pointer[Catalog]

	// loadMu serializes fetches so concurrent Load calls hit the source once
	loadMu sync.Mutex
}

// NewStore creates a store that has not loaded anything yet
func NewStore(cfg *StoreConfig) (*Store, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid catalog store config")
	}

	return &Store{source: cfg.Source}, nil
}

// Load fetches and publishes the snapshot if it is not loaded yet.
// A failed load leaves the store unready so Load may be called again.
func (s *Store) Load(ctx context.Context) (*Catalog, error) {
	if c := s.current.Load(); c != nil {
		return c, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if c := s.current.Load(); c != nil {
		return c, nil
	}

	start := time.Now()
	data, err := s.source.Fetch(ctx)
	if err != nil {
		slog.Error("catalog fetch failed", "error", err)
		return nil, errors.Wrap(err, "failed to fetch catalog")
	}
	if data == nil {
		return nil, errors.Internal("catalog source returned no data")
	}

	c, err := New(*data)
	if err != nil {
		slog.Error("catalog rejected", "error", err)
		return nil, errors.Wrap(err, "failed to index catalog")
	}

	s.current.Store(c)
	slog.Info("catalog loaded",
		"duration", time.Since(start),
		"collections", c.Summary())

	return c, nil
}

// Start loads the catalog in the background.
// The returned channel yields the load result once and is then closed.
func (s *Store) Start(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		_, err := s.Load(ctx)
		done <- err
	}()
	return done
}

// Catalog returns the loaded snapshot
func (s *Store) Catalog() (*Catalog, error) {
	c := s.current.Load()
	if c == nil {
		return nil, errors.CatalogUnavailable()
	}
	return c, nil
}

// Ready reports whether a snapshot has been published
func (s *Store) Ready() bool {
	return s.current.Load() != nil
}

type staticProvider struct {
	catalog *Catalog
}

// Static wraps an already built snapshot as a Provider
func Static(c *Catalog) Provider {
	return staticProvider{catalog: c}
}

func (p staticProvider) Catalog() (*Catalog, error) {
	if p.catalog == nil {
		return nil, errors.CatalogUnavailable()
	}
	return p.catalog, nil
}

var _ Provider = (*Store)(nil)
