package storepool

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Names of the logical stores the pipeline writes to
const (
	StoreStatus        = "status"
	StoreIngestion     = "ingestion"
	StorePreprocessing = "preprocessing"
	StoreForecasting   = "forecasting"
	StoreAnomaly       = "anomaly"
)

// Registry hands out one bounded pool per logical store. Pools are dialed
// lazily on first use and cached for the life of the process; a store that
// failed to dial is retried on the next request for it.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]StoreConfig
	pool    PoolConfig
	entries map[string]*registryEntry
	logger  *slog.Logger
}

// registryEntry serializes dialing per store so a slow store never blocks
// requests for the others
type registryEntry struct {
	mu     sync.Mutex
	config StoreConfig
	client *Client
}

// NewRegistry creates a registry over the configured stores. No store is
// dialed until it is first requested.
func NewRegistry(stores map[string]StoreConfig, pool PoolConfig, logger *slog.Logger) *Registry {
	return &Registry{
		stores:  stores,
		pool:    pool.withDefaults(),
		entries: make(map[string]*registryEntry, len(stores)),
		logger:  logger,
	}
}

// Client returns the pool for the named store, dialing it on first use.
// An unconfigured name is a setup error; a configured store that cannot
// be reached fails with ErrStoreUnavailable and stays uncached so a later
// call can succeed once the store recovers.
func (r *Registry) Client(name string) (*Client, error) {
	r.mu.Lock()
	entry, ok := r.entries[name]
	if !ok {
		config, configured := r.stores[name]
		if !configured {
			r.mu.Unlock()
			return nil, fmt.Errorf("store %q is not configured", name)
		}
		entry = &registryEntry{config: config}
		r.entries[name] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.client != nil {
		return entry.client, nil
	}

	client, err := Open(name, entry.config, r.pool, r.logger)
	if err != nil {
		return nil, err
	}
	entry.client = client

	return client, nil
}

// Names returns the configured store names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every pool the registry has opened
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, entry := range r.entries {
		entry.mu.Lock()
		if entry.client != nil {
			if err := entry.client.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s pool: %w", name, err)
			}
			entry.client = nil
		}
		entry.mu.Unlock()
	}
	return firstErr
}
