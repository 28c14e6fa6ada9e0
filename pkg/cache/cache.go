// Package cache defines the answer cache contract shared by the sqlite
// and redis backends.
package cache

import (
	"context"

	"github.com/chatgate/chatgate/pkg/models"
)

// Store is an exact-match answer cache keyed by normalized query text.
//
// The cache is an optimization, never a correctness dependency: a backend
// failure on Get is reported as a miss, and a failure on Put is returned
// to the caller, who is free to ignore it and answer anyway.
type Store interface {
	// Get returns the cached answer for key, or false on a miss.
	Get(ctx context.Context, key string) (string, bool)
	// Put stores an answer under key with the backend's configured TTL.
	Put(ctx context.Context, key, answer string) error
	// Stats returns cache performance counters.
	Stats(ctx context.Context) (models.CacheStats, error)
	// Close releases resources.
	Close() error
}
