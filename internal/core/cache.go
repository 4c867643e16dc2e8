// Package core defines the ports shared by the service layer and the data layer.
package core

import (
	"context"
	"time"
)

// CacheRepository is the key-value backend behind the feed count cache.
// Keys are opaque strings built by package cachekey; values are encoded counts.
type CacheRepository interface {
	// Get returns nil, nil on a miss or an expired entry.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key. A zero ttl keeps the entry until it is invalidated.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete reports whether key held a value.
	Delete(ctx context.Context, key string) (bool, error)
	// DeletePrefix evicts every key starting with prefix and returns the number removed.
	// No atomicity across keys is assumed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	// Exists reports whether key holds a live value.
	Exists(ctx context.Context, key string) (bool, error)
	// Health is used by the readiness probe.
	Health(ctx context.Context) error
}
