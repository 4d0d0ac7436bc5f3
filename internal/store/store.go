// Package store defines the key-value persistence boundary for the market
// engine. Implementations include in-memory (testing/dev), Redis, PostgreSQL,
// S3-compatible object storage, and a Redis read-through cache over any of
// them.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under a key.
var ErrNotFound = errors.New("store: key not found")

// KV is a durable but non-transactional string key-value store.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
