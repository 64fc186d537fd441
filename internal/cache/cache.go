// Package cache is the short-lived key/value layer behind handshake
// contexts, one-time link tokens and sessions.
package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Cache stores opaque values with a TTL.
type Cache interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get returns ErrNotFound when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Take atomically reads and deletes a key. Two concurrent callers
	// for the same key never both observe the value.
	Take(ctx context.Context, key string) ([]byte, error)

	Delete(ctx context.Context, key string) error
}
