// Package db defines the key-value store contract backing the embedding
// cache. The document corpus itself is process-local and never touches the
// store.
package db

import (
	"context"
	"time"
)

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Store is the database facade: key-value operations plus lifecycle.
type Store interface {
	KVStore
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
