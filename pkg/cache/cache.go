// Package cache provides advisory key/value stores used by the password policy engine.
//
// Stores are best effort: callers must treat every error as a miss and fall back to
// computing the value directly.
package cache

import (
	"context"
	"time"
)

// Store is safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
