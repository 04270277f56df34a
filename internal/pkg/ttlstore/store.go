// Package ttlstore is a small key-value store whose entries expire.
//
// It backs short-lived secrets such as one-time login codes. Two
// implementations exist: an in-process map for single-instance deployments
// and tests, and a redis-backed one for running several instances.
package ttlstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is missing or has expired.
var ErrNotFound = errors.New("ttlstore: key not found")

// Store holds string values with a per-key time to live.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns the value and removes the key in one step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
