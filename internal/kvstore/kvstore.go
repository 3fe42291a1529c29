// Package kvstore provides the ephemeral key-value storage used for password
// reset tokens, refresh-token blacklisting, and rate-limit counters. Entries
// carry a TTL. The redis backend is the primary; the in-process memory
// backend honors the same contract so the service can degrade instead of
// failing hard when redis is unreachable.
package kvstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("kvstore: key not found")
	// ErrUnavailable wraps backend transport failures. Failover switches to
	// the fallback store only on this error.
	ErrUnavailable = errors.New("kvstore: backend unavailable")
)

// Store is the uniform interface over the ephemeral backends.
//
// Increment applies the TTL only when the key is created, giving
// fixed-window counter semantics. CompareAndDelete removes the key only if
// the stored value equals expected; the comparison is constant-time and the
// check-and-remove is atomic, so two concurrent callers cannot both win.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}
