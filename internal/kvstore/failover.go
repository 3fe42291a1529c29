package kvstore

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Failover routes every operation to the primary store and retries against
// the fallback only when the primary reports ErrUnavailable. Logical results
// (ErrNotFound, a failed compare) never trigger the fallback.
//
// Entries written while the primary is down live only in the fallback; after
// the primary recovers those entries are served from it until they expire.
// Reads consult the fallback when the primary misses, so a token issued
// during an outage stays usable.
type Failover struct {
	primary  Store
	fallback Store
	log      *slog.Logger
}

func NewFailover(primary, fallback Store, log *slog.Logger) *Failover {
	return &Failover{primary: primary, fallback: fallback, log: log}
}

func (f *Failover) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	err := f.primary.Set(ctx, key, value, ttl)
	if !errors.Is(err, ErrUnavailable) {
		return err
	}
	f.degraded(ctx, "set", err)
	return f.fallback.Set(ctx, key, value, ttl)
}

func (f *Failover) Get(ctx context.Context, key string) (string, error) {
	value, err := f.primary.Get(ctx, key)
	if err == nil {
		return value, nil
	}
	if errors.Is(err, ErrUnavailable) {
		f.degraded(ctx, "get", err)
		return f.fallback.Get(ctx, key)
	}
	if errors.Is(err, ErrNotFound) {
		// The entry may have been written during a primary outage.
		if value, fbErr := f.fallback.Get(ctx, key); fbErr == nil {
			return value, nil
		}
	}
	return "", err
}

func (f *Failover) Delete(ctx context.Context, key string) error {
	err := f.primary.Delete(ctx, key)
	if errors.Is(err, ErrUnavailable) {
		f.degraded(ctx, "delete", err)
		err = nil
	}
	if fbErr := f.fallback.Delete(ctx, key); fbErr != nil {
		return fbErr
	}
	return err
}

func (f *Failover) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := f.primary.Increment(ctx, key, ttl)
	if !errors.Is(err, ErrUnavailable) {
		return count, err
	}
	f.degraded(ctx, "increment", err)
	return f.fallback.Increment(ctx, key, ttl)
}

func (f *Failover) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	matched, err := f.primary.CompareAndDelete(ctx, key, expected)
	if err == nil && matched {
		return true, nil
	}
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			return false, err
		}
		f.degraded(ctx, "compare_and_delete", err)
	}
	// Miss on the primary: the entry may live in the fallback.
	return f.fallback.CompareAndDelete(ctx, key, expected)
}

func (f *Failover) degraded(ctx context.Context, op string, err error) {
	if f.log != nil {
		f.log.WarnContext(ctx, "kvstore primary unavailable, using fallback", "op", op, "error", err)
	}
}
