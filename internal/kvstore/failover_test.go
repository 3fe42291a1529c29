package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newFailoverPair(t *testing.T) (*miniredisHandle, *Memory, *Failover) {
	t.Helper()

	mr, primary := newTestRedis(t)
	fallback := NewMemory()
	return &miniredisHandle{mr: mr}, fallback, NewFailover(primary, fallback, nil)
}

// miniredisHandle exists so tests read as "kill the primary".
type miniredisHandle struct {
	mr interface{ Close() }
}

func (h *miniredisHandle) kill() { h.mr.Close() }

func TestFailoverPrefersPrimary(t *testing.T) {
	ctx := context.Background()
	_, fallback, store := newFailoverPair(t)

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// The write must not have leaked into the fallback.
	if _, err := fallback.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("fallback should be untouched, got %v", err)
	}

	value, err := store.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("Get = %q, %v; want v, nil", value, err)
	}
}

func TestFailoverSwitchesWhenPrimaryDown(t *testing.T) {
	ctx := context.Background()
	primary, _, store := newFailoverPair(t)
	primary.kill()

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set should fall back: %v", err)
	}

	value, err := store.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("Get = %q, %v; want v, nil", value, err)
	}

	count, err := store.Increment(ctx, "ctr", time.Minute)
	if err != nil || count != 1 {
		t.Fatalf("Increment = %d, %v; want 1, nil", count, err)
	}

	matched, err := store.CompareAndDelete(ctx, "k", "v")
	if err != nil || !matched {
		t.Fatalf("CompareAndDelete = %v, %v; want true, nil", matched, err)
	}
}

func TestFailoverReadsFallbackAfterRecovery(t *testing.T) {
	ctx := context.Background()
	_, fallback, store := newFailoverPair(t)

	// Entry written during an outage lives only in the fallback.
	if err := fallback.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("fallback Set failed: %v", err)
	}

	value, err := store.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("Get = %q, %v; want v, nil", value, err)
	}

	matched, err := store.CompareAndDelete(ctx, "k", "v")
	if err != nil || !matched {
		t.Fatalf("CompareAndDelete = %v, %v; want true, nil", matched, err)
	}
}

func TestFailoverDeleteClearsBothStores(t *testing.T) {
	ctx := context.Background()
	_, fallback, store := newFailoverPair(t)

	if err := store.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := fallback.Set(ctx, "k", "stale", time.Minute); err != nil {
		t.Fatalf("fallback Set failed: %v", err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
