package kvstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func newTestMemory(start time.Time) (*Memory, *time.Time) {
	now := start
	m := NewMemory()
	m.now = func() time.Time { return now }
	return m, &now
}

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := m.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "v" {
		t.Fatalf("expected v, got %q", value)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := m.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(time.Unix(1000, 0))

	if err := m.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	*now = now.Add(59 * time.Second)
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("expected live entry before TTL, got %v", err)
	}

	*now = now.Add(2 * time.Second)
	if _, err := m.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestMemoryIncrementFixedWindow(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(time.Unix(1000, 0))

	for want := int64(1); want <= 3; want++ {
		count, err := m.Increment(ctx, "ctr", time.Minute)
		if err != nil {
			t.Fatalf("Increment failed: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}

	// Window deadline is fixed at first increment.
	*now = now.Add(61 * time.Second)
	count, err := m.Increment(ctx, "ctr", time.Minute)
	if err != nil {
		t.Fatalf("Increment after window failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter reset to 1, got %d", count)
	}
}

func TestMemoryCompareAndDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k", "secret", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	matched, err := m.CompareAndDelete(ctx, "k", "wrong")
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if matched {
		t.Fatal("mismatched value must not delete")
	}
	if _, err := m.Get(ctx, "k"); err != nil {
		t.Fatalf("entry must survive a failed compare: %v", err)
	}

	matched, err = m.CompareAndDelete(ctx, "k", "secret")
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if !matched {
		t.Fatal("matching value must delete")
	}
	if _, err := m.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after consume, got %v", err)
	}
}

func TestMemoryCompareAndDeleteSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k", "secret", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	const racers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			matched, err := m.CompareAndDelete(ctx, "k", "secret")
			if err != nil {
				t.Errorf("CompareAndDelete failed: %v", err)
				return
			}
			wins <- matched
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for matched := range wins {
		if matched {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestMemorySweepEvictsExpired(t *testing.T) {
	ctx := context.Background()
	m, now := newTestMemory(time.Unix(1000, 0))

	if err := m.Set(ctx, "stale", "v", time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	*now = now.Add(time.Minute)

	for i := 0; i < sweepEvery; i++ {
		if err := m.Set(ctx, "churn", "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	m.mu.Lock()
	_, present := m.entries["stale"]
	m.mu.Unlock()
	if present {
		t.Fatal("sweep should have evicted the expired entry")
	}
}
