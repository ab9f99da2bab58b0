package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAcquireUpToCapacity(t *testing.T) {
	l := NewLimiterWindow(3, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("Acquire %d failed: %v", i, err)
		}
	}

	if got := l.Cooldown(); got != 3 {
		t.Errorf("Cooldown() = %d, want 3", got)
	}
}

func TestAcquireBlocksOverCapacity(t *testing.T) {
	l := NewLimiterWindow(1, time.Hour)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	// The second acquisition must block until the window elapses, which it
	// never does here, so the context deadline should fire.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Acquire(ctx); err != context.DeadlineExceeded {
		t.Errorf("second Acquire returned %v, want context.DeadlineExceeded", err)
	}
}

func TestSlotReleasedByTimer(t *testing.T) {
	l := NewLimiterWindow(1, 30*time.Millisecond)

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("second Acquire returned after %v, want it to wait for the window", elapsed)
	}
}

func TestCooldownNeverExceedsCapacity(t *testing.T) {
	const capacity = 4
	l := NewLimiterWindow(capacity, 20*time.Millisecond)

	var wg sync.WaitGroup
	var maxSeen atomic.Int64

	for i := 0; i < capacity*4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire failed: %v", err)
				return
			}
			if n := int64(l.Cooldown()); n > maxSeen.Load() {
				maxSeen.Store(n)
			}
		}()
	}
	wg.Wait()

	if maxSeen.Load() > capacity {
		t.Errorf("observed %d pending cool-down timers, capacity is %d", maxSeen.Load(), capacity)
	}
}

func TestRegistryReturnsSameLimiter(t *testing.T) {
	r := NewRegistry()

	a := r.Limiter("tts-1", 50)
	b := r.Limiter("tts-1", 99)
	if a != b {
		t.Error("Registry created a second limiter for the same operation")
	}
	if a.Capacity() != 50 {
		t.Errorf("Capacity() = %d, want the original 50", a.Capacity())
	}

	c := r.Limiter("gpt-4", 500)
	if c == a {
		t.Error("distinct operations share a limiter")
	}
}

func TestRegistryConcurrentLookup(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	limiters := make([]*Limiter, 16)
	for i := range limiters {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			limiters[i] = r.Limiter("chat", 10)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(limiters); i++ {
		if limiters[i] != limiters[0] {
			t.Fatal("concurrent lookups produced distinct limiters")
		}
	}
}

func TestQuota(t *testing.T) {
	if got := Quota("tts-1"); got != 50 {
		t.Errorf("Quota(tts-1) = %d, want 50", got)
	}
	if got := Quota("unknown-model"); got != DefaultQuota {
		t.Errorf("Quota(unknown-model) = %d, want %d", got, DefaultQuota)
	}
}
