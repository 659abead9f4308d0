package cache

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryGetSetWithTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory().WithClock(clock.now)
	ctx := context.Background()

	if err := c.Set(ctx, "k", "true", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || val != "true" {
		t.Fatalf("get = (%q,%v,%v), want (true,true,nil)", val, ok, err)
	}

	clock.advance(time.Minute)

	_, ok, err = c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get after expiry: %v", err)
	}
	if ok {
		t.Fatalf("entry should be gone once its ttl has elapsed")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry should be evicted on read, len=%d", c.Len())
	}
}

func TestMemoryNoTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewMemory().WithClock(clock.now)
	ctx := context.Background()

	_ = c.Set(ctx, "k", "v", 0)
	clock.advance(24 * time.Hour * 365)

	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatalf("entry without ttl should persist")
	}
}

func TestMemorySweep(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	c := NewMemory().WithClock(clock.now)
	ctx := context.Background()

	_ = c.Set(ctx, "short", "v", time.Second)
	_ = c.Set(ctx, "long", "v", time.Hour)

	clock.advance(2 * time.Second)

	if removed := c.Sweep(); removed != 1 {
		t.Fatalf("sweep removed %d, want 1", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("len=%d, want 1", c.Len())
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	c := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.Set(ctx, "k", "v", time.Minute); err == nil {
		t.Fatalf("set with canceled context should fail")
	}
	if _, _, err := c.Get(ctx, "k"); err == nil {
		t.Fatalf("get with canceled context should fail")
	}
}
