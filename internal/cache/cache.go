package cache

import (
	"context"
	"sync"
	"time"
)

// Store is the key-value contract the revocation cache is built on.
// A ttl <= 0 on Set means the entry never expires.
type Store interface {
	Get(ctx context.Context, key string) (val string, ok bool, err error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Memory is an in-process Store with per-entry expiry.
type Memory struct {
	mu  sync.RWMutex
	now func() time.Time
	m   map[string]entry
}

type entry struct {
	val string
	exp time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && !now.Before(e.exp)
}

func NewMemory() *Memory {
	return &Memory{
		now: time.Now,
		m:   make(map[string]entry),
	}
}

// WithClock swaps the time source; used by tests.
func (c *Memory) WithClock(now func() time.Time) *Memory {
	c.now = now
	return c
}

func (c *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	now := c.now()
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	if e.expired(now) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return "", false, nil
	}

	return e.val, true, nil
}

func (c *Memory) Set(ctx context.Context, key, val string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e := entry{val: val}
	if ttl > 0 {
		e.exp = c.now().Add(ttl)
	}

	c.mu.Lock()
	c.m[key] = e
	c.mu.Unlock()
	return nil
}

func (c *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Sweep drops every expired entry and returns how many were removed.
func (c *Memory) Sweep() int {
	now := c.now()
	removed := 0

	c.mu.Lock()
	for k, e := range c.m {
		if e.expired(now) {
			delete(c.m, k)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// RunJanitor sweeps expired entries every interval until ctx is done.
func (c *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}
