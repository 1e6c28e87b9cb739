package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MinInterval enforces a minimum time between network attempts per key.
// Only attempts that reach the network are marked; cache hits are not.
type MinInterval struct {
	Interval time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

func NewMinInterval(interval time.Duration) *MinInterval {
	return &MinInterval{Interval: interval, last: make(map[string]time.Time)}
}

// ShouldDelay returns how long the caller would have to wait before key may hit the network.
func (m *MinInterval) ShouldDelay(key string, now time.Time) time.Duration {
	if m.Interval <= 0 {
		return 0
	}
	m.mu.Lock()
	last, ok := m.last[key]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	if wait := last.Add(m.Interval).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Mark records a network attempt for key.
func (m *MinInterval) Mark(key string, at time.Time) {
	m.mu.Lock()
	if m.last == nil {
		m.last = make(map[string]time.Time)
	}
	m.last[key] = at
	m.mu.Unlock()
}

// Wait blocks for d or until the context is canceled.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
