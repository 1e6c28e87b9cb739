package ratelimit

import (
	"context"
	"sync"
	"time"

	"p2pquotes/internal/provider"
)

// TokenBucket caps the overall request rate to one upstream, across all keys.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// PerMinute is a bucket refilled at rpm tokens per minute.
func PerMinute(rpm, burst int) *TokenBucket {
	return NewTokenBucket(float64(rpm)/60.0, burst)
}

// Wait blocks until one token is available or the context is canceled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()

		waitDur := time.Duration(deficit / tb.rate * float64(time.Second))
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		if err := Wait(ctx, waitDur); err != nil {
			return err
		}
	}
}

// Budgeted gates every upstream fetch of a source on a token bucket.
type Budgeted struct {
	provider.Source
	TB *TokenBucket
}

func (b *Budgeted) Fetch(ctx context.Context, req provider.Request) (provider.QuoteSet, error) {
	if b.TB != nil {
		if err := b.TB.Wait(ctx); err != nil {
			return provider.QuoteSet{}, err
		}
	}
	return b.Source.Fetch(ctx, req)
}
