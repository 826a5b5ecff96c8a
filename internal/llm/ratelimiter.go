package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider paces calls to the wrapped provider so at most
// rpm requests start per minute. Callers block until their slot or
// until their context is done.
type RateLimitedProvider struct {
	provider Provider
	interval time.Duration

	mu   sync.Mutex
	next time.Time
}

// NewRateLimitedProvider wraps a provider with an rpm pacing limit.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{
		provider: provider,
		interval: time.Minute / time.Duration(rpm),
	}
}

func (r *RateLimitedProvider) Name() string { return r.provider.Name() }

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	r.mu.Lock()
	now := time.Now()
	slot := r.next
	if slot.Before(now) {
		slot = now
	}
	r.next = slot.Add(r.interval)
	r.mu.Unlock()

	if wait := time.Until(slot); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return r.provider.Complete(ctx, req)
}
