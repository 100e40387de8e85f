// Package ratelimit provides a keyed token-bucket limiter shared by all
// workers, one bucket per external source.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SourceLimiter maintains one token bucket per source key. All keys share
// the same rate and burst; buckets are created lazily on first use.
type SourceLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// New builds a SourceLimiter. rps <= 0 disables limiting entirely.
func New(rps float64, burst int) *SourceLimiter {
	if burst < 1 {
		burst = 1
	}
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Wait blocks until the key's bucket grants a token or ctx is done.
func (s *SourceLimiter) Wait(ctx context.Context, key string) error {
	if s == nil || s.rps <= 0 {
		return ctx.Err()
	}
	return s.limiter(key).Wait(ctx)
}

// Allow reports whether a token is immediately available for the key,
// consuming it if so.
func (s *SourceLimiter) Allow(key string) bool {
	if s == nil || s.rps <= 0 {
		return true
	}
	return s.limiter(key).Allow()
}

func (s *SourceLimiter) limiter(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[key]
	if !ok {
		l = rate.NewLimiter(s.rps, s.burst)
		s.limiters[key] = l
	}
	return l
}
