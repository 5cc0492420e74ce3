package ratelimit

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter is a process-wide token bucket shared per collaborator scope.
// Concurrent pipeline runs draw from the same bucket, so together they never
// exceed the collaborator's rate budget.
type Limiter struct {
	mtx     sync.Mutex
	buckets map[string]*rate.Limiter
	rps     float64
	burst   int
}

// New builds a limiter issuing rps tokens per second with the given burst.
func New(rps float64, burst int) (*Limiter, error) {
	if rps <= 0 {
		return nil, errors.New("rate must be positive")
	}
	if burst <= 0 {
		return nil, errors.New("burst must be positive")
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		rps:     rps,
		burst:   burst,
	}, nil
}

// Wait blocks until a token is available for the scope or the context ends.
func (l *Limiter) Wait(ctx context.Context, scope string) error {
	return l.bucket(scope).Wait(ctx)
}

// Allow reports whether a token is immediately available for the scope.
func (l *Limiter) Allow(scope string) bool {
	return l.bucket(scope).Allow()
}

func (l *Limiter) bucket(scope string) *rate.Limiter {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if b, ok := l.buckets[scope]; ok {
		return b
	}
	b := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.buckets[scope] = b
	return b
}
