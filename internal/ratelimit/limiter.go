// Package ratelimit implements an in-memory token bucket rate limiter for
// gating calls through the Management Client, adapted from
// Chris-Alexander-Pop-microservices-library/pkg/algorithms/ratelimit/tokenbucket's
// InMemoryLimiter (generalized here from a keyed map to a single bucket,
// since the engine has exactly one management-plane credential to throttle).
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dawidpereira/quetty-sub002/internal/apperrors"
)

// Limiter is a single-bucket token-bucket rate limiter, per spec.md §4.5.
type Limiter struct {
	mu         sync.Mutex
	rate       float64 // tokens added per second
	burst      float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
}

// New creates a Limiter admitting requestsPerSecond sustained, with a
// burst capacity (defaulting to requestsPerSecond when burstSize <= 0).
func New(requestsPerSecond float64, burstSize int64) *Limiter {
	burst := float64(burstSize)
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &Limiter{
		rate:       requestsPerSecond,
		burst:      burst,
		tokens:     burst,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (l *Limiter) refillLocked() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastRefill = now
}

// Check attempts to admit a single request, consuming one token. It
// returns nil on success or an *apperrors.Error with Kind
// KindRateLimited and RetryAfter set on exhaustion.
func (l *Limiter) Check() error {
	return l.CheckN(1)
}

// CheckN atomically attempts to admit n permits as a single unit: either
// all n tokens are consumed, or none are.
func (l *Limiter) CheckN(n int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refillLocked()

	need := float64(n)
	if l.tokens >= need {
		l.tokens -= need
		return nil
	}

	deficit := need - l.tokens
	retryAfter := time.Duration(deficit / l.rate * float64(time.Second))
	return apperrors.RateLimitedf(retryAfter, "rate limit exceeded: need %d permit(s)", n)
}

// WaitUntilReady blocks the caller until a single permit is available or
// ctx is cancelled.
func (l *Limiter) WaitUntilReady(ctx context.Context) error {
	for {
		err := l.Check()
		if err == nil {
			return nil
		}

		var appErr *apperrors.Error
		retryAfter := 50 * time.Millisecond
		if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
			retryAfter = appErr.RetryAfter
		}

		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return apperrors.New(apperrors.KindCancelled, "wait for rate limit permit cancelled", ctx.Err())
		case <-timer.C:
		}
	}
}

// maxProbeCapacity bounds the binary search in AvailableCapacity, per
// spec.md §9's "binary search up to a fixed upper bound" note.
const maxProbeCapacity = 1 << 20

// AvailableCapacity returns the largest n for which CheckN(n) would
// currently succeed, found via binary search against a non-consuming
// probe, without consuming any tokens itself. This preserves the semantic
// spec.md §9 calls out (largest admissible n), not the literal probe
// mechanism.
func (l *Limiter) AvailableCapacity() int64 {
	l.mu.Lock()
	l.refillLocked()
	available := l.tokens
	l.mu.Unlock()

	lo, hi := int64(0), int64(maxProbeCapacity)
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if float64(mid) <= available {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
