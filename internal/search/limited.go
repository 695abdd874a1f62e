package search

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/resilience"
)

// Limited wraps a Client with the process-wide call budget: every attempt
// waits on the shared limiter, goes through the circuit breaker, and is
// retried on transient failures. It is safe for concurrent use.
type Limited struct {
	inner   Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	policy  resilience.Policy
	calls   atomic.Int64
}

// NewLimited wraps inner. limiter and breaker are shared across all cities
// of a process; policy bounds submission retries.
func NewLimited(inner Client, limiter *rate.Limiter, breaker *resilience.Breaker, policy resilience.Policy) *Limited {
	if policy.Retryable == nil {
		policy.Retryable = resubmittable
	}
	if policy.OnRetry == nil {
		policy.OnRetry = resilience.LogRetry("search submission", zap.String("provider", inner.Name()))
	}
	return &Limited{inner: inner, limiter: limiter, breaker: breaker, policy: policy}
}

// Name implements Client.
func (l *Limited) Name() string { return l.inner.Name() }

// Calls returns the number of submissions made so far, retries included.
func (l *Limited) Calls() int64 { return l.calls.Load() }

// Search implements Client.
func (l *Limited) Search(ctx context.Context, q model.Query, limit int) ([]model.RawCandidate, error) {
	res, err := resilience.Retry(ctx, l.policy, func(ctx context.Context) ([]model.RawCandidate, error) {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		l.calls.Add(1)
		return resilience.Call(ctx, l.breaker, func(ctx context.Context) ([]model.RawCandidate, error) {
			return l.inner.Search(ctx, q, limit)
		})
	})
	if err == nil {
		return res, nil
	}

	var pe *ProviderError
	var te *TimeoutError
	switch {
	case errors.As(err, &pe), errors.As(err, &te), ctx.Err() != nil:
		return nil, err
	default:
		return nil, &ProviderError{Provider: l.Name(), Query: q.Text, Err: err}
	}
}

// resubmittable retries transient submission failures. Failures after the
// provider accepted the job are left to the poller.
func resubmittable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && pe.Submitted {
		return false
	}
	return resilience.IsTransient(err)
}

// NewLimiter builds the shared limiter that enforces minDelay between
// provider calls. A zero delay disables limiting.
func NewLimiter(minDelay time.Duration) *rate.Limiter {
	if minDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(minDelay), 1)
}
