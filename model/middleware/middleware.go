// Package middleware provides resilience decorators for model.Model
// implementations: a circuit breaker that sheds load from a failing provider
// and a rate limiter that smooths request bursts. Decorators compose:
//
//	m := middleware.NewRateLimited(middleware.NewBreaker(inner), rate.Limit(1), 3)
package middleware

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/luxworks/lux/model"
)

// BreakerOptions tune the circuit breaker.
type BreakerOptions struct {
	// Name appears in breaker state-change notifications.
	Name string
	// MaxFailures consecutive failures trip the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// OnStateChange is invoked on breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// Breaker wraps a Model with a circuit breaker. While open, calls fail fast
// with gobreaker.ErrOpenState instead of hitting the provider.
type Breaker struct {
	inner model.Model
	cb    *gobreaker.CircuitBreaker[*model.Response]
}

// NewBreaker constructs a Breaker with sensible defaults (5 consecutive
// failures trip it, 30s open interval).
func NewBreaker(inner model.Model, optFns ...func(o *BreakerOptions)) *Breaker {
	opts := BreakerOptions{
		Name:        "model",
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	settings := gobreaker.Settings{
		Name:    opts.Name,
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.MaxFailures
		},
	}
	if opts.OnStateChange != nil {
		settings.OnStateChange = opts.OnStateChange
	}

	return &Breaker{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[*model.Response](settings),
	}
}

// Call executes the wrapped model through the breaker.
func (b *Breaker) Call(ctx context.Context, req model.Request) (*model.Response, error) {
	return b.cb.Execute(func() (*model.Response, error) {
		return b.inner.Call(ctx, req)
	})
}

// RateLimited wraps a Model with a token-bucket limiter. Call blocks until a
// token is available or the context is cancelled.
type RateLimited struct {
	inner   model.Model
	limiter *rate.Limiter
}

// NewRateLimited constructs a RateLimited model allowing r requests per
// second with the given burst.
func NewRateLimited(inner model.Model, r rate.Limit, burst int) *RateLimited {
	return &RateLimited{inner: inner, limiter: rate.NewLimiter(r, burst)}
}

// Call waits for the limiter then delegates.
func (r *RateLimited) Call(ctx context.Context, req model.Request) (*model.Response, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Call(ctx, req)
}
