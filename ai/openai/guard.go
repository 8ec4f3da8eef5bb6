package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/attest/ai"
	"github.com/poiesic/attest/telemetry"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// guard wraps every call to a model service with a rate limiter, a circuit
// breaker, a per-call timeout and bounded retries.
type guard struct {
	name       string
	breaker    *gobreaker.CircuitBreaker
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	logger     *slog.Logger
}

func newGuard(name string, config *ai.Config, metrics *telemetry.Metrics, logger *slog.Logger) *guard {
	g := &guard{
		name:       name,
		timeout:    config.RequestTimeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
		logger:     logger,
	}
	if g.maxRetries < 1 {
		g.maxRetries = 1
	}
	if config.RequestsPerMinute > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(float64(config.RequestsPerMinute)/60.0), 1)
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerChanged(context.Background(), name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			// Oversized input and caller cancellation say nothing about service health.
			return err == nil ||
				errors.Is(err, ai.ErrInputTooLong) ||
				errors.Is(err, context.Canceled)
		},
	})
	return g
}

// do runs op under the guard with up to attempts tries.
// attempts <= 0 uses the configured retry count.
func (g *guard) do(ctx context.Context, attempts int, op func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = g.maxRetries
	}
	return ai.RetryWithBackoff(ctx, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return ai.Permanent(err)
			}
		}

		_, err := g.breaker.Execute(func() (interface{}, error) {
			callCtx, cancel := g.callContext(ctx)
			defer cancel()
			return nil, op(callCtx)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("model service call rejected", "breaker", g.name, "err", err)
			return ai.Permanent(fmt.Errorf("%w: %s: %w", ai.ErrServiceUnavailable, g.name, err))
		}
		return err
	}, attempts, g.retryDelay)
}

func (g *guard) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}
