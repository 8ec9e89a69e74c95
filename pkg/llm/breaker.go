package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/revintel/insight-agent/pkg/domain"
)

// BreakerClient wraps a reasoning client with a circuit breaker so a
// misbehaving endpoint stops absorbing latency budget. While the breaker
// is open every call fails fast and callers fall through to their
// non-model fallbacks.
type BreakerClient struct {
	client  domain.ReasoningClient
	breaker *gobreaker.CircuitBreaker[*domain.Completion]
}

// BreakerSettings tunes the circuit breaker
type BreakerSettings struct {
	// MinRequests is the minimum sample before the failure ratio is
	// considered.
	MinRequests uint32
	// FailureRatio at or above which the breaker trips.
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenMaxCalls bounds probe traffic while half-open.
	HalfOpenMaxCalls uint32
}

// DefaultBreakerSettings returns conservative breaker defaults
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:      5,
		FailureRatio:     0.6,
		OpenTimeout:      30 * time.Second,
		HalfOpenMaxCalls: 2,
	}
}

// NewBreakerClient wraps client with a circuit breaker
func NewBreakerClient(client domain.ReasoningClient, settings BreakerSettings) *BreakerClient {
	cb := gobreaker.NewCircuitBreaker[*domain.Completion](gobreaker.Settings{
		Name:        "reasoning",
		MaxRequests: settings.HalfOpenMaxCalls,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Malformed output is a model problem, not an endpoint
			// problem; it must not trip the breaker.
			return errors.Is(err, domain.ErrMalformedResponse)
		},
	})

	return &BreakerClient{
		client:  client,
		breaker: cb,
	}
}

// Complete delegates to the wrapped client through the breaker.
func (c *BreakerClient) Complete(ctx context.Context, prompt string, tier domain.Tier) (*domain.Completion, error) {
	return c.breaker.Execute(func() (*domain.Completion, error) {
		return c.client.Complete(ctx, prompt, tier)
	})
}

// IsCircuitOpen reports whether err is a breaker rejection rather than a
// failure from the wrapped client.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
