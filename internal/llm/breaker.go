package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/cbioportal-nlq-server/internal/domain"
)

// BreakerProvider wraps a provider with a circuit breaker so a dead or
// misbehaving backend short-circuits to the pattern fallback instead of
// burning the request timeout on every call.
type BreakerProvider struct {
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProvider creates a circuit-breaking provider wrapper.
func NewBreakerProvider(inner Provider, logger *logrus.Logger) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"provider": name,
				"from":     from.String(),
				"to":       to.String(),
			}).Warn("LLM provider circuit breaker state changed")
		},
	}

	return &BreakerProvider{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Name implements the Provider interface
func (b *BreakerProvider) Name() string { return b.inner.Name() }

// Complete implements the Provider interface
func (b *BreakerProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reply, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", domain.NewProviderError(b.Name(), err)
		}
		return "", err
	}
	return reply.(string), nil
}
