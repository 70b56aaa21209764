package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/cbioportal-nlq-server/internal/domain"
)

// ThrottledProvider enforces a minimum spacing between outbound calls so
// the process as a whole stays inside the backend's per-minute request
// quota. The limiter is shared state initialized once at startup.
type ThrottledProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewThrottledProvider wraps a provider with a per-minute request budget.
func NewThrottledProvider(inner Provider, requestsPerMinute int) *ThrottledProvider {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	return &ThrottledProvider{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Name implements the Provider interface
func (t *ThrottledProvider) Name() string { return t.inner.Name() }

// Complete implements the Provider interface. A caller deadline that
// expires while waiting for quota is reported as a provider failure so the
// router falls back instead of blocking.
func (t *ThrottledProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", domain.NewProviderError(t.Name(), fmt.Errorf("rate limit wait failed: %w", err))
	}
	return t.inner.Complete(ctx, prompt)
}
