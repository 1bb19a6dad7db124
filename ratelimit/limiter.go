package ratelimit

import (
	"context"
	"math"

	"github.com/goliatone/go-admin-client/core"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/time/rate"
)

// Limiter caps outgoing requests per second. A nil Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter returns nil when the config does not ask for a cap.
func NewLimiter(config core.RateLimitConfig) *Limiter {
	if config.RequestsPerSecond <= 0 {
		return nil
	}
	burst := config.Burst
	if burst <= 0 {
		burst = int(math.Ceil(config.RequestsPerSecond))
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return nil
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return core.WrapError(err, goerrors.CategoryRateLimit, "ratelimit: wait for request slot", nil)
	}
	return nil
}
