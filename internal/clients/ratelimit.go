package clients

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/mikelady/socialconnect/internal/services"
)

// RateLimitConfig holds outbound rate limiting for one provider
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimits keep each adapter well under the platform's app-level quota.
// Provider 429s are surfaced to the caller, never retried.
var DefaultRateLimits = map[string]RateLimitConfig{
	services.PlatformFacebook:  {RequestsPerSecond: 5, BurstSize: 10},
	services.PlatformInstagram: {RequestsPerSecond: 3, BurstSize: 6},
	services.PlatformLinkedIn:  {RequestsPerSecond: 2, BurstSize: 5},
}

// RateLimiter smooths bursts of outbound calls with a token bucket
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter for platform, overriding the defaults with
// any positive values in cfg.
func NewRateLimiter(platform string, cfg RateLimitConfig) *RateLimiter {
	def, ok := DefaultRateLimits[platform]
	if !ok {
		def = RateLimitConfig{RequestsPerSecond: 5, BurstSize: 10}
	}
	if cfg.RequestsPerSecond > 0 {
		def.RequestsPerSecond = cfg.RequestsPerSecond
	}
	if cfg.BurstSize > 0 {
		def.BurstSize = cfg.BurstSize
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(def.RequestsPerSecond), def.BurstSize)}
}

// Wait blocks until a request may be sent or ctx is done
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
