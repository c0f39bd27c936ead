package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

// RateLimiter is a fixed-window request counter kept in the cache store
type RateLimiter struct {
	store  domain.CacheStore
	window time.Duration
	logger *logging.Logger
}

// NewRateLimiter creates a limiter counting requests per window
func NewRateLimiter(store domain.CacheStore, window time.Duration, logger *logging.Logger) *RateLimiter {
	return &RateLimiter{store: store, window: window, logger: logger.WithComponent("rate-limiter")}
}

// RateLimitKey is the counter key of a client on an endpoint
func RateLimitKey(clientID, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientID, endpoint)
}

// Allow counts the request and reports whether it is within limit. Store
// failures let the request through.
func (r *RateLimiter) Allow(ctx context.Context, clientID, endpoint string, limit int) (bool, int64) {
	key := RateLimitKey(clientID, endpoint)

	count, err := r.increment(ctx, key)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Warn("Rate limit check failed, allowing request", "key", key)
		return true, 0
	}

	return count <= int64(limit), count
}

func (r *RateLimiter) increment(ctx context.Context, key string) (int64, error) {
	if counter, ok := r.store.(domain.AtomicCounter); ok {
		return counter.IncrementWithExpiry(ctx, key, r.window)
	}

	count, err := r.store.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := r.store.Expire(ctx, key, r.window); err != nil {
			return count, err
		}
	}
	return count, nil
}
