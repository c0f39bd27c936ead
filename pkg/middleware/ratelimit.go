package middleware

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/cutoff-service/pkg/errors"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

// Rate limit response headers
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// RateLimiter counts requests per client and endpoint over a fixed window
type RateLimiter interface {
	Allow(ctx context.Context, clientID, endpoint string, limit int) (bool, int64)
}

// RejectionRecorder receives a tick for every rejected request
type RejectionRecorder interface {
	RecordRateLimitRejection(endpoint string)
}

// RateLimit enforces limit requests per window for endpoint. Clients are
// identified by X-Client-ID when present, otherwise by remote address.
func RateLimit(limiter RateLimiter, endpoint string, limit int, recorder RejectionRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := ClientID(c)
		c.Set(ContextKeyClientID, clientID)
		c.Request = c.Request.WithContext(logging.ContextWithClientID(c.Request.Context(), clientID))

		allowed, count := limiter.Allow(c.Request.Context(), clientID, endpoint, limit)

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header(HeaderRateLimitLimit, strconv.Itoa(limit))
		c.Header(HeaderRateLimitRemaining, strconv.FormatInt(remaining, 10))

		if !allowed {
			if recorder != nil {
				recorder.RecordRateLimitRejection(endpoint)
			}
			AbortWithAppError(c, errors.ErrRateLimitExceeded(endpoint, limit))
			return
		}

		c.Next()
	}
}

// ClientID returns the caller identity used for rate limiting
func ClientID(c *gin.Context) string {
	if id := SanitizeString(c.GetHeader(HeaderClientID)); id != "" {
		return id
	}
	return c.ClientIP()
}
