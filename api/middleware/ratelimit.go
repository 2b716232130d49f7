package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apierrors "github.com/customeros/waitlist/api/errors"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/metrics"
)

// RateLimitMiddleware limits requests per client IP. Limiter errors let the request through.
func RateLimitMiddleware(limiter interfaces.RateLimiter, m *metrics.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warnf("Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}

		if !allowed {
			m.IncrementRateLimited()
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": apierrors.MsgRateLimited})
			return
		}

		c.Next()
	}
}
