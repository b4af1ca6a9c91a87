package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

const rateLimitMessage = "Too many requests, please try again later."

// RateLimit throttles a route per client IP. A nil limiter or a
// non-positive limit disables it.
func RateLimit(limiter RateLimiter, limit int, window time.Duration, metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		decision := limiter.Allow("ip:"+c.ClientIP()+":"+route, limit, window)

		remaining := limit - decision.Count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(time.Until(decision.WindowEnd).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			metrics.recordRateLimitHit(route)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   rateLimitMessage,
			})
			return
		}

		c.Next()
	}
}
