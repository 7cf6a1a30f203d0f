package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/murmur/internal/observ"
	"github.com/lalith-99/murmur/internal/ratelimit"
)

// KeyFunc picks the rate-limit key for a request.
type KeyFunc func(c *gin.Context) string

// ByClientIP keys on the client address.
func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser keys on the authenticated user; it must run after AuthMiddleware.
func ByUser(c *gin.Context) string {
	return GetUserID(c).String()
}

// RateLimit rejects requests over the limiter's quota with 429. bucket
// namespaces the key so one limiter backend can serve several routes.
func RateLimit(limiter ratelimit.Limiter, bucket string, key KeyFunc, metrics *observ.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.Request.Context(), bucket+":"+key(c)) {
			metrics.Limited(bucket)
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded, slow down",
			})
			return
		}
		c.Next()
	}
}
