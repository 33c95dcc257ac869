package middleware

import (
	"fmt"
	"net/http"

	"clinic-qr-tracker/configs"
	"clinic-qr-tracker/internal/clientip"
	"clinic-qr-tracker/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit applies fixed-window admission control for one route. Rejected
// requests get a distinct 429 and perform no further work.
func RateLimit(limiter *ratelimit.Limiter, routeKey string, limit configs.RouteLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := clientip.FromRequest(c.Request)

		if !limiter.Admit(c.Request.Context(), clientKey, routeKey, limit.Limit, limit.Window) {
			c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limit.Limit))
			c.Header("X-RateLimit-Remaining", "0")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
				"limit": limit.Limit,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
