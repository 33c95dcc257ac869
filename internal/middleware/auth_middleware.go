package middleware

import (
	"net/http"
	"strings"

	"clinic-qr-tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// Auth validates the operator's bearer token and stores identity in the
// request context. Visitor tracking routes never pass through here.
func Auth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("operator_id", claims.OperatorID)
		c.Set("tenant_id", claims.TenantID)

		c.Next()
	}
}

// DemoGuard rejects mutating operator actions on demo tenants with a distinct
// signal. Runs after Auth and before the subscription gate on operator write
// paths; anonymous visitor endpoints never consult it.
func DemoGuard(subs services.SubscriptionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := c.GetString("tenant_id")
		if tenantID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if subs.IsDemo(c.Request.Context(), tenantID) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Demo accounts cannot modify data"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ContentType enforces JSON bodies on mutating requests.
func ContentType() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost || c.Request.Method == http.MethodPut {
			contentType := c.GetHeader("Content-Type")
			if !strings.Contains(contentType, "application/json") {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Content-Type must be application/json"})
				c.Abort()
				return
			}
		}
		c.Next()
	}
}
