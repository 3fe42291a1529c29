package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/paystream/accounts/internal/rate"
	"github.com/paystream/accounts/internal/token"
)

const userIDKey = "auth_user_id"

// RequireAuth verifies the bearer access token and stashes the subject in
// the request context. Requests without a valid access token get 401.
func RequireAuth(issuer *token.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, http.StatusUnauthorized, "authentication required", nil)
			c.Abort()
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := issuer.Verify(c.Request.Context(), raw, token.TypeAccess)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set(userIDKey, claims.UserID())
		c.Next()
	}
}

// AuthUserID returns the subject set by RequireAuth, or "" when the request
// did not pass through it.
func AuthUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RateLimit rejects requests over the endpoint's window budget with 429 and
// a Retry-After header.
func RateLimit(limiter *rate.Limiter, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Allow(c.Request.Context(), endpoint, c.ClientIP())
		if !decision.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(decision.RetryAfter.Seconds())))
			respondError(c, http.StatusTooManyRequests, "too many requests, try again later", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}
