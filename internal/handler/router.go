package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paystream/accounts/internal/rate"
	"github.com/paystream/accounts/internal/token"
)

// NewRouter assembles the /auth API. Issuance-adjacent endpoints sit behind
// the rate limiter; profile endpoints behind bearer auth.
func NewRouter(auth *AuthHandler, issuer *token.Issuer, limiter *rate.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	group := router.Group("/auth")
	{
		group.POST("/register", auth.Register)
		group.POST("/login", RateLimit(limiter, rate.EndpointLogin), auth.Login)
		group.POST("/logout", RequireAuth(issuer), auth.Logout)

		group.GET("/profile", RequireAuth(issuer), auth.Profile)
		group.PUT("/profile", RequireAuth(issuer), auth.UpdateProfile)

		group.POST("/forgot-password", RateLimit(limiter, rate.EndpointForgotPassword), auth.ForgotPassword)
		group.POST("/verify-reset-token", RateLimit(limiter, rate.EndpointVerifyResetToken), auth.VerifyResetToken)
		group.POST("/reset-password", RateLimit(limiter, rate.EndpointResetPassword), auth.ResetPassword)

		group.POST("/token", RateLimit(limiter, rate.EndpointLogin), auth.TokenObtain)
		group.POST("/token/refresh", auth.TokenRefresh)
		group.POST("/token/verify", auth.TokenVerify)
	}

	return router
}
