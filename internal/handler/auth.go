// Package handler exposes the account API over HTTP. Every response uses
// the uniform envelope {status, message, data?, errors?}.
package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/paystream/accounts/internal/model"
	"github.com/paystream/accounts/internal/reset"
	"github.com/paystream/accounts/internal/service"
	"github.com/paystream/accounts/internal/token"
	"github.com/paystream/accounts/internal/validate"
)

type AuthHandler struct {
	accounts *service.Accounts
	reset    *reset.Manager
	issuer   *token.Issuer
	log      *slog.Logger
}

func NewAuthHandler(accounts *service.Accounts, resetManager *reset.Manager, issuer *token.Issuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, reset: resetManager, issuer: issuer, log: log}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.Register(req) }) {
		return
	}

	u, pair, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			respondError(c, http.StatusBadRequest, "validation failed",
				map[string]string{"email": "this email is already registered"})
			return
		}
		h.internal(c, "register", err)
		return
	}

	respondOK(c, http.StatusCreated, "registration successful", model.AuthPayload{
		User:   u.Public(),
		Tokens: model.TokenPair{Access: pair.Access, Refresh: pair.Refresh},
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.Login(req) }) {
		return
	}

	u, pair, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			respondError(c, http.StatusUnauthorized, "invalid email or password", nil)
		case errors.Is(err, service.ErrAccountDisabled):
			respondError(c, http.StatusUnauthorized, "account is disabled", nil)
		default:
			h.internal(c, "login", err)
		}
		return
	}

	respondOK(c, http.StatusOK, "login successful", model.AuthPayload{
		User:   u.Public(),
		Tokens: model.TokenPair{Access: pair.Access, Refresh: pair.Refresh},
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var req model.LogoutRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.Logout(req) }) {
		return
	}

	if err := h.accounts.Logout(c.Request.Context(), req.Refresh); err != nil {
		if isTokenError(err) {
			respondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		h.internal(c, "logout", err)
		return
	}
	respondOK(c, http.StatusOK, "logout successful", nil)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	u, err := h.accounts.Profile(c.Request.Context(), AuthUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.internal(c, "profile", err)
		return
	}
	respondOK(c, http.StatusOK, "profile retrieved", gin.H{"user": u.Public()})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req model.UpdateProfileRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.UpdateProfile(req) }) {
		return
	}

	u, err := h.accounts.UpdateProfile(c.Request.Context(), AuthUserID(c), req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.internal(c, "update profile", err)
		return
	}
	respondOK(c, http.StatusOK, "profile updated", gin.H{"user": u.Public()})
}

// ForgotPassword answers generically whether or not the account exists. Only
// a mail dispatch failure for a real account surfaces as an error.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.ForgotPassword(req) }) {
		return
	}

	if err := h.reset.Forgot(c.Request.Context(), req.Email); err != nil {
		h.internal(c, "forgot password", err)
		return
	}
	respondOK(c, http.StatusOK, "if the email is registered, a reset link has been sent", nil)
}

func (h *AuthHandler) VerifyResetToken(c *gin.Context) {
	var req model.VerifyResetTokenRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.VerifyResetToken(req) }) {
		return
	}

	valid, err := h.reset.Verify(c.Request.Context(), req.Email, req.Token)
	if err != nil {
		h.internal(c, "verify reset token", err)
		return
	}
	respondOK(c, http.StatusOK, "token verification result", gin.H{"valid": valid})
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req model.ResetPasswordRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.ResetPassword(req) }) {
		return
	}

	err := h.reset.Reset(c.Request.Context(), req.Email, req.Token, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, reset.ErrPasswordMismatch):
			respondError(c, http.StatusBadRequest, "validation failed",
				map[string]string{"confirm_password": "passwords do not match"})
		case errors.Is(err, reset.ErrInvalidToken):
			respondError(c, http.StatusBadRequest, "invalid or expired reset token", nil)
		default:
			h.internal(c, "reset password", err)
		}
		return
	}
	respondOK(c, http.StatusOK, "password reset successful", nil)
}

// TokenObtain issues a pair from credentials, the token-endpoint counterpart
// of Login without the user payload.
func (h *AuthHandler) TokenObtain(c *gin.Context) {
	var req model.LoginRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.Login(req) }) {
		return
	}

	_, pair, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrAccountDisabled):
			respondError(c, http.StatusUnauthorized, "invalid email or password", nil)
		default:
			h.internal(c, "token obtain", err)
		}
		return
	}
	respondOK(c, http.StatusOK, "token pair issued", model.TokenPair{Access: pair.Access, Refresh: pair.Refresh})
}

func (h *AuthHandler) TokenRefresh(c *gin.Context) {
	var req model.TokenRefreshRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.TokenRefresh(req) }) {
		return
	}

	pair, err := h.issuer.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		if isTokenError(err) {
			respondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		h.internal(c, "token refresh", err)
		return
	}
	respondOK(c, http.StatusOK, "token refreshed", model.TokenPair{Access: pair.Access, Refresh: pair.Refresh})
}

// TokenVerify reports validity of either token type without side effects.
func (h *AuthHandler) TokenVerify(c *gin.Context) {
	var req model.TokenVerifyRequest
	if !h.bindAndValidate(c, &req, func() error { return validate.TokenVerify(req) }) {
		return
	}

	if _, err := h.issuer.VerifyAny(c.Request.Context(), req.Token); err != nil {
		if isTokenError(err) {
			respondError(c, http.StatusUnauthorized, "invalid or expired token", nil)
			return
		}
		h.internal(c, "token verify", err)
		return
	}
	respondOK(c, http.StatusOK, "token is valid", nil)
}

// bindAndValidate parses the JSON body and runs the request validator,
// writing a 400 envelope on failure.
func (h *AuthHandler) bindAndValidate(c *gin.Context, req any, check func() error) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	if err := check(); err != nil {
		respondError(c, http.StatusBadRequest, "validation failed", validate.FieldErrors(err))
		return false
	}
	return true
}

func (h *AuthHandler) internal(c *gin.Context, op string, err error) {
	h.log.ErrorContext(c.Request.Context(), op+" failed", "error", err)
	respondError(c, http.StatusInternalServerError, "internal server error", nil)
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrInvalidToken) ||
		errors.Is(err, token.ErrExpiredToken) ||
		errors.Is(err, token.ErrRevokedToken)
}
