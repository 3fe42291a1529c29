// Package rate bounds request rates per (endpoint, client address) pair
// using fixed-window counters in the ephemeral store.
package rate

import (
	"context"
	"log/slog"
	"time"
)

const keyPrefix = "rl:"

// Config holds the per-endpoint budgets for one fixed window.
type Config struct {
	Window           time.Duration
	Login            int
	ForgotPassword   int
	ResetPassword    int
	VerifyResetToken int
}

// Endpoint keys used by the HTTP layer.
const (
	EndpointLogin            = "login"
	EndpointForgotPassword   = "forgot-password"
	EndpointResetPassword    = "reset-password"
	EndpointVerifyResetToken = "verify-reset-token"
)

// Decision is the outcome of one Allow call. RetryAfter is only meaningful
// when Allowed is false and feeds the Retry-After response header.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Counter is the subset of the ephemeral store the limiter needs.
type Counter interface {
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Limiter enforces fixed-window limits. Unknown endpoints are not limited.
// When the counter store is unreachable the limiter fails open: blocking all
// logins because redis restarted is worse than one unthrottled window.
type Limiter struct {
	config Config
	store  Counter
	log    *slog.Logger
}

func NewLimiter(cfg Config, store Counter, log *slog.Logger) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &Limiter{config: cfg, store: store, log: log}
}

// Allow increments the window counter for (endpoint, addr) and reports
// whether the request is within budget.
func (l *Limiter) Allow(ctx context.Context, endpoint, addr string) Decision {
	limit := l.limitFor(endpoint)
	if limit <= 0 || addr == "" {
		return Decision{Allowed: true}
	}

	count, err := l.store.Increment(ctx, keyPrefix+endpoint+":"+addr, l.config.Window)
	if err != nil {
		l.log.WarnContext(ctx, "rate counter unavailable, failing open",
			"endpoint", endpoint, "error", err)
		return Decision{Allowed: true}
	}

	if count > int64(limit) {
		return Decision{Allowed: false, RetryAfter: l.config.Window}
	}
	return Decision{Allowed: true}
}

func (l *Limiter) limitFor(endpoint string) int {
	switch endpoint {
	case EndpointLogin:
		return l.config.Login
	case EndpointForgotPassword:
		return l.config.ForgotPassword
	case EndpointResetPassword:
		return l.config.ResetPassword
	case EndpointVerifyResetToken:
		return l.config.VerifyResetToken
	default:
		return 0
	}
}
