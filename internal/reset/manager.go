// Package reset implements the password-reset lifecycle: forgot → verify →
// reset, with single-use tokens held in the ephemeral store.
//
// Tokens are keyed per email ("<prefix>:<email>") and a new request
// overwrites any outstanding token, so one reset can be pending per account
// at a time. The store holds the sha256 of the token, never the token
// itself; all comparisons are constant-time.
package reset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/paystream/accounts/internal/kvstore"
	"github.com/paystream/accounts/internal/mail"
	"github.com/paystream/accounts/internal/password"
	"github.com/paystream/accounts/internal/user"
)

var (
	// ErrPasswordMismatch is returned when the confirmation does not match
	// the new password.
	ErrPasswordMismatch = errors.New("password confirmation does not match")
	// ErrInvalidToken covers absent, expired, consumed, and wrong tokens.
	ErrInvalidToken = errors.New("invalid or expired reset token")
	// ErrMailFailed means the token was stored but the email could not be
	// dispatched. The token stays valid so a retry can succeed.
	ErrMailFailed = errors.New("failed to send password reset email")
)

const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config tunes the reset token lifecycle.
type Config struct {
	TokenLength int
	TTL         time.Duration
	KeyPrefix   string
}

// Manager orchestrates the reset flow across the credential store, the
// ephemeral store, and the mailer. Safe for concurrent use.
type Manager struct {
	config Config
	store  kvstore.Store
	users  user.Repository
	hasher *password.Hasher
	mailer mail.Sender
	log    *slog.Logger
}

func NewManager(cfg Config, store kvstore.Store, users user.Repository, hasher *password.Hasher, mailer mail.Sender, log *slog.Logger) (*Manager, error) {
	if cfg.TokenLength < 16 {
		return nil, errors.New("reset token length must be at least 16")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("reset token TTL must be positive")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "reset"
	}
	return &Manager{
		config: cfg,
		store:  store,
		users:  users,
		hasher: hasher,
		mailer: mailer,
		log:    log,
	}, nil
}

// Forgot handles a forgot-password request. For unknown or inactive
// accounts it returns nil without writing anything, so the response never
// reveals whether the email is registered. For active accounts it stores a
// fresh token (invalidating any earlier one) and dispatches the reset email.
func (m *Manager) Forgot(ctx context.Context, email string) error {
	email = user.NormalizeEmail(email)

	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	token, err := generateToken(m.config.TokenLength)
	if err != nil {
		return err
	}

	if err := m.store.Set(ctx, m.key(email), hashToken(token), m.config.TTL); err != nil {
		return err
	}

	if err := m.mailer.SendPasswordReset(ctx, u.Email, u.FirstName, token); err != nil {
		// Token stays stored; the user can retry and a resend overwrites it.
		m.log.ErrorContext(ctx, "reset email dispatch failed", "error", err)
		return fmt.Errorf("%w: %v", ErrMailFailed, err)
	}

	return nil
}

// Verify reports whether the (email, token) pair matches the stored record.
// Read-only: a valid token is not consumed by verification.
func (m *Manager) Verify(ctx context.Context, email, token string) (bool, error) {
	stored, err := m.store.Get(ctx, m.key(user.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(hashToken(token))) == 1, nil
}

// Reset consumes the token and updates the password. The consume is an
// atomic compare-and-delete, so of two concurrent calls with the same valid
// token exactly one wins; the loser gets ErrInvalidToken. Any failure before
// the consume leaves the token intact.
func (m *Manager) Reset(ctx context.Context, email, token, newPassword, confirmPassword string) error {
	if subtle.ConstantTimeCompare([]byte(newPassword), []byte(confirmPassword)) != 1 {
		return ErrPasswordMismatch
	}

	email = user.NormalizeEmail(email)

	u, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !u.IsActive {
		return ErrInvalidToken
	}

	hash, err := m.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	matched, err := m.store.CompareAndDelete(ctx, m.key(email), hashToken(token))
	if err != nil {
		return err
	}
	if !matched {
		return ErrInvalidToken
	}

	// The token is consumed at this point. A store failure here is surfaced
	// as-is; the user must request a fresh token.
	return m.users.UpdatePassword(ctx, u.ID, hash)
}

func (m *Manager) key(email string) string {
	return m.config.KeyPrefix + ":" + email
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func generateToken(length int) (string, error) {
	max := big.NewInt(int64(len(tokenAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}
