// Package token mints and validates the signed access/refresh token pair.
// Access tokens are stateless; refresh tokens carry a jti that can be
// blacklisted in the ephemeral store for targeted revocation.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/paystream/accounts/internal/kvstore"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

const blacklistPrefix = "blacklist:"

var (
	// ErrInvalidToken covers bad signatures, malformed tokens, and type
	// mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the signed expiry has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrRevokedToken is returned for a refresh token whose jti has been
	// blacklisted.
	ErrRevokedToken = errors.New("token revoked")
)

// Config for the Issuer. Secret signs with HS256; RotateRefresh controls
// whether Refresh also replaces the refresh token.
type Config struct {
	Secret        []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RotateRefresh bool
}

// Claims is the decoded token payload.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// Pair is one access/refresh issuance.
type Pair struct {
	Access  string
	Refresh string
}

// Issuer mints, verifies, refreshes, and revokes bearer tokens. Safe for
// concurrent use.
type Issuer struct {
	config    Config
	blacklist kvstore.Store
	now       func() time.Time
}

func NewIssuer(cfg Config, blacklist kvstore.Store) (*Issuer, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	return &Issuer{config: cfg, blacklist: blacklist, now: time.Now}, nil
}

// IssuePair mints an access token and a refresh token for the subject. The
// refresh token carries a fresh random jti.
func (i *Issuer) IssuePair(userID string) (Pair, error) {
	access, err := i.sign(userID, TypeAccess, i.config.AccessTTL, "")
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.sign(userID, TypeRefresh, i.config.RefreshTTL, uuid.NewString())
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Verify checks signature, expiry, and token type. For refresh tokens it
// also consults the jti blacklist. Plain verification has no side effects.
func (i *Issuer) Verify(ctx context.Context, tokenStr, expectedType string) (*Claims, error) {
	claims, err := i.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Type != expectedType {
		return nil, ErrInvalidToken
	}

	if claims.Type == TypeRefresh {
		revoked, err := i.isBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrRevokedToken
		}
	}

	return claims, nil
}

// VerifyAny validates signature and expiry for either token type, consulting
// the blacklist when the token turns out to be a refresh token.
func (i *Issuer) VerifyAny(ctx context.Context, tokenStr string) (*Claims, error) {
	claims, err := i.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	return i.Verify(ctx, tokenStr, claims.Type)
}

// Refresh verifies the refresh token and mints a new access token for the
// same subject. With RotateRefresh set, the old jti is revoked and a new
// refresh token is returned; otherwise Pair.Refresh echoes the input.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := i.Verify(ctx, refreshToken, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}

	access, err := i.sign(claims.Subject, TypeAccess, i.config.AccessTTL, "")
	if err != nil {
		return Pair{}, err
	}

	if !i.config.RotateRefresh {
		return Pair{Access: access, Refresh: refreshToken}, nil
	}

	rotated, err := i.sign(claims.Subject, TypeRefresh, i.config.RefreshTTL, uuid.NewString())
	if err != nil {
		return Pair{}, err
	}
	if err := i.revokeClaims(ctx, claims); err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: rotated}, nil
}

// Revoke blacklists the refresh token's jti for its remaining lifetime, so
// the blacklist entry expires with the token and never grows unbounded.
// Revoking an already-expired or malformed token is reported as an error by
// parse; revoking twice is a no-op.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken)
	if err != nil {
		return err
	}
	if claims.Type != TypeRefresh {
		return ErrInvalidToken
	}
	return i.revokeClaims(ctx, claims)
}

func (i *Issuer) revokeClaims(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	remaining := claims.ExpiresAt.Time.Sub(i.now())
	if remaining <= 0 {
		return ErrExpiredToken
	}
	return i.blacklist.Set(ctx, blacklistPrefix+claims.ID, "1", remaining)
}

func (i *Issuer) isBlacklisted(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := i.blacklist.Get(ctx, blacklistPrefix+jti)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, kvstore.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (i *Issuer) sign(userID, typ string, ttl time.Duration, jti string) (string, error) {
	now := i.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (i *Issuer) parse(tokenStr string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
