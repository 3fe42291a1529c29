package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paystream/accounts/internal/kvstore"
)

func testIssuer(t *testing.T, mutate func(*Config)) (*Issuer, *time.Time) {
	t.Helper()

	cfg := Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "accounts-test",
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	issuer, err := NewIssuer(cfg, kvstore.NewMemory())
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}

	now := time.Now()
	issuer.now = func() time.Time { return now }
	return issuer, &now
}

func TestIssuePairAndVerify(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	access, err := issuer.Verify(ctx, pair.Access, TypeAccess)
	if err != nil {
		t.Fatalf("Verify access failed: %v", err)
	}
	if access.UserID() != "u1" {
		t.Fatalf("wrong subject: %q", access.UserID())
	}
	if access.ID != "" {
		t.Fatal("access tokens must not carry a jti")
	}

	refresh, err := issuer.Verify(ctx, pair.Refresh, TypeRefresh)
	if err != nil {
		t.Fatalf("Verify refresh failed: %v", err)
	}
	if refresh.ID == "" {
		t.Fatal("refresh token must carry a jti")
	}
}

func TestVerifyRejectsWrongType(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if _, err := issuer.Verify(ctx, pair.Access, TypeRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access-as-refresh: expected ErrInvalidToken, got %v", err)
	}
	if _, err := issuer.Verify(ctx, pair.Refresh, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh-as-access: expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsTamperedToken(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	tampered := pair.Access[:len(pair.Access)-2] + "xx"
	if _, err := issuer.Verify(ctx, tampered, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	other, err := NewIssuer(Config{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
	}, kvstore.NewMemory())
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	foreign, err := other.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if _, err := issuer.Verify(ctx, foreign.Access, TypeAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	ctx := context.Background()
	issuer, now := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	*now = now.Add(time.Hour + time.Minute)
	if _, err := issuer.Verify(ctx, pair.Access, TypeAccess); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	*now = now.Add(24 * time.Hour)
	if _, err := issuer.Verify(ctx, pair.Refresh, TypeRefresh); !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken for refresh, got %v", err)
	}
}

func TestRevokeBlacklistsRefresh(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if err := issuer.Revoke(ctx, pair.Refresh); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	// Revoked well before natural expiry.
	if _, err := issuer.Verify(ctx, pair.Refresh, TypeRefresh); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}
	if _, err := issuer.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("Refresh after revoke: expected ErrRevokedToken, got %v", err)
	}

	// Access tokens from the same pair stay valid; revocation targets the jti.
	if _, err := issuer.Verify(ctx, pair.Access, TypeAccess); err != nil {
		t.Fatalf("access token should survive refresh revocation: %v", err)
	}
}

func TestRevokeRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if err := issuer.Revoke(ctx, pair.Access); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestRefreshWithoutRotation(t *testing.T) {
	ctx := context.Background()
	issuer, now := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	*now = now.Add(time.Minute)
	refreshed, err := issuer.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.Refresh != pair.Refresh {
		t.Fatal("refresh token must not rotate by default")
	}

	claims, err := issuer.Verify(ctx, refreshed.Access, TypeAccess)
	if err != nil {
		t.Fatalf("Verify new access failed: %v", err)
	}
	if claims.UserID() != "u1" {
		t.Fatalf("wrong subject: %q", claims.UserID())
	}

	// The original refresh token remains usable.
	if _, err := issuer.Refresh(ctx, pair.Refresh); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}
}

func TestRefreshWithRotation(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, func(cfg *Config) { cfg.RotateRefresh = true })

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	refreshed, err := issuer.Refresh(ctx, pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.Refresh == pair.Refresh {
		t.Fatal("rotation must mint a new refresh token")
	}

	// Old refresh token is revoked by rotation.
	if _, err := issuer.Refresh(ctx, pair.Refresh); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken for rotated-out token, got %v", err)
	}

	// The new one works.
	if _, err := issuer.Refresh(ctx, refreshed.Refresh); err != nil {
		t.Fatalf("Refresh with rotated token failed: %v", err)
	}
}

func TestVerifyAny(t *testing.T) {
	ctx := context.Background()
	issuer, _ := testIssuer(t, nil)

	pair, err := issuer.IssuePair("u1")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	for _, tok := range []string{pair.Access, pair.Refresh} {
		if _, err := issuer.VerifyAny(ctx, tok); err != nil {
			t.Fatalf("VerifyAny failed: %v", err)
		}
	}

	if err := issuer.Revoke(ctx, pair.Refresh); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := issuer.VerifyAny(ctx, pair.Refresh); !errors.Is(err, ErrRevokedToken) {
		t.Fatalf("expected ErrRevokedToken, got %v", err)
	}
}
