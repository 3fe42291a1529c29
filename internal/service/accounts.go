// Package service implements account operations on top of the credential
// store, password hasher, and token issuer. Handlers translate its errors
// into HTTP responses.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paystream/accounts/internal/model"
	"github.com/paystream/accounts/internal/password"
	"github.com/paystream/accounts/internal/token"
	"github.com/paystream/accounts/internal/user"
)

var (
	// ErrEmailTaken is returned by Register for a duplicate email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials covers unknown emails and wrong passwords. The
	// two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when the account exists but is inactive.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrNotFound is returned for profile operations on a missing user.
	ErrNotFound = errors.New("user not found")
)

// Accounts is the application service behind the HTTP handlers. Safe for
// concurrent use.
type Accounts struct {
	users  user.Repository
	hasher *password.Hasher
	issuer *token.Issuer
	log    *slog.Logger

	// dummyHash absorbs a Verify call when the email is unknown, so login
	// latency does not reveal whether the account exists.
	dummyHash string
}

func NewAccounts(users user.Repository, hasher *password.Hasher, issuer *token.Issuer, log *slog.Logger) (*Accounts, error) {
	dummy, err := hasher.Hash("decoy-password-for-unknown-accounts")
	if err != nil {
		return nil, fmt.Errorf("precompute decoy hash: %w", err)
	}
	return &Accounts{users: users, hasher: hasher, issuer: issuer, log: log, dummyHash: dummy}, nil
}

// Register creates the account and signs it in, returning the new user with
// a fresh token pair.
func (a *Accounts) Register(ctx context.Context, req model.RegisterRequest) (*model.User, token.Pair, error) {
	hash, err := a.hasher.Hash(req.Password)
	if err != nil {
		return nil, token.Pair{}, err
	}

	created, err := a.users.Create(ctx, &model.User{
		Email:        user.NormalizeEmail(req.Email),
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, token.Pair{}, ErrEmailTaken
		}
		return nil, token.Pair{}, err
	}

	pair, err := a.issuer.IssuePair(created.ID)
	if err != nil {
		return nil, token.Pair{}, err
	}

	a.log.InfoContext(ctx, "user registered", "user_id", created.ID)
	return created, pair, nil
}

// Login verifies the credentials and issues a token pair. Unknown email and
// wrong password both return ErrInvalidCredentials; a disabled account with
// correct credentials returns ErrAccountDisabled.
func (a *Accounts) Login(ctx context.Context, email, plaintext string) (*model.User, token.Pair, error) {
	u, err := a.users.GetByEmail(ctx, user.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			_, _ = a.hasher.Verify(plaintext, a.dummyHash)
			return nil, token.Pair{}, ErrInvalidCredentials
		}
		return nil, token.Pair{}, err
	}

	ok, err := a.hasher.Verify(plaintext, u.PasswordHash)
	if err != nil {
		return nil, token.Pair{}, err
	}
	if !ok {
		return nil, token.Pair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, token.Pair{}, ErrAccountDisabled
	}

	pair, err := a.issuer.IssuePair(u.ID)
	if err != nil {
		return nil, token.Pair{}, err
	}
	return u, pair, nil
}

// Logout revokes the refresh token. Token errors pass through from the
// issuer; the handler maps them to 401.
func (a *Accounts) Logout(ctx context.Context, refreshToken string) error {
	return a.issuer.Revoke(ctx, refreshToken)
}

// Profile returns the user record for the authenticated subject.
func (a *Accounts) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// UpdateProfile applies a partial profile update. Absent fields are left
// unchanged.
func (a *Accounts) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (*model.User, error) {
	u, err := a.users.UpdateProfile(ctx, userID, user.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}
