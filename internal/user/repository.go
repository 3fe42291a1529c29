// Package user is the credential store: it persists user identities and
// password hashes and owns email uniqueness. Emails are lowercased before
// every operation so the unique index sees one canonical form.
package user

import (
	"context"
	"errors"
	"strings"

	"github.com/paystream/accounts/internal/model"
)

var (
	// ErrNotFound is returned when no user matches the given email or id.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned by Create when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// ProfileUpdate carries the mutable profile fields; nil means "leave as is".
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
}

// Repository abstracts the relational user store. Users are never physically
// deleted; Deactivate clears the active flag instead.
type Repository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*model.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Deactivate(ctx context.Context, id string) error
}

// NormalizeEmail lowercases and trims the identifying email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
