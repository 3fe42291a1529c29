// Package validate checks request payloads before they reach the service
// layer. Failures come back as validation.Errors, which marshals to a
// field → message object for the response envelope.
package validate

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/paystream/accounts/internal/model"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 150
)

func Register(r model.RegisterRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, maxNameLength)),
		validation.Field(&r.Password, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&r.PasswordConfirm,
			validation.Required,
			validation.By(equals(r.Password, "passwords do not match")),
		),
	)
}

func Login(r model.LoginRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func Logout(r model.LogoutRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Refresh, validation.Required),
	)
}

func UpdateProfile(r model.UpdateProfileRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
		validation.Field(&r.LastName, validation.NilOrNotEmpty, validation.Length(1, maxNameLength)),
	)
}

func ForgotPassword(r model.ForgotPasswordRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func VerifyResetToken(r model.VerifyResetTokenRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Token, validation.Required),
	)
}

func ResetPassword(r model.ResetPasswordRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(minPasswordLength, maxPasswordLength)),
		validation.Field(&r.ConfirmPassword,
			validation.Required,
			validation.By(equals(r.NewPassword, "passwords do not match")),
		),
	)
}

func TokenRefresh(r model.TokenRefreshRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Refresh, validation.Required),
	)
}

func TokenVerify(r model.TokenVerifyRequest) error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
	)
}

// FieldErrors extracts the field → message map from a validation failure,
// or nil when err carries no field detail.
func FieldErrors(err error) map[string]string {
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for field, ferr := range verrs {
		out[field] = ferr.Error()
	}
	return out
}

func equals(expected, message string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if s != expected {
			return errors.New(message)
		}
		return nil
	}
}
