package auth

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	errs "pairchat/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RegisterRequest is the payload of an account registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=12,max=72"`
}

// LoginRequest is the payload of a login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ContactRequest is the payload of a contact addition.
type ContactRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func ValidateRegister(req RegisterRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	if err := validateIdentifier(req.Email); err != nil {
		return err
	}
	return validatePasswordStrength(req.Password)
}

func ValidateLogin(req LoginRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return nil
}

func ValidateContact(req ContactRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}
	return validateIdentifier(req.Email)
}

// validateIdentifier is the backstop for the channel naming rule: control
// characters never enter a stored identifier, so the channel separator can
// never be forged.
func validateIdentifier(email string) error {
	if strings.ContainsFunc(email, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return fmt.Errorf("%w: identifier contains control characters", errs.ErrValidation)
	}
	return nil
}

// validatePasswordStrength requires at least one letter and one digit on
// top of the length rule carried by the struct tags.
func validatePasswordStrength(password string) error {
	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return fmt.Errorf("%w: password needs at least one letter and one digit", errs.ErrInvalidPassword)
	}
	return nil
}
