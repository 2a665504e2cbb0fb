package auth

import (
	"fmt"
	"strings"

	"signbridge/internal/services"
)

// DefaultMinPasswordLength is the shortest password accepted at signup.
const DefaultMinPasswordLength = 8

const msgMissingFields = "Please fill in all fields"

// ValidationError is a form problem caught before any provider call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Unwrap marks validation failures as input errors.
func (e *ValidationError) Unwrap() error { return services.ErrValidation }

// LoginForm holds the login inputs.
type LoginForm struct {
	Email    string
	Password string
}

// SignupForm holds the signup inputs.
type SignupForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

// Normalize trims every field.
func (f LoginForm) Normalize() LoginForm {
	return LoginForm{Email: strings.TrimSpace(f.Email), Password: strings.TrimSpace(f.Password)}
}

// Normalize trims every field.
func (f SignupForm) Normalize() SignupForm {
	return SignupForm{
		Name:     strings.TrimSpace(f.Name),
		Email:    strings.TrimSpace(f.Email),
		Password: strings.TrimSpace(f.Password),
		Confirm:  strings.TrimSpace(f.Confirm),
	}
}

// ValidateLogin requires both fields.
func ValidateLogin(f LoginForm) error {
	f = f.Normalize()
	if f.Email == "" || f.Password == "" {
		return &ValidationError{Message: msgMissingFields}
	}
	return nil
}

// ValidateSignup requires every field, a minimum password length, and a
// matching confirmation, checked in that order.
func ValidateSignup(f SignupForm, minLength int) error {
	f = f.Normalize()
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if f.Name == "" || f.Email == "" || f.Password == "" || f.Confirm == "" {
		return &ValidationError{Message: msgMissingFields}
	}
	if len([]rune(f.Password)) < minLength {
		return &ValidationError{Message: fmt.Sprintf("Password must be at least %d characters long", minLength)}
	}
	if f.Password != f.Confirm {
		return &ValidationError{Message: "Passwords do not match"}
	}
	return nil
}
