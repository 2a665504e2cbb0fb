package auth

import (
	"strings"

	"signbridge/internal/services/identity"
)

const (
	msgLoginSuccess  = "Login successful! Redirecting..."
	msgSignupSuccess = "Account created successfully! Redirecting to login..."
	msgLogoutSuccess = "Logged out successfully!"
	msgLoginFailed   = "Login failed. Please try again."
	msgSignupFailed  = "Signup failed. Please try again."
	msgLogoutFailed  = "Error logging out. Please try again."
)

// Both REST codes and client-SDK style codes map to the same message.
var loginMessages = map[string]string{
	"INVALID_EMAIL":       "Invalid email format.",
	"auth/invalid-email":  "Invalid email format.",
	"EMAIL_NOT_FOUND":     "User not found.",
	"auth/user-not-found": "User not found.",
	"INVALID_PASSWORD":    "Incorrect password.",
	"auth/wrong-password": "Incorrect password.",
}

var signupMessages = map[string]string{
	"EMAIL_EXISTS":              "Email already in use.",
	"auth/email-already-in-use": "Email already in use.",
	"INVALID_EMAIL":             "Invalid email address.",
	"auth/invalid-email":        "Invalid email address.",
}

// LoginMessage maps a sign-in failure to user-facing text.
func LoginMessage(err error) string {
	return lookup(loginMessages, err, msgLoginFailed)
}

// SignupMessage maps an account creation failure to user-facing text.
func SignupMessage(err error) string {
	return lookup(signupMessages, err, msgSignupFailed)
}

func lookup(table map[string]string, err error, fallback string) string {
	code := strings.TrimSpace(identity.Code(err))
	if msg, ok := table[code]; ok {
		return msg
	}
	return fallback
}
