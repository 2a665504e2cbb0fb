package identity

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the ID token fields used for display. Tokens are not verified
// here; the provider issued them over TLS and nothing is authorized from them.
type Claims struct {
	jwt.RegisteredClaims
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// UID prefers user_id and falls back to sub.
func (c *Claims) UID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// ParseIDToken decodes token claims without verifying the signature.
func ParseIDToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("empty id token")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}
