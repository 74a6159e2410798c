// Package identity adapts managed identity platforms (Firebase Auth, Clerk)
// to the two capabilities the password flow needs: verifying a caller's
// bearer token and setting another user's password.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrInvalidToken marks a token the platform rejected (malformed, expired,
// revoked, bad signature). Failures to reach the platform are not wrapped
// with it.
var ErrInvalidToken = errors.New("invalid identity token")

// Token is the verified subject of a bearer token.
type Token struct {
	UID string
}

// Verifier verifies caller tokens and mutates passwords.
type Verifier interface {
	VerifyToken(ctx context.Context, token string) (*Token, error)
	SetPassword(ctx context.Context, uid, password string) error
}

// Directory resolves profile data for a user.
type Directory interface {
	UserEmail(ctx context.Context, uid string) (string, error)
}

// Provider is what a platform adapter offers as a whole.
type Provider interface {
	Verifier
	Directory
}

// BearerToken extracts the token from an Authorization header value.
// ok is false when the header is not "Bearer <non-empty token>".
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
