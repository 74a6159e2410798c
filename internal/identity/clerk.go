package identity

import (
	"context"
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwks"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// ClerkUsers is the subset of *user.Client used by Clerk adapters.
type ClerkUsers interface {
	Get(ctx context.Context, id string) (*clerk.User, error)
	Update(ctx context.Context, id string, params *user.UpdateParams) (*clerk.User, error)
}

// ClerkProvider verifies Clerk session tokens and updates Clerk users.
type ClerkProvider struct {
	users  ClerkUsers
	verify func(ctx context.Context, token string) (*clerk.SessionClaims, error)
}

// NewClerkProvider builds a provider on top of the Clerk backend API.
// Session tokens are verified against the instance JWKS.
func NewClerkProvider(config *clerk.ClientConfig) *ClerkProvider {
	jwksClient := jwks.NewClient(config)

	return &ClerkProvider{
		users: user.NewClient(config),
		verify: func(ctx context.Context, token string) (*clerk.SessionClaims, error) {
			return jwt.Verify(ctx, &jwt.VerifyParams{
				Token:      token,
				JWKSClient: jwksClient,
			})
		},
	}
}

// Users exposes the underlying user client so the Clerk role store can
// share it.
func (p *ClerkProvider) Users() ClerkUsers {
	return p.users
}

func (p *ClerkProvider) VerifyToken(ctx context.Context, token string) (*Token, error) {
	claims, err := p.verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return &Token{UID: claims.Subject}, nil
}

func (p *ClerkProvider) SetPassword(ctx context.Context, uid, password string) error {
	_, err := p.users.Update(ctx, uid, &user.UpdateParams{
		Password: clerk.String(password),
	})
	return err
}

func (p *ClerkProvider) UserEmail(ctx context.Context, uid string) (string, error) {
	u, err := p.users.Get(ctx, uid)
	if err != nil {
		return "", err
	}

	var fallback string
	for _, addr := range u.EmailAddresses {
		if addr == nil {
			continue
		}
		if u.PrimaryEmailAddressID != nil && addr.ID == *u.PrimaryEmailAddressID {
			return addr.EmailAddress, nil
		}
		if fallback == "" {
			fallback = addr.EmailAddress
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("user %s has no email address", uid)
	}
	return fallback, nil
}
