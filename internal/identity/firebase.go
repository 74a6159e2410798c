package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient is the subset of *auth.Client used here.
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseProvider verifies Firebase ID tokens and updates Firebase users.
type FirebaseProvider struct {
	client       FirebaseAuthClient
	checkRevoked bool

	// rejected classifies verification errors caused by the token itself.
	rejected func(error) bool
}

func NewFirebaseProvider(client FirebaseAuthClient, checkRevoked bool) *FirebaseProvider {
	return &FirebaseProvider{
		client:       client,
		checkRevoked: checkRevoked,
		rejected:     firebaseTokenRejected,
	}
}

func firebaseTokenRejected(err error) bool {
	return auth.IsIDTokenInvalid(err) || auth.IsIDTokenExpired(err) || auth.IsIDTokenRevoked(err)
}

func (p *FirebaseProvider) VerifyToken(ctx context.Context, token string) (*Token, error) {
	verify := p.client.VerifyIDToken
	if p.checkRevoked {
		verify = p.client.VerifyIDTokenAndCheckRevoked
	}

	decoded, err := verify(ctx, token)
	if err != nil {
		if p.rejected(err) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return nil, fmt.Errorf("verifying firebase id token: %w", err)
	}

	return &Token{UID: decoded.UID}, nil
}

func (p *FirebaseProvider) SetPassword(ctx context.Context, uid, password string) error {
	_, err := p.client.UpdateUser(ctx, uid, (&auth.UserToUpdate{}).Password(password))
	return err
}

func (p *FirebaseProvider) UserEmail(ctx context.Context, uid string) (string, error) {
	record, err := p.client.GetUser(ctx, uid)
	if err != nil {
		return "", err
	}
	if record.UserInfo == nil || record.Email == "" {
		return "", fmt.Errorf("user %s has no email address", uid)
	}
	return record.Email, nil
}
