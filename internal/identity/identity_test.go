package identity

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"Bearer   padded  ", "padded", true},
		{"Bearer ", "", false},
		{"Bearer", "", false},
		{"bearer abc", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

type fakeFirebaseAuth struct {
	verifyCalls  int
	revokedCalls int
	token        *auth.Token
	verifyErr    error

	updatedUID string
	updateErr  error

	record *auth.UserRecord
	getErr error
}

func (f *fakeFirebaseAuth) VerifyIDToken(_ context.Context, _ string) (*auth.Token, error) {
	f.verifyCalls++
	return f.token, f.verifyErr
}

func (f *fakeFirebaseAuth) VerifyIDTokenAndCheckRevoked(_ context.Context, _ string) (*auth.Token, error) {
	f.revokedCalls++
	return f.token, f.verifyErr
}

func (f *fakeFirebaseAuth) UpdateUser(_ context.Context, uid string, _ *auth.UserToUpdate) (*auth.UserRecord, error) {
	f.updatedUID = uid
	return nil, f.updateErr
}

func (f *fakeFirebaseAuth) GetUser(_ context.Context, _ string) (*auth.UserRecord, error) {
	return f.record, f.getErr
}

func TestFirebaseProvider_VerifyToken(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		client := &fakeFirebaseAuth{token: &auth.Token{UID: "admin-1"}}
		p := NewFirebaseProvider(client, false)

		tok, err := p.VerifyToken(context.Background(), "t")
		require.NoError(t, err)
		assert.Equal(t, "admin-1", tok.UID)
		assert.Equal(t, 1, client.verifyCalls)
		assert.Zero(t, client.revokedCalls)
	})

	t.Run("revocation check", func(t *testing.T) {
		client := &fakeFirebaseAuth{token: &auth.Token{UID: "admin-1"}}
		p := NewFirebaseProvider(client, true)

		_, err := p.VerifyToken(context.Background(), "t")
		require.NoError(t, err)
		assert.Equal(t, 1, client.revokedCalls)
		assert.Zero(t, client.verifyCalls)
	})

	t.Run("rejected token", func(t *testing.T) {
		client := &fakeFirebaseAuth{verifyErr: errors.New("signature mismatch")}
		p := NewFirebaseProvider(client, false)
		p.rejected = func(error) bool { return true }

		_, err := p.VerifyToken(context.Background(), "t")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("platform failure", func(t *testing.T) {
		cause := errors.New("fetching public keys: timeout")
		client := &fakeFirebaseAuth{verifyErr: cause}
		p := NewFirebaseProvider(client, false)
		p.rejected = func(error) bool { return false }

		_, err := p.VerifyToken(context.Background(), "t")
		assert.ErrorIs(t, err, cause)
		assert.NotErrorIs(t, err, ErrInvalidToken)
	})
}

func TestFirebaseProvider_SetPassword(t *testing.T) {
	client := &fakeFirebaseAuth{}
	p := NewFirebaseProvider(client, false)

	require.NoError(t, p.SetPassword(context.Background(), "u1", "secret1"))
	assert.Equal(t, "u1", client.updatedUID)

	client.updateErr = errors.New("USER_NOT_FOUND")
	assert.EqualError(t, p.SetPassword(context.Background(), "u2", "secret1"), "USER_NOT_FOUND")
}

func TestFirebaseProvider_UserEmail(t *testing.T) {
	client := &fakeFirebaseAuth{record: &auth.UserRecord{UserInfo: &auth.UserInfo{Email: "u1@example.com"}}}
	p := NewFirebaseProvider(client, false)

	email, err := p.UserEmail(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1@example.com", email)

	client.record = &auth.UserRecord{}
	_, err = p.UserEmail(context.Background(), "u1")
	assert.Error(t, err)
}

type fakeClerkUsers struct {
	user      *clerk.User
	getErr    error
	updatedID string
	password  string
	updateErr error
}

func (f *fakeClerkUsers) Get(_ context.Context, _ string) (*clerk.User, error) {
	return f.user, f.getErr
}

func (f *fakeClerkUsers) Update(_ context.Context, id string, params *user.UpdateParams) (*clerk.User, error) {
	f.updatedID = id
	if params.Password != nil {
		f.password = *params.Password
	}
	return f.user, f.updateErr
}

func TestClerkProvider_VerifyToken(t *testing.T) {
	p := &ClerkProvider{
		users: &fakeClerkUsers{},
		verify: func(_ context.Context, token string) (*clerk.SessionClaims, error) {
			if token != "good" {
				return nil, errors.New("token is expired")
			}
			claims := &clerk.SessionClaims{}
			claims.Subject = "user_admin"
			return claims, nil
		},
	}

	tok, err := p.VerifyToken(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "user_admin", tok.UID)

	_, err = p.VerifyToken(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClerkProvider_SetPassword(t *testing.T) {
	users := &fakeClerkUsers{}
	p := &ClerkProvider{users: users}

	require.NoError(t, p.SetPassword(context.Background(), "user_1", "secret1"))
	assert.Equal(t, "user_1", users.updatedID)
	assert.Equal(t, "secret1", users.password)
}

func TestClerkProvider_UserEmail(t *testing.T) {
	users := &fakeClerkUsers{user: &clerk.User{
		PrimaryEmailAddressID: clerk.String("idn_2"),
		EmailAddresses: []*clerk.EmailAddress{
			{ID: "idn_1", EmailAddress: "old@example.com"},
			{ID: "idn_2", EmailAddress: "primary@example.com"},
		},
	}}
	p := &ClerkProvider{users: users}

	email, err := p.UserEmail(context.Background(), "user_1")
	require.NoError(t, err)
	assert.Equal(t, "primary@example.com", email)

	users.user = &clerk.User{}
	_, err = p.UserEmail(context.Background(), "user_1")
	assert.Error(t, err)
}
