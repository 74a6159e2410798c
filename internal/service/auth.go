package service

import (
	"fmt"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/server"
)

// NewIdentityProvider builds the identity platform adapter selected by
// identity.provider from the clients held by the server container.
func NewIdentityProvider(s *server.Server) (identity.Provider, error) {
	switch s.Config.Identity.Provider {
	case config.ProviderFirebase:
		if s.FirebaseAuth == nil {
			return nil, fmt.Errorf("firebase identity provider selected but no firebase auth client is configured")
		}
		return identity.NewFirebaseProvider(s.FirebaseAuth, s.Config.Firebase.CheckRevoked), nil

	case config.ProviderClerk:
		if s.Clerk == nil {
			return nil, fmt.Errorf("clerk identity provider selected but no clerk client is configured")
		}
		return identity.NewClerkProvider(s.Clerk), nil

	default:
		return nil, fmt.Errorf("unknown identity provider %q", s.Config.Identity.Provider)
	}
}
