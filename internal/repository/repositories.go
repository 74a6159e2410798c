package repository

import (
	"fmt"

	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/server"
)

// Repositories is a container for all repository instances.
type Repositories struct {
	Roles RoleStore
}

// NewRepositories builds the role store selected by role_store.driver from
// the clients held by the server container.
func NewRepositories(s *server.Server) (*Repositories, error) {
	cfg := s.Config.RoleStore

	var roles RoleStore
	switch cfg.Driver {
	case config.RoleStoreFirestore:
		if s.Firestore == nil {
			return nil, fmt.Errorf("firestore role store selected but no firestore client is configured")
		}
		roles = NewFirestoreRoleStore(s.Firestore, cfg.Collection, cfg.RoleField)

	case config.RoleStorePostgres:
		if s.DB == nil {
			return nil, fmt.Errorf("postgres role store selected but no database is configured")
		}
		roles = NewPostgresRoleStore(
			s.DB.Pool,
			cfg.RoleField,
			s.Config.Observability.Logging.SlowQueryThreshold,
			s.Logger,
		)

	case config.RoleStoreClerk:
		if s.Clerk == nil {
			return nil, fmt.Errorf("clerk role store selected but no clerk client is configured")
		}
		roles = NewClerkRoleStore(user.NewClient(s.Clerk), cfg.RoleField)

	default:
		return nil, fmt.Errorf("unknown role store driver %q", cfg.Driver)
	}

	return &Repositories{Roles: roles}, nil
}
