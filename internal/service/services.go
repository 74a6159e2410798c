// Package service contains the business logic.
//
// It sits between the handler and repository layers.
// It receives decoded data from the handler, performs
// business operations, and calls repository and identity
// methods to read roles and mutate passwords.
package service

import (
	"github.com/deppfellow/password-admin/internal/audit"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/lib/job"
	"github.com/deppfellow/password-admin/internal/repository"
	"github.com/deppfellow/password-admin/internal/server"
)

type Services struct {
	Password *PasswordService
	Identity identity.Provider
	Job      *job.JobService
}

func NewServices(s *server.Server, repos *repository.Repositories) (*Services, error) {
	provider, err := NewIdentityProvider(s)
	if err != nil {
		return nil, err
	}

	// A nil *JobService must not end up inside the interface.
	var notifier Notifier
	if s.Job != nil {
		notifier = s.Job
	}

	password := NewPasswordService(
		repos.Roles,
		provider,
		notifier,
		audit.New(*s.Logger),
		s.Logger,
	)

	return &Services{
		Password: password,
		Identity: provider,
		Job:      s.Job,
	}, nil
}
