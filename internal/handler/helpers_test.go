package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/repository"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

type fakeRoles struct {
	records map[string]*repository.UserRecord
	err     error
}

func (f *fakeRoles) GetUserRecord(_ context.Context, uid string) (*repository.UserRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[uid], nil
}

type setCall struct {
	uid      string
	password string
}

type fakeVerifier struct {
	tokens      map[string]string
	verifyErr   error
	setErr      error
	verifyCalls int
	sets        []setCall
}

func (f *fakeVerifier) VerifyToken(_ context.Context, token string) (*identity.Token, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	uid, ok := f.tokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: unknown token", identity.ErrInvalidToken)
	}
	return &identity.Token{UID: uid}, nil
}

func (f *fakeVerifier) SetPassword(_ context.Context, uid, password string) error {
	f.sets = append(f.sets, setCall{uid: uid, password: password})
	return f.setErr
}

type fixture struct {
	server    *server.Server
	roles     *fakeRoles
	verifier  *fakeVerifier
	passwords *service.PasswordService
}

func testConfig() *config.Config {
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "8080",
			CORSAllowedOrigins: []string{"*"},
			HTTPAllowOrigin:    "*",
			HTTPAllowMethods:   "POST",
			HTTPAllowHeaders:   "Content-Type, Authorization",
		},
		Identity:      config.IdentityConfig{Provider: config.ProviderFirebase},
		RoleStore:     config.RoleStoreConfig{Driver: config.RoleStoreClerk, RoleField: "role"},
		Observability: config.DefaultObservabilityConfig(),
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zerolog.Nop()
	s := &server.Server{
		Config: testConfig(),
		Logger: &logger,
	}

	roles := &fakeRoles{records: map[string]*repository.UserRecord{
		"admin-1": {Role: repository.AdminRole},
		"user-1":  {Role: "user"},
	}}
	verifier := &fakeVerifier{tokens: map[string]string{
		adminToken: "admin-1",
		userToken:  "user-1",
	}}

	return &fixture{
		server:    s,
		roles:     roles,
		verifier:  verifier,
		passwords: service.NewPasswordService(roles, verifier, nil, nil, &logger),
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
