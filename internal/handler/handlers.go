// Package handler is the first layer after the router.
//
// It adapts each transport (plain HTTP, callable protocol) to the shared
// password change flow in the service layer and writes the result in that
// transport's wire format.
package handler

import (
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
)

type Handlers struct {
	Health           *HealthHandler
	OpenAPI          *OpenAPIHandler
	PasswordHTTP     *PasswordHTTPHandler
	PasswordCallable *PasswordCallableHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:           NewHealthHandler(s),
		OpenAPI:          NewOpenAPIHandler(s),
		PasswordHTTP:     NewPasswordHTTPHandler(s, services.Password),
		PasswordCallable: NewPasswordCallableHandler(s, services.Password),
	}
}
