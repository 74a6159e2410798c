// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and maps the password endpoints and the
// system routes to their handlers. The same middleware chain backs both
// the long-running server and each serverless function.
package router

import (
	"fmt"

	"github.com/deppfellow/password-admin/internal/handler"
	"github.com/deppfellow/password-admin/internal/middleware"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/labstack/echo/v4"
)

const (
	// FunctionCallable and FunctionHTTP name the serverless functions; the
	// server mode serves them at "/" + name.
	FunctionCallable = "updateUserPassword"
	FunctionHTTP     = "updateUserPasswordHttp"

	CallablePath = "/" + FunctionCallable
	HTTPPath     = "/" + FunctionHTTP

	functionPath = "/*"
)

// NewRouter builds the router of the long-running server.
func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s, services.Password)

	// The HTTP endpoint writes its own CORS headers.
	router := newEcho(middlewares, HTTPPath)

	registerSystemRoutes(router, h)

	router.Any(HTTPPath, h.PasswordHTTP.UpdateUserPassword,
		middlewares.RateLimit.Limit(),
	)
	router.Any(CallablePath, h.PasswordCallable.UpdateUserPassword,
		middlewares.RateLimit.Limit(),
		middlewares.Auth.CallableContext,
	)

	return router
}

// NewFunctionRouter builds the router of a single serverless function,
// with its handler mounted at every path.
func NewFunctionRouter(s *server.Server, h *handler.Handlers, services *service.Services, name string) (*echo.Echo, error) {
	middlewares := middleware.NewMiddlewares(s, services.Password)

	switch name {
	case FunctionHTTP:
		router := newEcho(middlewares, functionPath)
		router.Any(functionPath, h.PasswordHTTP.UpdateUserPassword)
		return router, nil

	case FunctionCallable:
		router := newEcho(middlewares)
		router.Any(functionPath, h.PasswordCallable.UpdateUserPassword,
			middlewares.Auth.CallableContext,
		)
		return router, nil

	default:
		return nil, fmt.Errorf("unknown function %q", name)
	}
}

func newEcho(middlewares *middleware.Middlewares, corsSkipPaths ...string) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middlewares.Global.CORS(corsSkipPaths...),
		middlewares.Global.Secure(),
		middlewares.Global.BodyLimit(),
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
	)

	return router
}
