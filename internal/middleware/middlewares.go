package middleware

import (
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Middlewares groups the middleware components used by the router. Each
// component is built once from the server container.
type Middlewares struct {
	// Global holds CORS, secure headers, the body limit, request logging,
	// panic recovery and the global error handler.
	Global *GlobalMiddlewares

	// Auth implements the callable protocol layer: envelope checks and
	// optional bearer token verification.
	Auth *AuthMiddleware

	// ContextEnhancer attaches the request-scoped logger and, once known,
	// the verified caller.
	ContextEnhancer *ContextEnhancer

	// Tracing installs the New Relic transaction and its attributes.
	Tracing *TracingMiddleware

	// RateLimit throttles clients per IP and records every rejection.
	RateLimit *RateLimitMiddleware
}

// NewMiddlewares constructs every middleware component.
//
// The New Relic application is taken from the server's LoggerService.
// When the agent is not configured nrApp stays nil and tracing degrades
// into pass-through middleware.
//
// tokens verifies the bearer token of callable requests.
func NewMiddlewares(s *server.Server, tokens TokenVerifier) *Middlewares {
	var nrApp *newrelic.Application
	if s.LoggerService != nil {
		nrApp = s.LoggerService.GetApplication()
	}

	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		Auth:            NewAuthMiddleware(s, tokens),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, nrApp),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
