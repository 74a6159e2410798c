package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/deppfellow/password-admin/internal/server"
)

// TracingMiddleware owns the New Relic middleware of the router.
//
// It needs:
//   - server: for the configured service name
//   - nrApp: the New Relic application (nil when the agent is disabled)
//
// Two layers are installed, in this order:
//  1. NewRelicMiddleware() -> one transaction per request
//  2. EnhanceTracing()     -> request and caller attributes, noticed errors
type TracingMiddleware struct {
	server *server.Server
	nrApp  *newrelic.Application
}

// NewTracingMiddleware constructs TracingMiddleware. nrApp may be nil.
func NewTracingMiddleware(s *server.Server, nrApp *newrelic.Application) *TracingMiddleware {
	return &TracingMiddleware{
		server: s,
		nrApp:  nrApp,
	}
}

// NewRelicMiddleware returns the nrecho middleware.
//
// Behavior:
//   - nrApp nil: a pass-through middleware, no transaction is started.
//   - nrApp set: nrecho starts a transaction per request and stores it in
//     the request context, where newrelic.FromContext finds it.
func (tm *TracingMiddleware) NewRelicMiddleware() echo.MiddlewareFunc {
	if tm.nrApp == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return nrecho.Middleware(tm.nrApp)
}

// EnhanceTracing adds custom attributes to the current transaction.
//
// It must run after NewRelicMiddleware. Without a transaction in the
// request context it does nothing.
//
// Attributes:
//   - service name, client IP and user agent
//   - request id, when RequestID ran first
//   - user id and response status, read after the handler returns
//
// Handler errors are noticed through nrpkgerrors.Wrap and still returned,
// so the global error handler writes the response.
func (tm *TracingMiddleware) EnhanceTracing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			txn := newrelic.FromContext(c.Request().Context())
			if txn == nil {
				return next(c)
			}

			txn.AddAttribute("service.name", tm.server.Config.Observability.ServiceName)
			txn.AddAttribute("http.real_ip", c.RealIP())
			txn.AddAttribute("http.user_agent", c.Request().UserAgent())

			if requestID := GetRequestID(c); requestID != "" {
				txn.AddAttribute("request.id", requestID)
			}

			err := next(c)
			if err != nil {
				txn.NoticeError(nrpkgerrors.Wrap(err))
			}

			// The password endpoints authenticate inside the handler, so the
			// caller is only known at this point.
			if userID := GetUserID(c); userID != "" {
				txn.AddAttribute("user.id", userID)
			}
			txn.AddAttribute("http.status_code", c.Response().Status)

			return err
		}
	}
}
