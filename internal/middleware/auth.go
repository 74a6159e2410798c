package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/labstack/echo/v4"
)

// CallableDataKey stores the raw "data" member of a callable request.
const CallableDataKey = "callable_data"

// TokenVerifier resolves a bearer token into a caller.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*service.Caller, error)
}

type AuthMiddleware struct {
	server *server.Server
	tokens TokenVerifier
}

func NewAuthMiddleware(s *server.Server, tokens TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		server: s,
		tokens: tokens,
	}
}

// CallableContext implements the request side of the callable protocol.
//
// It accepts only POST requests whose body is a JSON object with a "data"
// member. A bearer token, when present, must verify; a missing header
// leaves the caller unset so the handler can decide. Rejections are written
// in the callable error envelope and never reach the handler.
func (auth *AuthMiddleware) CallableContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		req := c.Request()

		if req.Method != http.MethodPost {
			return auth.reject(c, start, errs.KindInvalidArgument, "Bad Request", "callable requests must use POST")
		}

		data, ok := readCallableData(req)
		if !ok {
			return auth.reject(c, start, errs.KindInvalidArgument, "Bad Request", "request body is not a callable envelope")
		}
		c.Set(CallableDataKey, data)

		header := req.Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return next(c)
		}

		token, ok := identity.BearerToken(header)
		if !ok {
			return auth.reject(c, start, errs.KindUnauthenticated, "Unauthenticated", "malformed authorization header")
		}

		caller, err := auth.tokens.VerifyToken(req.Context(), token)
		if err != nil {
			e := errs.From(err)
			if e.Kind == errs.KindInternal {
				GetLogger(c).Error().
					Err(e.Cause).
					Str("function", "CallableContext").
					Dur("duration", time.Since(start)).
					Msg("token verification failed")
				return writeCallableError(c, errs.KindInternal, "Internal")
			}
			return auth.reject(c, start, errs.KindUnauthenticated, "Unauthenticated", "invalid bearer token")
		}

		SetCaller(c, caller)

		GetLogger(c).Debug().
			Str("function", "CallableContext").
			Dur("duration", time.Since(start)).
			Msg("caller authenticated")

		return next(c)
	}
}

func (auth *AuthMiddleware) reject(c echo.Context, start time.Time, kind errs.Kind, message, reason string) error {
	GetLogger(c).Warn().
		Str("function", "CallableContext").
		Str("reason", reason).
		Dur("duration", time.Since(start)).
		Msg("callable request rejected")

	return writeCallableError(c, kind, message)
}

// readCallableData returns the raw "data" member. The body is restored so
// later readers see it unchanged.
func readCallableData(req *http.Request) (json.RawMessage, bool) {
	if req.Body == nil {
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, MaxBodyBytes))
	if err != nil {
		return nil, false
	}
	req.Body = io.NopCloser(bytes.NewReader(body))

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, false
	}

	data, ok := envelope["data"]
	return data, ok
}

func writeCallableError(c echo.Context, kind errs.Kind, message string) error {
	return c.JSON(kind.HTTPStatus(), errs.NewCallableErrorBody(kind, message, nil))
}

// GetCallableData returns the "data" member stored by CallableContext.
func GetCallableData(c echo.Context) json.RawMessage {
	if data, ok := c.Get(CallableDataKey).(json.RawMessage); ok {
		return data
	}
	return nil
}
