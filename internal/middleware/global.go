package middleware

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// MaxBodyBytes bounds every request body. Requests declaring a larger body
// are rejected with 413 before any handler runs; undeclared ones fail on
// read once the limit is crossed.
const MaxBodyBytes = 1 << 20

// GlobalMiddlewares holds the middleware installed on every route, plus
// the error handler echo calls for any error a handler returns.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS applies the configured allowed origins. Routes listed in skipPaths
// write their own CORS headers.
func (global *GlobalMiddlewares) CORS(skipPaths ...string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return slices.Contains(skipPaths, c.Path())
		},
		AllowOrigins: global.server.Config.Server.CORSAllowedOrigins,
	})
}

// RequestLogger logs one line per request with the request-scoped logger:
// 5xx at error level, 4xx at warn, everything else at info.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// note: the status is not set yet when the handler returns an error.
			// https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				statusCode = errorStatus(v.Error, statusCode)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			if requestID := GetRequestID(c); requestID != "" {
				e = e.Str("request_id", requestID)
			}

			if userID := GetUserID(c); userID != "" {
				e = e.Str("user_id", userID)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("ip", c.RealIP()).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

func errorStatus(err error, fallback int) int {
	var httpErr *errs.HTTPError
	var echoErr *echo.HTTPError
	var appErr *errs.Error

	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status
	case errors.As(err, &appErr):
		return appErr.Kind.HTTPStatus()
	case errors.As(err, &echoErr):
		return echoErr.Code
	}
	return fallback
}

// BodyLimit caps request bodies at MaxBodyBytes.
func (global *GlobalMiddlewares) BodyLimit() echo.MiddlewareFunc {
	return middleware.BodyLimit(strconv.Itoa(MaxBodyBytes))
}

// Recover turns a handler panic into an error for GlobalErrorHandler.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler writes every error that escapes a handler in the
// HTTPError shape. Unknown errors become a generic 500.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err

	var httpErr *errs.HTTPError
	if !errors.As(err, &httpErr) {
		var appErr *errs.Error
		var echoErr *echo.HTTPError

		switch {
		case errors.As(err, &appErr):
			httpErr = appErr.HTTPError()
		case errors.As(err, &echoErr):
			if echoErr.Code == http.StatusNotFound {
				httpErr = errs.NewNotFoundError("Route not found")
			} else {
				httpErr = fromEchoError(echoErr)
			}
		default:
			httpErr = errs.NewInternalServerError()
		}
	}

	logger := *GetLogger(c)

	event := logger.Warn()
	if httpErr.Status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	}
	event.
		Err(originalErr).
		Int("status", httpErr.Status).
		Str("error_code", httpErr.Code).
		Msg(httpErr.Message)

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(httpErr.Status)
			return
		}
		_ = c.JSON(httpErr.Status, httpErr)
	}
}

func fromEchoError(echoErr *echo.HTTPError) *errs.HTTPError {
	message, ok := echoErr.Message.(string)
	if !ok {
		message = http.StatusText(echoErr.Code)
	}

	return &errs.HTTPError{
		Code:    errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
		Message: message,
		Status:  echoErr.Code,
	}
}
