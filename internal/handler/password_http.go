package handler

import (
	"net/http"

	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/middleware"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/deppfellow/password-admin/internal/validation"
	"github.com/labstack/echo/v4"
)

var httpMessages = map[errs.Reason]string{
	errs.ReasonMissingCredentials: "Unauthorized: No bearer token provided",
	errs.ReasonInvalidCredentials: "Unauthorized: Invalid bearer token",
	errs.ReasonNotAdmin:           "Forbidden: Only admins can update user passwords",
	errs.ReasonMissingFields:      "Bad Request: userId and newPassword are required",
	errs.ReasonPasswordTooShort:   "Bad Request: Password must be at least 6 characters long",
	errs.ReasonMalformedPayload:   "Bad Request: Request body must be a JSON object",
}

// httpErrorBody is the error shape of the plain HTTP endpoint.
type httpErrorBody struct {
	Error  string            `json:"error"`
	Errors []errs.FieldError `json:"errors,omitempty"`
}

type httpResponder struct {
	responder
}

func (r *httpResponder) Success(result *service.PasswordChangeResult) error {
	return r.c.JSON(http.StatusOK, result)
}

func (r *httpResponder) Fail(err *errs.Error) error {
	r.failed = err

	message, ok := httpMessages[err.Reason]
	if !ok || err.Kind == errs.KindInternal {
		message = "Internal Server Error: " + err.CauseMessage()
	}

	return r.c.JSON(err.Kind.HTTPStatus(), httpErrorBody{
		Error:  message,
		Errors: err.Fields,
	})
}

type PasswordHTTPHandler struct {
	Handler
	passwords *service.PasswordService
}

func NewPasswordHTTPHandler(s *server.Server, passwords *service.PasswordService) *PasswordHTTPHandler {
	return &PasswordHTTPHandler{
		Handler:   NewHandler(s),
		passwords: passwords,
	}
}

// UpdateUserPassword serves the plain HTTP variant. CORS headers are
// written on every response, preflight requests end with 204 and any
// method other than POST ends with 405 before authentication.
func (h *PasswordHTTPHandler) UpdateUserPassword(c echo.Context) error {
	cfg := h.server.Config.Server
	header := c.Response().Header()
	header.Set(echo.HeaderAccessControlAllowOrigin, cfg.HTTPAllowOrigin)
	header.Set(echo.HeaderAccessControlAllowMethods, cfg.HTTPAllowMethods)
	header.Set(echo.HeaderAccessControlAllowHeaders, cfg.HTTPAllowHeaders)

	switch c.Request().Method {
	case http.MethodOptions:
		return c.NoContent(http.StatusNoContent)
	case http.MethodPost:
	default:
		return c.String(http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	}

	out := &httpResponder{responder{c: c}}

	return handleRequest(c, "update_user_password_http", out, func() error {
		caller, err := h.passwords.Authenticate(c.Request().Context(), c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return h.passwords.Reject(c.Request().Context(), out, err)
		}
		middleware.SetCaller(c, caller)

		decode := func(req *service.PasswordChangeRequest) error {
			return validation.DecodeJSON(c.Request().Body, req)
		}

		return h.passwords.Execute(c.Request().Context(), caller, decode, out)
	})
}
