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

const (
	callableUnauthenticated = "The function must be called while authenticated."
	callableMissingFields   = "The function must be called with userId and newPassword arguments."
)

var callableMessages = map[errs.Reason]string{
	errs.ReasonMissingCredentials: callableUnauthenticated,
	errs.ReasonInvalidCredentials: callableUnauthenticated,
	errs.ReasonNotAdmin:           "Only admins can update user passwords.",
	errs.ReasonMissingFields:      callableMissingFields,
	errs.ReasonPasswordTooShort:   "Password must be at least 6 characters long.",
	errs.ReasonMalformedPayload:   callableMissingFields,
}

type callableResult struct {
	Result *service.PasswordChangeResult `json:"result"`
}

type callableResponder struct {
	responder
}

func (r *callableResponder) Success(result *service.PasswordChangeResult) error {
	return r.c.JSON(http.StatusOK, callableResult{Result: result})
}

func (r *callableResponder) Fail(err *errs.Error) error {
	r.failed = err

	message, ok := callableMessages[err.Reason]
	if !ok || err.Kind == errs.KindInternal {
		message = "An error occurred while updating the password: " + err.CauseMessage()
	}

	var details any
	if len(err.Fields) > 0 {
		details = err.Fields
	}

	return r.c.JSON(err.Kind.HTTPStatus(), errs.NewCallableErrorBody(err.Kind, message, details))
}

type PasswordCallableHandler struct {
	Handler
	passwords *service.PasswordService
}

func NewPasswordCallableHandler(s *server.Server, passwords *service.PasswordService) *PasswordCallableHandler {
	return &PasswordCallableHandler{
		Handler:   NewHandler(s),
		passwords: passwords,
	}
}

// UpdateUserPassword serves the callable variant. It must run behind
// middleware.AuthMiddleware.CallableContext, which validates the envelope
// and resolves the optional caller.
func (h *PasswordCallableHandler) UpdateUserPassword(c echo.Context) error {
	out := &callableResponder{responder{c: c}}

	return handleRequest(c, "update_user_password", out, func() error {
		data := middleware.GetCallableData(c)
		decode := func(req *service.PasswordChangeRequest) error {
			return validation.DecodeRaw(data, req)
		}

		return h.passwords.Execute(c.Request().Context(), middleware.GetCaller(c), decode, out)
	})
}
