package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/password-admin/internal/audit"
	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/logger"
	"github.com/deppfellow/password-admin/internal/repository"
	"github.com/deppfellow/password-admin/internal/validation"
	"github.com/rs/zerolog"
)

// MinPasswordLength is counted in Unicode code points, not UTF-16 code
// units: "😀😀😀" is three characters here and is rejected, although six
// UTF-16 units would pass a JavaScript length check.
const MinPasswordLength = 6

const successMessage = "Password updated successfully"

// Caller is the authenticated principal making a request.
type Caller struct {
	UID string
}

// PasswordChangeRequest is the payload accepted by both endpoints.
type PasswordChangeRequest struct {
	UserID      string `json:"userId" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (r *PasswordChangeRequest) Validate() error {
	return validation.Struct(r)
}

type PasswordChangeResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Decoder fills a request from the transport payload. It runs only after
// the caller is known to be an administrator.
type Decoder func(req *PasswordChangeRequest) error

// Responder writes the outcome of a password change in a transport's own
// wire format.
type Responder interface {
	Success(result *PasswordChangeResult) error
	Fail(err *errs.Error) error
}

// Notifier is told about successful resets. Failures are logged only.
type Notifier interface {
	EnqueuePasswordChanged(ctx context.Context, uid string) error
}

type PasswordService struct {
	roles    repository.RoleStore
	verifier identity.Verifier
	notifier Notifier
	audit    *audit.Logger
	log      *zerolog.Logger
}

func NewPasswordService(
	roles repository.RoleStore,
	verifier identity.Verifier,
	notifier Notifier,
	auditLog *audit.Logger,
	log *zerolog.Logger,
) *PasswordService {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	if auditLog == nil {
		auditLog = audit.New(*log)
	}
	return &PasswordService{
		roles:    roles,
		verifier: verifier,
		notifier: notifier,
		audit:    auditLog,
		log:      log,
	}
}

// Authenticate resolves the caller from an Authorization header value.
func (s *PasswordService) Authenticate(ctx context.Context, authorization string) (*Caller, error) {
	token, ok := identity.BearerToken(authorization)
	if !ok {
		return nil, errs.Unauthenticated(errs.ReasonMissingCredentials, "no bearer token provided")
	}
	return s.VerifyToken(ctx, token)
}

// VerifyToken verifies a raw bearer token. Rejected tokens are
// Unauthenticated; failures to reach the identity platform are Internal.
func (s *PasswordService) VerifyToken(ctx context.Context, token string) (*Caller, error) {
	decoded, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidToken) {
			return nil, errs.Unauthenticated(errs.ReasonInvalidCredentials, "invalid bearer token")
		}
		return nil, errs.Internal(err)
	}
	return &Caller{UID: decoded.UID}, nil
}

// Execute runs UpdateUserPassword and hands the outcome to out.
func (s *PasswordService) Execute(ctx context.Context, caller *Caller, decode Decoder, out Responder) error {
	result, err := s.UpdateUserPassword(ctx, caller, decode)
	if err != nil {
		return s.Reject(ctx, out, err)
	}
	return out.Success(result)
}

// Reject logs a failed attempt and writes it through out. Internal errors
// are logged with their original cause.
func (s *PasswordService) Reject(ctx context.Context, out Responder, err error) error {
	e := errs.From(err)
	log := logger.FromContext(ctx, s.log)

	if e.Kind == errs.KindInternal {
		log.Error().
			Err(e.Cause).
			Str("kind", string(e.Kind)).
			Msg("Error updating user password")
	} else {
		log.Warn().
			Str("kind", string(e.Kind)).
			Str("reason", string(e.Reason)).
			Msg("password update rejected")
	}

	return out.Fail(e)
}

// UpdateUserPassword checks that caller is an administrator, decodes and
// validates the request, then sets the target user's password.
func (s *PasswordService) UpdateUserPassword(ctx context.Context, caller *Caller, decode Decoder) (*PasswordChangeResult, error) {
	if caller == nil || caller.UID == "" {
		return nil, errs.Unauthenticated(errs.ReasonMissingCredentials, "the caller is not authenticated")
	}

	var target string
	result, err := guard(func() (*PasswordChangeResult, error) {
		return s.updateUserPassword(ctx, caller, decode, &target)
	})

	s.recordAttempt(ctx, caller.UID, target, err)

	if err == nil {
		s.notify(ctx, target)
	}

	return result, err
}

func (s *PasswordService) updateUserPassword(ctx context.Context, caller *Caller, decode Decoder, target *string) (*PasswordChangeResult, error) {
	record, err := s.roles.GetUserRecord(ctx, caller.UID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if !record.IsAdmin() {
		return nil, errs.PermissionDenied("only admins can update user passwords")
	}

	var req PasswordChangeRequest
	if decode != nil {
		if err := decode(&req); err != nil {
			return nil, errs.InvalidArgument(errs.ReasonMalformedPayload, "payload must be an object", nil)
		}
	}
	*target = req.UserID

	if err := req.Validate(); err != nil {
		fields := validation.FieldErrors(err)
		if validation.HasTag(err, "required") {
			return nil, errs.InvalidArgument(errs.ReasonMissingFields, "userId and newPassword are required", fields)
		}
		return nil, errs.InvalidArgument(errs.ReasonPasswordTooShort,
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength), fields)
	}

	if err := s.verifier.SetPassword(ctx, req.UserID, req.NewPassword); err != nil {
		return nil, errs.Internal(err)
	}

	return &PasswordChangeResult{Success: true, Message: successMessage}, nil
}

// guard turns a panic in fn into an Internal error.
func guard(fn func() (*PasswordChangeResult, error)) (result *PasswordChangeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errs.Internal(fmt.Errorf("panic: %v", r))
		}
	}()
	return fn()
}

func (s *PasswordService) recordAttempt(ctx context.Context, actorID, targetID string, err error) {
	if err == nil {
		s.audit.PasswordReset(ctx, actorID, targetID, audit.ResultSuccess, "")
		return
	}

	e := errs.From(err)
	result := audit.ResultFailed
	switch e.Kind {
	case errs.KindPermissionDenied:
		result = audit.ResultDenied
	case errs.KindInvalidArgument:
		result = audit.ResultInvalid
	}
	s.audit.PasswordReset(ctx, actorID, targetID, result, string(e.Reason))
}

func (s *PasswordService) notify(ctx context.Context, uid string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.EnqueuePasswordChanged(ctx, uid); err != nil {
		logger.FromContext(ctx, s.log).Error().
			Err(err).
			Str("target_user_id", uid).
			Msg("failed to enqueue password changed notification")
	}
}
