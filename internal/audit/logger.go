// Package audit records administrator actions as structured log events.
package audit

import (
	"context"

	"github.com/deppfellow/password-admin/internal/logger"
	"github.com/rs/zerolog"
)

const ActionUpdateUserPassword = "admin.update_user_password"

// Outcome of an audited action.
const (
	ResultSuccess = "success"
	ResultDenied  = "denied"
	ResultInvalid = "invalid"
	ResultFailed  = "failed"
)

// Logger provides structured audit logging for administrator actions.
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{log: log}
}

// PasswordReset logs one administrator password reset attempt. The
// request-scoped logger in ctx is preferred so request and trace ids are
// carried along.
func (l *Logger) PasswordReset(ctx context.Context, actorID, targetID, result, reason string) {
	base := logger.FromContext(ctx, &l.log)
	log := base.With().Bool("audit", true).Logger()

	var e *zerolog.Event
	if result == ResultSuccess {
		e = log.Info()
	} else {
		e = log.Warn()
	}

	e = e.
		Str("action", ActionUpdateUserPassword).
		Str("actor_user_id", actorID).
		Str("result", result)
	if targetID != "" {
		e = e.Str("target_user_id", targetID)
	}
	if reason != "" {
		e = e.Str("reason", reason)
	}

	e.Msg("Administrator password reset")
}
