package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/deppfellow/password-admin/internal/lib/email"
	"github.com/hibiken/asynq"
)

type passwordChangedSender interface {
	SendPasswordChangedEmail(ctx context.Context, to string, changedAt time.Time) error
}

// InitHandlers wires the dependencies job handlers need: an email client
// built from the notification config and the identity directory that
// resolves user addresses.
func (j *JobService) InitHandlers(cfg *config.Config, directory identity.Directory) {
	j.emails = email.NewClient(&cfg.Notification, j.logger)
	j.directory = directory
}

// handlePasswordChangedTask resolves the target's address and sends the
// notice. Returning an error makes Asynq retry the task.
func (j *JobService) handlePasswordChangedTask(ctx context.Context, t *asynq.Task) error {
	var p PasswordChangedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("failed to unmarshal password changed payload: %w: %w", err, asynq.SkipRetry)
	}

	j.logger.Info().
		Str("type", "password_changed").
		Str("target_user_id", p.UserID).
		Msg("Processing password changed email task")

	to, err := j.directory.UserEmail(ctx, p.UserID)
	if err != nil {
		j.logger.Error().
			Str("type", "password_changed").
			Str("target_user_id", p.UserID).
			Err(err).
			Msg("Failed to resolve user email")
		return err
	}

	if err := j.emails.SendPasswordChangedEmail(ctx, to, p.ChangedAt); err != nil {
		j.logger.Error().
			Str("type", "password_changed").
			Str("target_user_id", p.UserID).
			Err(err).
			Msg("Failed to send password changed email")
		return err
	}

	j.logger.Info().
		Str("type", "password_changed").
		Str("target_user_id", p.UserID).
		Msg("Successfully sent password changed email")

	return nil
}
