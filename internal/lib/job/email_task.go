package job

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// TaskPasswordChanged is the job type name stored in Redis.
	// Asynq uses task type strings to route to handlers.
	TaskPasswordChanged = "email:password_changed"
)

// PasswordChangedPayload is the JSON payload of a password changed notice.
// Only the user id travels through Redis; the address is resolved by the
// worker.
type PasswordChangedPayload struct {
	UserID    string    `json:"user_id"`
	ChangedAt time.Time `json:"changed_at"`
}

// NewPasswordChangedTask constructs an Asynq task for notifying a user that
// their password was reset.
//
// Options:
//   - MaxRetry(3): retry up to 3 times on failure
//   - Queue("critical"): security notices go ahead of everything else
//   - Timeout(30s): kill the task if the handler runs longer than 30 seconds
func NewPasswordChangedTask(userID string, changedAt time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(PasswordChangedPayload{
		UserID:    userID,
		ChangedAt: changedAt,
	})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskPasswordChanged,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue("critical"),
		asynq.Timeout(30*time.Second),
	), nil
}
