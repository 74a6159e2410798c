package email

import (
	"context"
	"time"
)

const appName = "Password Admin"

// SendPasswordChangedEmail tells a user that an administrator reset their
// password.
func (c *Client) SendPasswordChangedEmail(ctx context.Context, to string, changedAt time.Time) error {
	data := map[string]string{
		"AppName":   appName,
		"ChangedAt": changedAt.UTC().Format("January 2, 2006 at 15:04 MST"),
	}

	return c.SendEmail(
		ctx,
		to,
		"Your "+appName+" password was changed",
		TemplatePasswordChanged,
		data,
	)
}
