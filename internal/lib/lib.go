// Package lib holds support code that does not belong to a single layer:
// the password-changed email (Resend) and the background job queue that
// delivers it (Redis/Asynq).
package lib
