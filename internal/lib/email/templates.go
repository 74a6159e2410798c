package email

import "embed"

// Template is a string-based enum naming email templates.
type Template string

const (
	// TemplatePasswordChanged corresponds to templates/password_changed.html
	TemplatePasswordChanged Template = "password_changed"
)

//go:embed templates/*.html
var templateFS embed.FS
