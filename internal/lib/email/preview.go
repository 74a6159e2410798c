package email

// PreviewData contains sample template data for local preview/testing.
//
// It maps:
//
//	templateName -> (templateVariableName -> exampleValue)
var PreviewData = map[Template]map[string]string{
	TemplatePasswordChanged: {
		"AppName":   appName,
		"ChangedAt": "January 2, 2006 at 15:04 UTC",
	},
}
