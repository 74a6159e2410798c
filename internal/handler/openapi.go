package handler

import (
	"fmt"
	"net/http"

	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/static"
	"github.com/labstack/echo/v4"
)

// OpenAPIHandler serves the API reference UI.
//
// The page is the embedded static/openapi.html. It loads its script from a
// CDN and renders /static/openapi.json, which documents both password
// endpoints and /status.
type OpenAPIHandler struct {
	Handler
}

// NewOpenAPIHandler constructs an OpenAPIHandler.
func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI writes the embedded openapi.html.
//
// Cache-Control is "no-cache" so a redeployed document shows up on the
// next load.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	page, err := static.FS.ReadFile("openapi.html")

	c.Response().Header().Set("Cache-Control", "no-cache")

	if err != nil {
		return fmt.Errorf("failed to read OpenAPI UI template: %w", err)
	}

	if err := c.HTMLBlob(http.StatusOK, page); err != nil {
		return fmt.Errorf("failed to write HTML response: %w", err)
	}

	return nil
}
