package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/middleware"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/iterator"
)

// dependencyCheck probes one backend. A failing required check turns the
// whole response into a 503 HTTPError; optional ones are only reported.
type dependencyCheck struct {
	name     string
	required bool
	ping     func(ctx context.Context) error
}

type HealthHandler struct {
	Handler
	checks []dependencyCheck
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  dependencyChecks(s),
	}
}

func dependencyChecks(s *server.Server) []dependencyCheck {
	var checks []dependencyCheck
	obs := s.Config.Observability

	if obs.HasCheck("role_store") {
		if ping := roleStorePing(s); ping != nil {
			checks = append(checks, dependencyCheck{name: "role_store", required: true, ping: ping})
		}
	}

	if obs.HasCheck("redis") && s.Redis != nil {
		checks = append(checks, dependencyCheck{
			name: "redis",
			// Redis only matters once notifications are queued through it.
			required: s.Config.Notification.Enabled,
			ping: func(ctx context.Context) error {
				return s.Redis.Ping(ctx).Err()
			},
		})
	}

	return checks
}

// roleStorePing returns a connectivity probe for the configured role store,
// or nil when the backend has none (Clerk is reached over plain HTTPS per
// request).
func roleStorePing(s *server.Server) func(ctx context.Context) error {
	switch s.Config.RoleStore.Driver {
	case config.RoleStorePostgres:
		if s.DB != nil {
			return s.DB.Ping
		}
	case config.RoleStoreFirestore:
		if s.Firestore != nil {
			collection := s.Config.RoleStore.Collection
			return func(ctx context.Context) error {
				_, err := s.Firestore.Collection(collection).Limit(1).Documents(ctx).Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			}
		}
	}
	return nil
}

// CheckHealth reports the configured backends and the result of each
// dependency check: 200 when every required check passes, 503 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := make(map[string]any, len(h.checks))
	response := map[string]any{
		"status":            "healthy",
		"timestamp":         time.Now().UTC(),
		"environment":       h.server.Config.Primary.Env,
		"identity_provider": h.server.Config.Identity.Provider,
		"role_store":        h.server.Config.RoleStore.Driver,
		"checks":            checks,
	}

	var failed []errs.FieldError
	timeout := h.server.Config.Observability.HealthChecks.Timeout

	for _, check := range h.checks {
		ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
		checkStart := time.Now()
		err := check.ping(ctx)
		elapsed := time.Since(checkStart)
		cancel()

		if err != nil {
			checks[check.name] = map[string]any{
				"status":        "unhealthy",
				"response_time": elapsed.String(),
				"error":         err.Error(),
			}

			if check.required {
				failed = append(failed, errs.FieldError{Field: check.name, Error: err.Error()})
			}

			logger.Error().
				Err(err).
				Str("check", check.name).
				Dur("response_time", elapsed).
				Msg("health check failed")

			h.recordHealthCheckError(map[string]any{
				"check_type":       check.name,
				"operation":        "health_check",
				"error_type":       check.name + "_unhealthy",
				"response_time_ms": elapsed.Milliseconds(),
				"error_message":    err.Error(),
			})
			continue
		}

		checks[check.name] = map[string]any{
			"status":        "healthy",
			"response_time": elapsed.String(),
		}

		logger.Debug().
			Str("check", check.name).
			Dur("response_time", elapsed).
			Msg("health check passed")
	}

	if len(failed) > 0 {

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthCheckError(map[string]any{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return errs.NewServiceUnavailableError("Service unhealthy", failed)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

func (h *HealthHandler) recordHealthCheckError(attrs map[string]any) {
	if app := h.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("HealthCheckError", attrs)
	}
}
