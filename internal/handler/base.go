package handler

import (
	"time"

	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/middleware"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrpkgerrors"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Handler holds the shared application dependencies.
type Handler struct {
	server *server.Server
}

func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// outcome is implemented by the transport responders so the pipeline can
// report how a request ended after the response was written.
type outcome interface {
	failure() *errs.Error
}

// responder tracks the failure written by a transport responder.
type responder struct {
	c      echo.Context
	failed *errs.Error
}

func (r *responder) failure() *errs.Error {
	return r.failed
}

// handleRequest is the shared execution pipeline of the password
// endpoints. It adds handler attributes and timings to the New Relic
// transaction and logs the start and end of the request.
func handleRequest(c echo.Context, operation string, out outcome, run func() error) error {
	start := time.Now()
	path := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", path)
		txn.AddAttribute("handler.operation", operation)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", operation).
		Str("method", c.Request().Method).
		Str("path", path).
		Logger()

	logger.Info().Msg("handling request")

	err := run()
	duration := time.Since(start)

	if err != nil {
		logger.Error().
			Err(err).
			Dur("total_duration", duration).
			Msg("failed to write response")

		if txn != nil {
			txn.NoticeError(nrpkgerrors.Wrap(err))
			txn.AddAttribute("handler.status", "error")
			txn.AddAttribute("total.duration_ms", duration.Milliseconds())
		}
		return err
	}

	if failed := out.failure(); failed != nil {
		if txn != nil {
			if failed.Kind == errs.KindInternal {
				txn.NoticeError(nrpkgerrors.Wrap(failed))
			}
			txn.AddAttribute("handler.status", "rejected")
			txn.AddAttribute("error.kind", string(failed.Kind))
			txn.AddAttribute("error.reason", string(failed.Reason))
			txn.AddAttribute("total.duration_ms", duration.Milliseconds())
		}

		logger.Info().
			Str("kind", string(failed.Kind)).
			Dur("total_duration", duration).
			Msg("request rejected")
		return nil
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("total.duration_ms", duration.Milliseconds())
	}

	logger.Info().
		Dur("total_duration", duration).
		Msg("request completed successfully")

	return nil
}
