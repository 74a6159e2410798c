// Package app wires configuration, backends, services and handlers into a
// runnable application. Both the HTTP server binary and the serverless
// entrypoints build on it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/handler"
	"github.com/deppfellow/password-admin/internal/logger"
	"github.com/deppfellow/password-admin/internal/repository"
	"github.com/deppfellow/password-admin/internal/router"
	"github.com/deppfellow/password-admin/internal/server"
	"github.com/deppfellow/password-admin/internal/service"
	"github.com/labstack/echo/v4"
)

type App struct {
	Server   *server.Server
	Services *service.Services
	Handlers *handler.Handlers
}

// New builds every process-scoped dependency selected by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerService, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		return nil, err
	}

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	srv, err := server.New(ctx, cfg, &log, loggerService)
	if err != nil {
		loggerService.Shutdown()
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	repos, err := repository.NewRepositories(srv)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize repositories: %w", err), srv.Shutdown(ctx))
	}

	services, err := service.NewServices(srv, repos)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to initialize services: %w", err), srv.Shutdown(ctx))
	}

	return &App{
		Server:   srv,
		Services: services,
		Handlers: handler.NewHandlers(srv, services),
	}, nil
}

// Router returns the router of the long-running server.
func (a *App) Router() *echo.Echo {
	return router.NewRouter(a.Server, a.Handlers, a.Services)
}

// FunctionRouter returns the router of the named serverless function.
func (a *App) FunctionRouter(name string) (*echo.Echo, error) {
	return router.NewFunctionRouter(a.Server, a.Handlers, a.Services, name)
}

// StartWorker runs the notification worker in this process when
// notifications are enabled and notification.run_worker is set.
func (a *App) StartWorker() error {
	cfg := a.Server.Config
	if a.Server.Job == nil || !cfg.Notification.RunWorker {
		return nil
	}

	a.Server.Job.InitHandlers(cfg, a.Services.Identity)
	if err := a.Server.Job.Start(); err != nil {
		return fmt.Errorf("failed to start notification worker: %w", err)
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	return a.Server.Shutdown(ctx)
}
