// Package function registers the password endpoints as Cloud Functions.
//
// Each function is an independent deployment of the same binary. The
// application is built lazily on the first request of an instance and kept
// for its lifetime.
package function

import (
	"context"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/deppfellow/password-admin/internal/app"
	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/errs"
	"github.com/deppfellow/password-admin/internal/logger"
	"github.com/deppfellow/password-admin/internal/router"
)

func init() {
	functions.HTTP(router.FunctionCallable, UpdateUserPassword)
	functions.HTTP(router.FunctionHTTP, UpdateUserPasswordHTTP)
}

var (
	once     sync.Once
	handlers map[string]http.Handler
	buildErr error
)

// UpdateUserPassword is the callable function.
func UpdateUserPassword(w http.ResponseWriter, r *http.Request) {
	serve(router.FunctionCallable, w, r)
}

// UpdateUserPasswordHTTP is the plain HTTP function.
func UpdateUserPasswordHTTP(w http.ResponseWriter, r *http.Request) {
	serve(router.FunctionHTTP, w, r)
}

func serve(name string, w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		handlers, buildErr = build(context.Background())
	})

	if buildErr != nil {
		log := logger.NewLogger(config.DefaultObservabilityConfig())
		log.Error().Err(buildErr).Str("function", name).Msg("function is not initialized")
		http.Error(w, errs.NewInternalServerError().Message, http.StatusInternalServerError)
		return
	}

	handlers[name].ServeHTTP(w, r)
}

func build(ctx context.Context) (map[string]http.Handler, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	built := make(map[string]http.Handler, 2)
	for _, name := range []string{router.FunctionCallable, router.FunctionHTTP} {
		r, err := a.FunctionRouter(name)
		if err != nil {
			return nil, err
		}
		built[name] = r
	}

	return built, nil
}
