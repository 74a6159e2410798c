// Command functions serves the Cloud Functions locally through the
// Functions Framework. Select one with FUNCTION_TARGET or call both by
// name at /updateUserPassword and /updateUserPasswordHttp.
package main

import (
	"os"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/logger"

	_ "github.com/deppfellow/password-admin/internal/function"
)

func main() {
	log := logger.NewLogger(config.DefaultObservabilityConfig())

	port := "8080"
	if envPort := os.Getenv("PORT"); envPort != "" {
		port = envPort
	}

	if err := funcframework.Start(port); err != nil {
		log.Fatal().Err(err).Msg("functions framework exited")
	}
}
