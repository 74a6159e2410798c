// Package server builds the process-scoped application container.
//
// Server holds every long-lived SDK client (Firebase, Firestore, Clerk,
// Postgres, Redis, Asynq) plus config and logging. It is built once per
// process: eagerly by the HTTP server binary, lazily by the serverless
// entrypoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/database"
	"github.com/deppfellow/password-admin/internal/lib/job"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	loggerPkg "github.com/deppfellow/password-admin/internal/logger"
)

// Server is the application container.
//
// Backend clients are nil when the configuration does not select them.
type Server struct {
	Config        *config.Config
	Logger        *zerolog.Logger
	LoggerService *loggerPkg.LoggerService

	Firebase     *firebase.App
	FirebaseAuth *auth.Client
	Firestore    *firestore.Client
	Clerk        *clerk.ClientConfig

	DB    *database.Database
	Redis *redis.Client
	Job   *job.JobService

	httpServer *http.Server
}

// New connects every backend the configuration needs. Clients built before
// a failing step are closed before New returns.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (_ *Server, err error) {
	s := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
	}

	defer func() {
		if err != nil {
			err = errors.Join(err, s.closeClients())
		}
	}()

	if cfg.UsesFirebase() {
		if err := s.initFirebase(ctx); err != nil {
			return nil, err
		}
	}

	if cfg.UsesClerk() {
		s.Clerk = &clerk.ClientConfig{}
		s.Clerk.Key = clerk.String(cfg.Clerk.SecretKey)
	}

	if cfg.Redis.Address != "" {
		s.Redis = newRedisClient(ctx, cfg, logger, loggerService)
	}

	if cfg.RoleStore.Driver == config.RoleStorePostgres {
		if cfg.Database.Migrate {
			if err := database.Migrate(ctx, logger, cfg); err != nil {
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		db, err := database.New(cfg, logger, loggerService)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		s.DB = db
	}

	if cfg.Notification.Enabled {
		s.Job = job.NewJobService(logger, cfg)
	}

	return s, nil
}

func (s *Server) initFirebase(ctx context.Context) error {
	var opts []option.ClientOption
	if s.Config.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(s.Config.Firebase.CredentialsFile))
	}

	// A nil config lets the SDK read FIREBASE_CONFIG and the ambient project.
	var fbConfig *firebase.Config
	if s.Config.Firebase.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: s.Config.Firebase.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	s.Firebase = app

	if s.Config.Identity.Provider == config.ProviderFirebase {
		authClient, err := app.Auth(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize firebase auth: %w", err)
		}
		s.FirebaseAuth = authClient
	}

	if s.Config.RoleStore.Driver == config.RoleStoreFirestore {
		fs, err := app.Firestore(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize firestore: %w", err)
		}
		s.Firestore = fs
	}

	return nil
}

func newRedisClient(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	if loggerService.GetApplication() != nil {
		redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Redis only backs notifications and health; the password flow works
	// without it.
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Msg("Failed to connect to Redis, continuing without Redis")
	}

	return redisClient
}

// SetupHTTPServer wraps handler in an http.Server using the configured
// port and timeouts.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Str("identity_provider", s.Config.Identity.Provider).
		Str("role_store", s.Config.RoleStore.Driver).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown stops the HTTP server, then releases every backend client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	if s.Job != nil {
		s.Job.Stop()
	}

	errs = append(errs, s.closeClients())

	s.LoggerService.Shutdown()

	return errors.Join(errs...)
}

// closeClients releases the backend clients that were built. The logger
// service is left to the caller.
func (s *Server) closeClients() error {
	var errs []error

	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
	}

	if s.Firestore != nil {
		if err := s.Firestore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close firestore client: %w", err))
		}
	}

	return errors.Join(errs...)
}
