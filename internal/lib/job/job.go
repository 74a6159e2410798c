// Package job provides background job processing using Asynq.
//
// Asynq is a Redis-backed job queue:
//   - The password service enqueues tasks (producer) through asynq.Client.
//   - A server runs workers that process those tasks (consumer) using asynq.Server.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/deppfellow/password-admin/internal/config"
	"github.com/deppfellow/password-admin/internal/identity"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// enqueuer is the producer half of *asynq.Client.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// JobService holds the Asynq client (enqueue) and server (worker execution).
type JobService struct {
	client enqueuer
	server *asynq.Server
	logger *zerolog.Logger

	// Set by InitHandlers; only needed by processes that run the worker.
	emails    passwordChangedSender
	directory identity.Directory

	now func() time.Time
}

// NewJobService creates a JobService configured to use Redis from cfg.
//
// Queue weights give "critical" tasks the larger worker share:
//
//	critical: 6, default: 3, low: 1
func NewJobService(logger *zerolog.Logger, cfg *config.Config) *JobService {
	redisAddr := cfg.Redis.Address

	client := asynq.NewClient(asynq.RedisClientOpt{
		Addr: redisAddr,
	})

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6, // Security notices
				"default":  3,
				"low":      1,
			},
			Logger: newAsynqLogger(logger),
		},
	)

	return &JobService{
		client: client,
		server: server,
		logger: logger,
		now:    time.Now,
	}
}

// EnqueuePasswordChanged schedules the "your password was changed" email for
// uid.
func (j *JobService) EnqueuePasswordChanged(ctx context.Context, uid string) error {
	task, err := NewPasswordChangedTask(uid, j.now())
	if err != nil {
		return fmt.Errorf("building password changed task: %w", err)
	}

	info, err := j.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueueing password changed task: %w", err)
	}

	j.logger.Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("target_user_id", uid).
		Msg("password changed notification enqueued")

	return nil
}

// Start registers task handlers and starts the background worker server.
// asynq's Start returns once workers are running.
func (j *JobService) Start() error {
	if j.emails == nil || j.directory == nil {
		return fmt.Errorf("job handlers not initialized")
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPasswordChanged, j.handlePasswordChangedTask)

	j.logger.Info().Msg("Starting background job server")

	if err := j.server.Start(mux); err != nil {
		return err
	}

	return nil
}

// Stop gracefully stops the job server and closes client resources.
func (j *JobService) Stop() {
	j.logger.Info().Msg("Stopping background job server")
	j.server.Shutdown()
	if err := j.client.Close(); err != nil {
		j.logger.Error().Err(err).Msg("failed to close asynq client")
	}
}

// asynqLogger routes asynq's own logs through zerolog.
type asynqLogger struct {
	log zerolog.Logger
}

func newAsynqLogger(logger *zerolog.Logger) *asynqLogger {
	return &asynqLogger{log: logger.With().Str("component", "asynq").Logger()}
}

func (l *asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
