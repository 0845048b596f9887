package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/logging"
)

// NewServer builds a worker server that takes one task at a time from the
// recording queue, so a job is acknowledged before the next is fetched.
func NewServer(redisCfg config.RedisConfig, queueCfg config.QueueConfig) *asynq.Server {
	logger := logging.WithComponent("queue")

	return asynq.NewServer(RedisOpt(redisCfg), asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			queueCfg.Name: 1,
		},
		Logger:   asynqLogger{log: logger},
		LogLevel: asynq.InfoLevel,
		IsFailure: func(err error) bool {
			return !errors.Is(err, asynq.SkipRetry)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Error().
				Err(err).
				Str("task_type", task.Type()).
				Int("retried", retried).
				Int("max_retry", maxRetry).
				Msg("task failed")
		}),
	})
}

// NewMux routes recording jobs to h. Tasks of any other type fail with
// asynq's not-found error.
func NewMux(h asynq.Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeAudioProcess, h)
	return mux
}

// asynqLogger adapts zerolog to asynq.Logger.
type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...interface{}) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...interface{})  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...interface{})  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...interface{}) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...interface{}) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
