package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/prepit/audioproc/internal/api"
	"github.com/prepit/audioproc/internal/api/handlers"
	"github.com/prepit/audioproc/internal/cache"
	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/database"
	"github.com/prepit/audioproc/internal/feedback"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/messages"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/prompt"
	"github.com/prepit/audioproc/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log, "audioproc-api")

	ctx := context.Background()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, cfg.Database.MigrationsPath, database.TableVars(cfg.Database)); err != nil {
		log.Warn().Err(err).Msg("migrations failed")
	}

	// Redis backs both the prompt cache and the job queue
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, prompt cache and queue will fail until it is back")
	}
	defer rdb.Close()

	if err := os.MkdirAll(cfg.Audio.UnprocessedDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Audio.UnprocessedDir).Msg("cannot create upload directory")
	}

	queueClient := queue.NewClient(cfg.Redis, cfg.Queue)
	defer queueClient.Close()

	promptSvc := prompt.NewService(
		prompt.NewPGRepository(db, cfg.Database.PromptTable),
		cache.NewCache(rdb, "prompt:"),
		cfg.Redis.PromptCacheTTL,
	)

	router := api.NewRouter(cfg, api.Deps{
		Checks: map[string]handlers.Check{
			"database": db.Ping,
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Queue:    queueClient,
		Prompts:  promptSvc,
		Feedback: feedback.NewStore(db, cfg.Database.FeedbackTable),
		Messages: messages.NewStore(db, cfg.Database.MessageTable),
		Metrics:  metrics.DefaultMetrics,
	})
	handler := router.Setup()

	stopCleanup := make(chan struct{})
	go router.RateLimiter().Cleanup(stopCleanup)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	close(stopCleanup)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced shutdown")
	}
	log.Info().Msg("server stopped")
}
