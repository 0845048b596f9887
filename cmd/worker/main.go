package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/prepit/audioproc/internal/audio"
	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/database"
	"github.com/prepit/audioproc/internal/events"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/media"
	"github.com/prepit/audioproc/internal/messages"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/queue"
	"github.com/prepit/audioproc/internal/queue/workers"
	"github.com/prepit/audioproc/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(cfg.Log, "audioproc-worker")

	if err := cfg.ValidateWorker(); err != nil {
		log.Fatal().Err(err).Msg("invalid worker config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close()

	ffmpeg := media.FFmpeg{Bin: cfg.Audio.FFmpegBin}
	if cfg.Audio.Format == "mp3" && !ffmpeg.Available() {
		log.Fatal().Str("bin", cfg.Audio.FFmpegBin).Msg("mp3 output needs ffmpeg on PATH")
	}

	publisher := events.New(cfg.Kafka, metrics.DefaultMetrics)
	defer publisher.Close()

	uploader := storage.NewFileUploader(
		storage.NewSupabaseStorage(cfg.Storage.SupabaseURL, cfg.Storage.SupabaseKey),
		cfg.Storage,
	)

	cutter := audio.NewCutter(
		audio.Options{
			OutputDir:   cfg.Audio.ProcessedDir,
			Format:      cfg.Audio.Format,
			PublicAudio: cfg.Storage.PublicAudio,
		},
		messages.NewStore(db, cfg.Database.MessageTable),
		uploader,
		publisher,
		ffmpeg,
		metrics.DefaultMetrics,
	)

	audioWorker := workers.NewAudioWorker(cfg.Audio, cutter, metrics.DefaultMetrics)
	mux := queue.NewMux(asynq.HandlerFunc(audioWorker.ProcessTask))

	srv := queue.NewServer(cfg.Redis, cfg.Queue)
	metricsSrv := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("queue", cfg.Queue.Name).Str("format", cfg.Audio.Format).Msg("starting worker")
		if err := srv.Start(mux); err != nil {
			return err
		}
		<-gctx.Done()
		srv.Shutdown()
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("starting metrics server")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("worker stopped")
}
