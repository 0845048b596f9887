package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/prepit/audioproc/internal/audio"
	"github.com/prepit/audioproc/internal/config"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/queue"
	"github.com/prepit/audioproc/internal/transcript"
)

// Clipper is the artifact side of a job.
type Clipper interface {
	Cut(ctx context.Context, wf *audio.Waveform, res *transcript.Result) *audio.Report
	WriteResult(ctx context.Context, res *transcript.Result) (string, error)
}

type AudioWorker struct {
	inputDir string
	clipper  Clipper
	metrics  *metrics.Metrics
}

func NewAudioWorker(cfg config.AudioConfig, clipper Clipper, m *metrics.Metrics) *AudioWorker {
	return &AudioWorker{
		inputDir: cfg.UnprocessedDir,
		clipper:  clipper,
		metrics:  m,
	}
}

func (w *AudioWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	started := time.Now()

	var payload queue.AudioProcessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.metrics.RecordJob(metrics.OutcomeMalformed, time.Since(started).Seconds())
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	logger := logging.WithJob(payload.ThreadID, payload.WsSID)
	logger.Info().Str("file_name", payload.FileName).Msg("processing recording")

	outcome, err := w.process(ctx, payload)
	w.metrics.RecordJob(outcome, time.Since(started).Seconds())

	switch outcome {
	case metrics.OutcomeSkipped:
		logger.Info().Msg("nothing to process, acknowledging job")
		return nil
	case metrics.OutcomeMalformed:
		logger.Error().Err(err).Msg("malformed recording, not retrying")
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case metrics.OutcomeProcessed:
		logger.Info().Dur("took", time.Since(started)).Msg("recording processed")
		return nil
	}

	logger.Error().Err(err).Str("outcome", outcome).Msg("recording processing failed")
	return err
}

func (w *AudioWorker) process(ctx context.Context, payload queue.AudioProcessPayload) (string, error) {
	md, err := transcript.LoadMetadata(w.inputPath(payload.MetadataName))
	if err != nil {
		if errors.Is(err, transcript.ErrMalformedInput) {
			return metrics.OutcomeMalformed, err
		}
		return metrics.OutcomeFailed, &transcript.StageError{Stage: transcript.StageParse, Err: err}
	}

	res, err := transcript.Process(md)
	if errors.Is(err, transcript.ErrNothingToProcess) {
		return metrics.OutcomeSkipped, nil
	}
	if err != nil {
		return metrics.OutcomeFailed, err
	}
	w.metrics.HypothesesDropped.Add(float64(res.Dropped))
	w.metrics.MessagesProcessed.Add(float64(len(res.Order)))

	wf, err := audio.Decode(w.inputPath(payload.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return metrics.OutcomeFailed, &transcript.StageError{Stage: transcript.StageDecode, Err: err}
	}
	if err != nil {
		return metrics.OutcomeMalformed, &transcript.StageError{Stage: transcript.StageDecode, Err: err}
	}

	report := w.clipper.Cut(ctx, wf, res)
	if _, err := w.clipper.WriteResult(ctx, res); err != nil {
		return metrics.OutcomePartial, errors.Join(err, report.Err())
	}
	if err := report.Err(); err != nil {
		return metrics.OutcomePartial, err
	}
	return metrics.OutcomeProcessed, nil
}

// inputPath keeps payload names inside the input directory.
func (w *AudioWorker) inputPath(name string) string {
	return filepath.Join(w.inputDir, filepath.Base(name))
}
