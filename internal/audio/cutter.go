package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prepit/audioproc/internal/events"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/models"
	"github.com/prepit/audioproc/internal/storage"
	"github.com/prepit/audioproc/internal/transcript"
)

const ResultFileName = "processed_metadata.json"

type MessageStore interface {
	MarkHasAudio(ctx context.Context, threadID string, createdAt int64) error
}

type Uploader interface {
	UploadFile(ctx context.Context, localPath, remoteDir string, public bool) (*storage.Uploaded, error)
}

type EventPublisher interface {
	PublishAudioReady(ctx context.Context, ev events.AudioReady) error
}

type Transcoder interface {
	ToMP3(ctx context.Context, input, output string) error
}

type Options struct {
	OutputDir   string
	Format      string // "mp3" or "wav"
	PublicAudio bool
}

// Cutter writes one clip per processed message and hands it to the collaborators.
// Nil collaborators are skipped, which is how the CLI runs without network services.
type Cutter struct {
	opts       Options
	store      MessageStore
	uploader   Uploader
	events     EventPublisher
	transcoder Transcoder
	metrics    *metrics.Metrics
}

func NewCutter(opts Options, store MessageStore, uploader Uploader, pub EventPublisher, tc Transcoder, m *metrics.Metrics) *Cutter {
	if opts.Format == "" {
		opts.Format = "wav"
	}
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Cutter{
		opts:       opts,
		store:      store,
		uploader:   uploader,
		events:     pub,
		transcoder: tc,
		metrics:    m,
	}
}

type Clip struct {
	MessageID  string
	Path       string
	ObjectPath string
	Seconds    float64
}

// Report lists what happened to every message of one job.
type Report struct {
	Clips    []Clip
	Skipped  []string
	Failures []*transcript.StageError
}

// Err joins the per-message failures, or returns nil when every message succeeded.
func (r *Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

var errEmptyClip = errors.New("span lies outside the recording")

// Cut processes messages in ascending boundary order. A failing message is recorded
// in the report and the remaining messages are still processed.
func (c *Cutter) Cut(ctx context.Context, wf *Waveform, res *transcript.Result) *Report {
	report := &Report{}
	names := clipNames(res.Order)
	logger := logging.WithJob(res.Job.ThreadID, res.Job.ConnectionSessionID)

	for _, id := range res.Order {
		msg := res.Messages[id]

		clip, err := c.cutOne(ctx, wf, res.Job, msg, names[id])
		if errors.Is(err, errEmptyClip) {
			logger.Warn().
				Str("message_id", id).
				Float64("relative_start", msg.RelativeStart).
				Float64("recording_seconds", wf.Seconds()).
				Msg("message span outside recording, no clip written")
			report.Skipped = append(report.Skipped, id)
			c.metrics.ClipsEmpty.Inc()
			continue
		}
		if err != nil {
			var se *transcript.StageError
			if !errors.As(err, &se) {
				se = &transcript.StageError{Stage: transcript.StageCut, MessageID: id, Err: err}
			}
			logger.Error().Err(se.Err).Str("message_id", id).Str("stage", string(se.Stage)).Msg("message clip failed")
			report.Failures = append(report.Failures, se)
			c.metrics.RecordMessageFailure(string(se.Stage))
			continue
		}

		logger.Info().Str("message_id", id).Str("path", clip.Path).Float64("seconds", clip.Seconds).Msg("exported clip")
		report.Clips = append(report.Clips, *clip)
		c.metrics.ClipsWritten.Inc()
		c.metrics.ClipSeconds.Observe(clip.Seconds)
	}

	return report
}

func (c *Cutter) cutOne(ctx context.Context, wf *Waveform, job models.JobContext, msg models.ProcessedMessage, name string) (*Clip, error) {
	fail := func(stage transcript.Stage, err error) error {
		return &transcript.StageError{Stage: stage, MessageID: msg.MessageID, Err: err}
	}

	samples := wf.Slice(msg.RelativeStart, msg.RelativeEnd)
	if samples == nil {
		return nil, errEmptyClip
	}

	data, err := EncodeWAV(samples, wf.BitDepth())
	if err != nil {
		return nil, fail(transcript.StageCut, err)
	}

	dir := c.jobDir(job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fail(transcript.StageWrite, fmt.Errorf("create output dir: %w", err))
	}

	local, err := c.writeClip(ctx, dir, name, data)
	if err != nil {
		return nil, fail(transcript.StageWrite, err)
	}

	clip := &Clip{
		MessageID: msg.MessageID,
		Path:      local,
		Seconds:   float64(len(samples.Data)/wf.Channels()) / float64(wf.SampleRate()),
	}

	if c.store != nil {
		if err := c.store.MarkHasAudio(ctx, job.ThreadID, msg.CreatedAt); err != nil {
			return nil, fail(transcript.StageMark, err)
		}
	}

	var publicURL string
	if c.uploader != nil {
		up, err := c.uploader.UploadFile(ctx, local, remoteDir(job), c.opts.PublicAudio)
		if err != nil {
			return nil, fail(transcript.StageUpload, err)
		}
		clip.ObjectPath = up.Path
		publicURL = up.PublicURL
	}

	if c.events != nil {
		err := c.events.PublishAudioReady(ctx, events.AudioReady{
			ThreadID:   job.ThreadID,
			ConnSID:    job.ConnectionSessionID,
			MessageID:  msg.MessageID,
			CreatedAt:  msg.CreatedAt,
			ObjectPath: clip.ObjectPath,
			PublicURL:  publicURL,
		})
		if err != nil {
			return nil, fail(transcript.StagePublish, err)
		}
	}

	return clip, nil
}

// writeClip writes the clip in the configured format, overwriting earlier runs.
func (c *Cutter) writeClip(ctx context.Context, dir, name string, wavData []byte) (string, error) {
	wavPath := filepath.Join(dir, name+".wav")
	if err := os.WriteFile(wavPath, wavData, 0o644); err != nil {
		return "", fmt.Errorf("write clip: %w", err)
	}
	if c.opts.Format != "mp3" {
		return wavPath, nil
	}

	if c.transcoder == nil {
		return "", errors.New("mp3 output requested without a transcoder")
	}
	mp3Path := filepath.Join(dir, name+".mp3")
	if err := c.transcoder.ToMP3(ctx, wavPath, mp3Path); err != nil {
		return "", err
	}
	if err := os.Remove(wavPath); err != nil {
		return "", fmt.Errorf("remove intermediate wav: %w", err)
	}
	return mp3Path, nil
}

// WriteResult stores the processed-result JSON next to the clips and uploads it to
// the private bucket.
func (c *Cutter) WriteResult(ctx context.Context, res *transcript.Result) (string, error) {
	dir := c.jobDir(res.Job)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}

	local := filepath.Join(dir, ResultFileName)
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}

	if c.uploader != nil {
		if _, err := c.uploader.UploadFile(ctx, local, remoteDir(res.Job), false); err != nil {
			return local, &transcript.StageError{Stage: transcript.StageUpload, Err: err}
		}
	}
	return local, nil
}

func (c *Cutter) jobDir(job models.JobContext) string {
	return filepath.Join(c.opts.OutputDir, SafeName(job.ThreadID), SafeName(job.ConnectionSessionID))
}

func remoteDir(job models.JobContext) string {
	return path.Join(SafeName(job.ThreadID), SafeName(job.ConnectionSessionID))
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// clipNames assigns every message a file name that is unique within the job.
// When two ids sanitize to the same name, the later one gets a suffix derived
// from its raw id, so names stay stable across retries.
func clipNames(order []string) map[string]string {
	names := make(map[string]string, len(order))
	used := make(map[string]bool, len(order))

	for _, id := range order {
		name := SafeName(id)
		if used[name] {
			name = fmt.Sprintf("%s_%08x", name, uint32(xxhash.Sum64String(id)))
			for n := 2; used[name]; n++ {
				name = fmt.Sprintf("%s_%08x_%d", SafeName(id), uint32(xxhash.Sum64String(id)), n)
			}
		}
		used[name] = true
		names[id] = name
	}
	return names
}

// SafeName makes an identifier usable as a single path element.
func SafeName(id string) string {
	name := unsafeChars.ReplaceAllString(id, "_")
	if name == "" || name == "." || name == ".." {
		return "_" + name
	}
	return name
}
