package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepit/audioproc/internal/audio"
	"github.com/prepit/audioproc/internal/logging"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/queue"
)

type Enqueuer interface {
	EnqueueAudioProcess(ctx context.Context, payload queue.AudioProcessPayload) (string, error)
}

// TaskHandler accepts a finished recording with its metadata and queues it.
type TaskHandler struct {
	dir      string
	maxBytes int64
	queue    Enqueuer
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

func NewTaskHandler(dir string, maxUploadMB int, q Enqueuer, m *metrics.Metrics) *TaskHandler {
	return &TaskHandler{
		dir:      dir,
		maxBytes: int64(maxUploadMB) << 20,
		queue:    q,
		metrics:  m,
		log:      logging.WithComponent("upload"),
	}
}

type taskResponse struct {
	Message          string `json:"message"`
	WavFileName      string `json:"wav_file_name"`
	MetadataFileName string `json:"metadata_file_name"`
	ThreadID         string `json:"thread_id"`
	WsSID            string `json:"ws_sid"`
	TaskID           string `json:"task_id"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		h.reject(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		h.reject(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	threadID := strings.TrimSpace(r.FormValue("thread_id"))
	wsSID := strings.TrimSpace(r.FormValue("ws_sid"))
	if threadID == "" || wsSID == "" {
		h.reject(w, http.StatusBadRequest, "thread_id and ws_sid required")
		return
	}

	metadataName, err := h.save(r, "metadata_file")
	if err != nil {
		h.fail(w, threadID, err)
		return
	}
	wavName, err := h.save(r, "wav_file")
	if err != nil {
		h.fail(w, threadID, err)
		return
	}

	taskID, err := h.queue.EnqueueAudioProcess(r.Context(), queue.AudioProcessPayload{
		FileName:     wavName,
		MetadataName: metadataName,
		ThreadID:     threadID,
		WsSID:        wsSID,
	})
	if err != nil {
		h.fail(w, threadID, err)
		return
	}

	h.metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	h.log.Info().
		Str("thread_id", threadID).
		Str("ws_conn_sid", wsSID).
		Str("task_id", taskID).
		Str("wav_file", wavName).
		Msg("queued recording")

	writeJSON(w, http.StatusOK, taskResponse{
		Message:          fmt.Sprintf("Processing started for %s, %s", wavName, metadataName),
		WavFileName:      wavName,
		MetadataFileName: metadataName,
		ThreadID:         threadID,
		WsSID:            wsSID,
		TaskID:           taskID,
	})
}

var errMissingFile = errors.New("missing file")

// save copies one multipart file into the input directory under a unique name.
func (h *TaskHandler) save(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", fmt.Errorf("%w: %s", errMissingFile, field)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	name := storedName(header)
	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if err := writeUpload(dst, file); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return name, nil
}

// writeUpload copies src into dst and closes it. A failed close means the file
// on disk may be truncated, so it is reported like a failed copy.
func writeUpload(dst io.WriteCloser, src io.Reader) error {
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func storedName(header *multipart.FileHeader) string {
	return uuid.NewString() + "_" + audio.SafeName(filepath.Base(header.Filename))
}

func (h *TaskHandler) reject(w http.ResponseWriter, status int, msg string) {
	h.metrics.UploadsTotal.WithLabelValues("rejected").Inc()
	writeError(w, status, msg)
}

func (h *TaskHandler) fail(w http.ResponseWriter, threadID string, err error) {
	if errors.Is(err, errMissingFile) {
		h.reject(w, http.StatusBadRequest, err.Error())
		return
	}
	h.metrics.UploadsTotal.WithLabelValues("error").Inc()
	h.log.Error().Err(err).Str("thread_id", threadID).Msg("error processing audio upload")
	writeError(w, http.StatusInternalServerError, "Error processing audio")
}
