package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/prepit/audioproc/internal/feedback"
	"github.com/prepit/audioproc/internal/metrics"
	"github.com/prepit/audioproc/internal/models"
	"github.com/prepit/audioproc/internal/prompt"
	"github.com/prepit/audioproc/internal/queue"
)

type fakeQueue struct {
	payloads []queue.AudioProcessPayload
	err      error
}

func (q *fakeQueue) EnqueueAudioProcess(_ context.Context, p queue.AudioProcessPayload) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.payloads = append(q.payloads, p)
	return "task-1", nil
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	for field, name := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("content of " + name))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestTaskHandlerCreate(t *testing.T) {
	dir := t.TempDir()
	q := &fakeQueue{}
	m := metrics.New(prometheus.NewRegistry())
	h := NewTaskHandler(dir, 10, q, m)

	body, ct := multipartBody(t,
		map[string]string{"thread_id": "th-1", "ws_sid": "sid-1"},
		map[string]string{"metadata_file": "rec.json", "wav_file": "../rec.wav"},
	)
	req := httptest.NewRequest(http.MethodPost, "/new_audio_processing_task", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp taskResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.ThreadID != "th-1" || resp.WsSID != "sid-1" || resp.TaskID != "task-1" {
		t.Errorf("response = %+v", resp)
	}
	if !strings.HasSuffix(resp.WavFileName, "_rec.wav") || strings.Contains(resp.WavFileName, "/") {
		t.Errorf("wav_file_name = %q", resp.WavFileName)
	}

	data, err := os.ReadFile(filepath.Join(dir, resp.WavFileName))
	if err != nil {
		t.Fatalf("stored wav: %v", err)
	}
	if string(data) != "content of ../rec.wav" {
		t.Errorf("stored content = %q", data)
	}

	if len(q.payloads) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(q.payloads))
	}
	p := q.payloads[0]
	if p.FileName != resp.WavFileName || p.MetadataName != resp.MetadataFileName || p.ThreadID != "th-1" || p.WsSID != "sid-1" {
		t.Errorf("payload = %+v", p)
	}
	if got := testutil.ToFloat64(m.UploadsTotal.WithLabelValues("accepted")); got != 1 {
		t.Errorf("uploads_total{accepted} = %v", got)
	}
}

func TestTaskHandlerRejects(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]string
		qerr   error
		want   int
	}{
		{
			name:  "missing thread id",
			files: map[string]string{"metadata_file": "a.json", "wav_file": "a.wav"},
			want:  http.StatusBadRequest,
		},
		{
			name:   "missing wav",
			fields: map[string]string{"thread_id": "th", "ws_sid": "sid"},
			files:  map[string]string{"metadata_file": "a.json"},
			want:   http.StatusBadRequest,
		},
		{
			name:   "queue down",
			fields: map[string]string{"thread_id": "th", "ws_sid": "sid"},
			files:  map[string]string{"metadata_file": "a.json", "wav_file": "a.wav"},
			qerr:   errors.New("redis: connection refused"),
			want:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewTaskHandler(t.TempDir(), 10, &fakeQueue{err: tt.qerr}, metrics.New(prometheus.NewRegistry()))
			body, ct := multipartBody(t, tt.fields, tt.files)
			req := httptest.NewRequest(http.MethodPost, "/new_audio_processing_task", body)
			req.Header.Set("Content-Type", ct)
			rec := httptest.NewRecorder()
			h.Create(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestTaskHandlerTooLarge(t *testing.T) {
	h := NewTaskHandler(t.TempDir(), 0, &fakeQueue{}, metrics.New(prometheus.NewRegistry()))
	body, ct := multipartBody(t, map[string]string{"thread_id": "th", "ws_sid": "sid"}, map[string]string{"wav_file": "a.wav"})
	req := httptest.NewRequest(http.MethodPost, "/new_audio_processing_task", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

type flakyFile struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (f *flakyFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestWriteUploadReportsCloseError(t *testing.T) {
	tests := []struct {
		name     string
		closeErr error
	}{
		{"clean close", nil},
		{"flush fails on close", errors.New("no space left on device")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := &flakyFile{closeErr: tt.closeErr}
			err := writeUpload(dst, strings.NewReader("RIFF"))
			if !errors.Is(err, tt.closeErr) || (tt.closeErr == nil && err != nil) {
				t.Errorf("writeUpload() error = %v, want %v", err, tt.closeErr)
			}
			if !dst.closed {
				t.Error("file not closed")
			}
			if dst.String() != "RIFF" {
				t.Errorf("written = %q", dst.String())
			}
		})
	}
}

type fakePrompts struct {
	stored map[string]models.AgentPrompt
}

func (f *fakePrompts) Put(_ context.Context, agentID, step, text string) (*models.AgentPrompt, error) {
	p := models.AgentPrompt{AgentID: agentID, Step: step, Prompt: text}
	f.stored[agentID+"/"+step] = p
	return &p, nil
}

func (f *fakePrompts) Get(_ context.Context, agentID, step string) (*models.AgentPrompt, error) {
	p, ok := f.stored[agentID+"/"+step]
	if !ok {
		return nil, prompt.ErrNotFound
	}
	return &p, nil
}

func (f *fakePrompts) CacheAllSteps(_ context.Context, agentID string) (int, error) {
	n := 0
	for _, p := range f.stored {
		if p.AgentID == agentID {
			n++
		}
	}
	if n == 0 {
		return 0, prompt.ErrNotFound
	}
	return n, nil
}

func promptRouter(svc PromptService) http.Handler {
	h := NewPromptHandler(svc)
	r := chi.NewRouter()
	r.Put("/agents/{agentID}/prompts/{step}", h.Put)
	r.Get("/agents/{agentID}/prompts/{step}", h.Get)
	r.Post("/agents/{agentID}/prompts/cache", h.Cache)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPromptHandler(t *testing.T) {
	h := promptRouter(&fakePrompts{stored: map[string]models.AgentPrompt{}})

	if rec := do(t, h, http.MethodGet, "/agents/a1/prompts/1", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get missing = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/agents/a1/prompts/1", `{"prompt": ""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("put empty = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodPut, "/agents/a1/prompts/1", `{"prompt": "Walk me through the market size"}`); rec.Code != http.StatusOK {
		t.Fatalf("put = %d: %s", rec.Code, rec.Body.String())
	}

	rec := do(t, h, http.MethodGet, "/agents/a1/prompts/1", "")
	var got models.AgentPrompt
	json.NewDecoder(rec.Body).Decode(&got)
	if got.Prompt != "Walk me through the market size" {
		t.Errorf("get prompt = %q", got.Prompt)
	}

	rec = do(t, h, http.MethodPost, "/agents/a1/prompts/cache", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"cached":1`) {
		t.Errorf("cache = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, h, http.MethodPost, "/agents/none/prompts/cache", ""); rec.Code != http.StatusNotFound {
		t.Errorf("cache unknown agent = %d, want 404", rec.Code)
	}
}

type fakeFeedback struct {
	stored map[string]models.Feedback
}

func (f *fakeFeedback) Put(_ context.Context, fb models.Feedback) (*models.Feedback, error) {
	f.stored[fb.ThreadID] = fb
	return &fb, nil
}

func (f *fakeFeedback) Get(_ context.Context, threadID string, stepID int) (*models.Feedback, error) {
	fb, ok := f.stored[threadID]
	if !ok || fb.StepID != stepID {
		return nil, feedback.ErrNotFound
	}
	return &fb, nil
}

func TestFeedbackHandler(t *testing.T) {
	h := NewFeedbackHandler(&fakeFeedback{stored: map[string]models.Feedback{}})
	r := chi.NewRouter()
	r.Put("/threads/{threadID}/feedback/{stepID}", h.Put)
	r.Get("/threads/{threadID}/feedback/{stepID}", h.Get)

	tests := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/threads/th/feedback/2", "", http.StatusNotFound},
		{http.MethodPut, "/threads/th/feedback/x", `{"feedback": "ok"}`, http.StatusBadRequest},
		{http.MethodPut, "/threads/th/feedback/2", `{"feedback": ""}`, http.StatusBadRequest},
		{http.MethodPut, "/threads/th/feedback/2", `{"agent_id": "a1", "feedback": "clear structure"}`, http.StatusOK},
		{http.MethodGet, "/threads/th/feedback/2", "", http.StatusOK},
	}
	for _, tt := range tests {
		if rec := do(t, r, tt.method, tt.target, tt.body); rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}
}

type fakeAudioStatus map[int64]bool

func (f fakeAudioStatus) HasAudio(_ context.Context, _ string, createdAt int64) (bool, error) {
	return f[createdAt], nil
}

func TestMessageAudioStatus(t *testing.T) {
	h := NewMessageHandler(fakeAudioStatus{1000: true})
	r := chi.NewRouter()
	r.Get("/threads/{threadID}/messages/{createdAt}/audio", h.AudioStatus)

	rec := do(t, r, http.MethodGet, "/threads/th/messages/1000/audio", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"has_audio":true`) {
		t.Errorf("status = %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, http.MethodGet, "/threads/th/messages/abc/audio", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad created_at = %d, want 400", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	h := NewHealthHandler(map[string]Check{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"database":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
