package transcript

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prepit/audioproc/internal/models"
)

const sampleMetadata = `{
	"audio_timestamps": [
		{"start": 0.5, "duration": 0.3, "text": "hi", "is_final": true, "timestamp": 200},
		{"start": 1.5, "duration": 0.2, "text": "there", "is_final": true, "timestamp": 1500}
	],
	"audio_started_at": 0,
	"audio_pause_timestamps": [],
	"user_msg_timestamps": {"1000": "m1"},
	"thread_id": "th-1",
	"ws_conn_sid": "sid-1"
}`

func TestProcess_EndToEndSample(t *testing.T) {
	md, err := ParseMetadata([]byte(sampleMetadata))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}

	res, err := Process(md)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	// The entry at 200ms falls in [0, 1000) and the one at 1500ms in the trailing
	// window; with a single boundary both windows belong to m1.
	if len(res.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(res.Messages))
	}
	m1, ok := res.Messages["m1"]
	if !ok {
		t.Fatal("missing m1")
	}
	if m1.RelativeStart != 0.5 {
		t.Errorf("RelativeStart = %v, want 0.5", m1.RelativeStart)
	}
	if m1.RelativeEnd != 1.7 {
		t.Errorf("RelativeEnd = %v, want 1.7", m1.RelativeEnd)
	}
	if len(m1.Metadata) != 2 {
		t.Fatalf("metadata = %d entries, want 2", len(m1.Metadata))
	}
	if want := time.UnixMilli(1500).UTC(); !m1.Metadata[1].AbsoluteStart.Equal(want) {
		t.Errorf("AbsoluteStart = %v, want %v", m1.Metadata[1].AbsoluteStart, want)
	}
	if res.Job.ThreadID != "th-1" || res.Job.ConnectionSessionID != "sid-1" {
		t.Errorf("job = %+v", res.Job)
	}
}

func TestProcess_WithPause(t *testing.T) {
	md, err := ParseMetadata([]byte(`{
		"audio_timestamps": [{"start": 5, "duration": 1, "text": "x", "is_final": true, "timestamp": 1719792007000}],
		"audio_started_at": 1719792000000,
		"audio_pause_timestamps": [[1719792001000, 1719792003000]],
		"user_msg_timestamps": {"1719792010000": "m1"},
		"thread_id": "t", "ws_conn_sid": "s"
	}`))
	if err != nil {
		t.Fatalf("ParseMetadata: %v", err)
	}
	res, err := Process(md)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	got := res.Messages["m1"].Metadata[0].AbsoluteStart
	if want := time.UnixMilli(1719792007000).UTC(); !got.Equal(want) {
		t.Errorf("AbsoluteStart = %v, want %v", got, want)
	}
}

func TestProcess_NothingToProcess(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"no transcript", `{"audio_started_at": 0, "user_msg_timestamps": {"1": "m"}, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"empty transcript", `{"audio_timestamps": [], "audio_started_at": 0, "user_msg_timestamps": {"1": "m"}, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"no messages", `{"audio_timestamps": [{"start": 0, "duration": 1, "timestamp": 5}], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"empty messages", `{"audio_timestamps": [{"start": 0, "duration": 1, "timestamp": 5}], "audio_started_at": 0, "user_msg_timestamps": {}, "thread_id": "t", "ws_conn_sid": "s"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := ParseMetadata([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseMetadata: %v", err)
			}
			if _, err := Process(md); !errors.Is(err, ErrNothingToProcess) {
				t.Errorf("err = %v, want ErrNothingToProcess", err)
			}
		})
	}
}

func TestParseMetadata_Malformed(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"not json", `{"audio_timestamps": [`},
		{"missing started_at", `{"thread_id": "t", "ws_conn_sid": "s"}`},
		{"missing thread", `{"audio_started_at": 0, "ws_conn_sid": "s"}`},
		{"missing sid", `{"audio_started_at": 0, "thread_id": "t"}`},
		{"entry without timestamp", `{"audio_timestamps": [{"start": 0, "duration": 1}], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"entry without start", `{"audio_timestamps": [{"duration": 1, "timestamp": 1}], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"bad pause", `{"audio_pause_timestamps": [[1]], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"reversed pause", `{"audio_pause_timestamps": [[5, 1]], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"overlapping pauses", `{"audio_pause_timestamps": [[1, 5], [4, 8]], "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
		{"bad boundary", `{"user_msg_timestamps": {"soon": "m"}, "audio_started_at": 0, "thread_id": "t", "ws_conn_sid": "s"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMetadata([]byte(tt.json))
			if !errors.Is(err, ErrMalformedInput) {
				t.Fatalf("err = %v, want ErrMalformedInput", err)
			}
			var se *StageError
			if !errors.As(err, &se) || se.Stage != StageParse {
				t.Errorf("err = %v, want parse StageError", err)
			}
		})
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	md, _ := ParseMetadata([]byte(sampleMetadata))
	res, _ := Process(md)

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	for _, key := range []string{"m1", "thread_id", "ws_conn_sid"} {
		if _, ok := out[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}

	var m1 struct {
		Metadata []struct {
			AbsStart string `json:"abs_start"`
		} `json:"metadata"`
	}
	if err := json.Unmarshal(out["m1"], &m1); err != nil {
		t.Fatalf("Unmarshal m1: %v", err)
	}
	if _, err := time.Parse(time.RFC3339Nano, m1.Metadata[0].AbsStart); err != nil {
		t.Errorf("abs_start %q is not ISO-8601: %v", m1.Metadata[0].AbsStart, err)
	}
}

func TestResult_MarshalJSONRejectsShadowedField(t *testing.T) {
	res := &Result{
		Job: models.JobContext{ThreadID: "th", ConnectionSessionID: "s"},
		Messages: map[string]models.ProcessedMessage{
			"thread_id": {MessageID: "thread_id", CreatedAt: 1000, RelativeEnd: 1},
		},
		Order: []string{"thread_id"},
	}

	if data, err := json.Marshal(res); err == nil {
		t.Errorf("Marshal = %s, want error for message id thread_id", data)
	}
}

func TestProcess_Deterministic(t *testing.T) {
	md, _ := ParseMetadata([]byte(sampleMetadata))
	a, _ := Process(md)
	b, _ := Process(md)

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("Process output differs between runs:\n%s\n%s", ja, jb)
	}
}
