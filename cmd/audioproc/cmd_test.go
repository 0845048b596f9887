package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prepit/audioproc/internal/audio"
)

const metadata = `{
	"audio_timestamps": [
		{"start": 0.5, "duration": 0.3, "text": "hi", "is_final": true, "timestamp": 200},
		{"start": 1.5, "duration": 0.2, "text": "there", "is_final": true, "timestamp": 1500}
	],
	"audio_started_at": 0,
	"user_msg_timestamps": {"1000": "m1"},
	"thread_id": "th-1",
	"ws_conn_sid": "sid-1"
}`

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	mdPath := filepath.Join(dir, "rec.json")
	if err := os.WriteFile(mdPath, []byte(metadata), 0o644); err != nil {
		t.Fatal(err)
	}

	wf := audio.NewWaveform(make([]int, 2000), 1000, 1, 16)
	data, err := audio.EncodeWAV(wf.Slice(0, wf.Seconds()), 16)
	if err != nil {
		t.Fatal(err)
	}
	wavPath := filepath.Join(dir, "rec.wav")
	if err := os.WriteFile(wavPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return wavPath, mdPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSegmentCommand(t *testing.T) {
	_, mdPath := writeInputs(t)

	out, err := run(t, "segment", "-q", mdPath)
	if err != nil {
		t.Fatalf("segment: %v", err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	for _, key := range []string{"m1", "thread_id", "ws_conn_sid"} {
		if _, ok := got[key]; !ok {
			t.Errorf("output missing %s", key)
		}
	}
}

func TestProcessCommand(t *testing.T) {
	wavPath, mdPath := writeInputs(t)
	outDir := t.TempDir()

	out, err := run(t, "process", "-q", "-o", outDir, "-f", "wav", wavPath, mdPath)
	if err != nil {
		t.Fatalf("process: %v\n%s", err, out)
	}
	if !strings.Contains(out, "m1") {
		t.Errorf("output = %s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "th-1", "sid-1", "m1.wav")); err != nil {
		t.Errorf("clip missing: %v", err)
	}
}

func TestProcessRejectsFormat(t *testing.T) {
	wavPath, mdPath := writeInputs(t)
	if _, err := run(t, "process", "-q", "-f", "ogg", wavPath, mdPath); err == nil {
		t.Error("expected error for unsupported format")
	}
}
