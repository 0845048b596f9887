package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TranscriptEntry is one ASR hypothesis. Start and Duration are seconds relative to
// the recording start; Timestamp is the wall-clock time (epoch ms) attached by the client.
type TranscriptEntry struct {
	Start         float64   `json:"start"`
	Duration      float64   `json:"duration"`
	Text          string    `json:"text"`
	IsFinal       bool      `json:"is_final"`
	Timestamp     int64     `json:"timestamp"`
	AbsoluteStart time.Time `json:"absolute_start"`
}

// End returns the relative end offset in seconds.
func (e TranscriptEntry) End() float64 {
	return e.Start + e.Duration
}

// PauseInterval is a period (epoch ms) during which recording was paused.
// On the wire it is a two-element array: [start, end].
type PauseInterval struct {
	Start int64
	End   int64
}

func (p PauseInterval) Duration() int64 {
	return p.End - p.Start
}

func (p *PauseInterval) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("pause interval: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("pause interval: want [start, end], got %d values", len(pair))
	}
	p.Start = int64(pair[0])
	p.End = int64(pair[1])
	return nil
}

func (p PauseInterval) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{p.Start, p.End})
}

type MessageBoundary struct {
	Timestamp int64  `json:"timestamp"`
	MessageID string `json:"message_id"`
}

// MessageSpan groups the transcript entries that belong to one chat message.
type MessageSpan struct {
	MessageID string
	CreatedAt int64
	Entries   []TranscriptEntry
}

type EntryMetadata struct {
	Text          string    `json:"text"`
	RelativeStart float64   `json:"relative_start"`
	AbsoluteStart time.Time `json:"abs_start"`
	Duration      float64   `json:"duration"`
}

type ProcessedMessage struct {
	MessageID     string          `json:"message_id"`
	CreatedAt     int64           `json:"created_at"`
	RelativeStart float64         `json:"relative_start"`
	RelativeEnd   float64         `json:"relative_end"`
	Metadata      []EntryMetadata `json:"metadata"`
}

type JobContext struct {
	ThreadID            string `json:"thread_id"`
	ConnectionSessionID string `json:"ws_conn_sid"`
}

// RecordingMetadata is the validated form of the metadata file uploaded with a recording.
type RecordingMetadata struct {
	Entries    []TranscriptEntry
	StartedAt  int64
	Pauses     []PauseInterval
	Boundaries []MessageBoundary
	Job        JobContext
}
