package transcript

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/prepit/audioproc/internal/models"
)

type rawMetadata struct {
	AudioTimestamps      []rawEntry             `json:"audio_timestamps"`
	AudioStartedAt       *int64                 `json:"audio_started_at"`
	AudioPauseTimestamps []models.PauseInterval `json:"audio_pause_timestamps"`
	UserMsgTimestamps    map[string]string      `json:"user_msg_timestamps"`
	ThreadID             *string                `json:"thread_id"`
	WSConnSID            *string                `json:"ws_conn_sid"`
}

type rawEntry struct {
	Start     *float64 `json:"start"`
	Duration  *float64 `json:"duration"`
	Text      string   `json:"text"`
	IsFinal   bool     `json:"is_final"`
	Timestamp *int64   `json:"timestamp"`
}

// ParseMetadata validates a metadata record. Required keys are checked here so the
// later stages can assume well-formed input. An empty transcript or message map is
// valid; Process reports it as ErrNothingToProcess.
func ParseMetadata(data []byte) (*models.RecordingMetadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, malformed("decode metadata: %v", err)
	}

	switch {
	case raw.AudioStartedAt == nil:
		return nil, malformed("missing audio_started_at")
	case raw.ThreadID == nil || *raw.ThreadID == "":
		return nil, malformed("missing thread_id")
	case raw.WSConnSID == nil || *raw.WSConnSID == "":
		return nil, malformed("missing ws_conn_sid")
	}

	md := &models.RecordingMetadata{
		StartedAt: *raw.AudioStartedAt,
		Job: models.JobContext{
			ThreadID:            *raw.ThreadID,
			ConnectionSessionID: *raw.WSConnSID,
		},
		Entries: make([]models.TranscriptEntry, 0, len(raw.AudioTimestamps)),
	}

	for i, e := range raw.AudioTimestamps {
		switch {
		case e.Start == nil:
			return nil, malformed("audio_timestamps[%d]: missing start", i)
		case e.Duration == nil:
			return nil, malformed("audio_timestamps[%d]: missing duration", i)
		case e.Timestamp == nil:
			return nil, malformed("audio_timestamps[%d]: missing timestamp", i)
		case *e.Start < 0 || *e.Duration < 0:
			return nil, malformed("audio_timestamps[%d]: negative start or duration", i)
		case *e.Timestamp < 0:
			return nil, malformed("audio_timestamps[%d]: negative timestamp", i)
		}
		md.Entries = append(md.Entries, models.TranscriptEntry{
			Start:     *e.Start,
			Duration:  *e.Duration,
			Text:      e.Text,
			IsFinal:   e.IsFinal,
			Timestamp: *e.Timestamp,
		})
	}

	for i, p := range raw.AudioPauseTimestamps {
		if p.End < p.Start {
			return nil, malformed("audio_pause_timestamps[%d]: end %d before start %d", i, p.End, p.Start)
		}
		if i > 0 && p.Start < raw.AudioPauseTimestamps[i-1].End {
			return nil, malformed("audio_pause_timestamps[%d]: overlaps previous pause", i)
		}
	}
	md.Pauses = raw.AudioPauseTimestamps

	boundaries, err := ParseBoundaries(raw.UserMsgTimestamps)
	if err != nil {
		return nil, err
	}
	md.Boundaries = boundaries

	return md, nil
}

// LoadMetadata reads and validates a metadata file.
func LoadMetadata(path string) (*models.RecordingMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	return ParseMetadata(data)
}
