package transcript

import (
	"time"

	"github.com/prepit/audioproc/internal/models"
)

// Timeline converts ASR offsets to wall-clock time.
//
// ASR offsets only advance while the recorder is running, so everything is compared on
// the active timeline: milliseconds of actual recording since the start, pauses excluded.
// Pause intervals arrive as epoch ms and are converted once, at construction.
type Timeline struct {
	startedAt int64
	pauses    []activePause
}

type activePause struct {
	at       float64 // active ms at which the pause began
	duration int64
}

// NewTimeline expects pauses in chronological order without overlap.
func NewTimeline(startedAt int64, pauses []models.PauseInterval) *Timeline {
	t := &Timeline{startedAt: startedAt, pauses: make([]activePause, 0, len(pauses))}

	var paused int64
	for _, p := range pauses {
		t.pauses = append(t.pauses, activePause{
			at:       float64(p.Start - startedAt - paused),
			duration: p.Duration(),
		})
		paused += p.Duration()
	}
	return t
}

// PauseOffset returns the total pause time (ms) that elapsed before the given
// active offset (seconds).
func (t *Timeline) PauseOffset(relative float64) int64 {
	ms := relative * 1000

	var offset int64
	for _, p := range t.pauses {
		if ms < p.at {
			break
		}
		offset += p.duration
	}
	return offset
}

// Absolute maps an ASR offset (seconds) to wall-clock time in UTC.
func (t *Timeline) Absolute(relative float64) time.Time {
	base := time.UnixMilli(t.startedAt + t.PauseOffset(relative))
	return base.Add(time.Duration(relative * float64(time.Second))).UTC()
}

// Map returns copies of entries with AbsoluteStart filled in.
func (t *Timeline) Map(entries []models.TranscriptEntry) []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, len(entries))
	for i, e := range entries {
		e.AbsoluteStart = t.Absolute(e.Start)
		out[i] = e
	}
	return out
}
