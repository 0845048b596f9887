package transcript

import (
	"encoding/json"
	"fmt"

	"github.com/prepit/audioproc/internal/models"
)

// Result is the per-recording output of the transcript stages.
type Result struct {
	Job      models.JobContext
	Messages map[string]models.ProcessedMessage
	// Order lists message ids in ascending boundary order.
	Order []string
	// Dropped counts hypotheses removed by deduplication.
	Dropped int
}

// MarshalJSON writes the processed-result artifact: message id -> summary, plus
// thread_id and ws_conn_sid at the top level.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Messages)+2)
	out["thread_id"] = r.Job.ThreadID
	out["ws_conn_sid"] = r.Job.ConnectionSessionID
	for id, msg := range r.Messages {
		if reservedKeys[id] {
			return nil, fmt.Errorf("message id %q collides with a result field", id)
		}
		out[id] = msg
	}
	return json.Marshal(out)
}

// reservedKeys are the top-level result fields that message ids must not shadow.
var reservedKeys = map[string]bool{
	"thread_id":   true,
	"ws_conn_sid": true,
}

// Process runs dedup, absolute-time mapping, segmentation and aggregation.
// Output is deterministic for identical input.
func Process(md *models.RecordingMetadata) (*Result, error) {
	if len(md.Entries) == 0 || len(md.Boundaries) == 0 {
		return nil, ErrNothingToProcess
	}

	cleaned := Dedup(md.Entries)
	absolute := NewTimeline(md.StartedAt, md.Pauses).Map(cleaned)
	spans := Segment(absolute, md.Boundaries)
	messages, order := Aggregate(spans)

	return &Result{
		Job:      md.Job,
		Messages: messages,
		Order:    order,
		Dropped:  len(md.Entries) - len(cleaned),
	}, nil
}
