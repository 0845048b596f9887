package transcript

import (
	"sort"
	"strconv"

	"github.com/prepit/audioproc/internal/models"
)

// ParseBoundaries converts the client's {epoch_ms_string: message_id} map into
// boundaries sorted by numeric timestamp.
func ParseBoundaries(raw map[string]string) ([]models.MessageBoundary, error) {
	boundaries := make([]models.MessageBoundary, 0, len(raw))
	seen := make(map[int64]string, len(raw))

	for key, msgID := range raw {
		ts, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, malformed("message timestamp %q: %v", key, err)
		}
		if ts < 0 {
			return nil, malformed("message timestamp %q is negative", key)
		}
		if msgID == "" {
			return nil, malformed("message timestamp %q has an empty message id", key)
		}
		if reservedKeys[msgID] {
			return nil, malformed("message id %q collides with a result field", msgID)
		}
		if prev, dup := seen[ts]; dup {
			return nil, malformed("messages %q and %q share timestamp %d", prev, msgID, ts)
		}
		seen[ts] = msgID
		boundaries = append(boundaries, models.MessageBoundary{Timestamp: ts, MessageID: msgID})
	}

	sortBoundaries(boundaries)
	return boundaries, nil
}

func sortBoundaries(b []models.MessageBoundary) {
	sort.Slice(b, func(i, j int) bool { return b[i].Timestamp < b[j].Timestamp })
}

// Segment partitions entries into one span per boundary by entry Timestamp.
//
// The span of boundary i covers [boundary[i-1], boundary[i]), the first one starting
// at 0: speech recorded before a message was sent belongs to that message. Entries at
// or after the last boundary also belong to the last message and extend its span
// instead of opening a second one, so each message owns one contiguous span.
func Segment(entries []models.TranscriptEntry, boundaries []models.MessageBoundary) []models.MessageSpan {
	if len(boundaries) == 0 {
		return nil
	}

	sorted := make([]models.MessageBoundary, len(boundaries))
	copy(sorted, boundaries)
	sortBoundaries(sorted)

	spans := make([]models.MessageSpan, len(sorted))
	for i, b := range sorted {
		spans[i] = models.MessageSpan{MessageID: b.MessageID, CreatedAt: b.Timestamp}
	}

	var trailing []models.TranscriptEntry
	for _, e := range entries {
		idx := sort.Search(len(sorted), func(i int) bool {
			return e.Timestamp < sorted[i].Timestamp
		})
		if idx == len(sorted) {
			trailing = append(trailing, e)
			continue
		}
		spans[idx].Entries = append(spans[idx].Entries, e)
	}

	last := &spans[len(spans)-1]
	last.Entries = append(last.Entries, trailing...)

	return spans
}
