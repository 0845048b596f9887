package transcript

import "github.com/prepit/audioproc/internal/models"

// Aggregate reduces spans to per-message summaries keyed by message id, skipping
// spans without entries. The returned order lists message ids by first span.
//
// A message id that owns several spans gets their entries concatenated in span order.
func Aggregate(spans []models.MessageSpan) (map[string]models.ProcessedMessage, []string) {
	grouped := make(map[string]*models.MessageSpan, len(spans))
	var order []string

	for _, s := range spans {
		if len(s.Entries) == 0 {
			continue
		}
		g, ok := grouped[s.MessageID]
		if !ok {
			g = &models.MessageSpan{MessageID: s.MessageID}
			grouped[s.MessageID] = g
			order = append(order, s.MessageID)
		}
		g.CreatedAt = s.CreatedAt
		g.Entries = append(g.Entries, s.Entries...)
	}

	out := make(map[string]models.ProcessedMessage, len(grouped))
	for _, id := range order {
		out[id] = summarize(grouped[id])
	}
	return out, order
}

func summarize(s *models.MessageSpan) models.ProcessedMessage {
	pm := models.ProcessedMessage{
		MessageID:     s.MessageID,
		CreatedAt:     s.CreatedAt,
		RelativeStart: s.Entries[0].Start,
		RelativeEnd:   s.Entries[0].End(),
		Metadata:      make([]models.EntryMetadata, 0, len(s.Entries)),
	}

	for _, e := range s.Entries {
		if e.Start < pm.RelativeStart {
			pm.RelativeStart = e.Start
		}
		if e.End() > pm.RelativeEnd {
			pm.RelativeEnd = e.End()
		}
		pm.Metadata = append(pm.Metadata, models.EntryMetadata{
			Text:          e.Text,
			RelativeStart: e.Start,
			AbsoluteStart: e.AbsoluteStart,
			Duration:      e.Duration,
		})
	}
	return pm
}
