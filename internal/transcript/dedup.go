package transcript

import "github.com/prepit/audioproc/internal/models"

// Dedup collapses revised hypotheses so that at most one entry remains per start
// offset. A final hypothesis is never replaced; a partial one is replaced by whatever
// arrives next for the same offset. Output keeps first-occurrence order.
func Dedup(entries []models.TranscriptEntry) []models.TranscriptEntry {
	index := make(map[float64]int, len(entries))
	out := make([]models.TranscriptEntry, 0, len(entries))

	for _, e := range entries {
		i, seen := index[e.Start]
		if !seen {
			index[e.Start] = len(out)
			out = append(out, e)
			continue
		}
		if !out[i].IsFinal {
			out[i] = e
		}
	}
	return out
}
