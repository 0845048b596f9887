package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type AudioStatus interface {
	HasAudio(ctx context.Context, threadID string, createdAt int64) (bool, error)
}

type MessageHandler struct {
	store AudioStatus
}

func NewMessageHandler(store AudioStatus) *MessageHandler {
	return &MessageHandler{store: store}
}

// AudioStatus reports whether a clip was produced for the message.
func (h *MessageHandler) AudioStatus(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")
	createdAt, err := strconv.ParseInt(chi.URLParam(r, "createdAt"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid created_at")
		return
	}

	has, err := h.store.HasAudio(r.Context(), threadID, createdAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"thread_id":  threadID,
		"created_at": createdAt,
		"has_audio":  has,
	})
}
