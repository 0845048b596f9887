package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prepit/audioproc/internal/feedback"
	"github.com/prepit/audioproc/internal/models"
)

type FeedbackStore interface {
	Put(ctx context.Context, fb models.Feedback) (*models.Feedback, error)
	Get(ctx context.Context, threadID string, stepID int) (*models.Feedback, error)
}

type FeedbackHandler struct {
	store FeedbackStore
}

func NewFeedbackHandler(store FeedbackStore) *FeedbackHandler {
	return &FeedbackHandler{store: store}
}

func (h *FeedbackHandler) Put(w http.ResponseWriter, r *http.Request) {
	stepID, err := strconv.Atoi(chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid step ID")
		return
	}

	var req struct {
		AgentID  string `json:"agent_id"`
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Feedback == "" {
		writeError(w, http.StatusBadRequest, "feedback required")
		return
	}

	fb, err := h.store.Put(r.Context(), models.Feedback{
		ThreadID: chi.URLParam(r, "threadID"),
		StepID:   stepID,
		AgentID:  req.AgentID,
		Feedback: req.Feedback,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	stepID, err := strconv.Atoi(chi.URLParam(r, "stepID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid step ID")
		return
	}

	fb, err := h.store.Get(r.Context(), chi.URLParam(r, "threadID"), stepID)
	if errors.Is(err, feedback.ErrNotFound) {
		writeError(w, http.StatusNotFound, "feedback not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, fb)
}
