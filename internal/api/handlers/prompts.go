package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/prepit/audioproc/internal/models"
	"github.com/prepit/audioproc/internal/prompt"
)

type PromptService interface {
	Put(ctx context.Context, agentID, step, text string) (*models.AgentPrompt, error)
	Get(ctx context.Context, agentID, step string) (*models.AgentPrompt, error)
	CacheAllSteps(ctx context.Context, agentID string) (int, error)
}

type PromptHandler struct {
	svc PromptService
}

func NewPromptHandler(svc PromptService) *PromptHandler {
	return &PromptHandler{svc: svc}
}

func (h *PromptHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt required")
		return
	}

	p, err := h.svc.Put(r.Context(), chi.URLParam(r, "agentID"), chi.URLParam(r, "step"), req.Prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "agentID"), chi.URLParam(r, "step"))
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, "prompt not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Cache loads every step of an agent into the cache.
func (h *PromptHandler) Cache(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	n, err := h.svc.CacheAllSteps(r.Context(), agentID)
	if errors.Is(err, prompt.ErrNotFound) {
		writeError(w, http.StatusNotFound, "agent has no prompts")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agent_id": agentID, "cached": n})
}
