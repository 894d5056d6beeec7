package handlers

import (
	"net/http"
	"strconv"

	"github.com/jwebster45206/emerald-altar/pkg/chat"
	"github.com/jwebster45206/emerald-altar/pkg/game"
)

func (h *CharacterHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	history, err := h.pipeline.History(r.Context(), c.ID, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if history == nil {
		history = []game.ChatMessage{}
	}
	writeJSON(w, r, http.StatusOK, history)
}

// Chat runs one narrator turn. A failed model call still answers 200 with
// an apology and failed set.
func (h *CharacterHandler) Chat(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req chat.ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.pipeline.Turn(r.Context(), c.ID, req.Message)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
