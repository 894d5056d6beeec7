package handlers

import (
	"net/http"

	"github.com/jwebster45206/emerald-altar/pkg/game"
)

func (h *CharacterHandler) ListQuests(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	quests, err := h.store.ListQuests(r.Context(), c.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if quests == nil {
		quests = []game.Quest{}
	}
	writeJSON(w, r, http.StatusOK, quests)
}

type createQuestRequest struct {
	Difficulty string `json:"difficulty"`
	Type       string `json:"type"`
}

func (h *CharacterHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	var req createQuestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}
	if req.Type == "" {
		req.Type = "adventure"
	}

	quest, err := h.pipeline.GenerateQuest(r.Context(), c.ID, req.Difficulty, req.Type)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, quest)
}

func (h *CharacterHandler) CompleteQuest(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	questID, err := pathID(r, "questID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	done, err := h.pipeline.CompleteQuest(r.Context(), c.ID, questID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, done)
}
