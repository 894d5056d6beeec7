package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/emerald-altar/internal/middleware"
	"github.com/jwebster45206/emerald-altar/internal/narrative"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

// CharacterHandler serves a player's characters and everything hanging off
// them. Characters owned by someone else answer 404.
type CharacterHandler struct {
	store    storage.Storage
	pipeline *narrative.Pipeline
	logger   *slog.Logger
}

func NewCharacterHandler(store storage.Storage, pipeline *narrative.Pipeline, logger *slog.Logger) *CharacterHandler {
	return &CharacterHandler{store: store, pipeline: pipeline, logger: logger}
}

type characterView struct {
	*game.Character
	Level int `json:"level"`
}

func viewOf(c *game.Character) characterView {
	return characterView{Character: c, Level: c.Level()}
}

// owned loads the {id} character if the caller owns it. It writes the error
// response itself and reports false on failure.
func (h *CharacterHandler) owned(w http.ResponseWriter, r *http.Request) (*game.Character, bool) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	c, err := h.store.GetCharacter(r.Context(), id)
	if err == nil && c.UserID != p.UserID {
		err = storage.ErrNotFound
	}
	if err != nil {
		writeErr(w, r, err)
		return nil, false
	}
	return c, true
}

func (h *CharacterHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	chars, err := h.store.ListCharacters(r.Context(), p.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	views := make([]characterView, 0, len(chars))
	for i := range chars {
		views = append(views, viewOf(&chars[i]))
	}
	writeJSON(w, r, http.StatusOK, views)
}

type createCharacterRequest struct {
	Name        string `json:"name"`
	Race        string `json:"race"`
	Class       string `json:"class"`
	Description string `json:"description"`
}

func (h *CharacterHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var req createCharacterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeErr(w, r, narrative.ErrNameRequired)
		return
	}

	c := game.NewCharacter(p.UserID, strings.TrimSpace(req.Name), strings.TrimSpace(req.Race), strings.TrimSpace(req.Class))
	c.Description = strings.TrimSpace(req.Description)
	if err := h.store.CreateCharacter(r.Context(), c); err != nil {
		writeErr(w, r, err)
		return
	}

	h.logger.Info("Character created", "character_id", c.ID, "user_id", p.UserID)
	writeJSON(w, r, http.StatusCreated, viewOf(c))
}

func (h *CharacterHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, viewOf(c))
}

// PatchVitals adjusts HP and MP by signed amounts, clamped to the maxima.
func (h *CharacterHandler) PatchVitals(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	var change game.VitalsChange
	if err := decodeJSON(r, &change); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.store.AdjustVitals(r.Context(), c.ID, change)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (h *CharacterHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	inv, err := h.store.ListInventory(r.Context(), c.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if inv == nil {
		inv = []game.InventoryEntry{}
	}
	writeJSON(w, r, http.StatusOK, inv)
}

type equipRequest struct {
	// Equipped defaults to true when omitted.
	Equipped *bool `json:"equipped"`
}

func (h *CharacterHandler) Equip(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	itemID, err := pathID(r, "itemID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req equipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	equipped := req.Equipped == nil || *req.Equipped

	entry, err := h.store.SetItemEquipped(r.Context(), c.ID, itemID, equipped)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, entry)
}

func (h *CharacterHandler) Avatar(w http.ResponseWriter, r *http.Request) {
	c, ok := h.owned(w, r)
	if !ok {
		return
	}
	updated, err := h.pipeline.GenerateAvatar(r.Context(), c.ID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, viewOf(updated))
}

type bioRequest struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

type bioResponse struct {
	Bio string `json:"bio"`
}

// Bio drafts a backstory before the character exists.
func (h *CharacterHandler) Bio(w http.ResponseWriter, r *http.Request) {
	var req bioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	bio, err := h.pipeline.GenerateBio(r.Context(), req.Name, req.Class)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, bioResponse{Bio: bio})
}
