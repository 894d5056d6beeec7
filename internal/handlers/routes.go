package handlers

import (
	"net/http"

	"github.com/jwebster45206/emerald-altar/internal/auth"
	"github.com/jwebster45206/emerald-altar/internal/middleware"
)

// Register mounts the versioned API on mux. Everything but register and
// login requires a bearer token.
func Register(mux *http.ServeMux, tokens *auth.Tokens, authH *AuthHandler, chars *CharacterHandler) {
	mux.HandleFunc("POST /v1/auth/register", authH.Register)
	mux.HandleFunc("POST /v1/auth/login", authH.Login)

	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, middleware.RequireAuth(tokens, h))
	}

	protected("GET /v1/characters", chars.List)
	protected("POST /v1/characters", chars.Create)
	protected("GET /v1/characters/{id}", chars.Get)
	protected("PATCH /v1/characters/{id}/vitals", chars.PatchVitals)
	protected("GET /v1/characters/{id}/inventory", chars.Inventory)
	protected("POST /v1/characters/{id}/items/{itemID}/equip", chars.Equip)
	protected("GET /v1/characters/{id}/chat", chars.ChatHistory)
	protected("POST /v1/characters/{id}/chat", chars.Chat)
	protected("GET /v1/characters/{id}/quests", chars.ListQuests)
	protected("POST /v1/characters/{id}/quests", chars.CreateQuest)
	protected("POST /v1/characters/{id}/quests/{questID}/complete", chars.CompleteQuest)
	protected("POST /v1/characters/{id}/avatar", chars.Avatar)
	protected("POST /v1/bio", chars.Bio)
}
