package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/jwebster45206/emerald-altar/internal/auth"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

const minPasswordLength = 8

type AuthHandler struct {
	store  storage.Storage
	tokens *auth.Tokens
	logger *slog.Logger
}

func NewAuthHandler(store storage.Storage, tokens *auth.Tokens, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, tokens: tokens, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *game.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, r, http.StatusBadRequest, "username is required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, r, http.StatusBadRequest, "a valid email is required")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, r, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	u := &game.User{Username: req.Username, Email: req.Email, PasswordHash: hash}
	if err := h.store.CreateUser(r.Context(), u); err != nil {
		writeErr(w, r, err)
		return
	}

	h.logger.Info("User registered", "user_id", u.ID, "username", u.Username)
	h.respondToken(w, r, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.store.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if errors.Is(err, storage.ErrNotFound) {
		writeErr(w, r, auth.ErrInvalidCredentials)
		return
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if err := auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		writeErr(w, r, err)
		return
	}

	h.respondToken(w, r, http.StatusOK, u)
}

func (h *AuthHandler) respondToken(w http.ResponseWriter, r *http.Request, status int, u *game.User) {
	token, expires, err := h.tokens.Issue(u.ID, u.Username)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, r, status, tokenResponse{Token: token, ExpiresAt: expires, User: u})
}
