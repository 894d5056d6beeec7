package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jwebster45206/emerald-altar/internal/auth"
	"github.com/jwebster45206/emerald-altar/internal/middleware"
	"github.com/jwebster45206/emerald-altar/internal/narrative"
	"github.com/jwebster45206/emerald-altar/internal/services"
	"github.com/jwebster45206/emerald-altar/pkg/game"
	"github.com/jwebster45206/emerald-altar/pkg/storage"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		middleware.LoggerFrom(r.Context()).Error("Failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, errorResponse{Error: msg})
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// writeErr maps domain errors to statuses and logs anything unexpected.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, narrative.ErrQuestCompleted):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNotEquippable):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, narrative.ErrNameRequired):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrNotConfigured):
		writeError(w, r, http.StatusServiceUnavailable, narrative.ApologyNotConfigured)
	case errors.Is(err, services.ErrRateLimited):
		writeError(w, r, http.StatusServiceUnavailable, narrative.ApologyRateLimited)
	case errors.Is(err, narrative.ErrInvalidQuest), narrative.IsModelError(err):
		middleware.LoggerFrom(r.Context()).Warn("Model request failed", "error", err)
		writeError(w, r, http.StatusBadGateway, narrative.ApologyGeneric)
	default:
		middleware.LoggerFrom(r.Context()).Error("Request failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}
