// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
	"strconv"
	"strings"
)

// PlayerHandler handles player profile requests.
type PlayerHandler struct {
	deps Dependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps Dependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleGetRating handles GET /player/{user}/rating requests.
func (h *PlayerHandler) HandleGetRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/player/")
	seg, op, ok := strings.Cut(rest, "/")
	if !ok || op != "rating" {
		http.NotFound(w, r)
		return
	}
	userID, err := strconv.ParseInt(seg, 10, 64)
	if err != nil || userID < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	snap, err := h.deps.PlayerRating(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{UserID: snap.UserID, Rating: snap.Rating})
}
