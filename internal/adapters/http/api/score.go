// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rkoyama/zircon/internal/adapters/repository"
	service "github.com/rkoyama/zircon/internal/app"
	"github.com/rkoyama/zircon/internal/domain/model"
)

// ScoreHandler handles score submission and score read requests.
type ScoreHandler struct {
	deps Dependencies
}

// NewScoreHandler creates a new score handler.
func NewScoreHandler(deps Dependencies) *ScoreHandler {
	return &ScoreHandler{deps: deps}
}

// HandlePostScore handles POST /score/song?user=N requests.
func (h *ScoreHandler) HandlePostScore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	userID, err := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
	if err != nil || userID < 0 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	var sub model.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	snap, err := h.deps.SubmitScore(r.Context(), userID, sub)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSubmission):
			writeError(w, http.StatusBadRequest, "bad_request", err)
		case errors.Is(err, service.ErrBadToken):
			writeError(w, http.StatusBadRequest, "bad_token", err)
		case errors.Is(err, service.ErrChartNotFound):
			writeError(w, http.StatusNotFound, "chart_not_found", err)
		case errors.Is(err, repository.ErrConflict):
			writeError(w, http.StatusConflict, "conflict", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, ratingResponse{UserID: snap.UserID, Rating: snap.Rating})
}

// HandleGetToken handles GET /score/token requests.
func (h *ScoreHandler) HandleGetToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: h.deps.IssueToken(r.Context())})
}

// HandleGetLookup handles GET /score/lookup/{user} requests.
func (h *ScoreHandler) HandleGetLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathUserID(r.URL.Path, "/score/lookup/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	views, err := h.deps.Leaderboard(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// HandleGetBackup handles GET /score/backup/{user} requests. The payload is
// the raw personal-best events, replayable through POST /score/song.
func (h *ScoreHandler) HandleGetBackup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	userID, ok := pathUserID(r.URL.Path, "/score/backup/")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	events, err := h.deps.PersonalBests(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
