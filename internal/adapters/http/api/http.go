// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rkoyama/zircon/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// SubmitScore processes one play and returns the recomputed rating.
	SubmitScore(ctx context.Context, userID int64, sub model.ScoreSubmission) (model.RatingSnapshot, error)

	// IssueToken mints a submission token.
	IssueToken(ctx context.Context) string

	// Read operations expose score projections.
	Leaderboard(ctx context.Context, userID int64) ([]model.ScoredChartView, error)
	PersonalBests(ctx context.Context, userID int64) ([]model.ScoreEvent, error)
	PlayerRating(ctx context.Context, userID int64) (model.RatingSnapshot, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	scoreHandler  *ScoreHandler
	playerHandler *PlayerHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		scoreHandler:  NewScoreHandler(deps),
		playerHandler: NewPlayerHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/score/song", MetricsMiddleware(s.scoreHandler.HandlePostScore, "score_song"))
	mux.HandleFunc("/score/token", MetricsMiddleware(s.scoreHandler.HandleGetToken, "score_token"))
	mux.HandleFunc("/score/lookup/", MetricsMiddleware(s.scoreHandler.HandleGetLookup, "score_lookup"))
	mux.HandleFunc("/score/backup/", MetricsMiddleware(s.scoreHandler.HandleGetBackup, "score_backup"))
	mux.HandleFunc("/player/", MetricsMiddleware(s.playerHandler.HandleGetRating, "player_rating"))
}

type ratingResponse struct {
	UserID int64 `json:"user_id"`
	Rating int64 `json:"rating"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// pathUserID parses the user id segment after prefix, e.g. /score/lookup/42.
func pathUserID(path, prefix string) (int64, bool) {
	seg := strings.TrimPrefix(path, prefix)
	if seg == "" || strings.Contains(seg, "/") {
		return 0, false
	}
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
