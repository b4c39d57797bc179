package handler

import (
	"net/http"

	"mangrovewatch/internal/models"
	"mangrovewatch/internal/service"
)

// LeaderboardHandler exposes ranked standings over HTTP.
type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
}

// NewLeaderboardHandler creates a leaderboard handler.
func NewLeaderboardHandler(leaderboard *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

type leaderboardEntryResponse struct {
	Rank   int32  `json:"rank"`
	UserID uint64 `json:"user_id"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
	Points int64  `json:"points"`
	Level  int32  `json:"level"`
}

// HandleLeaderboard handles GET /api/leaderboard. Optional query
// parameters: region, window_days, limit.
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	scope := models.LeaderboardScope{
		Region:     r.URL.Query().Get("region"),
		WindowDays: queryInt(r, "window_days", 0),
		Limit:      queryInt(r, "limit", 0),
	}

	entries, err := h.leaderboard.Rank(r.Context(), scope)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]leaderboardEntryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, leaderboardEntryResponse{
			Rank:   entry.Rank,
			UserID: entry.UserID,
			Name:   entry.Name,
			Region: entry.Region,
			Points: entry.Points,
			Level:  entry.Level,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": responses})
}

// Register wires the leaderboard route onto mux.
func (h *LeaderboardHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/leaderboard", h.HandleLeaderboard)
}
