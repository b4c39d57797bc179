package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
	"mangrovewatch/internal/service"
)

// GamificationHandler exposes points, levels and achievements over HTTP.
type GamificationHandler struct {
	gamification *service.GamificationService
	achievements *service.AchievementService
	users        *repository.UserRepository
}

// NewGamificationHandler creates a gamification handler.
func NewGamificationHandler(
	gamification *service.GamificationService,
	achievements *service.AchievementService,
	users *repository.UserRepository,
) *GamificationHandler {
	return &GamificationHandler{
		gamification: gamification,
		achievements: achievements,
		users:        users,
	}
}

type pointLogResponse struct {
	ID            uint64    `json:"id"`
	Action        string    `json:"action"`
	Points        int64     `json:"points"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   uint64    `json:"reference_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type adjustPointsRequest struct {
	Points int64  `json:"points"`
	Reason string `json:"reason"`
}

// HandleProfile handles GET /api/users/{id}/points. It returns the
// cumulative total, the current level and progress toward the next one.
func (h *GamificationHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, errs.ErrNotFound)
		return
	}

	response := map[string]interface{}{
		"user_id": user.ID,
		"points":  user.Points,
		"level":   service.LevelForPoints(user.Points),
	}
	if nextAt, ok := service.PointsForNextLevel(user.Points); ok {
		response["next_level_at"] = nextAt
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleHistory handles GET /api/users/{id}/points/history.
func (h *GamificationHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.gamification.History(r.Context(), userID, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]pointLogResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, pointLogResponse{
			ID:            entry.ID,
			Action:        entry.Action,
			Points:        entry.Points,
			ReferenceType: entry.ReferenceType,
			ReferenceID:   entry.ReferenceID,
			CreatedAt:     entry.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"history": responses})
}

// HandleAdjust handles POST /api/users/{id}/points/adjust. Admin-only
// manual correction, recorded in the ledger like any other award.
func (h *GamificationHandler) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req adjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", errs.ErrInvalidContent))
		return
	}

	total, err := h.gamification.AdjustPoints(r.Context(), actor, userID, req.Points, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user_id": userID, "points": total})
}

// HandleUserAchievements handles GET /api/users/{id}/achievements.
func (h *GamificationHandler) HandleUserAchievements(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	earned, err := h.achievements.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	byID := make(map[uint64]models.Achievement)
	for _, achievement := range h.achievements.Catalog() {
		byID[achievement.ID] = achievement
	}

	responses := make([]map[string]interface{}, 0, len(earned))
	for _, grant := range earned {
		entry := map[string]interface{}{
			"achievement_id": grant.AchievementID,
			"earned_at":      grant.EarnedAt,
		}
		if definition, ok := byID[grant.AchievementID]; ok {
			entry["name"] = definition.Name
			entry["category"] = definition.Category
			entry["points"] = definition.Points
		}
		responses = append(responses, entry)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": responses})
}

// HandleCatalog handles GET /api/achievements.
func (h *GamificationHandler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	catalog := h.achievements.Catalog()
	responses := make([]map[string]interface{}, 0, len(catalog))
	for _, achievement := range catalog {
		responses = append(responses, map[string]interface{}{
			"id":          achievement.ID,
			"name":        achievement.Name,
			"category":    achievement.Category,
			"description": achievement.Description,
			"points":      achievement.Points,
			"criteria":    achievement.Criteria,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"achievements": responses})
}

// Register wires the gamification routes onto mux.
func (h *GamificationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users/{id}/points", h.HandleProfile)
	mux.HandleFunc("GET /api/users/{id}/points/history", h.HandleHistory)
	mux.HandleFunc("POST /api/users/{id}/points/adjust", h.HandleAdjust)
	mux.HandleFunc("GET /api/users/{id}/achievements", h.HandleUserAchievements)
	mux.HandleFunc("GET /api/achievements", h.HandleCatalog)
}
