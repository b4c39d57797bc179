package handler

import (
	"net/http"
	"time"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/repository"
	"mangrovewatch/internal/service"
)

// NotificationHandler exposes the in-app notification feed over HTTP.
type NotificationHandler struct {
	notifications *service.NotificationService
	users         *repository.UserRepository
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(notifications *service.NotificationService, users *repository.UserRepository) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, users: users}
}

type notificationResponse struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Data      map[string]string `json:"data,omitempty"`
	ReadAt    *time.Time        `json:"read_at,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// HandleList handles GET /api/notifications for the acting user.
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := h.notifications.ListForUser(r.Context(), actor.ID, unreadOnly, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]notificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, notificationResponse{
			ID:        notification.ID,
			Type:      notification.Type,
			Title:     notification.Title,
			Message:   notification.Message,
			Data:      notification.Data,
			ReadAt:    notification.ReadAt,
			CreatedAt: notification.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": responses})
}

// HandleMarkRead handles POST /api/notifications/{id}/read.
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	notificationID := r.PathValue("id")
	if notificationID == "" {
		writeError(w, errs.ErrNotFound)
		return
	}

	if err := h.notifications.MarkAsRead(r.Context(), notificationID, actor.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Register wires the notification routes onto mux.
func (h *NotificationHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", h.HandleList)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.HandleMarkRead)
}
