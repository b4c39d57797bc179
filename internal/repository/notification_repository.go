package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mangrovewatch/internal/models"
)

// NotificationRepository persists in-app notifications.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new repository instance.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create persists a notification record and returns its id.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) (string, error) {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	var dataJSON interface{}
	if len(notification.Data) > 0 {
		encoded, err := json.Marshal(notification.Data)
		if err != nil {
			return "", fmt.Errorf("failed to marshal notification data: %w", err)
		}
		dataJSON = string(encoded)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, type, title, message, data, read_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		notification.ID,
		notification.UserID,
		notification.Type,
		notification.Title,
		notification.Message,
		dataJSON,
		notification.ReadAt,
		notification.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create notification: %w", err)
	}
	return notification.ID, nil
}

// ListForUser returns a user's notifications, newest first.
func (r *NotificationRepository) ListForUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, data, read_at, created_at
		FROM notifications WHERE user_id = ?
	`
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC LIMIT ?"

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var dataJSON sql.NullString
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &dataJSON, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		if dataJSON.Valid && dataJSON.String != "" {
			if err := json.Unmarshal([]byte(dataJSON.String), &n.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkAsRead marks a single notification read.
func (r *NotificationRepository) MarkAsRead(ctx context.Context, notificationID string, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE id = ? AND user_id = ? AND read_at IS NULL
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
