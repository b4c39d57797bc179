package models

import "time"

// Notification templates dispatched by the report lifecycle.
const (
	TemplateReportSubmitted   = "report_submitted"
	TemplateReportValidated   = "report_validated"
	TemplateReportRejected    = "report_rejected"
	TemplateReportEscalated   = "report_escalated"
	TemplateAchievementEarned = "achievement_earned"
	TemplateLevelUp           = "level_up"
)

// Notification is a persisted in-app notification.
type Notification struct {
	ID        string            `db:"id"`
	UserID    uint64            `db:"user_id"`
	Type      string            `db:"type"`
	Title     string            `db:"title"`
	Message   string            `db:"message"`
	Data      map[string]string `db:"data"`
	ReadAt    *time.Time        `db:"read_at"`
	CreatedAt time.Time         `db:"created_at"`
}

// SMSPayload carries a single outbound SMS.
type SMSPayload struct {
	Phone    string
	Message  string
	Template string
	Tokens   map[string]string
}

// EmailPayload carries a single outbound email.
type EmailPayload struct {
	Email   string
	Subject string
	Body    string
}
