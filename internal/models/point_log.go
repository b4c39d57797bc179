package models

import "time"

// Point-earning action tags. Achievement rewards are tagged with the
// achievement's name instead.
const (
	ActionReportSubmitted = "report_submitted"
	ActionReportValidated = "report_validated"
	ActionReportEscalated = "report_escalated"
	ActionAdminAdjustment = "admin_adjustment"
)

// PointLog is one immutable entry of a user's point ledger. The user's
// cumulative points total is by definition the sum of their entries.
type PointLog struct {
	ID            uint64    `db:"id"`
	UserID        uint64    `db:"user_id"`
	Action        string    `db:"action"`
	Points        int64     `db:"points"`
	ReferenceType string    `db:"reference_type"`
	ReferenceID   uint64    `db:"reference_id"`
	CreatedAt     time.Time `db:"created_at"`
}
