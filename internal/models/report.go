package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportStatus is the lifecycle state of an incident report.
type ReportStatus string

const (
	StatusPending     ReportStatus = "pending"
	StatusUnderReview ReportStatus = "under_review"
	StatusValidated   ReportStatus = "validated"
	StatusRejected    ReportStatus = "rejected"
	StatusEscalated   ReportStatus = "escalated"
	StatusResolved    ReportStatus = "resolved"
)

// ReportCategory is the closed set of incident categories.
type ReportCategory string

const (
	CategoryIllegalCutting  ReportCategory = "illegal_cutting"
	CategoryLandReclamation ReportCategory = "land_reclamation"
	CategoryPollution       ReportCategory = "pollution"
	CategoryDumping         ReportCategory = "dumping"
	CategoryConstruction    ReportCategory = "construction"
	CategoryOther           ReportCategory = "other"
)

// ReportCategories lists every valid category value.
var ReportCategories = []ReportCategory{
	CategoryIllegalCutting,
	CategoryLandReclamation,
	CategoryPollution,
	CategoryDumping,
	CategoryConstruction,
	CategoryOther,
}

// ReportSeverity grades the urgency of a report.
type ReportSeverity string

const (
	SeverityLow      ReportSeverity = "low"
	SeverityMedium   ReportSeverity = "medium"
	SeverityHigh     ReportSeverity = "high"
	SeverityCritical ReportSeverity = "critical"
)

// GeoLocation is a coordinate pair with an optional human-readable address.
// Latitude and Longitude are pointers so a missing coordinate is
// distinguishable from 0.
type GeoLocation struct {
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	Address   string   `db:"address"`
	Region    string   `db:"region"`
}

// HasCoordinates reports whether both coordinate values are present.
func (g GeoLocation) HasCoordinates() bool {
	return g.Latitude != nil && g.Longitude != nil
}

// EstimatedArea records the reporter's estimate of the affected area.
type EstimatedArea struct {
	Value decimal.Decimal `db:"area_value"`
	Unit  string          `db:"area_unit"`
}

// Photo is a single piece of photographic evidence attached to a report.
type Photo struct {
	ID        uint64    `db:"id"`
	ReportID  uint64    `db:"report_id"`
	URL       string    `db:"url"`
	Caption   string    `db:"caption"`
	Verified  bool      `db:"verified"`
	CreatedAt time.Time `db:"created_at"`
}

// Video is a single piece of video evidence attached to a report.
type Video struct {
	ID        uint64    `db:"id"`
	ReportID  uint64    `db:"report_id"`
	URL       string    `db:"url"`
	Caption   string    `db:"caption"`
	CreatedAt time.Time `db:"created_at"`
}

// Comment is free-text engagement left on a report.
type Comment struct {
	ID        uint64    `db:"id"`
	ReportID  uint64    `db:"report_id"`
	UserID    uint64    `db:"user_id"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
}

// Report is an incident report submitted by a community observer.
//
// ValidationScore is derived from the report's content and is recomputed
// whenever the content changes; it is never an independently editable input.
// DeletedAt is a tombstone: reports are never physically removed so the
// review trail survives deletion.
type Report struct {
	ID          uint64         `db:"id"`
	Code        string         `db:"code"`
	ReporterID  uint64         `db:"reporter_id"`
	Title       string         `db:"title"`
	Description string         `db:"description"`
	Category    ReportCategory `db:"category"`
	Severity    ReportSeverity `db:"severity"`
	Tags        []string       `db:"tags"`

	Location      GeoLocation
	EstimatedArea *EstimatedArea

	Photos []Photo
	Videos []Video

	ValidationScore int32        `db:"validation_score"`
	Status          ReportStatus `db:"status"`

	LikeCount int64
	Comments  []Comment

	ReviewerID  *uint64    `db:"reviewer_id"`
	ReviewNotes string     `db:"review_notes"`
	ReviewedAt  *time.Time `db:"reviewed_at"`

	EscalatedTo     string     `db:"escalated_to"`
	EscalationNotes string     `db:"escalation_notes"`
	EscalatedAt     *time.Time `db:"escalated_at"`

	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

// IsTerminal reports whether the status ends the review flow. Escalated
// reports await external action and can still move to resolved, so only
// resolved is fully terminal; validated and rejected are terminal for
// reviewer decisions but may be resolved afterwards.
func (s ReportStatus) IsTerminal() bool {
	switch s {
	case StatusValidated, StatusRejected, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// Reviewable reports whether a reviewer decision may be taken from s.
func (s ReportStatus) Reviewable() bool {
	return s == StatusPending || s == StatusUnderReview
}

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c ReportCategory) bool {
	for _, v := range ReportCategories {
		if v == c {
			return true
		}
	}
	return false
}

// ReportReviewedEvent is emitted exactly once per reviewer decision. It
// drives the gamification engine and notification dispatch.
type ReportReviewedEvent struct {
	ReportID       uint64       `json:"report_id"`
	ReportCode     string       `json:"report_code"`
	PreviousStatus ReportStatus `json:"previous_status"`
	NewStatus      ReportStatus `json:"new_status"`
	ReporterID     uint64       `json:"reporter_id"`
	ReviewerID     uint64       `json:"reviewer_id"`
}

// ReportSubmittedEvent is emitted when a new report enters the system.
type ReportSubmittedEvent struct {
	ReportID   uint64         `json:"report_id"`
	ReportCode string         `json:"report_code"`
	ReporterID uint64         `json:"reporter_id"`
	Category   ReportCategory `json:"category"`
	Severity   ReportSeverity `json:"severity"`
}
