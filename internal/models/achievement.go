package models

import "time"

// AchievementCategory selects the predicate logic used when evaluating an
// achievement's criteria.
type AchievementCategory string

const (
	AchievementReporting    AchievementCategory = "REPORTING"
	AchievementVerification AchievementCategory = "VERIFICATION"
	AchievementCommunity    AchievementCategory = "COMMUNITY"
	AchievementSpecial      AchievementCategory = "SPECIAL"
)

// Criteria keys understood by the achievement engine.
const (
	CriteriaReports          = "reports"
	CriteriaValidatedReports = "validated_reports"
	CriteriaPoints           = "points"
	CriteriaCategories       = "categories"
	CriteriaLocations        = "locations"
)

// Achievement is a named, criteria-gated, one-time-per-user reward.
// Definitions are read-mostly reference data loaded at startup.
type Achievement struct {
	ID          uint64              `db:"id"`
	Name        string              `db:"name"`
	Category    AchievementCategory `db:"category"`
	Description string              `db:"description"`
	Points      int64               `db:"points"`
	Criteria    map[string]int64    `db:"criteria"`
	CreatedAt   time.Time           `db:"created_at"`
}

// UserAchievement records that a user earned an achievement. The
// (user, achievement) pair is unique: a user holds each badge at most once.
type UserAchievement struct {
	ID            uint64    `db:"id"`
	UserID        uint64    `db:"user_id"`
	AchievementID uint64    `db:"achievement_id"`
	EarnedAt      time.Time `db:"earned_at"`
}

// UserActivityAggregates are the per-user counters the achievement engine
// evaluates criteria against.
type UserActivityAggregates struct {
	ReportCount          int64
	ValidatedReportCount int64
	DistinctCategories   int64
	DistinctLocations    int64
	Points               int64
}
