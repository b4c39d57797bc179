package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mangrovewatch/internal/models"
)

// AchievementRepository handles achievement definitions and per-user grants.
type AchievementRepository struct {
	db *sql.DB
}

// NewAchievementRepository creates a new repository instance.
func NewAchievementRepository(db *sql.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// ListDefinitions loads the full achievement catalog. Called once at startup;
// the catalog is injected into the engine as read-only reference data.
func (r *AchievementRepository) ListDefinitions(ctx context.Context) ([]models.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, category, description, points, criteria, created_at
		FROM achievements ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	var defs []models.Achievement
	for rows.Next() {
		var def models.Achievement
		var description sql.NullString
		var criteriaJSON sql.NullString
		if err := rows.Scan(&def.ID, &def.Name, &def.Category, &description, &def.Points, &criteriaJSON, &def.CreatedAt); err != nil {
			return nil, err
		}
		def.Description = description.String
		if criteriaJSON.Valid && criteriaJSON.String != "" {
			if err := json.Unmarshal([]byte(criteriaJSON.String), &def.Criteria); err != nil {
				return nil, fmt.Errorf("invalid criteria for achievement %q: %w", def.Name, err)
			}
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// EarnedIDs returns the set of achievement ids the user already holds.
func (r *AchievementRepository) EarnedIDs(ctx context.Context, userID uint64) (map[uint64]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT achievement_id FROM user_achievements WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query earned achievements: %w", err)
	}
	defer rows.Close()

	earned := make(map[uint64]bool)
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		earned[id] = true
	}
	return earned, rows.Err()
}

// ListForUser returns a user's badges, newest first.
func (r *AchievementRepository) ListForUser(ctx context.Context, userID uint64) ([]models.UserAchievement, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, achievement_id, earned_at
		FROM user_achievements WHERE user_id = ? ORDER BY earned_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user achievements: %w", err)
	}
	defer rows.Close()

	var grants []models.UserAchievement
	for rows.Next() {
		var ua models.UserAchievement
		if err := rows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.EarnedAt); err != nil {
			return nil, err
		}
		grants = append(grants, ua)
	}
	return grants, rows.Err()
}

// Grant inserts the (user, achievement) pair and awards the bonus points in
// one transaction. The unique key on (user_id, achievement_id) makes the
// grant idempotent under concurrent evaluation: a duplicate insert returns
// (false, nil) and no points move.
func (r *AchievementRepository) Grant(ctx context.Context, userID uint64, achievement models.Achievement) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		VALUES (?, ?, ?)
	`, userID, achievement.ID, now); err != nil {
		if isDuplicateEntry(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to grant achievement: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO point_logs (user_id, action, points, reference_type, reference_id, created_at)
		VALUES (?, ?, ?, 'achievement', ?, ?)
	`, userID, achievement.Name, achievement.Points, achievement.ID, now); err != nil {
		return false, fmt.Errorf("failed to insert achievement point log: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET points = points + ?, updated_at = NOW() WHERE id = ?
	`, achievement.Points, userID); err != nil {
		return false, fmt.Errorf("failed to increment user points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit achievement grant: %w", err)
	}
	return true, nil
}

// UserAggregates computes the per-user activity counters achievement
// criteria are evaluated against. Tombstoned reports do not count.
func (r *AchievementRepository) UserAggregates(ctx context.Context, userID uint64) (*models.UserActivityAggregates, error) {
	var agg models.UserActivityAggregates

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'validated'), 0),
		       COUNT(DISTINCT category),
		       COUNT(DISTINCT region)
		FROM reports
		WHERE reporter_id = ? AND deleted_at IS NULL
	`, userID).Scan(
		&agg.ReportCount,
		&agg.ValidatedReportCount,
		&agg.DistinctCategories,
		&agg.DistinctLocations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate user activity: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, "SELECT points FROM users WHERE id = ?", userID).Scan(&agg.Points); err != nil {
		return nil, fmt.Errorf("failed to read user points: %w", err)
	}

	return &agg, nil
}
