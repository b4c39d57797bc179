package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mangrovewatch/internal/models"
)

// UserRepository handles the users table.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new repository instance.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID loads a user including the role-tagged profile variant.
func (r *UserRepository) FindByID(ctx context.Context, userID uint64) (*models.User, error) {
	var (
		user         models.User
		phone        sql.NullString
		email        sql.NullString
		region       sql.NullString
		roleInfoJSON sql.NullString
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, role, region, points, level, role_info, created_at, updated_at
		FROM users WHERE id = ?
	`, userID).Scan(
		&user.ID,
		&user.Name,
		&phone,
		&email,
		&user.Role,
		&region,
		&user.Points,
		&user.Level,
		&roleInfoJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Phone = phone.String
	user.Email = email.String
	user.Region = region.String
	if roleInfoJSON.Valid && roleInfoJSON.String != "" {
		if err := json.Unmarshal([]byte(roleInfoJSON.String), &user.RoleInfo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal role info for user %d: %w", userID, err)
		}
	}

	return &user, nil
}

// GetPoints returns the user's live cumulative points total.
func (r *UserRepository) GetPoints(ctx context.Context, userID uint64) (int64, error) {
	var points int64
	err := r.db.QueryRowContext(ctx, "SELECT points FROM users WHERE id = ?", userID).Scan(&points)
	if err != nil {
		return 0, err
	}
	return points, nil
}

// UpdateLevel stores the recomputed level. The stored value is a cache of
// the level function over points, refreshed after every award.
func (r *UserRepository) UpdateLevel(ctx context.Context, userID uint64, level int32) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET level = ?, updated_at = NOW() WHERE id = ?
	`, level, userID)
	if err != nil {
		return fmt.Errorf("failed to update user level: %w", err)
	}
	return nil
}
