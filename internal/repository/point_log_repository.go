package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mangrovewatch/internal/models"
)

// PointLogRepository handles the append-only point ledger. The one invariant
// it must never allow to break: a ledger entry and the matching increment of
// users.points commit together or not at all.
type PointLogRepository struct {
	db *sql.DB
}

// NewPointLogRepository creates a new repository instance.
func NewPointLogRepository(db *sql.DB) *PointLogRepository {
	return &PointLogRepository{db: db}
}

// Award appends a ledger entry and increments the user's cumulative total in
// a single transaction, returning the new total. Negative deltas are
// corrections and decrement the total; this layer imposes no floor.
func (r *PointLogRepository) Award(ctx context.Context, entry *models.PointLog) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO point_logs (user_id, action, points, reference_type, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.UserID, entry.Action, entry.Points, entry.ReferenceType, entry.ReferenceID, now)
	if err != nil {
		return 0, fmt.Errorf("failed to insert point log: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE users SET points = points + ?, updated_at = NOW() WHERE id = ?
	`, entry.Points, entry.UserID); err != nil {
		return 0, fmt.Errorf("failed to increment user points: %w", err)
	}

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT points FROM users WHERE id = ?", entry.UserID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to read user points: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit point award: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = uint64(id)
	}
	entry.CreatedAt = now
	return total, nil
}

// History returns a user's ledger entries, newest first. Re-querying yields
// the same data modulo new writes.
func (r *PointLogRepository) History(ctx context.Context, userID uint64, limit int) ([]models.PointLog, error) {
	query := `
		SELECT id, user_id, action, points, reference_type, reference_id, created_at
		FROM point_logs WHERE user_id = ? ORDER BY created_at DESC, id DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query point history: %w", err)
	}
	defer rows.Close()

	var entries []models.PointLog
	for rows.Next() {
		var entry models.PointLog
		var refType sql.NullString
		var refID sql.NullInt64
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Points, &refType, &refID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.ReferenceType = refType.String
		entry.ReferenceID = uint64(refID.Int64)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SumForUser sums every ledger entry of a user. By the ledger invariant it
// always equals users.points; the two are compared in consistency checks.
func (r *PointLogRepository) SumForUser(ctx context.Context, userID uint64) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(points), 0) FROM point_logs WHERE user_id = ?
	`, userID).Scan(&sum)
	return sum, err
}
