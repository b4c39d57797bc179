package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mangrovewatch/internal/models"
)

// LeaderboardRepository produces ranked point aggregations. Rankings are
// point-in-time snapshots: they are not stable cursors across concurrent
// writes.
type LeaderboardRepository struct {
	db *sql.DB
}

// NewLeaderboardRepository creates a new repository instance.
func NewLeaderboardRepository(db *sql.DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// TopAllTime reads the live cumulative totals, optionally region-filtered.
// Ordered by points descending with level as tie-breaker.
func (r *LeaderboardRepository) TopAllTime(ctx context.Context, region string, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT id, name, COALESCE(region, ''), points, level
		FROM users
	`
	var args []interface{}
	if region != "" {
		query += " WHERE region = ?"
		args = append(args, region)
	}
	query += " ORDER BY points DESC, level DESC LIMIT ?"
	args = append(args, limit)

	return r.queryEntries(ctx, query, args...)
}

// TopSince sums ledger entries written on or after the cutoff, per user,
// optionally region-filtered. Users with no entries in the window do not
// appear.
func (r *LeaderboardRepository) TopSince(ctx context.Context, region string, since time.Time, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT u.id, u.name, COALESCE(u.region, ''), COALESCE(SUM(pl.points), 0) AS window_points, u.level
		FROM point_logs pl
		JOIN users u ON u.id = pl.user_id
		WHERE pl.created_at >= ?
	`
	args := []interface{}{since}
	if region != "" {
		query += " AND u.region = ?"
		args = append(args, region)
	}
	query += `
		GROUP BY u.id, u.name, u.region, u.level
		ORDER BY window_points DESC, u.level DESC LIMIT ?
	`
	args = append(args, limit)

	return r.queryEntries(ctx, query, args...)
}

func (r *LeaderboardRepository) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var entry models.LeaderboardEntry
		if err := rows.Scan(&entry.UserID, &entry.Name, &entry.Region, &entry.Points, &entry.Level); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
