package service

import (
	"context"
	"fmt"
	"time"

	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
)

const defaultLeaderboardLimit = 50

// LeaderboardService produces ranked point-in-time snapshots of user
// standings. It runs on the read path only, never on report transitions.
type LeaderboardService struct {
	repo *repository.LeaderboardRepository
}

// NewLeaderboardService creates the aggregator.
func NewLeaderboardService(repo *repository.LeaderboardRepository) *LeaderboardService {
	return &LeaderboardService{repo: repo}
}

// Rank returns the ranked entries for the requested scope. All-time
// rankings use the live cumulative totals; windowed rankings sum ledger
// entries over the trailing day count. Entries are ordered by points
// descending with level descending as tie-breaker, then assigned dense
// 1-based ranks.
func (s *LeaderboardService) Rank(ctx context.Context, scope models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	limit := scope.Limit
	if limit <= 0 || limit > 100 {
		limit = defaultLeaderboardLimit
	}

	var entries []models.LeaderboardEntry
	var err error
	if scope.WindowDays > 0 {
		since := time.Now().AddDate(0, 0, -scope.WindowDays)
		entries, err = s.repo.TopSince(ctx, scope.Region, since, limit)
	} else {
		entries, err = s.repo.TopAllTime(ctx, scope.Region, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build leaderboard: %w", err)
	}

	for i := range entries {
		entries[i].Rank = int32(i + 1)
	}
	return entries, nil
}
