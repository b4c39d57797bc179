package service

import (
	"context"
	"fmt"

	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/logger"
	"mangrovewatch/pkg/metrics"
)

// AchievementService evaluates the achievement catalog against a user's
// activity and grants unearned achievements exactly once. Safe to invoke
// after every transition: the unique (user, achievement) key prevents double
// grants and double awards under concurrent evaluation.
type AchievementService struct {
	catalog []models.Achievement
	repo    *repository.AchievementRepository
	log     *logger.Logger
	metrics *metrics.Metrics
}

// NewAchievementService creates the engine over an injected, read-only
// catalog loaded at startup.
func NewAchievementService(
	catalog []models.Achievement,
	repo *repository.AchievementRepository,
	log *logger.Logger,
	serviceMetrics *metrics.Metrics,
) *AchievementService {
	return &AchievementService{
		catalog: catalog,
		repo:    repo,
		log:     log,
		metrics: serviceMetrics,
	}
}

// Evaluate checks every not-yet-earned achievement against the user's
// current aggregates and grants the satisfied ones. Returns the newly
// granted achievements. A failed criteria check skips the achievement and
// is never an error.
func (s *AchievementService) Evaluate(ctx context.Context, userID uint64) ([]models.Achievement, error) {
	earned, err := s.repo.EarnedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load earned achievements: %w", err)
	}

	agg, err := s.repo.UserAggregates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user aggregates: %w", err)
	}

	var granted []models.Achievement
	for _, def := range s.catalog {
		if earned[def.ID] {
			continue
		}
		if !criteriaMet(def, agg) {
			continue
		}

		ok, err := s.repo.Grant(ctx, userID, def)
		if err != nil {
			return granted, fmt.Errorf("failed to grant achievement %q: %w", def.Name, err)
		}
		if !ok {
			// Lost the race to a concurrent evaluation; the other
			// writer already granted and awarded.
			continue
		}

		s.metrics.AchievementsGranted.Inc()
		s.metrics.PointsAwarded.WithLabelValues(def.Name).Add(float64(def.Points))
		s.log.WithUserID(userID).WithField("achievement", def.Name).Info("achievement granted")
		granted = append(granted, def)
	}

	return granted, nil
}

// ListForUser returns a user's badges.
func (s *AchievementService) ListForUser(ctx context.Context, userID uint64) ([]models.UserAchievement, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Catalog returns the injected achievement definitions.
func (s *AchievementService) Catalog() []models.Achievement {
	return s.catalog
}

// criteriaMet applies the category-specific predicate for one achievement
// definition against the user's aggregates. A definition whose criteria do
// not carry the keys its category requires is never satisfied.
func criteriaMet(def models.Achievement, agg *models.UserActivityAggregates) bool {
	switch def.Category {
	case models.AchievementReporting:
		threshold, ok := def.Criteria[models.CriteriaReports]
		return ok && agg.ReportCount >= threshold

	case models.AchievementVerification:
		threshold, ok := def.Criteria[models.CriteriaValidatedReports]
		return ok && agg.ValidatedReportCount >= threshold

	case models.AchievementCommunity:
		threshold, ok := def.Criteria[models.CriteriaPoints]
		return ok && agg.Points >= threshold

	case models.AchievementSpecial:
		// Special achievements combine breadth criteria; every key present
		// must pass, and at least one must be present.
		if len(def.Criteria) == 0 {
			return false
		}
		for key, threshold := range def.Criteria {
			var actual int64
			switch key {
			case models.CriteriaCategories:
				actual = agg.DistinctCategories
			case models.CriteriaLocations:
				actual = agg.DistinctLocations
			case models.CriteriaReports:
				actual = agg.ReportCount
			case models.CriteriaValidatedReports:
				actual = agg.ValidatedReportCount
			case models.CriteriaPoints:
				actual = agg.Points
			default:
				return false
			}
			if actual < threshold {
				return false
			}
		}
		return true
	}

	return false
}
