package service

import (
	"context"
	"fmt"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/policy"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/logger"
	"mangrovewatch/pkg/metrics"
)

// Points awarded for report lifecycle actions.
const (
	PointsReportSubmitted int64 = 10
	PointsReportValidated int64 = 50
	PointsReportEscalated int64 = 30
)

// GamificationService ties the point ledger, level recomputation and
// achievement engine together. Every report transition funnels through
// HandleReportSubmitted / HandleReportReviewed.
type GamificationService struct {
	pointRepo    *repository.PointLogRepository
	userRepo     *repository.UserRepository
	achievements *AchievementService
	policy       *policy.ReportPolicy
	notifier     Notifier
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// NewGamificationService creates the gamification engine.
func NewGamificationService(
	pointRepo *repository.PointLogRepository,
	userRepo *repository.UserRepository,
	achievements *AchievementService,
	reportPolicy *policy.ReportPolicy,
	notifier Notifier,
	log *logger.Logger,
	serviceMetrics *metrics.Metrics,
) *GamificationService {
	return &GamificationService{
		pointRepo:    pointRepo,
		userRepo:     userRepo,
		achievements: achievements,
		policy:       reportPolicy,
		notifier:     notifier,
		log:          log,
		metrics:      serviceMetrics,
	}
}

// Award appends a ledger entry, refreshes the user's level and notifies on
// level-up. Returns the new cumulative total.
func (s *GamificationService) Award(ctx context.Context, userID uint64, action string, points int64, refType string, refID uint64) (int64, error) {
	entry := &models.PointLog{
		UserID:        userID,
		Action:        action,
		Points:        points,
		ReferenceType: refType,
		ReferenceID:   refID,
	}

	total, err := s.pointRepo.Award(ctx, entry)
	if err != nil {
		return 0, fmt.Errorf("failed to award points: %w", err)
	}

	// Counters only go up; negative corrections are visible in the ledger.
	if points > 0 {
		s.metrics.PointsAwarded.WithLabelValues(action).Add(float64(points))
	}

	if err := s.refreshLevel(ctx, userID, total); err != nil {
		return total, err
	}
	return total, nil
}

// AdjustPoints applies a manual correction (positive or negative) by a
// privileged actor. The ledger records the correction like any other entry.
func (s *GamificationService) AdjustPoints(ctx context.Context, actor *models.User, userID uint64, points int64, reason string) (int64, error) {
	if !s.policy.CanAdjustPoints(actor) {
		return 0, errs.ErrForbidden
	}
	if reason == "" {
		reason = models.ActionAdminAdjustment
	}
	return s.Award(ctx, userID, reason, points, "user", actor.ID)
}

// History returns a user's point ledger, newest first.
func (s *GamificationService) History(ctx context.Context, userID uint64, limit int) ([]models.PointLog, error) {
	return s.pointRepo.History(ctx, userID, limit)
}

// HandleReportSubmitted awards submission points and re-evaluates
// achievements for the reporter.
func (s *GamificationService) HandleReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error {
	if _, err := s.Award(ctx, event.ReporterID, models.ActionReportSubmitted, PointsReportSubmitted, "report", event.ReportID); err != nil {
		return err
	}
	return s.evaluateAchievements(ctx, event.ReporterID)
}

// HandleReportReviewed awards decision points to the reporter and
// re-evaluates achievements. Rejections award nothing but still trigger
// re-evaluation, since aggregates may have changed.
func (s *GamificationService) HandleReportReviewed(ctx context.Context, event models.ReportReviewedEvent) error {
	var action string
	var points int64
	switch event.NewStatus {
	case models.StatusValidated:
		action, points = models.ActionReportValidated, PointsReportValidated
	case models.StatusEscalated:
		action, points = models.ActionReportEscalated, PointsReportEscalated
	}

	if points > 0 {
		if _, err := s.Award(ctx, event.ReporterID, action, points, "report", event.ReportID); err != nil {
			return err
		}
	}

	return s.evaluateAchievements(ctx, event.ReporterID)
}

func (s *GamificationService) evaluateAchievements(ctx context.Context, userID uint64) error {
	granted, err := s.achievements.Evaluate(ctx, userID)
	if err != nil {
		return err
	}

	for _, def := range granted {
		s.notifier.Notify(ctx, userID, models.TemplateAchievementEarned,
			"Achievement earned",
			fmt.Sprintf("You earned the %q achievement (+%d points)", def.Name, def.Points),
			map[string]string{"achievement": def.Name},
		)
	}

	if len(granted) > 0 {
		// Achievement rewards moved the total; refresh the level once.
		total, err := s.userRepo.GetPoints(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to read points after grants: %w", err)
		}
		return s.refreshLevel(ctx, userID, total)
	}
	return nil
}

// refreshLevel recomputes the level from the points total and persists it
// when it changed, notifying the user on level-up.
func (s *GamificationService) refreshLevel(ctx context.Context, userID uint64, total int64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for level refresh: %w", err)
	}

	newLevel := LevelForPoints(total)
	if newLevel == user.Level {
		return nil
	}

	if err := s.userRepo.UpdateLevel(ctx, userID, newLevel); err != nil {
		return err
	}

	if newLevel > user.Level {
		s.notifier.Notify(ctx, userID, models.TemplateLevelUp,
			"Level up",
			fmt.Sprintf("You reached level %d", newLevel),
			map[string]string{"level": fmt.Sprintf("%d", newLevel)},
		)
	}
	return nil
}
