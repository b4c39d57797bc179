package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/policy"
	"mangrovewatch/internal/pubsub"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/helpers"
	"mangrovewatch/pkg/logger"
	"mangrovewatch/pkg/metrics"
)

// EvidenceInput is one already-stored media reference supplied by the media
// collaborator. The service never touches raw file bytes.
type EvidenceInput struct {
	URL     string `validate:"required,url"`
	Caption string `validate:"max=500"`
}

// SubmitReportInput carries a new report submission.
type SubmitReportInput struct {
	Title       string   `validate:"required,min=5,max=200"`
	Description string   `validate:"required,min=20,max=2000"`
	Category    string   `validate:"required,report_category"`
	Severity    string   `validate:"omitempty,report_severity"`
	Latitude    *float64 `validate:"required,latitude"`
	Longitude   *float64 `validate:"required,longitude"`
	Address     string   `validate:"max=500"`
	Region      string   `validate:"max=100"`
	Tags        []string `validate:"max=20,dive,max=50"`
	AreaValue   string
	AreaUnit    string
	Photos      []EvidenceInput `validate:"dive"`
	Videos      []EvidenceInput `validate:"dive"`
}

// ReviewInput carries a reviewer decision.
type ReviewInput struct {
	Decision string `validate:"required,oneof=validated rejected escalated"`
	Notes    string `validate:"max=2000"`
}

// ReportService owns the report lifecycle state machine. Every transition
// is a potential trigger for the gamification engine and for notification
// dispatch; both are invoked synchronously after the transition commits,
// and the transition itself commits regardless of their outcome where the
// failure is a delivery problem rather than a storage one.
type ReportService struct {
	reportRepo   *repository.ReportRepository
	userRepo     *repository.UserRepository
	policy       *policy.ReportPolicy
	gamification *GamificationService
	publisher    pubsub.EventPublisher
	notifier     Notifier
	validator    *helpers.CustomValidator
	ids          *helpers.IDGenerator
	log          *logger.Logger
	metrics      *metrics.Metrics
}

// NewReportService creates the lifecycle service.
func NewReportService(
	reportRepo *repository.ReportRepository,
	userRepo *repository.UserRepository,
	reportPolicy *policy.ReportPolicy,
	gamification *GamificationService,
	publisher pubsub.EventPublisher,
	notifier Notifier,
	validator *helpers.CustomValidator,
	ids *helpers.IDGenerator,
	log *logger.Logger,
	serviceMetrics *metrics.Metrics,
) *ReportService {
	return &ReportService{
		reportRepo:   reportRepo,
		userRepo:     userRepo,
		policy:       reportPolicy,
		gamification: gamification,
		publisher:    publisher,
		notifier:     notifier,
		validator:    validator,
		ids:          ids,
		log:          log,
		metrics:      serviceMetrics,
	}
}

// SubmitReport validates the submission, computes its initial validation
// score and stores it with status pending. Submission points are awarded to
// the reporter and achievements re-evaluated.
func (s *ReportService) SubmitReport(ctx context.Context, reporter *models.User, input SubmitReportInput) (*models.Report, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidContent, validationDetail(err))
	}

	report := &models.Report{
		Code:        s.ids.GenerateReportCode(),
		ReporterID:  reporter.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    models.ReportCategory(input.Category),
		Severity:    models.ReportSeverity(input.Severity),
		Tags:        input.Tags,
		Location: models.GeoLocation{
			Latitude:  input.Latitude,
			Longitude: input.Longitude,
			Address:   input.Address,
			Region:    input.Region,
		},
		Status: models.StatusPending,
	}
	if report.Severity == "" {
		report.Severity = models.SeverityMedium
	}

	if input.AreaValue != "" {
		value, err := decimal.NewFromString(input.AreaValue)
		if err != nil || value.IsNegative() {
			return nil, fmt.Errorf("%w: invalid estimated area", errs.ErrInvalidContent)
		}
		unit := input.AreaUnit
		if unit == "" {
			unit = "hectares"
		}
		report.EstimatedArea = &models.EstimatedArea{Value: value, Unit: unit}
	}

	for _, photo := range input.Photos {
		report.Photos = append(report.Photos, models.Photo{URL: photo.URL, Caption: photo.Caption})
	}
	for _, video := range input.Videos {
		report.Videos = append(report.Videos, models.Video{URL: video.URL, Caption: video.Caption})
	}

	report.ValidationScore = CalculateValidationScore(report)

	if _, err := s.reportRepo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}

	s.metrics.ReportsSubmitted.Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   reporter.ID,
		"report_id": report.ID,
		"category":  report.Category,
	}).Info("report submitted")

	event := models.ReportSubmittedEvent{
		ReportID:   report.ID,
		ReportCode: report.Code,
		ReporterID: reporter.ID,
		Category:   report.Category,
		Severity:   report.Severity,
	}
	if err := s.publisher.PublishReportSubmitted(ctx, event); err != nil {
		s.log.WithReportID(report.ID).WithError(err).Warn("failed to publish report-submitted event")
	}

	if err := s.gamification.HandleReportSubmitted(ctx, event); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, reporter.ID, models.TemplateReportSubmitted,
		"Report received",
		fmt.Sprintf("Your report %s was received and is pending review", report.Code),
		map[string]string{"report_code": report.Code},
	)

	return report, nil
}

// StartReview claims a pending report for review, moving it to
// under_review with the claiming reviewer recorded.
func (s *ReportService) StartReview(ctx context.Context, reviewer *models.User, reportID uint64) error {
	if !reviewer.Role.IsReviewer() {
		return errs.ErrForbidden
	}

	affected, err := s.reportRepo.UpdateStatus(ctx, reportID,
		[]models.ReportStatus{models.StatusPending},
		repository.StatusUpdate{
			Status:     models.StatusUnderReview,
			ReviewerID: reviewer.ID,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	if affected == 0 {
		return s.classifyLostTransition(ctx, reportID, []models.ReportStatus{models.StatusPending})
	}
	return nil
}

// ReviewReport applies a reviewer decision from pending or under_review.
// Escalations derive their routing target from the reviewer's role. A
// ReportReviewed event is emitted exactly once per successful decision.
func (s *ReportService) ReviewReport(ctx context.Context, reviewer *models.User, reportID uint64, input ReviewInput) (*models.Report, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidContent, validationDetail(err))
	}
	decision := models.ReportStatus(input.Decision)

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}

	if !reviewer.Role.IsReviewer() {
		return nil, errs.ErrForbidden
	}
	if !s.policy.CanReview(report, reviewer) {
		return nil, errs.ErrInvalidTransition
	}

	// With the admin privilege override the expected-from set collapses to
	// whatever the report showed when loaded; everyone else may only decide
	// from the review states.
	from := []models.ReportStatus{models.StatusPending, models.StatusUnderReview}
	if !report.Status.Reviewable() {
		from = []models.ReportStatus{report.Status}
	}

	now := time.Now()
	update := repository.StatusUpdate{
		Status:      decision,
		ReviewerID:  reviewer.ID,
		ReviewNotes: input.Notes,
		ReviewedAt:  &now,
	}
	if decision == models.StatusEscalated {
		update.EscalatedTo = s.policy.EscalationTarget(reviewer)
		update.EscalationNotes = input.Notes
		update.EscalatedAt = &now
	}

	previousStatus := report.Status
	affected, err := s.reportRepo.UpdateStatus(ctx, reportID, from, update)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	if affected == 0 {
		return nil, s.classifyLostTransition(ctx, reportID, from)
	}

	s.metrics.ReportsReviewed.WithLabelValues(string(decision)).Inc()
	s.log.WithFields(logrus.Fields{
		"user_id":   reviewer.ID,
		"report_id": reportID,
		"decision":  decision,
	}).Info("report reviewed")

	event := models.ReportReviewedEvent{
		ReportID:       reportID,
		ReportCode:     report.Code,
		PreviousStatus: previousStatus,
		NewStatus:      decision,
		ReporterID:     report.ReporterID,
		ReviewerID:     reviewer.ID,
	}
	if err := s.publisher.PublishReportReviewed(ctx, event); err != nil {
		s.log.WithReportID(reportID).WithError(err).Warn("failed to publish report-reviewed event")
	}

	if err := s.gamification.HandleReportReviewed(ctx, event); err != nil {
		return nil, err
	}

	s.notifyDecision(ctx, report, decision, update.EscalatedTo)

	report.Status = decision
	report.ReviewerID = &reviewer.ID
	report.ReviewNotes = input.Notes
	report.ReviewedAt = &now
	if decision == models.StatusEscalated {
		report.EscalatedTo = update.EscalatedTo
		report.EscalationNotes = input.Notes
		report.EscalatedAt = &now
	}
	return report, nil
}

// ResolveReport closes a decided report. The original decision trail is
// left untouched.
func (s *ReportService) ResolveReport(ctx context.Context, actor *models.User, reportID uint64) error {
	if !actor.Role.IsReviewer() {
		return errs.ErrForbidden
	}

	from := []models.ReportStatus{models.StatusValidated, models.StatusRejected, models.StatusEscalated}
	affected, err := s.reportRepo.TransitionStatus(ctx, reportID, from, models.StatusResolved)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	if affected == 0 {
		return s.classifyLostTransition(ctx, reportID, from)
	}
	return nil
}

// UpdateReport rewrites the content fields of a report and recomputes its
// validation score.
func (s *ReportService) UpdateReport(ctx context.Context, actor *models.User, reportID uint64, input SubmitReportInput) (*models.Report, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidContent, validationDetail(err))
	}

	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}

	if !s.policy.CanEdit(report, actor) {
		return nil, errs.ErrForbidden
	}

	report.Title = strings.TrimSpace(input.Title)
	report.Description = strings.TrimSpace(input.Description)
	report.Category = models.ReportCategory(input.Category)
	if input.Severity != "" {
		report.Severity = models.ReportSeverity(input.Severity)
	}
	report.Tags = input.Tags
	report.Location.Latitude = input.Latitude
	report.Location.Longitude = input.Longitude
	report.Location.Address = input.Address
	report.Location.Region = input.Region

	report.EstimatedArea = nil
	if input.AreaValue != "" {
		value, err := decimal.NewFromString(input.AreaValue)
		if err != nil || value.IsNegative() {
			return nil, fmt.Errorf("%w: invalid estimated area", errs.ErrInvalidContent)
		}
		unit := input.AreaUnit
		if unit == "" {
			unit = "hectares"
		}
		report.EstimatedArea = &models.EstimatedArea{Value: value, Unit: unit}
	}

	report.ValidationScore = CalculateValidationScore(report)

	if err := s.reportRepo.UpdateContent(ctx, report); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	return report, nil
}

// DeleteReport tombstones a report subject to the deletion policy.
func (s *ReportService) DeleteReport(ctx context.Context, actor *models.User, reportID uint64) error {
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}

	if !s.policy.CanDelete(report, actor) {
		return errs.ErrForbidden
	}

	affected, err := s.reportRepo.SoftDelete(ctx, reportID)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	if affected == 0 {
		return errs.ErrNotFound
	}

	s.log.WithFields(logrus.Fields{
		"user_id":   actor.ID,
		"report_id": reportID,
	}).Info("report deleted")
	return nil
}

// ToggleLike flips the actor's like on a report. Liking twice unlikes.
func (s *ReportService) ToggleLike(ctx context.Context, actor *models.User, reportID uint64) (bool, error) {
	liked, err := s.reportRepo.ToggleLike(ctx, reportID, actor.ID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	return liked, nil
}

// AddComment appends a comment to a report.
func (s *ReportService) AddComment(ctx context.Context, actor *models.User, reportID uint64, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" || len(body) > 1000 {
		return nil, fmt.Errorf("%w: comment must be 1-1000 characters", errs.ErrInvalidContent)
	}

	comment := &models.Comment{
		ReportID: reportID,
		UserID:   actor.ID,
		Body:     body,
	}
	if _, err := s.reportRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	return comment, nil
}

// GetReport loads a single report.
func (s *ReportService) GetReport(ctx context.Context, reportID uint64) (*models.Report, error) {
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}
	return report, nil
}

// ListPendingReports returns the review queue in submission order.
func (s *ReportService) ListPendingReports(ctx context.Context, limit int) ([]*models.Report, error) {
	return s.reportRepo.ListByStatus(ctx, models.StatusPending, limit)
}

// ListReporterReports returns a reporter's own reports, newest first.
func (s *ReportService) ListReporterReports(ctx context.Context, reporterID uint64, limit int) ([]*models.Report, error) {
	return s.reportRepo.ListByReporter(ctx, reporterID, limit)
}

// classifyLostTransition turns a zero-affected-rows transition into the
// right domain error: the report is gone, was never there, or changed
// status underneath us.
func (s *ReportService) classifyLostTransition(ctx context.Context, reportID uint64, expected []models.ReportStatus) error {
	report, err := s.reportRepo.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errs.ErrDependencyUnavailable, err)
	}

	expectedReviewable := false
	for _, status := range expected {
		if report.Status == status {
			// The status still matches, so the conditional update lost a
			// race with a concurrent writer that has since moved it back.
			return errs.ErrConflictingUpdate
		}
		if status.Reviewable() {
			expectedReviewable = true
		}
	}
	// A report still inside the review flow that left the expected set was
	// claimed or re-staged by a concurrent reviewer.
	if expectedReviewable && report.Status.Reviewable() {
		return errs.ErrConflictingUpdate
	}
	return errs.ErrInvalidTransition
}

func (s *ReportService) notifyDecision(ctx context.Context, report *models.Report, decision models.ReportStatus, escalatedTo string) {
	switch decision {
	case models.StatusValidated:
		s.notifier.Notify(ctx, report.ReporterID, models.TemplateReportValidated,
			"Report validated",
			fmt.Sprintf("Your report %s was validated", report.Code),
			map[string]string{"report_code": report.Code},
		)
	case models.StatusRejected:
		s.notifier.Notify(ctx, report.ReporterID, models.TemplateReportRejected,
			"Report rejected",
			fmt.Sprintf("Your report %s was rejected", report.Code),
			map[string]string{"report_code": report.Code},
		)
	case models.StatusEscalated:
		s.notifier.Notify(ctx, report.ReporterID, models.TemplateReportEscalated,
			"Report escalated",
			fmt.Sprintf("Your report %s was escalated to %s", report.Code, escalatedTo),
			map[string]string{"report_code": report.Code, "escalated_to": escalatedTo},
		)
	}
}

// validationDetail flattens validator errors into a short field list for
// the InvalidContent message.
func validationDetail(err error) string {
	fields := helpers.FieldErrors(err)
	if len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(fields))
	for field, tag := range fields {
		parts = append(parts, fmt.Sprintf("%s (%s)", field, tag))
	}
	return strings.Join(parts, ", ")
}
