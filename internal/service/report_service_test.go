package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/policy"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/helpers"
	"mangrovewatch/pkg/logger"
	"mangrovewatch/pkg/metrics"
)

// Prometheus collectors register globally, so the test binary builds them once.
var testMetrics = metrics.NewMetrics("test")

type recordedNotification struct {
	UserID   uint64
	Template string
}

// recordingNotifier captures dispatched notifications.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []recordedNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uint64, template, title, message string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, recordedNotification{UserID: userID, Template: template})
}

func (n *recordingNotifier) byTemplate(template string) []recordedNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedNotification
	for _, s := range n.sent {
		if s.Template == template {
			out = append(out, s)
		}
	}
	return out
}

// recordingPublisher captures published lifecycle events.
type recordingPublisher struct {
	mu        sync.Mutex
	submitted []models.ReportSubmittedEvent
	reviewed  []models.ReportReviewedEvent
}

func (p *recordingPublisher) PublishReportSubmitted(ctx context.Context, event models.ReportSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, event)
	return nil
}

func (p *recordingPublisher) PublishReportReviewed(ctx context.Context, event models.ReportReviewedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviewed = append(p.reviewed, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type reportServiceFixture struct {
	service   *ReportService
	mock      sqlmock.Sqlmock
	publisher *recordingPublisher
	notifier  *recordingNotifier
}

func newReportServiceFixture(t *testing.T, catalog []models.Achievement) *reportServiceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logger.NewLogger("test")
	publisher := &recordingPublisher{}
	notifier := &recordingNotifier{}

	reportRepo := repository.NewReportRepository(db)
	userRepo := repository.NewUserRepository(db)
	pointRepo := repository.NewPointLogRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	reportPolicy := policy.NewReportPolicy()

	achievements := NewAchievementService(catalog, achievementRepo, log, testMetrics)
	gamification := NewGamificationService(pointRepo, userRepo, achievements, reportPolicy, notifier, log, testMetrics)
	service := NewReportService(
		reportRepo, userRepo, reportPolicy, gamification, publisher, notifier,
		helpers.NewCustomValidator(), helpers.NewIDGenerator(), log, testMetrics)

	return &reportServiceFixture{
		service:   service,
		mock:      mock,
		publisher: publisher,
		notifier:  notifier,
	}
}

var reportQueryColumns = []string{
	"id", "code", "reporter_id", "title", "description", "category", "severity", "tags",
	"area_value", "area_unit", "latitude", "longitude", "address", "region",
	"validation_score", "status", "reviewer_id", "review_notes", "reviewed_at",
	"escalated_to", "escalation_notes", "escalated_at", "created_at", "updated_at",
}

func reportRow(id uint64, reporterID uint64, status models.ReportStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(reportQueryColumns).AddRow(
		id, "RPT-20250830-ABC123", reporterID, "Cutting near the creek",
		strings.Repeat("d", 150), "illegal_cutting", "high", `["mangrove"]`,
		nil, nil, 21.95, 88.73, "", "sundarbans",
		55, string(status), nil, "", nil, "", "", nil, now, now,
	)
}

func userRowColumns() []string {
	return []string{"id", "name", "phone", "email", "role", "region", "points", "level", "role_info", "created_at", "updated_at"}
}

func userRow(id uint64, role models.UserRole, points int64, level int32) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userRowColumns()).
		AddRow(id, "Asha", "", "", string(role), "sundarbans", points, level, nil, now, now)
}

// expectFindReport sets up the five queries FindByID issues: the report row,
// its photos, videos, like count and comments.
func expectFindReport(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT (.+) FROM reports").WillReturnRows(rows)
	mock.ExpectQuery("SELECT id, report_id, url, caption, verified, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "url", "caption", "verified", "created_at"}))
	mock.ExpectQuery("SELECT id, report_id, url, caption, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "url", "caption", "created_at"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM report_likes").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT id, report_id, user_id, body, created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "report_id", "user_id", "body", "created_at"}))
}

// expectAward sets up the single-transaction point award and the follow-up
// level refresh read.
func expectAward(mock sqlmock.Sqlmock, userID uint64, newTotal int64, level int32) {
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO point_logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE users SET points").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT points FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(newTotal))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT id, name, phone, email, role, region, points, level, role_info").
		WillReturnRows(userRow(userID, models.RoleCitizen, newTotal, level))
}

// expectEvaluation sets up an achievement evaluation pass that grants
// nothing: already-earned ids, activity aggregates and the points total.
func expectEvaluation(mock sqlmock.Sqlmock, points int64) {
	mock.ExpectQuery("SELECT achievement_id FROM user_achievements").
		WillReturnRows(sqlmock.NewRows([]string{"achievement_id"}))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WillReturnRows(sqlmock.NewRows([]string{"count", "validated", "categories", "locations"}).
			AddRow(1, 0, 1, 1))
	mock.ExpectQuery("SELECT points FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"points"}).AddRow(points))
}

func validSubmitInput() SubmitReportInput {
	return SubmitReportInput{
		Title:       "Cutting near the creek",
		Description: strings.Repeat("d", 150),
		Category:    "illegal_cutting",
		Severity:    "high",
		Latitude:    floatPtr(21.95),
		Longitude:   floatPtr(88.73),
		Region:      "sundarbans",
		Tags:        []string{"mangrove"},
		Photos:      []EvidenceInput{{URL: "https://cdn.example/p1.jpg"}},
	}
}

func TestReportService_SubmitReport(t *testing.T) {
	ctx := context.Background()
	reporter := &models.User{ID: 7, Role: models.RoleCitizen, Level: 1}

	t.Run("Success", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectBegin()
		f.mock.ExpectExec("INSERT INTO reports").WillReturnResult(sqlmock.NewResult(1, 1))
		f.mock.ExpectExec("INSERT INTO report_photos").WillReturnResult(sqlmock.NewResult(1, 1))
		f.mock.ExpectCommit()

		expectAward(f.mock, 7, 10, 1)
		expectEvaluation(f.mock, 10)

		report, err := f.service.SubmitReport(ctx, reporter, validSubmitInput())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), report.ID)
		assert.Equal(t, models.StatusPending, report.Status)
		assert.True(t, strings.HasPrefix(report.Code, "RPT-"))
		// 10 base + 20 photo + 15 coordinates + 10 long description + 5 tag.
		assert.Equal(t, int32(60), report.ValidationScore)

		require.Len(t, f.publisher.submitted, 1)
		assert.Equal(t, uint64(1), f.publisher.submitted[0].ReportID)
		assert.Len(t, f.notifier.byTemplate(models.TemplateReportSubmitted), 1)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("TitleTooShort", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		input := validSubmitInput()
		input.Title = "Cut"

		_, err := f.service.SubmitReport(ctx, reporter, input)
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		input := validSubmitInput()
		input.Category = "volcano"

		_, err := f.service.SubmitReport(ctx, reporter, input)
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})

	t.Run("MissingCoordinates", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		input := validSubmitInput()
		input.Latitude = nil

		_, err := f.service.SubmitReport(ctx, reporter, input)
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})

	t.Run("NegativeArea", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		input := validSubmitInput()
		input.AreaValue = "-3.5"

		_, err := f.service.SubmitReport(ctx, reporter, input)
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})
}

func TestReportService_ReviewReport(t *testing.T) {
	ctx := context.Background()
	reviewer := &models.User{ID: 3, Role: models.RoleNGO}

	t.Run("ValidateFromPending", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusPending))
		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))
		expectAward(f.mock, 7, 60, 1)
		expectEvaluation(f.mock, 60)

		report, err := f.service.ReviewReport(ctx, reviewer, 1, ReviewInput{Decision: "validated", Notes: "confirmed on site"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusValidated, report.Status)
		require.NotNil(t, report.ReviewerID)
		assert.Equal(t, uint64(3), *report.ReviewerID)

		require.Len(t, f.publisher.reviewed, 1)
		assert.Equal(t, models.StatusPending, f.publisher.reviewed[0].PreviousStatus)
		assert.Equal(t, models.StatusValidated, f.publisher.reviewed[0].NewStatus)
		assert.Len(t, f.notifier.byTemplate(models.TemplateReportValidated), 1)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("EscalateRoutesByReviewerRole", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusUnderReview))
		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))
		expectAward(f.mock, 7, 40, 1)
		expectEvaluation(f.mock, 40)

		government := &models.User{ID: 9, Role: models.RoleGovernment}
		report, err := f.service.ReviewReport(ctx, government, 1, ReviewInput{Decision: "escalated", Notes: "needs enforcement"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusEscalated, report.Status)
		assert.Equal(t, "government", report.EscalatedTo)

		require.Len(t, f.publisher.reviewed, 1)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("RejectAwardsNothing", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusPending))
		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))
		// No award for a rejection; achievements are still re-evaluated.
		expectEvaluation(f.mock, 10)

		report, err := f.service.ReviewReport(ctx, reviewer, 1, ReviewInput{Decision: "rejected", Notes: "no evidence"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, report.Status)
		assert.Len(t, f.notifier.byTemplate(models.TemplateReportRejected), 1)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("InvalidDecisionValue", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		_, err := f.service.ReviewReport(ctx, reviewer, 1, ReviewInput{Decision: "approved"})
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})

	t.Run("NonAdminCannotOverrideDecision", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusValidated))

		_, err := f.service.ReviewReport(ctx, reviewer, 1, ReviewInput{Decision: "rejected"})
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Empty(t, f.publisher.reviewed)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("AdminOverridesDecision", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)
		admin := &models.User{ID: 1, Role: models.RoleAdmin}

		expectFindReport(f.mock, reportRow(1, 7, models.StatusValidated))
		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))
		expectEvaluation(f.mock, 60)

		report, err := f.service.ReviewReport(ctx, admin, 1, ReviewInput{Decision: "rejected", Notes: "overturned"})
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, report.Status)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("LostRaceReportsConflict", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusPending))
		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 0))
		// Re-read shows another reviewer moved it to validated first.
		expectFindReport(f.mock, reportRow(1, 7, models.StatusValidated))

		_, err := f.service.ReviewReport(ctx, reviewer, 1, ReviewInput{Decision: "rejected"})
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		assert.Empty(t, f.publisher.reviewed)

		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestReportService_StartReview(t *testing.T) {
	ctx := context.Background()

	t.Run("CitizenForbidden", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		err := f.service.StartReview(ctx, &models.User{ID: 7, Role: models.RoleCitizen}, 1)
		assert.ErrorIs(t, err, errs.ErrForbidden)
	})

	t.Run("ClaimsPendingReport", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))

		err := f.service.StartReview(ctx, &models.User{ID: 3, Role: models.RoleNGO}, 1)
		require.NoError(t, err)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("AlreadyClaimedReportsConflict", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 0))
		expectFindReport(f.mock, reportRow(1, 7, models.StatusUnderReview))

		err := f.service.StartReview(ctx, &models.User{ID: 3, Role: models.RoleNGO}, 1)
		assert.ErrorIs(t, err, errs.ErrConflictingUpdate)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestReportService_ResolveReport(t *testing.T) {
	ctx := context.Background()
	reviewer := &models.User{ID: 3, Role: models.RoleNGO}

	t.Run("ResolvesDecidedReport", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, f.service.ResolveReport(ctx, reviewer, 1))
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("PendingCannotResolve", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("UPDATE reports").WillReturnResult(sqlmock.NewResult(0, 0))
		expectFindReport(f.mock, reportRow(1, 7, models.StatusPending))

		err := f.service.ResolveReport(ctx, reviewer, 1)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestReportService_DeleteReport(t *testing.T) {
	ctx := context.Background()

	t.Run("AuthorDeletesPending", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusPending))
		f.mock.ExpectExec("UPDATE reports SET deleted_at").WillReturnResult(sqlmock.NewResult(0, 1))

		err := f.service.DeleteReport(ctx, &models.User{ID: 7, Role: models.RoleCitizen}, 1)
		require.NoError(t, err)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})

	t.Run("AuthorCannotDeleteUnderReview", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		expectFindReport(f.mock, reportRow(1, 7, models.StatusUnderReview))

		err := f.service.DeleteReport(ctx, &models.User{ID: 7, Role: models.RoleCitizen}, 1)
		assert.ErrorIs(t, err, errs.ErrForbidden)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestReportService_ToggleLike(t *testing.T) {
	ctx := context.Background()
	actor := &models.User{ID: 7, Role: models.RoleCitizen}

	t.Run("FirstLike", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("INSERT INTO report_likes").WillReturnResult(sqlmock.NewResult(1, 1))

		liked, err := f.service.ToggleLike(ctx, actor, 1)
		require.NoError(t, err)
		assert.True(t, liked)
	})

	t.Run("SecondLikeUnlikes", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("INSERT INTO report_likes").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
		f.mock.ExpectExec("DELETE FROM report_likes").WillReturnResult(sqlmock.NewResult(0, 1))

		liked, err := f.service.ToggleLike(ctx, actor, 1)
		require.NoError(t, err)
		assert.False(t, liked)
		require.NoError(t, f.mock.ExpectationsWereMet())
	})
}

func TestReportService_AddComment(t *testing.T) {
	ctx := context.Background()
	actor := &models.User{ID: 7, Role: models.RoleCitizen}

	t.Run("Success", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		f.mock.ExpectExec("INSERT INTO report_comments").WillReturnResult(sqlmock.NewResult(5, 1))

		comment, err := f.service.AddComment(ctx, actor, 1, "  saw this yesterday too  ")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), comment.ID)
		assert.Equal(t, "saw this yesterday too", comment.Body)
	})

	t.Run("EmptyBody", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		_, err := f.service.AddComment(ctx, actor, 1, "   ")
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})

	t.Run("TooLong", func(t *testing.T) {
		f := newReportServiceFixture(t, nil)

		_, err := f.service.AddComment(ctx, actor, 1, strings.Repeat("x", 1001))
		assert.ErrorIs(t, err, errs.ErrInvalidContent)
	})
}
