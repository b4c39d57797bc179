package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"mangrovewatch/internal/models"
	sqlutil "mangrovewatch/pkg/db"
)

const reportColumns = `id, code, reporter_id, title, description, category, severity, tags,
	       area_value, area_unit, latitude, longitude, address, region,
	       validation_score, status, reviewer_id, review_notes, reviewed_at,
	       escalated_to, escalation_notes, escalated_at, created_at, updated_at`

// ReportRepository handles the reports table and its evidence, like and
// comment side tables.
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new repository instance.
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// StatusUpdate carries the review fields written alongside a transition.
type StatusUpdate struct {
	Status          models.ReportStatus
	ReviewerID      uint64
	ReviewNotes     string
	ReviewedAt      *time.Time
	EscalatedTo     string
	EscalationNotes string
	EscalatedAt     *time.Time
}

// Create persists a report with its evidence in one transaction and returns
// the new id.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tagsJSON, err := json.Marshal(report.Tags)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal tags: %w", err)
	}

	var areaValue, areaUnit interface{}
	if report.EstimatedArea != nil {
		areaValue = report.EstimatedArea.Value.String()
		areaUnit = report.EstimatedArea.Unit
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO reports (code, reporter_id, title, description, category, severity, tags,
		                     area_value, area_unit, latitude, longitude, address, region,
		                     validation_score, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Code,
		report.ReporterID,
		report.Title,
		report.Description,
		string(report.Category),
		string(report.Severity),
		string(tagsJSON),
		areaValue,
		areaUnit,
		report.Location.Latitude,
		report.Location.Longitude,
		report.Location.Address,
		report.Location.Region,
		report.ValidationScore,
		string(report.Status),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert report: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read insert id: %w", err)
	}
	reportID := uint64(id)

	for _, photo := range report.Photos {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO report_photos (report_id, url, caption, verified, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, reportID, photo.URL, photo.Caption, photo.Verified, now); err != nil {
			return 0, fmt.Errorf("failed to insert report photo: %w", err)
		}
	}

	for _, video := range report.Videos {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO report_videos (report_id, url, caption, created_at)
			VALUES (?, ?, ?, ?)
		`, reportID, video.URL, video.Caption, now); err != nil {
			return 0, fmt.Errorf("failed to insert report video: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}

	report.ID = reportID
	report.CreatedAt = now
	report.UpdatedAt = now
	return reportID, nil
}

// FindByID loads a report with its evidence, like count and comments.
// Tombstoned reports are not visible.
func (r *ReportRepository) FindByID(ctx context.Context, id uint64) (*models.Report, error) {
	query, params := sqlutil.NewSoftDeleteQuery(
		"SELECT "+reportColumns+" FROM reports", "reports",
	).Where("reports.id = ?", id).Build()

	report, err := r.scanReport(r.db.QueryRowContext(ctx, query, params...))
	if err != nil {
		return nil, err
	}

	if err := r.loadEvidence(ctx, report); err != nil {
		return nil, err
	}
	if err := r.loadEngagement(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// ListByReporter returns a reporter's reports, newest first.
func (r *ReportRepository) ListByReporter(ctx context.Context, reporterID uint64, limit int) ([]*models.Report, error) {
	builder := sqlutil.NewSoftDeleteQuery(
		"SELECT "+reportColumns+" FROM reports", "reports",
	).Where("reports.reporter_id = ?", reporterID).OrderBy("created_at DESC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, params := builder.Build()
	return r.queryReports(ctx, query, params...)
}

// ListByStatus returns reports in a given status, oldest first so review
// queues drain in submission order.
func (r *ReportRepository) ListByStatus(ctx context.Context, status models.ReportStatus, limit int) ([]*models.Report, error) {
	builder := sqlutil.NewSoftDeleteQuery(
		"SELECT "+reportColumns+" FROM reports", "reports",
	).Where("reports.status = ?", string(status)).OrderBy("created_at ASC")
	if limit > 0 {
		builder = builder.Limit(limit)
	}
	query, params := builder.Build()
	return r.queryReports(ctx, query, params...)
}

// UpdateContent rewrites the owner-editable fields and the recomputed
// validation score.
func (r *ReportRepository) UpdateContent(ctx context.Context, report *models.Report) error {
	tagsJSON, err := json.Marshal(report.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	var areaValue, areaUnit interface{}
	if report.EstimatedArea != nil {
		areaValue = report.EstimatedArea.Value.String()
		areaUnit = report.EstimatedArea.Unit
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET title = ?, description = ?, category = ?, severity = ?, tags = ?,
		    area_value = ?, area_unit = ?, latitude = ?, longitude = ?,
		    address = ?, region = ?, validation_score = ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`,
		report.Title,
		report.Description,
		string(report.Category),
		string(report.Severity),
		string(tagsJSON),
		areaValue,
		areaUnit,
		report.Location.Latitude,
		report.Location.Longitude,
		report.Location.Address,
		report.Location.Region,
		report.ValidationScore,
		report.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus performs a conditional status transition: the row is only
// written when the current status is one of the expected ones. The affected
// row count lets the caller distinguish a lost race from a missing report.
func (r *ReportRepository) UpdateStatus(ctx context.Context, reportID uint64, from []models.ReportStatus, update StatusUpdate) (int64, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{
		string(update.Status),
		update.ReviewerID,
		update.ReviewNotes,
		update.ReviewedAt,
		update.EscalatedTo,
		update.EscalationNotes,
		update.EscalatedAt,
		reportID,
	}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	query := fmt.Sprintf(`
		UPDATE reports
		SET status = ?, reviewer_id = ?, review_notes = ?, reviewed_at = ?,
		    escalated_to = ?, escalation_notes = ?, escalated_at = ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL AND status IN (%s)
	`, strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update report status: %w", err)
	}
	return res.RowsAffected()
}

// TransitionStatus moves a report between statuses without touching the
// review fields. Used for the closing resolved transition, which must keep
// the original reviewer's decision trail intact.
func (r *ReportRepository) TransitionStatus(ctx context.Context, reportID uint64, from []models.ReportStatus, to models.ReportStatus) (int64, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{string(to), reportID}
	for i, s := range from {
		placeholders[i] = "?"
		args = append(args, string(s))
	}

	query := fmt.Sprintf(`
		UPDATE reports
		SET status = ?, updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL AND status IN (%s)
	`, strings.Join(placeholders, ", "))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to transition report status: %w", err)
	}
	return res.RowsAffected()
}

// SoftDelete tombstones a report. The row and its review trail survive.
func (r *ReportRepository) SoftDelete(ctx context.Context, reportID uint64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = ? AND deleted_at IS NULL
	`, reportID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete report: %w", err)
	}
	return res.RowsAffected()
}

// ToggleLike flips a user's like on a report. Inserting twice lands on the
// unique (report_id, user_id) key, which is treated as an unlike.
func (r *ReportRepository) ToggleLike(ctx context.Context, reportID, userID uint64) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO report_likes (report_id, user_id, created_at) VALUES (?, ?, NOW())
	`, reportID, userID)
	if err == nil {
		return true, nil
	}

	if !isDuplicateEntry(err) {
		return false, fmt.Errorf("failed to like report: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM report_likes WHERE report_id = ? AND user_id = ?
	`, reportID, userID); err != nil {
		return false, fmt.Errorf("failed to unlike report: %w", err)
	}
	return false, nil
}

// AddComment appends a comment to a report.
func (r *ReportRepository) AddComment(ctx context.Context, comment *models.Comment) (uint64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO report_comments (report_id, user_id, body, created_at)
		VALUES (?, ?, ?, NOW())
	`, comment.ReportID, comment.UserID, comment.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to add comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	comment.ID = uint64(id)
	return comment.ID, nil
}

func (r *ReportRepository) queryReports(ctx context.Context, query string, args ...interface{}) ([]*models.Report, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*models.Report
	for rows.Next() {
		report, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *ReportRepository) scanReport(row rowScanner) (*models.Report, error) {
	var (
		report          models.Report
		severity        sql.NullString
		tagsJSON        sql.NullString
		areaValue       sql.NullString
		areaUnit        sql.NullString
		latitude        sql.NullFloat64
		longitude       sql.NullFloat64
		address         sql.NullString
		region          sql.NullString
		reviewerID      sql.NullInt64
		reviewNotes     sql.NullString
		reviewedAt      sql.NullTime
		escalatedTo     sql.NullString
		escalationNotes sql.NullString
		escalatedAt     sql.NullTime
	)

	err := row.Scan(
		&report.ID,
		&report.Code,
		&report.ReporterID,
		&report.Title,
		&report.Description,
		&report.Category,
		&severity,
		&tagsJSON,
		&areaValue,
		&areaUnit,
		&latitude,
		&longitude,
		&address,
		&region,
		&report.ValidationScore,
		&report.Status,
		&reviewerID,
		&reviewNotes,
		&reviewedAt,
		&escalatedTo,
		&escalationNotes,
		&escalatedAt,
		&report.CreatedAt,
		&report.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	report.Severity = models.ReportSeverity(severity.String)
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &report.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags for report %d: %w", report.ID, err)
		}
	}
	if areaValue.Valid {
		value, err := decimal.NewFromString(areaValue.String)
		if err != nil {
			return nil, fmt.Errorf("invalid area value for report %d: %w", report.ID, err)
		}
		report.EstimatedArea = &models.EstimatedArea{Value: value, Unit: areaUnit.String}
	}
	if latitude.Valid {
		report.Location.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		report.Location.Longitude = &longitude.Float64
	}
	report.Location.Address = address.String
	report.Location.Region = region.String
	if reviewerID.Valid {
		id := uint64(reviewerID.Int64)
		report.ReviewerID = &id
	}
	report.ReviewNotes = reviewNotes.String
	if reviewedAt.Valid {
		report.ReviewedAt = &reviewedAt.Time
	}
	report.EscalatedTo = escalatedTo.String
	report.EscalationNotes = escalationNotes.String
	if escalatedAt.Valid {
		report.EscalatedAt = &escalatedAt.Time
	}

	return &report, nil
}

func (r *ReportRepository) loadEvidence(ctx context.Context, report *models.Report) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, url, caption, verified, created_at
		FROM report_photos WHERE report_id = ? ORDER BY id
	`, report.ID)
	if err != nil {
		return fmt.Errorf("failed to load photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var photo models.Photo
		var caption sql.NullString
		if err := rows.Scan(&photo.ID, &photo.ReportID, &photo.URL, &caption, &photo.Verified, &photo.CreatedAt); err != nil {
			return err
		}
		photo.Caption = caption.String
		report.Photos = append(report.Photos, photo)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	videoRows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, url, caption, created_at
		FROM report_videos WHERE report_id = ? ORDER BY id
	`, report.ID)
	if err != nil {
		return fmt.Errorf("failed to load videos: %w", err)
	}
	defer videoRows.Close()

	for videoRows.Next() {
		var video models.Video
		var caption sql.NullString
		if err := videoRows.Scan(&video.ID, &video.ReportID, &video.URL, &caption, &video.CreatedAt); err != nil {
			return err
		}
		video.Caption = caption.String
		report.Videos = append(report.Videos, video)
	}
	return videoRows.Err()
}

func (r *ReportRepository) loadEngagement(ctx context.Context, report *models.Report) error {
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM report_likes WHERE report_id = ?
	`, report.ID).Scan(&report.LikeCount); err != nil {
		return fmt.Errorf("failed to count likes: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, report_id, user_id, body, created_at
		FROM report_comments WHERE report_id = ? ORDER BY created_at
	`, report.ID)
	if err != nil {
		return fmt.Errorf("failed to load comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var comment models.Comment
		if err := rows.Scan(&comment.ID, &comment.ReportID, &comment.UserID, &comment.Body, &comment.CreatedAt); err != nil {
			return err
		}
		report.Comments = append(report.Comments, comment)
	}
	return rows.Err()
}
