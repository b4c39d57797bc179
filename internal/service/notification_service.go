package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
	"mangrovewatch/pkg/logger"
)

// Notifier dispatches a templated notification to a user. Delivery is
// best-effort: a failure must never abort the domain operation that
// triggered it.
type Notifier interface {
	Notify(ctx context.Context, userID uint64, template, title, message string, data map[string]string)
}

// NotificationService persists notifications and fans out to the delivery
// channels.
type NotificationService struct {
	repo       *repository.NotificationRepository
	userRepo   *repository.UserRepository
	smsChannel SMSChannel
	email      EmailChannel
	log        *logger.Logger
}

// NewNotificationService creates the notification dispatcher.
func NewNotificationService(
	repo *repository.NotificationRepository,
	userRepo *repository.UserRepository,
	smsChannel SMSChannel,
	email EmailChannel,
	log *logger.Logger,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		userRepo:   userRepo,
		smsChannel: smsChannel,
		email:      email,
		log:        log,
	}
}

// Notify stores an in-app notification and attempts SMS/email delivery.
// Every failure is logged and swallowed.
func (s *NotificationService) Notify(ctx context.Context, userID uint64, template, title, message string, data map[string]string) {
	notification := &models.Notification{
		UserID:    userID,
		Type:      template,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	if _, err := s.repo.Create(ctx, notification); err != nil {
		s.log.WithUserID(userID).WithField("template", template).
			WithError(err).Warn("failed to persist notification")
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		s.log.WithUserID(userID).WithError(err).Warn("failed to load user for notification delivery")
		return
	}

	if user.Phone != "" {
		if _, err := s.smsChannel.SendSMS(ctx, models.SMSPayload{
			Phone:   user.Phone,
			Message: message,
		}); err != nil {
			s.log.WithUserID(userID).WithField("template", template).
				WithError(err).Warn("failed to send SMS notification")
		}
	}

	if user.Email != "" {
		if _, err := s.email.SendEmail(ctx, models.EmailPayload{
			Email:   user.Email,
			Subject: title,
			Body:    message,
		}); err != nil {
			s.log.WithUserID(userID).WithField("template", template).
				WithError(err).Warn("failed to send email notification")
		}
	}
}

// ListForUser returns a user's notifications, newest first.
func (s *NotificationService) ListForUser(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkAsRead marks a single notification read. Marking one that does not
// exist, belongs to someone else or is already read reports not found.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID string, userID uint64) error {
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrNotFound
		}
		return err
	}
	return nil
}
