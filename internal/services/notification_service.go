package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/metrics"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

//go:generate mockgen -source=./notification_service.go -destination=./mocks/notifier.mock.go -package=svcmocks

// Notifier is what the other services need from the notification store.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification) error
	// Retract removes notifications of type t sent by actor to recipient about project.
	Retract(ctx context.Context, recipientID, actorID, projectID uuid.UUID, t models.NotificationType) error
}

// Mailer mirrors notifications to email.
type Mailer interface {
	Enabled() bool
	SendNotificationEmail(to, name string, n *models.Notification) error
}

type NotificationService struct {
	db     *gorm.DB
	mailer Mailer
}

// NewNotificationService builds the store; mailer may be nil.
func NewNotificationService(db *gorm.DB, mailer Mailer) *NotificationService {
	return &NotificationService{db: db, mailer: mailer}
}

func (s *NotificationService) Notify(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperr.FromStore(err, "Recipient not found")
	}
	if s.mailer != nil && s.mailer.Enabled() {
		s.mirrorByEmail(ctx, n)
	}
	return nil
}

func (s *NotificationService) mirrorByEmail(ctx context.Context, n *models.Notification) {
	var recipient struct {
		Email       string
		DisplayName string
	}
	err := s.db.WithContext(ctx).
		Table("profiles").
		Select("accounts.email, profiles.display_name").
		Joins("JOIN accounts ON accounts.id = profiles.account_id").
		Where("profiles.id = ?", n.RecipientID).
		Scan(&recipient).Error
	if err != nil || recipient.Email == "" {
		log.Warn().Err(err).Str("recipient", n.RecipientID.String()).Msg("No email for notification recipient")
		return
	}

	copied := *n
	go func() {
		if err := s.mailer.SendNotificationEmail(recipient.Email, recipient.DisplayName, &copied); err != nil {
			log.Warn().Err(err).Str("notification", copied.ID.String()).Msg("Failed to email notification")
		}
	}()
}

func (s *NotificationService) Retract(ctx context.Context, recipientID, actorID, projectID uuid.UUID, t models.NotificationType) error {
	err := s.db.WithContext(ctx).
		Where("recipient_id = ? AND actor_id = ? AND project_id = ? AND type = ?", recipientID, actorID, projectID, t).
		Delete(&models.Notification{}).Error
	return apperr.FromStore(err, "Notification not found")
}

// List returns the newest notifications for recipient first.
func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	notifications := make([]models.Notification, 0, limit)
	err := s.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Notifications not found")
	}
	return notifications, nil
}

// Delete removes one notification; only its recipient may do that.
func (s *NotificationService) Delete(ctx context.Context, id, callerID uuid.UUID) error {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return apperr.FromStore(err, "Notification not found")
	}
	if n.RecipientID != callerID {
		return apperr.Forbidden("You can only delete your own notifications")
	}
	return apperr.FromStore(s.db.WithContext(ctx).Delete(&n).Error, "Notification not found")
}

// Clear removes every notification of recipient and reports how many went.
func (s *NotificationService) Clear(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Delete(&models.Notification{})
	if res.Error != nil {
		return 0, apperr.FromStore(res.Error, "Notifications not found")
	}
	return res.RowsAffected, nil
}

// notifyBestEffort delivers n and swallows failures: losing a notification is
// acceptable, failing the triggering operation is not.
func notifyBestEffort(ctx context.Context, notifier Notifier, n *models.Notification) {
	if notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, n); err != nil {
		metrics.NotificationsDropped.Inc()
		log.Warn().Err(err).
			Str("type", string(n.Type)).
			Str("recipient", n.RecipientID.String()).
			Msg("Failed to create notification")
	}
}

func retractBestEffort(ctx context.Context, notifier Notifier, recipientID, actorID, projectID uuid.UUID, t models.NotificationType) {
	if notifier == nil {
		return
	}
	if err := notifier.Retract(ctx, recipientID, actorID, projectID, t); err != nil {
		log.Warn().Err(err).
			Str("type", string(t)).
			Str("recipient", recipientID.String()).
			Msg("Failed to retract notification")
	}
}

func uuidPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
