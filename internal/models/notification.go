package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationLike                NotificationType = "LIKE"
	NotificationComment             NotificationType = "COMMENT"
	NotificationApplicationReceived NotificationType = "APPLICATION_RECEIVED"
	NotificationApplicationAccepted NotificationType = "APPLICATION_ACCEPTED"
	NotificationApplicationRejected NotificationType = "APPLICATION_REJECTED"
	NotificationContributorRemoved  NotificationType = "CONTRIBUTOR_REMOVED"
	NotificationProjectDeleted      NotificationType = "PROJECT_DELETED"
)

// Notification references projects and applications by id only, so it
// outlives them.
type Notification struct {
	ID            uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	RecipientID   uuid.UUID        `gorm:"type:uuid;not null;index" json:"recipient_id"`
	ActorID       *uuid.UUID       `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	Type          NotificationType `gorm:"type:varchar(32);not null;index" json:"type"`
	Message       string           `gorm:"not null" json:"message"`
	ProjectID     *uuid.UUID       `gorm:"type:uuid;index" json:"project_id,omitempty"`
	ApplicationID *uuid.UUID       `gorm:"type:uuid" json:"application_id,omitempty"`
	CreatedAt     time.Time        `gorm:"index" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
