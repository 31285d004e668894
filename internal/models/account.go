package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is the authenticated identity behind a Profile.
type Account struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email           string    `gorm:"uniqueIndex;not null" json:"email"`
	Name            string    `json:"name"`
	Provider        string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_account_provider_subject" json:"provider"`
	ProviderSubject string    `gorm:"not null;uniqueIndex:idx_account_provider_subject" json:"-"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	LastLoginAt     time.Time `json:"last_login_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
