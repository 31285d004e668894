package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_like_profile_project" json:"profile_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_like_profile_project;index" json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Like) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

const MaxCommentLength = 1000

type Comment struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;index" json:"profile_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;index" json:"project_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	// Relations
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CommentResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProfileID uuid.UUID       `json:"profile_id"`
	ProjectID uuid.UUID       `json:"project_id"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Profile   *ProfileSummary `json:"profile,omitempty"`
}

func (c *Comment) ToResponse() CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		ProfileID: c.ProfileID,
		ProjectID: c.ProjectID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Profile:   summaryOf(c.Profile),
	}
}

func CommentsToResponse(comments []Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		out = append(out, comments[i].ToResponse())
	}
	return out
}
