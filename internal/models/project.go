package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning  ProjectStatus = "Planning"
	ProjectStatusActive    ProjectStatus = "Active"
	ProjectStatusCompleted ProjectStatus = "Completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted:
		return true
	}
	return false
}

type Project struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	AuthorID       uuid.UUID                   `gorm:"type:uuid;not null;index" json:"author_id"`
	Title          string                      `gorm:"not null" json:"title"`
	Description    string                      `gorm:"type:text;not null" json:"description"`
	RequiredSkills datatypes.JSONSlice[string] `json:"required_skills"`
	Status         ProjectStatus               `gorm:"type:varchar(20);default:'Planning'" json:"status"`
	IsActive       bool                        `gorm:"not null" json:"is_active"`
	StartDate      *time.Time                  `json:"start_date,omitempty"`
	EndDate        *time.Time                  `json:"end_date,omitempty"`
	GithubURL      string                      `json:"github_url,omitempty"`
	LiveURL        string                      `json:"live_url,omitempty"`
	ThumbnailURL   string                      `json:"thumbnail_url,omitempty"`
	CreatedAt      time.Time                   `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`

	// Relations
	Author *Profile `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProjectView is a project with its engagement counters.
type ProjectView struct {
	Project
	LikeCount        int64 `json:"like_count"`
	CommentCount     int64 `json:"comment_count"`
	ContributorCount int64 `json:"contributor_count"`
	LikedByViewer    bool  `json:"liked_by_viewer"`
}

// ProjectResponse is a project with its author reduced to a summary.
type ProjectResponse struct {
	ID             uuid.UUID       `json:"id"`
	AuthorID       uuid.UUID       `json:"author_id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	RequiredSkills []string        `json:"required_skills"`
	Status         ProjectStatus   `json:"status"`
	IsActive       bool            `json:"is_active"`
	StartDate      *time.Time      `json:"start_date,omitempty"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	GithubURL      string          `json:"github_url,omitempty"`
	LiveURL        string          `json:"live_url,omitempty"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Author         *ProfileSummary `json:"author,omitempty"`
}

func (p *Project) ToResponse() ProjectResponse {
	skills := []string(p.RequiredSkills)
	if skills == nil {
		skills = []string{}
	}
	return ProjectResponse{
		ID:             p.ID,
		AuthorID:       p.AuthorID,
		Title:          p.Title,
		Description:    p.Description,
		RequiredSkills: skills,
		Status:         p.Status,
		IsActive:       p.IsActive,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		GithubURL:      p.GithubURL,
		LiveURL:        p.LiveURL,
		ThumbnailURL:   p.ThumbnailURL,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		Author:         summaryOf(p.Author),
	}
}

func projectResponseOf(p *Project) *ProjectResponse {
	if p == nil {
		return nil
	}
	r := p.ToResponse()
	return &r
}

// ProjectsToResponse maps a listing.
func ProjectsToResponse(projects []Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, projects[i].ToResponse())
	}
	return out
}

type ProjectViewResponse struct {
	ProjectResponse
	LikeCount        int64 `json:"like_count"`
	CommentCount     int64 `json:"comment_count"`
	ContributorCount int64 `json:"contributor_count"`
	LikedByViewer    bool  `json:"liked_by_viewer"`
}

func (v *ProjectView) ToResponse() ProjectViewResponse {
	return ProjectViewResponse{
		ProjectResponse:  v.Project.ToResponse(),
		LikeCount:        v.LikeCount,
		CommentCount:     v.CommentCount,
		ContributorCount: v.ContributorCount,
		LikedByViewer:    v.LikedByViewer,
	}
}
