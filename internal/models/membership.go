package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "Pending"
	ApplicationStatusAccepted ApplicationStatus = "Accepted"
	ApplicationStatusRejected ApplicationStatus = "Rejected"
)

// Application is one profile's request to join one project. The composite
// unique index is what keeps a pair to a single application.
type Application struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	ProfileID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_application_profile_project" json:"profile_id"`
	ProjectID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_application_profile_project;index" json:"project_id"`
	Status    ApplicationStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	Message   string            `gorm:"type:text" json:"message,omitempty"`
	AppliedAt time.Time         `gorm:"not null;index" json:"applied_at"`
	DecidedAt *time.Time        `json:"decided_at,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`

	// Relations
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.AppliedAt.IsZero() {
		a.AppliedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = ApplicationStatusPending
	}
	return nil
}

func (a *Application) IsDecided() bool {
	return a.Status != ApplicationStatusPending
}

// Contributor is confirmed membership of a profile in a project.
type Contributor struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ProfileID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contributor_profile_project" json:"profile_id"`
	ProjectID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contributor_profile_project;index" json:"project_id"`
	JoinedAt  time.Time `gorm:"not null;index" json:"joined_at"`

	// Relations
	Profile *Profile `gorm:"foreignKey:ProfileID" json:"profile,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

func (c *Contributor) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.JoinedAt.IsZero() {
		c.JoinedAt = time.Now()
	}
	return nil
}

// ApplicationResponse is an application with its applicant reduced to a summary.
type ApplicationResponse struct {
	ID        uuid.UUID         `json:"id"`
	ProfileID uuid.UUID         `json:"profile_id"`
	ProjectID uuid.UUID         `json:"project_id"`
	Status    ApplicationStatus `json:"status"`
	Message   string            `json:"message,omitempty"`
	AppliedAt time.Time         `json:"applied_at"`
	DecidedAt *time.Time        `json:"decided_at,omitempty"`
	Profile   *ProfileSummary   `json:"profile,omitempty"`
	Project   *ProjectResponse  `json:"project,omitempty"`
}

func (a *Application) ToResponse() ApplicationResponse {
	return ApplicationResponse{
		ID:        a.ID,
		ProfileID: a.ProfileID,
		ProjectID: a.ProjectID,
		Status:    a.Status,
		Message:   a.Message,
		AppliedAt: a.AppliedAt,
		DecidedAt: a.DecidedAt,
		Profile:   summaryOf(a.Profile),
		Project:   projectResponseOf(a.Project),
	}
}

func ApplicationsToResponse(applications []Application) []ApplicationResponse {
	out := make([]ApplicationResponse, 0, len(applications))
	for i := range applications {
		out = append(out, applications[i].ToResponse())
	}
	return out
}

// ContributorResponse is a membership with the member reduced to a summary.
type ContributorResponse struct {
	ID        uuid.UUID        `json:"id"`
	ProfileID uuid.UUID        `json:"profile_id"`
	ProjectID uuid.UUID        `json:"project_id"`
	JoinedAt  time.Time        `json:"joined_at"`
	Profile   *ProfileSummary  `json:"profile,omitempty"`
	Project   *ProjectResponse `json:"project,omitempty"`
}

func (c *Contributor) ToResponse() ContributorResponse {
	return ContributorResponse{
		ID:        c.ID,
		ProfileID: c.ProfileID,
		ProjectID: c.ProjectID,
		JoinedAt:  c.JoinedAt,
		Profile:   summaryOf(c.Profile),
		Project:   projectResponseOf(c.Project),
	}
}

func ContributorsToResponse(contributors []Contributor) []ContributorResponse {
	out := make([]ContributorResponse, 0, len(contributors))
	for i := range contributors {
		out = append(out, contributors[i].ToResponse())
	}
	return out
}

// ApplicationStatusView tells a client which affordance to show: apply,
// pending or contributing.
type ApplicationStatusView struct {
	HasApplied        bool               `json:"has_applied"`
	ApplicationStatus *ApplicationStatus `json:"application_status,omitempty"`
	IsContributor     bool               `json:"is_contributor"`
}
