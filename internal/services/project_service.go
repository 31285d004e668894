package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProjectInput struct {
	Title          string               `json:"title" binding:"required,max=200"`
	Description    string               `json:"description" binding:"required"`
	RequiredSkills []string             `json:"required_skills"`
	Status         models.ProjectStatus `json:"status"`
	IsActive       *bool                `json:"is_active"`
	StartDate      *time.Time           `json:"start_date"`
	EndDate        *time.Time           `json:"end_date"`
	GithubURL      string               `json:"github_url" binding:"omitempty,url"`
	LiveURL        string               `json:"live_url" binding:"omitempty,url"`
}

// ProjectUpdate patches only the fields that are present.
type ProjectUpdate struct {
	Title          *string               `json:"title" binding:"omitempty,max=200"`
	Description    *string               `json:"description"`
	RequiredSkills *[]string             `json:"required_skills"`
	Status         *models.ProjectStatus `json:"status"`
	IsActive       *bool                 `json:"is_active"`
	StartDate      *time.Time            `json:"start_date"`
	EndDate        *time.Time            `json:"end_date"`
	GithubURL      *string               `json:"github_url" binding:"omitempty,url"`
	LiveURL        *string               `json:"live_url" binding:"omitempty,url"`
}

type ProjectFilter struct {
	Status     models.ProjectStatus
	Skill      string
	AuthorID   *uuid.UUID
	ActiveOnly bool
	Limit      int
	Offset     int
}

// imageRemover cleans up stored images that no longer have an owner.
type imageRemover interface {
	DeleteBestEffort(ctx context.Context, url string)
}

type ProjectService struct {
	db       *gorm.DB
	notifier Notifier
	images   imageRemover
}

// NewProjectService builds the store; images may be nil.
func NewProjectService(db *gorm.DB, notifier Notifier, images imageRemover) *ProjectService {
	return &ProjectService{db: db, notifier: notifier, images: images}
}

func (s *ProjectService) Create(ctx context.Context, authorID uuid.UUID, input ProjectInput) (*models.Project, error) {
	project := &models.Project{
		AuthorID:       authorID,
		Title:          strings.TrimSpace(input.Title),
		Description:    strings.TrimSpace(input.Description),
		RequiredSkills: models.NormalizeSkills(input.RequiredSkills),
		Status:         models.ProjectStatusPlanning,
		IsActive:       true,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		GithubURL:      strings.TrimSpace(input.GithubURL),
		LiveURL:        strings.TrimSpace(input.LiveURL),
	}
	if input.Status != "" {
		project.Status = input.Status
	}
	if input.IsActive != nil {
		project.IsActive = *input.IsActive
	}
	if err := validateProject(project); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var author models.Profile
	if err := db.First(&author, "id = ?", authorID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}

	if err := db.Create(project).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	project.Author = &author

	log.Info().Str("project", project.ID.String()).Str("author", authorID.String()).Msg("Project created")
	return project, nil
}

func (s *ProjectService) Update(ctx context.Context, projectID, callerID uuid.UUID, input ProjectUpdate) (*models.Project, error) {
	project, err := s.loadOwned(ctx, projectID, callerID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		project.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		project.Description = strings.TrimSpace(*input.Description)
	}
	if input.RequiredSkills != nil {
		project.RequiredSkills = models.NormalizeSkills(*input.RequiredSkills)
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.IsActive != nil {
		project.IsActive = *input.IsActive
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}
	patchString(&project.GithubURL, input.GithubURL)
	patchString(&project.LiveURL, input.LiveURL)

	if err := validateProject(project); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Save(project).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	return project, nil
}

func validateProject(p *models.Project) error {
	if p.Title == "" {
		return apperr.Validation("Title is required")
	}
	if p.Description == "" {
		return apperr.Validation("Description is required")
	}
	if !p.Status.Valid() {
		return apperr.Validation(fmt.Sprintf("Invalid status: %s", p.Status))
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return apperr.Validation("End date cannot be before start date")
	}
	return nil
}

// Get returns the project with its engagement counters. viewerID may be nil
// for anonymous callers.
func (s *ProjectService) Get(ctx context.Context, projectID uuid.UUID, viewerID *uuid.UUID) (*models.ProjectView, error) {
	view := &models.ProjectView{}
	if err := s.db.WithContext(ctx).Preload("Author").First(&view.Project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}

	count := func(ctx context.Context, model any, dst *int64, query string, args ...any) func() error {
		return func() error {
			return s.db.WithContext(ctx).Model(model).Where(query, args...).Count(dst).Error
		}
	}

	var liked int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(count(egCtx, &models.Like{}, &view.LikeCount, "project_id = ?", projectID))
	eg.Go(count(egCtx, &models.Comment{}, &view.CommentCount, "project_id = ?", projectID))
	eg.Go(count(egCtx, &models.Contributor{}, &view.ContributorCount, "project_id = ?", projectID))
	if viewerID != nil {
		eg.Go(count(egCtx, &models.Like{}, &liked, "project_id = ? AND profile_id = ?", projectID, *viewerID))
	}
	if err := eg.Wait(); err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	view.LikedByViewer = liked > 0
	return view, nil
}

// List returns projects newest first. The skill filter runs in Go against
// the normalised skill set so it behaves the same on every dialect.
func (s *ProjectService) List(ctx context.Context, filter ProjectFilter) ([]models.Project, error) {
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = defaultPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := s.db.WithContext(ctx).Model(&models.Project{}).Preload("Author").Order("created_at DESC")
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperr.Validation(fmt.Sprintf("Invalid status: %s", filter.Status))
		}
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}

	projects := make([]models.Project, 0)
	skill := strings.TrimSpace(filter.Skill)
	if skill == "" {
		if err := query.Limit(filter.Limit).Offset(filter.Offset).Find(&projects).Error; err != nil {
			return nil, apperr.FromStore(err, "Projects not found")
		}
		return projects, nil
	}

	var all []models.Project
	if err := query.Find(&all).Error; err != nil {
		return nil, apperr.FromStore(err, "Projects not found")
	}
	skipped := 0
	for _, p := range all {
		if !models.HasSkill(p.RequiredSkills, skill) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		projects = append(projects, p)
		if len(projects) == filter.Limit {
			break
		}
	}
	return projects, nil
}

// Delete removes the project together with its likes, comments, applications
// and contributors, then tells every applicant and contributor once.
func (s *ProjectService) Delete(ctx context.Context, projectID, callerID uuid.UUID) error {
	project, err := s.loadOwned(ctx, projectID, callerID)
	if err != nil {
		return err
	}

	var affected []uuid.UUID
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var applicants, contributors []uuid.UUID
		if err := tx.Model(&models.Application{}).Where("project_id = ?", projectID).Pluck("profile_id", &applicants).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Contributor{}).Where("project_id = ?", projectID).Pluck("profile_id", &contributors).Error; err != nil {
			return err
		}
		affected = affectedProfiles(project.AuthorID, applicants, contributors)

		for _, model := range []any{&models.Like{}, &models.Comment{}, &models.Application{}, &models.Contributor{}} {
			if err := tx.Where("project_id = ?", projectID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Project{}, "id = ?", projectID).Error
	})
	if err != nil {
		return apperr.FromStore(err, "Project not found")
	}

	log.Info().
		Str("project", projectID.String()).
		Int("notified", len(affected)).
		Msg("Project deleted")

	for _, profileID := range affected {
		notifyBestEffort(ctx, s.notifier, &models.Notification{
			RecipientID: profileID,
			ActorID:     uuidPtr(callerID),
			Type:        models.NotificationProjectDeleted,
			Message:     fmt.Sprintf("The project %s has been deleted by its author", project.Title),
			ProjectID:   uuidPtr(projectID),
		})
	}
	if s.images != nil && project.ThumbnailURL != "" {
		s.images.DeleteBestEffort(ctx, project.ThumbnailURL)
	}
	return nil
}

// affectedProfiles unions the id lists without duplicates or the author,
// in a stable order.
func affectedProfiles(authorID uuid.UUID, lists ...[]uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{authorID: {}}
	var out []uuid.UUID
	for _, list := range lists {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// SetThumbnail records a stored image as the project thumbnail and returns
// the URL it replaced.
func (s *ProjectService) SetThumbnail(ctx context.Context, projectID, callerID uuid.UUID, url string) (string, error) {
	project, err := s.loadOwned(ctx, projectID, callerID)
	if err != nil {
		return "", err
	}
	previous := project.ThumbnailURL
	if err := s.db.WithContext(ctx).Model(project).Update("thumbnail_url", url).Error; err != nil {
		return "", apperr.FromStore(err, "Project not found")
	}
	return previous, nil
}

// Owned fails unless callerID authored the project.
func (s *ProjectService) Owned(ctx context.Context, projectID, callerID uuid.UUID) error {
	_, err := s.loadOwned(ctx, projectID, callerID)
	return err
}

func (s *ProjectService) loadOwned(ctx context.Context, projectID, callerID uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := s.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if project.AuthorID != callerID {
		return nil, apperr.Forbidden("Only the project author can modify this project")
	}
	return &project, nil
}
