package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/metrics"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	msgAlreadyApplied     = "You have already applied to this project"
	msgAlreadyContributor = "You are already a contributor to this project"
	msgNotAccepting       = "This project is not accepting applications"
	msgOwnProject         = "You cannot apply to your own project"
	msgAuthorOnly         = "Only the project author can manage applications"
)

// MembershipService drives the application lifecycle of a (profile, project)
// pair: NoApplication -> Pending -> Accepted | Rejected. Accepted and Rejected
// are terminal. Uniqueness of applications and contributors is enforced by
// the store; the checks here only produce friendlier messages.
type MembershipService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewMembershipService(db *gorm.DB, notifier Notifier) *MembershipService {
	return &MembershipService{db: db, notifier: notifier}
}

// Apply creates a Pending application of profileID to projectID.
func (s *MembershipService) Apply(ctx context.Context, profileID, projectID uuid.UUID, message string) (*models.Application, error) {
	db := s.db.WithContext(ctx)

	var applicant models.Profile
	if err := db.First(&applicant, "id = ?", profileID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}

	var project models.Project
	if err := db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}

	if project.AuthorID == profileID {
		return nil, apperr.Forbidden(msgOwnProject)
	}

	var contributors int64
	if err := db.Model(&models.Contributor{}).
		Where("profile_id = ? AND project_id = ?", profileID, projectID).
		Count(&contributors).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if contributors > 0 {
		return nil, apperr.Conflict(apperr.ErrAlreadyContributor, msgAlreadyContributor)
	}

	var applications int64
	if err := db.Model(&models.Application{}).
		Where("profile_id = ? AND project_id = ?", profileID, projectID).
		Count(&applications).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if applications > 0 {
		return nil, apperr.Conflict(apperr.ErrAlreadyApplied, msgAlreadyApplied)
	}
	// Existing members and applicants hear about that even once the project closes.
	if !project.IsActive {
		return nil, apperr.Conflict(apperr.ErrNotAccepting, msgNotAccepting)
	}

	application := &models.Application{
		ProfileID: profileID,
		ProjectID: projectID,
		Status:    models.ApplicationStatusPending,
		Message:   strings.TrimSpace(message),
		AppliedAt: time.Now(),
	}
	if err := insertApplication(db, application); err != nil {
		if errors.Is(err, apperr.ErrAlreadyApplied) {
			metrics.MembershipTransitions.WithLabelValues("apply", "conflict").Inc()
		}
		return nil, err
	}
	metrics.MembershipTransitions.WithLabelValues("apply", "ok").Inc()

	log.Info().
		Str("application", application.ID.String()).
		Str("profile", profileID.String()).
		Str("project", projectID.String()).
		Msg("Application submitted")

	notifyBestEffort(ctx, s.notifier, &models.Notification{
		RecipientID:   project.AuthorID,
		ActorID:       uuidPtr(profileID),
		Type:          models.NotificationApplicationReceived,
		Message:       fmt.Sprintf("%s applied to join %s", applicant.DisplayName, project.Title),
		ProjectID:     uuidPtr(project.ID),
		ApplicationID: uuidPtr(application.ID),
	})

	return application, nil
}

// insertApplication stores a new application. A concurrent apply that got
// past the pre-checks is caught by the unique index and reported as AlreadyApplied.
func insertApplication(db *gorm.DB, application *models.Application) error {
	if err := db.Create(application).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return apperr.Conflict(apperr.ErrAlreadyApplied, msgAlreadyApplied)
		}
		return apperr.FromStore(err, "Project not found")
	}
	return nil
}

// Accept moves a Pending application to Accepted and creates the contributor
// row in the same transaction.
func (s *MembershipService) Accept(ctx context.Context, applicationID, callerID uuid.UUID) (*models.Application, *models.Contributor, error) {
	return s.decide(ctx, applicationID, callerID, models.ApplicationStatusAccepted)
}

// Reject moves a Pending application to Rejected. No contributor is created.
func (s *MembershipService) Reject(ctx context.Context, applicationID, callerID uuid.UUID) (*models.Application, error) {
	application, _, err := s.decide(ctx, applicationID, callerID, models.ApplicationStatusRejected)
	return application, err
}

func (s *MembershipService) decide(ctx context.Context, applicationID, callerID uuid.UUID, to models.ApplicationStatus) (*models.Application, *models.Contributor, error) {
	transition := strings.ToLower(string(to))

	var application models.Application
	if err := s.db.WithContext(ctx).Preload("Project").First(&application, "id = ?", applicationID).Error; err != nil {
		return nil, nil, apperr.FromStore(err, "Application not found")
	}
	if application.Project == nil {
		return nil, nil, apperr.NotFound("Project not found")
	}
	if application.Project.AuthorID != callerID {
		return nil, nil, apperr.Forbidden(msgAuthorOnly)
	}
	if application.IsDecided() {
		metrics.MembershipTransitions.WithLabelValues(transition, "conflict").Inc()
		return nil, nil, alreadyDecided(application.Status)
	}

	now := time.Now()
	var contributor *models.Contributor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Guarded on the current status so a concurrent decision updates nothing.
		res := tx.Model(&models.Application{}).
			Where("id = ? AND status = ?", applicationID, models.ApplicationStatusPending).
			Updates(map[string]any{"status": to, "decided_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current models.Application
			if err := tx.Select("status").First(&current, "id = ?", applicationID).Error; err != nil {
				return err
			}
			return alreadyDecided(current.Status)
		}

		if to != models.ApplicationStatusAccepted {
			return nil
		}
		contributor = &models.Contributor{
			ProfileID: application.ProfileID,
			ProjectID: application.ProjectID,
			JoinedAt:  now,
		}
		if err := tx.Create(contributor).Error; err != nil {
			// The status update rolls back with it, so the application stays Pending.
			if apperr.IsUniqueViolation(err) {
				return apperr.Conflict(apperr.ErrAlreadyContributor, "Applicant is already a contributor to this project")
			}
			return err
		}
		return nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, apperr.ErrAlreadyDecided) || errors.Is(err, apperr.ErrAlreadyContributor) {
			outcome = "conflict"
		}
		metrics.MembershipTransitions.WithLabelValues(transition, outcome).Inc()
		return nil, nil, apperr.FromStore(err, "Application not found")
	}
	metrics.MembershipTransitions.WithLabelValues(transition, "ok").Inc()

	application.Status = to
	application.DecidedAt = &now

	log.Info().
		Str("application", application.ID.String()).
		Str("status", string(to)).
		Msg("Application decided")

	notification := &models.Notification{
		RecipientID:   application.ProfileID,
		ActorID:       uuidPtr(callerID),
		ProjectID:     uuidPtr(application.ProjectID),
		ApplicationID: uuidPtr(application.ID),
	}
	if to == models.ApplicationStatusAccepted {
		notification.Type = models.NotificationApplicationAccepted
		notification.Message = fmt.Sprintf("Your application to %s was accepted. Welcome aboard!", application.Project.Title)
	} else {
		notification.Type = models.NotificationApplicationRejected
		notification.Message = fmt.Sprintf("Your application to %s was not accepted", application.Project.Title)
	}
	notifyBestEffort(ctx, s.notifier, notification)

	return &application, contributor, nil
}

func alreadyDecided(status models.ApplicationStatus) *apperr.Error {
	return apperr.Conflict(apperr.ErrAlreadyDecided, fmt.Sprintf("Application already %s", strings.ToLower(string(status))))
}

// CheckStatus reports whether profileID has applied to projectID, the
// application's status if so, and whether it is a contributor.
func (s *MembershipService) CheckStatus(ctx context.Context, profileID, projectID uuid.UUID) (models.ApplicationStatusView, error) {
	var (
		view         models.ApplicationStatusView
		applications []models.Application
		contributors int64
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return s.db.WithContext(egCtx).
			Select("status").
			Where("profile_id = ? AND project_id = ?", profileID, projectID).
			Limit(1).
			Find(&applications).Error
	})
	eg.Go(func() error {
		return s.db.WithContext(egCtx).
			Model(&models.Contributor{}).
			Where("profile_id = ? AND project_id = ?", profileID, projectID).
			Count(&contributors).Error
	})
	if err := eg.Wait(); err != nil {
		return view, apperr.FromStore(err, "Project not found")
	}

	if len(applications) > 0 {
		status := applications[0].Status
		view.HasApplied = true
		view.ApplicationStatus = &status
	}
	view.IsContributor = contributors > 0
	return view, nil
}

// RemoveContributor deletes a membership. The originating application keeps
// its Accepted status.
func (s *MembershipService) RemoveContributor(ctx context.Context, contributorID, callerID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var contributor models.Contributor
	if err := db.Preload("Project").First(&contributor, "id = ?", contributorID).Error; err != nil {
		return apperr.FromStore(err, "Contributor not found")
	}
	if contributor.Project == nil {
		return apperr.NotFound("Project not found")
	}
	if contributor.Project.AuthorID != callerID {
		return apperr.Forbidden("Only the project author can remove contributors")
	}

	res := db.Delete(&models.Contributor{}, "id = ?", contributorID)
	if res.Error != nil {
		return apperr.FromStore(res.Error, "Contributor not found")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Contributor not found")
	}
	metrics.MembershipTransitions.WithLabelValues("remove", "ok").Inc()

	notifyBestEffort(ctx, s.notifier, &models.Notification{
		RecipientID: contributor.ProfileID,
		ActorID:     uuidPtr(callerID),
		Type:        models.NotificationContributorRemoved,
		Message:     fmt.Sprintf("You were removed from %s", contributor.Project.Title),
		ProjectID:   uuidPtr(contributor.ProjectID),
	})
	return nil
}

// ProjectApplications lists a project's applications, newest first. Only the
// author may see them.
func (s *MembershipService) ProjectApplications(ctx context.Context, projectID, callerID uuid.UUID) ([]models.Application, error) {
	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.Select("id", "author_id").First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if project.AuthorID != callerID {
		return nil, apperr.Forbidden(msgAuthorOnly)
	}

	applications := make([]models.Application, 0)
	err := db.Where("project_id = ?", projectID).
		Preload("Profile").
		Order("applied_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	return applications, nil
}

// UserApplications lists the applications profileID has made, newest first.
func (s *MembershipService) UserApplications(ctx context.Context, profileID uuid.UUID) ([]models.Application, error) {
	applications := make([]models.Application, 0)
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Preload("Project").
		Preload("Project.Author").
		Order("applied_at DESC").
		Find(&applications).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	return applications, nil
}

// ProjectContributors lists the members of a project, most recent first.
func (s *MembershipService) ProjectContributors(ctx context.Context, projectID uuid.UUID) ([]models.Contributor, error) {
	db := s.db.WithContext(ctx)

	var exists int64
	if err := db.Model(&models.Project{}).Where("id = ?", projectID).Count(&exists).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if exists == 0 {
		return nil, apperr.NotFound("Project not found")
	}

	contributors := make([]models.Contributor, 0)
	err := db.Where("project_id = ?", projectID).
		Preload("Profile").
		Order("joined_at DESC").
		Find(&contributors).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	return contributors, nil
}

// UserContributions lists the projects profileID contributes to, most recent first.
func (s *MembershipService) UserContributions(ctx context.Context, profileID uuid.UUID) ([]models.Contributor, error) {
	contributions := make([]models.Contributor, 0)
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Preload("Project").
		Preload("Project.Author").
		Order("joined_at DESC").
		Find(&contributions).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	return contributions, nil
}
