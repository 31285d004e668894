package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/metrics"
	"github.com/projectstack/projectstack/internal/models"
	"gorm.io/gorm"
)

// EngagementService handles likes and comments on projects.
type EngagementService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewEngagementService(db *gorm.DB, notifier Notifier) *EngagementService {
	return &EngagementService{db: db, notifier: notifier}
}

// ToggleLike likes the project if profileID has not, and unlikes it otherwise.
// It reports the resulting state.
func (s *EngagementService) ToggleLike(ctx context.Context, profileID, projectID uuid.UUID) (bool, error) {
	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.Select("id", "author_id", "title").First(&project, "id = ?", projectID).Error; err != nil {
		return false, apperr.FromStore(err, "Project not found")
	}
	var liker models.Profile
	if err := db.Select("id", "display_name").First(&liker, "id = ?", profileID).Error; err != nil {
		return false, apperr.FromStore(err, "Profile not found")
	}

	var liked, created bool
	err := db.Transaction(func(tx *gorm.DB) error {
		var like models.Like
		err := tx.Where("profile_id = ? AND project_id = ?", profileID, projectID).First(&like).Error
		switch {
		case err == nil:
			liked = false
			return tx.Delete(&like).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			liked = true
			if err := tx.Create(&models.Like{ProfileID: profileID, ProjectID: projectID}).Error; err != nil {
				return err
			}
			created = true
			return nil
		default:
			return err
		}
	})
	switch {
	case err != nil && liked && apperr.IsUniqueViolation(err):
		// A concurrent toggle liked it first.
		created = false
	case err != nil:
		return false, apperr.FromStore(err, "Project not found")
	}

	if liked {
		metrics.LikeToggles.WithLabelValues("liked").Inc()
	} else {
		metrics.LikeToggles.WithLabelValues("unliked").Inc()
	}

	if project.AuthorID == profileID {
		return liked, nil
	}
	if created {
		notifyBestEffort(ctx, s.notifier, &models.Notification{
			RecipientID: project.AuthorID,
			ActorID:     uuidPtr(profileID),
			Type:        models.NotificationLike,
			Message:     fmt.Sprintf("%s liked your project %s", liker.DisplayName, project.Title),
			ProjectID:   uuidPtr(projectID),
		})
	} else if !liked {
		retractBestEffort(ctx, s.notifier, project.AuthorID, profileID, projectID, models.NotificationLike)
	}
	return liked, nil
}

func (s *EngagementService) AddComment(ctx context.Context, profileID, projectID uuid.UUID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > models.MaxCommentLength {
		return nil, apperr.Validation(fmt.Sprintf("Comment cannot exceed %d characters", models.MaxCommentLength))
	}

	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.Select("id", "author_id", "title").First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	var writer models.Profile
	if err := db.First(&writer, "id = ?", profileID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}

	comment := &models.Comment{ProfileID: profileID, ProjectID: projectID, Content: content}
	if err := db.Create(comment).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	comment.Profile = &writer

	if project.AuthorID != profileID {
		notifyBestEffort(ctx, s.notifier, &models.Notification{
			RecipientID: project.AuthorID,
			ActorID:     uuidPtr(profileID),
			Type:        models.NotificationComment,
			Message:     fmt.Sprintf("%s commented on your project %s", writer.DisplayName, project.Title),
			ProjectID:   uuidPtr(projectID),
		})
	}
	return comment, nil
}

// ListComments returns a page of comments, newest first.
func (s *EngagementService) ListComments(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	db := s.db.WithContext(ctx)
	var exists int64
	if err := db.Model(&models.Project{}).Where("id = ?", projectID).Count(&exists).Error; err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	if exists == 0 {
		return nil, apperr.NotFound("Project not found")
	}

	comments := make([]models.Comment, 0)
	err := db.Where("project_id = ?", projectID).
		Preload("Profile").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, apperr.FromStore(err, "Project not found")
	}
	return comments, nil
}

// DeleteComment lets the writer or the project author remove a comment.
func (s *EngagementService) DeleteComment(ctx context.Context, commentID, callerID uuid.UUID) error {
	db := s.db.WithContext(ctx)

	var comment models.Comment
	if err := db.First(&comment, "id = ?", commentID).Error; err != nil {
		return apperr.FromStore(err, "Comment not found")
	}
	if comment.ProfileID != callerID {
		var project models.Project
		if err := db.Select("id", "author_id").First(&project, "id = ?", comment.ProjectID).Error; err != nil {
			return apperr.FromStore(err, "Project not found")
		}
		if project.AuthorID != callerID {
			return apperr.Forbidden("You can only delete your own comments")
		}
	}
	return apperr.FromStore(db.Delete(&comment).Error, "Comment not found")
}
