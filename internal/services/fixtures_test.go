package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createProfile(t *testing.T, db *gorm.DB, name string) *models.Profile {
	t.Helper()
	account := &models.Account{
		Email:           uuid.NewString() + "@example.com",
		Name:            name,
		Provider:        ProviderGoogle,
		ProviderSubject: uuid.NewString(),
	}
	require.NoError(t, db.Create(account).Error)

	profile := &models.Profile{
		AccountID:   account.ID,
		DisplayName: name,
		College:     "State College",
		Skills:      []string{"Go"},
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func createProject(t *testing.T, db *gorm.DB, authorID uuid.UUID, title string, opts ...func(*models.Project)) *models.Project {
	t.Helper()
	project := &models.Project{
		AuthorID:       authorID,
		Title:          title,
		Description:    title + " description",
		RequiredSkills: []string{"Go", "React"},
		Status:         models.ProjectStatusActive,
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(project)
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func notificationsOf(t *testing.T, db *gorm.DB, recipientID uuid.UUID, typ models.NotificationType) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, db.Where("recipient_id = ? AND type = ?", recipientID, typ).Find(&out).Error)
	return out
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}
