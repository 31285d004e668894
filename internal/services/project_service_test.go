package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/projectstack/projectstack/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func TestProjectService(t *testing.T) {
	suite.Run(t, new(ProjectSuite))
}

type recordingRemover struct {
	urls []string
}

func (r *recordingRemover) DeleteBestEffort(_ context.Context, url string) {
	r.urls = append(r.urls, url)
}

type ProjectSuite struct {
	suite.Suite
	db         *gorm.DB
	svc        *ProjectService
	membership *MembershipService
	engagement *EngagementService
	images     *recordingRemover
	author     *models.Profile
}

func (s *ProjectSuite) SetupTest() {
	t := s.T()
	s.db = test.NewDB(t)
	notifications := NewNotificationService(s.db, nil)
	s.images = &recordingRemover{}
	s.svc = NewProjectService(s.db, notifications, s.images)
	s.membership = NewMembershipService(s.db, notifications)
	s.engagement = NewEngagementService(s.db, notifications)
	s.author = createProfile(t, s.db, "Asha")
}

func (s *ProjectSuite) TestCreate_Defaults() {
	t := s.T()
	project, err := s.svc.Create(context.Background(), s.author.ID, ProjectInput{
		Title:          "  Campus Maps ",
		Description:    "Indoor maps",
		RequiredSkills: []string{"react", "Go", "React", " "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Campus Maps", project.Title)
	assert.Equal(t, models.ProjectStatusPlanning, project.Status)
	assert.True(t, project.IsActive)
	assert.Equal(t, []string{"Go", "react"}, []string(project.RequiredSkills))
	require.NotNil(t, project.Author)
	assert.Equal(t, "Asha", project.Author.DisplayName)

	var stored models.Project
	require.NoError(t, s.db.First(&stored, "id = ?", project.ID).Error)
	assert.True(t, stored.IsActive)
	assert.Equal(t, []string{"Go", "react"}, []string(stored.RequiredSkills))
}

func (s *ProjectSuite) TestCreate_Validation() {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	inactive := false

	testCases := []struct {
		name     string
		authorID uuid.UUID
		input    ProjectInput
		wantKind apperr.Kind
		wantMsg  string
	}{
		{
			name:     "blank title",
			authorID: s.author.ID,
			input:    ProjectInput{Title: "  ", Description: "x"},
			wantKind: apperr.KindValidation,
			wantMsg:  "Title is required",
		},
		{
			name:     "blank description",
			authorID: s.author.ID,
			input:    ProjectInput{Title: "x", Description: " "},
			wantKind: apperr.KindValidation,
			wantMsg:  "Description is required",
		},
		{
			name:     "unknown status",
			authorID: s.author.ID,
			input:    ProjectInput{Title: "x", Description: "x", Status: "Archived"},
			wantKind: apperr.KindValidation,
			wantMsg:  "Invalid status: Archived",
		},
		{
			name:     "end before start",
			authorID: s.author.ID,
			input:    ProjectInput{Title: "x", Description: "x", StartDate: &start, EndDate: &end, IsActive: &inactive},
			wantKind: apperr.KindValidation,
			wantMsg:  "End date cannot be before start date",
		},
		{
			name:     "unknown author",
			authorID: uuid.New(),
			input:    ProjectInput{Title: "x", Description: "x"},
			wantKind: apperr.KindNotFound,
			wantMsg:  "Profile not found",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := s.svc.Create(context.Background(), tc.authorID, tc.input)
			require.Error(s.T(), err)
			assert.Equal(s.T(), tc.wantKind, apperr.KindOf(err))
			assert.Equal(s.T(), tc.wantMsg, apperr.MessageOf(err))
		})
	}
}

func (s *ProjectSuite) TestUpdate() {
	t := s.T()
	ctx := context.Background()
	project := createProject(t, s.db, s.author.ID, "Campus Maps")

	title := "Campus Maps 2"
	status := models.ProjectStatusCompleted
	inactive := false
	updated, err := s.svc.Update(ctx, project.ID, s.author.ID, ProjectUpdate{
		Title:    &title,
		Status:   &status,
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, project.Description, updated.Description)

	var stored models.Project
	require.NoError(t, s.db.First(&stored, "id = ?", project.ID).Error)
	assert.Equal(t, models.ProjectStatusCompleted, stored.Status)
	assert.False(t, stored.IsActive)

	other := createProfile(t, s.db, "Bilal")
	_, err = s.svc.Update(ctx, project.ID, other.ID, ProjectUpdate{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func (s *ProjectSuite) TestGet_Counters() {
	t := s.T()
	ctx := context.Background()
	project := createProject(t, s.db, s.author.ID, "Campus Maps")
	fan := createProfile(t, s.db, "Bilal")

	_, err := s.engagement.ToggleLike(ctx, fan.ID, project.ID)
	require.NoError(t, err)
	_, err = s.engagement.AddComment(ctx, fan.ID, project.ID, "Nice")
	require.NoError(t, err)
	app, err := s.membership.Apply(ctx, fan.ID, project.ID, "")
	require.NoError(t, err)
	_, _, err = s.membership.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)

	view, err := s.svc.Get(ctx, project.ID, &fan.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.LikeCount)
	assert.Equal(t, int64(1), view.CommentCount)
	assert.Equal(t, int64(1), view.ContributorCount)
	assert.True(t, view.LikedByViewer)
	require.NotNil(t, view.Author)
	assert.Equal(t, s.author.ID, view.Author.ID)

	anonymous, err := s.svc.Get(ctx, project.ID, nil)
	require.NoError(t, err)
	assert.False(t, anonymous.LikedByViewer)

	_, err = s.svc.Get(ctx, uuid.New(), nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func (s *ProjectSuite) TestList_Filters() {
	t := s.T()
	ctx := context.Background()
	other := createProfile(t, s.db, "Bilal")

	createProject(t, s.db, s.author.ID, "Go Service", func(p *models.Project) {
		p.RequiredSkills = []string{"Go"}
		p.CreatedAt = time.Now().Add(-3 * time.Hour)
	})
	createProject(t, s.db, s.author.ID, "Web App", func(p *models.Project) {
		p.RequiredSkills = []string{"React"}
		p.Status = models.ProjectStatusPlanning
		p.CreatedAt = time.Now().Add(-2 * time.Hour)
	})
	createProject(t, s.db, other.ID, "Go CLI", func(p *models.Project) {
		p.RequiredSkills = []string{"go", "Cobra"}
		p.IsActive = false
		p.CreatedAt = time.Now().Add(-1 * time.Hour)
	})

	titles := func(projects []models.Project) []string {
		out := make([]string, 0, len(projects))
		for _, p := range projects {
			out = append(out, p.Title)
		}
		return out
	}

	testCases := []struct {
		name   string
		filter ProjectFilter
		want   []string
	}{
		{name: "all newest first", want: []string{"Go CLI", "Web App", "Go Service"}},
		{name: "skill is case insensitive", filter: ProjectFilter{Skill: "GO"}, want: []string{"Go CLI", "Go Service"}},
		{name: "skill with offset", filter: ProjectFilter{Skill: "go", Offset: 1}, want: []string{"Go Service"}},
		{name: "status", filter: ProjectFilter{Status: models.ProjectStatusPlanning}, want: []string{"Web App"}},
		{name: "author", filter: ProjectFilter{AuthorID: &other.ID}, want: []string{"Go CLI"}},
		{name: "active only", filter: ProjectFilter{ActiveOnly: true}, want: []string{"Web App", "Go Service"}},
		{name: "limit", filter: ProjectFilter{Limit: 1}, want: []string{"Go CLI"}},
		{name: "no match", filter: ProjectFilter{Skill: "Rust"}, want: []string{}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			projects, err := s.svc.List(ctx, tc.filter)
			require.NoError(s.T(), err)
			assert.Equal(s.T(), tc.want, titles(projects))
		})
	}

	_, err := s.svc.List(ctx, ProjectFilter{Status: "Archived"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func (s *ProjectSuite) TestDelete_CascadesAndNotifiesOnce() {
	t := s.T()
	ctx := context.Background()
	project := createProject(t, s.db, s.author.ID, "Campus Maps", func(p *models.Project) {
		p.ThumbnailURL = "http://localhost:8080/uploads/thumbnails/x.png"
	})
	contributor := createProfile(t, s.db, "Bilal")
	pending := createProfile(t, s.db, "Chen")
	liker := createProfile(t, s.db, "Dana")

	app, err := s.membership.Apply(ctx, contributor.ID, project.ID, "")
	require.NoError(t, err)
	_, _, err = s.membership.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	_, err = s.membership.Apply(ctx, pending.ID, project.ID, "")
	require.NoError(t, err)
	_, err = s.engagement.ToggleLike(ctx, liker.ID, project.ID)
	require.NoError(t, err)
	_, err = s.engagement.AddComment(ctx, liker.ID, project.ID, "Looks great")
	require.NoError(t, err)

	err = s.svc.Delete(ctx, project.ID, contributor.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, s.svc.Delete(ctx, project.ID, s.author.ID))

	for _, model := range []any{&models.Application{}, &models.Contributor{}, &models.Like{}, &models.Comment{}} {
		assert.Zero(t, countRows(t, s.db, model, "project_id = ?", project.ID))
	}
	assert.Zero(t, countRows(t, s.db, &models.Project{}, "id = ?", project.ID))

	// Bilal was both applicant and contributor and still hears about it once.
	assert.Len(t, notificationsOf(t, s.db, contributor.ID, models.NotificationProjectDeleted), 1)
	assert.Len(t, notificationsOf(t, s.db, pending.ID, models.NotificationProjectDeleted), 1)
	assert.Empty(t, notificationsOf(t, s.db, liker.ID, models.NotificationProjectDeleted))
	assert.Empty(t, notificationsOf(t, s.db, s.author.ID, models.NotificationProjectDeleted))

	assert.Equal(t, []string{project.ThumbnailURL}, s.images.urls)

	err = s.svc.Delete(ctx, project.ID, s.author.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func (s *ProjectSuite) TestSetThumbnail() {
	t := s.T()
	ctx := context.Background()
	project := createProject(t, s.db, s.author.ID, "Campus Maps")

	previous, err := s.svc.SetThumbnail(ctx, project.ID, s.author.ID, "http://cdn/a.png")
	require.NoError(t, err)
	assert.Empty(t, previous)

	previous, err = s.svc.SetThumbnail(ctx, project.ID, s.author.ID, "http://cdn/b.png")
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/a.png", previous)

	other := createProfile(t, s.db, "Bilal")
	_, err = s.svc.SetThumbnail(ctx, project.ID, other.ID, "http://cdn/c.png")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAffectedProfiles(t *testing.T) {
	author, a, b, c := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	got := affectedProfiles(author, []uuid.UUID{a, b, author}, []uuid.UUID{b, c})
	assert.ElementsMatch(t, []uuid.UUID{a, b, c}, got)
	assert.Empty(t, affectedProfiles(author, nil, []uuid.UUID{author}))
}
