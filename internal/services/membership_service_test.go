package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/models"
	svcmocks "github.com/projectstack/projectstack/internal/services/mocks"
	"github.com/projectstack/projectstack/internal/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"
)

func TestMembershipService(t *testing.T) {
	suite.Run(t, new(MembershipSuite))
}

type MembershipSuite struct {
	suite.Suite
	db            *gorm.DB
	svc           *MembershipService
	notifications *NotificationService

	author    *models.Profile
	applicant *models.Profile
	project   *models.Project
}

func (s *MembershipSuite) SetupTest() {
	t := s.T()
	s.db = test.NewDB(t)
	s.notifications = NewNotificationService(s.db, nil)
	s.svc = NewMembershipService(s.db, s.notifications)

	s.author = createProfile(t, s.db, "Asha")
	s.applicant = createProfile(t, s.db, "Bilal")
	s.project = createProject(t, s.db, s.author.ID, "Campus Maps")
}

func (s *MembershipSuite) apply(profileID uuid.UUID) *models.Application {
	app, err := s.svc.Apply(context.Background(), profileID, s.project.ID, "")
	s.Require().NoError(err)
	return app
}

func (s *MembershipSuite) TestApply() {
	t := s.T()
	ctx := context.Background()

	app, err := s.svc.Apply(ctx, s.applicant.ID, s.project.ID, "  I know Go  ")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, app.Status)
	assert.Equal(t, "I know Go", app.Message)
	assert.False(t, app.AppliedAt.IsZero())
	assert.Nil(t, app.DecidedAt)

	received := notificationsOf(t, s.db, s.author.ID, models.NotificationApplicationReceived)
	require.Len(t, received, 1)
	assert.Equal(t, s.applicant.ID, *received[0].ActorID)
	assert.Equal(t, s.project.ID, *received[0].ProjectID)
	assert.Equal(t, app.ID, *received[0].ApplicationID)
	assert.Contains(t, received[0].Message, "Bilal")
}

func (s *MembershipSuite) TestApply_Preconditions() {
	inactive := createProject(s.T(), s.db, s.author.ID, "Dormant", func(p *models.Project) { p.IsActive = false })

	testCases := []struct {
		name      string
		profileID uuid.UUID
		projectID uuid.UUID
		before    func(t *testing.T)
		wantKind  apperr.Kind
		wantErr   error
		wantMsg   string
	}{
		{
			name:      "missing project",
			profileID: s.applicant.ID,
			projectID: uuid.New(),
			wantKind:  apperr.KindNotFound,
			wantMsg:   "Project not found",
		},
		{
			name:      "missing profile",
			profileID: uuid.New(),
			projectID: s.project.ID,
			wantKind:  apperr.KindNotFound,
			wantMsg:   "Profile not found",
		},
		{
			name:      "author applies to own project",
			profileID: s.author.ID,
			projectID: s.project.ID,
			wantKind:  apperr.KindForbidden,
			wantMsg:   "You cannot apply to your own project",
		},
		{
			name:      "project not accepting",
			profileID: s.applicant.ID,
			projectID: inactive.ID,
			wantKind:  apperr.KindConflict,
			wantErr:   apperr.ErrNotAccepting,
			wantMsg:   "This project is not accepting applications",
		},
		{
			name:      "second application",
			profileID: s.applicant.ID,
			projectID: s.project.ID,
			before: func(t *testing.T) {
				_, err := s.svc.Apply(context.Background(), s.applicant.ID, s.project.ID, "")
				require.NoError(t, err)
			},
			wantKind: apperr.KindConflict,
			wantErr:  apperr.ErrAlreadyApplied,
			wantMsg:  "You have already applied to this project",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			t := s.T()
			if tc.before != nil {
				tc.before(t)
			}
			_, err := s.svc.Apply(context.Background(), tc.profileID, tc.projectID, "")
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, apperr.KindOf(err))
			assert.Equal(t, tc.wantMsg, apperr.MessageOf(err))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}

	assert.Equal(s.T(), int64(1), countRows(s.T(), s.db, &models.Application{}, "project_id = ?", s.project.ID))
}

func (s *MembershipSuite) TestApply_ContributorCannotReapply() {
	t := s.T()
	ctx := context.Background()

	app := s.apply(s.applicant.ID)
	_, _, err := s.svc.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)

	_, err = s.svc.Apply(ctx, s.applicant.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyContributor)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func (s *MembershipSuite) TestApply_Concurrent() {
	t := s.T()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.Apply(context.Background(), s.applicant.ID, s.project.ID, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrAlreadyApplied):
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, int64(1), countRows(t, s.db, &models.Application{}, "profile_id = ? AND project_id = ?", s.applicant.ID, s.project.ID))
}

func (s *MembershipSuite) TestAccept() {
	t := s.T()
	ctx := context.Background()
	app := s.apply(s.applicant.ID)

	accepted, contributor, err := s.svc.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.DecidedAt)
	require.NotNil(t, contributor)
	assert.Equal(t, s.applicant.ID, contributor.ProfileID)
	assert.Equal(t, s.project.ID, contributor.ProjectID)

	var stored models.Application
	require.NoError(t, s.db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusAccepted, stored.Status)
	assert.Equal(t, int64(1), countRows(t, s.db, &models.Contributor{}, "project_id = ?", s.project.ID))

	notes := notificationsOf(t, s.db, s.applicant.ID, models.NotificationApplicationAccepted)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "Campus Maps")

	// Terminal.
	_, _, err = s.svc.Accept(ctx, app.ID, s.author.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyDecided)
	assert.Equal(t, "Application already accepted", apperr.MessageOf(err))

	_, err = s.svc.Reject(ctx, app.ID, s.author.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyDecided)
	assert.Equal(t, "Application already accepted", apperr.MessageOf(err))
	assert.Equal(t, int64(1), countRows(t, s.db, &models.Contributor{}, "project_id = ?", s.project.ID))
}

func (s *MembershipSuite) TestReject() {
	t := s.T()
	ctx := context.Background()
	app := s.apply(s.applicant.ID)

	rejected, err := s.svc.Reject(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)
	assert.Zero(t, countRows(t, s.db, &models.Contributor{}, "project_id = ?", s.project.ID))
	assert.Len(t, notificationsOf(t, s.db, s.applicant.ID, models.NotificationApplicationRejected), 1)

	_, _, err = s.svc.Accept(ctx, app.ID, s.author.ID)
	assert.ErrorIs(t, err, apperr.ErrAlreadyDecided)
	assert.Equal(t, "Application already rejected", apperr.MessageOf(err))

	// A rejected applicant cannot try again.
	_, err = s.svc.Apply(ctx, s.applicant.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)
}

func (s *MembershipSuite) TestDecide_Concurrent() {
	t := s.T()
	app := s.apply(s.applicant.ID)
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		decided   int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			var err error
			if accept {
				_, _, err = s.svc.Accept(context.Background(), app.ID, s.author.ID)
			} else {
				_, err = s.svc.Reject(context.Background(), app.ID, s.author.ID)
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, apperr.ErrAlreadyDecided):
				decided++
			}
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, decided)

	var stored models.Application
	require.NoError(t, s.db.First(&stored, "id = ?", app.ID).Error)
	contributors := countRows(t, s.db, &models.Contributor{}, "project_id = ?", s.project.ID)
	if stored.Status == models.ApplicationStatusAccepted {
		assert.Equal(t, int64(1), contributors)
	} else {
		assert.Equal(t, models.ApplicationStatusRejected, stored.Status)
		assert.Zero(t, contributors)
	}
}

func (s *MembershipSuite) TestAccept_RollsBackWhenContributorInsertFails() {
	t := s.T()
	ctx := context.Background()
	app := s.apply(s.applicant.ID)

	// A membership that already exists makes the contributor insert fail
	// after the status update has run inside the transaction.
	require.NoError(t, s.db.Create(&models.Contributor{ProfileID: s.applicant.ID, ProjectID: s.project.ID}).Error)

	_, _, err := s.svc.Accept(ctx, app.ID, s.author.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, apperr.ErrAlreadyContributor)
	assert.NotErrorIs(t, err, apperr.ErrAlreadyDecided)
	assert.Equal(t, "Applicant is already a contributor to this project", apperr.MessageOf(err))

	var stored models.Application
	require.NoError(t, s.db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusPending, stored.Status)
	assert.Nil(t, stored.DecidedAt)
	assert.Equal(t, int64(1), countRows(t, s.db, &models.Contributor{}, "project_id = ?", s.project.ID))
	assert.Empty(t, notificationsOf(t, s.db, s.applicant.ID, models.NotificationApplicationAccepted))

	// Still Pending, so the author can settle it the other way.
	rejected, err := s.svc.Reject(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusRejected, rejected.Status)
}

func (s *MembershipSuite) TestInsertApplication_DuplicateKey() {
	t := s.T()
	require.NoError(t, s.db.Create(&models.Application{ProfileID: s.applicant.ID, ProjectID: s.project.ID}).Error)

	raw := s.db.Create(&models.Application{ProfileID: s.applicant.ID, ProjectID: s.project.ID}).Error
	require.Error(t, raw)
	assert.True(t, apperr.IsUniqueViolation(raw))

	err := insertApplication(s.db, &models.Application{ProfileID: s.applicant.ID, ProjectID: s.project.ID})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)
	assert.Equal(t, "You have already applied to this project", apperr.MessageOf(err))
	assert.Equal(t, int64(1), countRows(t, s.db, &models.Application{}, "profile_id = ? AND project_id = ?", s.applicant.ID, s.project.ID))
}

func (s *MembershipSuite) TestApply_ClosedProjectReportsExistingMembership() {
	t := s.T()
	ctx := context.Background()
	s.apply(s.applicant.ID)

	member := createProfile(t, s.db, "Chen")
	require.NoError(t, s.db.Create(&models.Contributor{ProfileID: member.ID, ProjectID: s.project.ID}).Error)

	require.NoError(t, s.db.Model(&models.Project{}).Where("id = ?", s.project.ID).Update("is_active", false).Error)

	_, err := s.svc.Apply(ctx, s.applicant.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)
	assert.Equal(t, "You have already applied to this project", apperr.MessageOf(err))

	_, err = s.svc.Apply(ctx, member.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyContributor)

	newcomer := createProfile(t, s.db, "Dana")
	_, err = s.svc.Apply(ctx, newcomer.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrNotAccepting)
}

func (s *MembershipSuite) TestAuthorOnly() {
	t := s.T()
	ctx := context.Background()
	app := s.apply(s.applicant.ID)
	outsider := createProfile(t, s.db, "Chen")

	_, _, err := s.svc.Accept(ctx, app.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// The applicant cannot accept their own application either.
	_, _, err = s.svc.Accept(ctx, app.ID, s.applicant.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = s.svc.Reject(ctx, app.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = s.svc.ProjectApplications(ctx, s.project.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, contributor, err := s.svc.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	err = s.svc.RemoveContributor(ctx, contributor.ID, outsider.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, _, err = s.svc.Accept(ctx, uuid.New(), s.author.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "Application not found", apperr.MessageOf(err))
}

func (s *MembershipSuite) TestCheckStatus() {
	t := s.T()
	ctx := context.Background()

	view, err := s.svc.CheckStatus(ctx, s.applicant.ID, s.project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusView{}, view)

	app := s.apply(s.applicant.ID)
	view, err = s.svc.CheckStatus(ctx, s.applicant.ID, s.project.ID)
	require.NoError(t, err)
	assert.True(t, view.HasApplied)
	require.NotNil(t, view.ApplicationStatus)
	assert.Equal(t, models.ApplicationStatusPending, *view.ApplicationStatus)
	assert.False(t, view.IsContributor)

	_, _, err = s.svc.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)
	view, err = s.svc.CheckStatus(ctx, s.applicant.ID, s.project.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, *view.ApplicationStatus)
	assert.True(t, view.IsContributor)
}

// A creates a project, B and C apply, A accepts B.
func (s *MembershipSuite) TestAcceptFlowScenario() {
	t := s.T()
	ctx := context.Background()
	a, b := s.author, s.applicant
	c := createProfile(t, s.db, "Chen")

	appB := s.apply(b.ID)
	s.apply(c.ID)

	_, _, err := s.svc.Accept(ctx, appB.ID, a.ID)
	require.NoError(t, err)

	contributors, err := s.svc.ProjectContributors(ctx, s.project.ID)
	require.NoError(t, err)
	require.Len(t, contributors, 1)
	assert.Equal(t, b.ID, contributors[0].ProfileID)
	require.NotNil(t, contributors[0].Profile)
	assert.Equal(t, "Bilal", contributors[0].Profile.DisplayName)

	viewB, err := s.svc.CheckStatus(ctx, b.ID, s.project.ID)
	require.NoError(t, err)
	assert.True(t, viewB.HasApplied)
	assert.Equal(t, models.ApplicationStatusAccepted, *viewB.ApplicationStatus)
	assert.True(t, viewB.IsContributor)

	viewC, err := s.svc.CheckStatus(ctx, c.ID, s.project.ID)
	require.NoError(t, err)
	assert.True(t, viewC.HasApplied)
	assert.Equal(t, models.ApplicationStatusPending, *viewC.ApplicationStatus)
	assert.False(t, viewC.IsContributor)

	assert.Len(t, notificationsOf(t, s.db, a.ID, models.NotificationApplicationReceived), 2)
	assert.Len(t, notificationsOf(t, s.db, b.ID, models.NotificationApplicationAccepted), 1)
	assert.Empty(t, notificationsOf(t, s.db, c.ID, models.NotificationApplicationAccepted))
}

func (s *MembershipSuite) TestRemoveContributor() {
	t := s.T()
	ctx := context.Background()
	app := s.apply(s.applicant.ID)
	_, contributor, err := s.svc.Accept(ctx, app.ID, s.author.ID)
	require.NoError(t, err)

	require.NoError(t, s.svc.RemoveContributor(ctx, contributor.ID, s.author.ID))
	assert.Zero(t, countRows(t, s.db, &models.Contributor{}, "id = ?", contributor.ID))
	assert.Len(t, notificationsOf(t, s.db, s.applicant.ID, models.NotificationContributorRemoved), 1)

	// The application keeps its Accepted status, so the pair stays closed.
	var stored models.Application
	require.NoError(t, s.db.First(&stored, "id = ?", app.ID).Error)
	assert.Equal(t, models.ApplicationStatusAccepted, stored.Status)

	_, err = s.svc.Apply(ctx, s.applicant.ID, s.project.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyApplied)

	err = s.svc.RemoveContributor(ctx, contributor.ID, s.author.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func (s *MembershipSuite) TestListings() {
	t := s.T()
	ctx := context.Background()
	second := createProject(t, s.db, s.author.ID, "Canteen Queue")

	first := s.apply(s.applicant.ID)
	latest, err := s.svc.Apply(ctx, s.applicant.ID, second.ID, "")
	require.NoError(t, err)

	mine, err := s.svc.UserApplications(ctx, s.applicant.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, latest.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)
	require.NotNil(t, mine[0].Project)
	assert.Equal(t, "Canteen Queue", mine[0].Project.Title)

	forAuthor, err := s.svc.ProjectApplications(ctx, s.project.ID, s.author.ID)
	require.NoError(t, err)
	require.Len(t, forAuthor, 1)
	require.NotNil(t, forAuthor[0].Profile)
	assert.Equal(t, s.applicant.ID, forAuthor[0].Profile.ID)

	_, _, err = s.svc.Accept(ctx, first.ID, s.author.ID)
	require.NoError(t, err)
	contributions, err := s.svc.UserContributions(ctx, s.applicant.ID)
	require.NoError(t, err)
	require.Len(t, contributions, 1)
	require.NotNil(t, contributions[0].Project)
	assert.Equal(t, s.project.ID, contributions[0].Project.ID)

	_, err = s.svc.ProjectContributors(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMembershipService_NotificationFailureDoesNotFailApply(t *testing.T) {
	ctrl := gomock.NewController(t)
	db := test.NewDB(t)
	notifier := svcmocks.NewMockNotifier(ctrl)
	notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).Return(errors.New("notification store down"))

	author := createProfile(t, db, "Asha")
	applicant := createProfile(t, db, "Bilal")
	project := createProject(t, db, author.ID, "Campus Maps")

	svc := NewMembershipService(db, notifier)
	app, err := svc.Apply(context.Background(), applicant.ID, project.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), countRows(t, db, &models.Application{}, "id = ?", app.ID))
}
