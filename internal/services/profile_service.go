package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/projectstack/projectstack/internal/apperr"
	"github.com/projectstack/projectstack/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProfileInput struct {
	DisplayName string   `json:"display_name" binding:"required,max=100"`
	Branch      string   `json:"branch" binding:"max=100"`
	Year        string   `json:"year" binding:"max=20"`
	Section     string   `json:"section" binding:"max=20"`
	College     string   `json:"college" binding:"max=200"`
	Bio         string   `json:"bio" binding:"max=2000"`
	Skills      []string `json:"skills"`
}

// ProfileUpdate patches only the fields that are present.
type ProfileUpdate struct {
	DisplayName *string   `json:"display_name" binding:"omitempty,max=100"`
	Branch      *string   `json:"branch" binding:"omitempty,max=100"`
	Year        *string   `json:"year" binding:"omitempty,max=20"`
	Section     *string   `json:"section" binding:"omitempty,max=20"`
	College     *string   `json:"college" binding:"omitempty,max=200"`
	Bio         *string   `json:"bio" binding:"omitempty,max=2000"`
	Skills      *[]string `json:"skills"`
}

type ProfileService struct {
	db *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db}
}

// Create onboards the account. An account has at most one profile.
func (s *ProfileService) Create(ctx context.Context, accountID uuid.UUID, input ProfileInput) (*models.Profile, error) {
	name := strings.TrimSpace(input.DisplayName)
	if name == "" {
		return nil, apperr.Validation("Display name is required")
	}

	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.Profile{}).Where("account_id = ?", accountID).Count(&existing).Error; err != nil {
		return nil, apperr.FromStore(err, "Account not found")
	}
	if existing > 0 {
		return nil, apperr.Conflict(apperr.ErrProfileExists, "Profile already exists")
	}

	profile := &models.Profile{
		AccountID:   accountID,
		DisplayName: name,
		Branch:      strings.TrimSpace(input.Branch),
		Year:        strings.TrimSpace(input.Year),
		Section:     strings.TrimSpace(input.Section),
		College:     strings.TrimSpace(input.College),
		Bio:         strings.TrimSpace(input.Bio),
		Skills:      datatypes.JSONSlice[string](models.NormalizeSkills(input.Skills)),
	}
	if err := db.Create(profile).Error; err != nil {
		if apperr.IsUniqueViolation(err) {
			return nil, apperr.Conflict(apperr.ErrProfileExists, "Profile already exists")
		}
		return nil, apperr.FromStore(err, "Account not found")
	}
	return profile, nil
}

func (s *ProfileService) Update(ctx context.Context, profileID uuid.UUID, input ProfileUpdate) (*models.Profile, error) {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if input.DisplayName != nil {
		name := strings.TrimSpace(*input.DisplayName)
		if name == "" {
			return nil, apperr.Validation("Display name is required")
		}
		profile.DisplayName = name
	}
	patchString(&profile.Branch, input.Branch)
	patchString(&profile.Year, input.Year)
	patchString(&profile.Section, input.Section)
	patchString(&profile.College, input.College)
	patchString(&profile.Bio, input.Bio)
	if input.Skills != nil {
		profile.Skills = models.NormalizeSkills(*input.Skills)
	}

	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	return profile, nil
}

func (s *ProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	return &profile, nil
}

func (s *ProfileService) GetByAccount(ctx context.Context, accountID uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "account_id = ?", accountID).Error; err != nil {
		return nil, apperr.FromStore(err, "Profile not found")
	}
	return &profile, nil
}

// SetAvatar records a stored image as the profile picture and returns the
// URL it replaced.
func (s *ProfileService) SetAvatar(ctx context.Context, profileID uuid.UUID, url string) (string, error) {
	profile, err := s.Get(ctx, profileID)
	if err != nil {
		return "", err
	}
	previous := profile.AvatarURL
	if err := s.db.WithContext(ctx).Model(profile).Update("avatar_url", url).Error; err != nil {
		return "", apperr.FromStore(err, "Profile not found")
	}
	return previous, nil
}

func patchString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
