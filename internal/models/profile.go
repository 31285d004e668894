package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Profile struct {
	ID          uuid.UUID                   `gorm:"type:uuid;primary_key" json:"id"`
	AccountID   uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex" json:"account_id"`
	DisplayName string                      `gorm:"not null" json:"display_name"`
	Branch      string                      `json:"branch,omitempty"`
	Year        string                      `json:"year,omitempty"`
	Section     string                      `json:"section,omitempty"`
	College     string                      `json:"college,omitempty"`
	Bio         string                      `gorm:"type:text" json:"bio,omitempty"`
	Skills      datatypes.JSONSlice[string] `json:"skills"`
	AvatarURL   string                      `json:"avatar_url,omitempty"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProfileSummary is what other records embed when they reference a profile.
type ProfileSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	College     string    `json:"college,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

func (p *Profile) ToSummary() ProfileSummary {
	return ProfileSummary{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		College:     p.College,
		AvatarURL:   p.AvatarURL,
	}
}

// NormalizeSkills trims, drops blanks, dedupes case-insensitively (first
// spelling wins) and sorts.
func NormalizeSkills(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i]) < strings.ToLower(out[j])
	})
	return out
}

// HasSkill matches case-insensitively.
func HasSkill(skills []string, skill string) bool {
	skill = strings.TrimSpace(skill)
	for _, s := range skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

func summaryOf(p *Profile) *ProfileSummary {
	if p == nil {
		return nil
	}
	s := p.ToSummary()
	return &s
}
