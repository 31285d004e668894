package database

import (
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Seed creates a demo author with a handful of projects on an empty database.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Project{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // Already seeded
	}

	return db.Transaction(func(tx *gorm.DB) error {
		account := &models.Account{
			Email:           "demo@projectstack.dev",
			Name:            "Demo Student",
			Provider:        "demo",
			ProviderSubject: "demo",
		}
		if err := tx.Create(account).Error; err != nil {
			return err
		}

		author := &models.Profile{
			AccountID:   account.ID,
			DisplayName: "Demo Student",
			Branch:      "CSE",
			Year:        "3",
			Section:     "A",
			College:     "Demo Institute of Technology",
			Bio:         "Building things with friends.",
			Skills:      datatypes.JSONSlice[string](models.NormalizeSkills([]string{"Go", "React", "PostgreSQL"})),
		}
		if err := tx.Create(author).Error; err != nil {
			return err
		}

		projects := []struct {
			Title       string
			Description string
			Skills      []string
			Status      models.ProjectStatus
			IsActive    bool
		}{
			{
				Title:       "Campus Marketplace",
				Description: "Buy and sell second-hand books, calculators and lab coats within the campus.",
				Skills:      []string{"React", "Go", "PostgreSQL"},
				Status:      models.ProjectStatusActive,
				IsActive:    true,
			},
			{
				Title:       "Attendance Tracker",
				Description: "QR based attendance for labs with a dashboard for faculty.",
				Skills:      []string{"Flutter", "Firebase"},
				Status:      models.ProjectStatusPlanning,
				IsActive:    true,
			},
			{
				Title:       "Hostel Mess Feedback",
				Description: "Daily menu ratings and weekly reports for the mess committee.",
				Skills:      []string{"Python", "Django"},
				Status:      models.ProjectStatusCompleted,
				IsActive:    false,
			},
		}

		for _, p := range projects {
			project := &models.Project{
				AuthorID:       author.ID,
				Title:          p.Title,
				Description:    p.Description,
				RequiredSkills: datatypes.JSONSlice[string](models.NormalizeSkills(p.Skills)),
				Status:         p.Status,
				IsActive:       p.IsActive,
			}
			if err := tx.Create(project).Error; err != nil {
				return err
			}
		}

		log.Info().Int("projects", len(projects)).Msg("Seeded demo data")
		return nil
	})
}
