package database

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/projectstack/projectstack/internal/config"
	"github.com/projectstack/projectstack/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database and migrates the schema. The
// returned handle is owned by the caller.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.DatabaseType {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		dialector = sqlite.Open(cfg.DatabaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newGormLogger(cfg.DatabaseLogLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("type", cfg.DatabaseType).Msg("Database connected")

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.SeedDemoData {
		if err := Seed(db); err != nil {
			log.Warn().Err(err).Msg("Seed data error")
		}
	}

	return db, nil
}

// Migrate creates or updates every table. Parents come before children so
// foreign keys resolve.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.Profile{},
		&models.Project{},
		&models.Application{},
		&models.Contributor{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
	)
}

func newGormLogger(level string) logger.Interface {
	var lvl logger.LogLevel
	switch strings.ToLower(level) {
	case "silent":
		lvl = logger.Silent
	case "error":
		lvl = logger.Error
	case "info":
		lvl = logger.Info
	default:
		lvl = logger.Warn
	}
	return logger.New(
		&log.Logger,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
