package database

import (
	"gorm.io/gorm"

	"github.com/canopyhq/canopy/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.Page{},
		&models.ContentRevision{},
		&models.JobPosting{},
		&models.JobApplication{},
		&models.LeaveRequest{},
		&models.ContactMessage{},
		&models.CacheEntry{},
		&models.SystemSetting{},
	)
}

// SeedData populates default system settings.
func SeedData(db *gorm.DB) error {
	settings := []models.SystemSetting{
		{Key: "site.name", Value: "Canopy"},
		{Key: "sync.last_direction", Value: ""},
	}

	for _, setting := range settings {
		if err := db.Where(models.SystemSetting{Key: setting.Key}).
			Attrs(setting).
			FirstOrCreate(&models.SystemSetting{}).Error; err != nil {
			return err
		}
	}

	return nil
}
