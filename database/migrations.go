package database

import (
	"studytrack/studytrack/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the users and tasks tables.
func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
	)
	if err != nil {
		logrus.Errorf("Migration failed: %v", err)
		return err
	}

	return nil
}
