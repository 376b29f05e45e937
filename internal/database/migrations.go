package database

import (
	"strings"

	"gorm.io/gorm"

	"github.com/trustweave/portal/internal/models"
	"github.com/trustweave/portal/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.VerificationRecord{},
		&models.WizardDraft{},
		&models.AuditLog{},
	)
}

// SeedConfig describes the bootstrap admin account created on first start.
// The admin role lives on the user row; there is no client-side admin flag.
type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	AdminName     string
}

// SeedData ensures the bootstrap admin exists. An empty email disables seeding.
func SeedData(db *gorm.DB, cfg SeedConfig) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" {
		return nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := crypto.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:    email,
		Password: hash,
		FullName: strings.TrimSpace(cfg.AdminName),
		IsAdmin:  true,
		IsActive: true,
	}
	return db.Create(&admin).Error
}
