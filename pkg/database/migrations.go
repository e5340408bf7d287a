package database

import (
	"fmt"

	"github.com/clanhub/api/internal/models"
	"gorm.io/gorm"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		&models.Clan{},
	}
}

// Migrate creates or updates the schema. It is idempotent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(registerModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
