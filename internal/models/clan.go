package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Clan is a named group tagged with a two-letter region code.
type Clan struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(120);not null;uniqueIndex:uq_clans_name" json:"name"`
	Region    string    `gorm:"type:varchar(8);not null;index" json:"region"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// BeforeCreate assigns the id and creation time unless the caller already did.
func (c *Clan) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return nil
}
