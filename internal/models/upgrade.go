package models

import (
	"time"
)

// Upgrade is an append-only audit row written on every tier grant.
type Upgrade struct {
	ID           uint   `gorm:"primaryKey"`
	UserID       int64  `gorm:"not null;index"`
	Tier         Tier   `gorm:"size:50;not null"`
	Source       string `gorm:"size:255;not null"`
	DurationDays *int
	UpgradedAt   time.Time `gorm:"not null"`
}

func (Upgrade) TableName() string { return "upgrades" }
