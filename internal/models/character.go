package models

import "gorm.io/gorm"

// Character is a player-owned character sheet.
type Character struct {
	gorm.Model
	OwnerID      uint   `gorm:"not null;index"`
	Name         string `gorm:"size:255;not null"`
	Race         string `gorm:"size:100"`
	Class        string `gorm:"size:100"`
	Strength     int    `gorm:"not null;default:1"`
	Dexterity    int    `gorm:"not null;default:1"`
	Intelligence int    `gorm:"not null;default:1"`
	Level        int    `gorm:"not null;default:1"`
	Experience   int    `gorm:"not null;default:0"`
}
