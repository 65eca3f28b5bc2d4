package models

import "gorm.io/gorm"

// NPC is a session-scoped non-player character managed by the GM.
type NPC struct {
	gorm.Model
	SessionID   string `gorm:"size:8;not null;index"`
	Name        string `gorm:"size:255;not null;index"`
	ImageURL    string `gorm:"size:512"`
	Description string
}
