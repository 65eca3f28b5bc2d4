package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Position is a grid coordinate on a map.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Wall is an impassable segment between two grid points.
type Wall struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// GameMap is a session-scoped battle map: a grid with walls and
// obstacles that constrain movement.
type GameMap struct {
	gorm.Model
	SessionID       string `gorm:"size:8;not null;index"`
	Name            string `gorm:"size:255"`
	BackgroundImage string `gorm:"size:512"`
	GridSize        int    `gorm:"not null;default:50"`
	Width           int    `gorm:"not null"`
	Height          int    `gorm:"not null"`
	Walls           datatypes.JSONSlice[Wall]
	Obstacles       datatypes.JSONSlice[Position]
}
