package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a game session.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusActive   SessionStatus = "active"
	StatusFinished SessionStatus = "finished"
)

// GameSession represents one instance of a shared game in progress.
//
// The turn pointer triple (CurrentTurnUserID, TurnNumber, IsTurnActive)
// together with PlayersOrder is the authoritative turn state: while the
// session is active, CurrentTurnUserID is always a member of
// PlayersOrder and TurnNumber only ever increases.
type GameSession struct {
	ID         string        `gorm:"size:8;primaryKey"`
	CreatorID  uint          `gorm:"not null;index"`
	Status     SessionStatus `gorm:"size:20;not null;default:'waiting'"`
	MaxPlayers int           `gorm:"not null;default:4"`
	CreatedAt  time.Time

	CurrentTurnUserID *uint
	IsTurnActive      bool `gorm:"not null;default:false"`
	TurnNumber        int  `gorm:"not null;default:0"`

	// PlayersOrder is frozen when the game starts; order is membership
	// creation order.
	PlayersOrder datatypes.JSONSlice[uint]

	Players []SessionPlayer `gorm:"foreignKey:SessionID"`
}

// SessionPlayer is a user's membership record within a session.
// Exactly one membership per session has IsGM set: the creator's,
// created atomically with the session itself.
type SessionPlayer struct {
	ID          uint   `gorm:"primaryKey"`
	SessionID   string `gorm:"size:8;not null;uniqueIndex:idx_session_user"`
	UserID      uint   `gorm:"not null;uniqueIndex:idx_session_user"`
	CharacterID *uint  // nullable until the player picks a character in the lobby
	IsReady     bool   `gorm:"not null;default:false"`
	IsGM        bool   `gorm:"not null;default:false"`

	User User `gorm:"foreignKey:UserID"`
}
