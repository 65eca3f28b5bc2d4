package game

import (
	"errors"

	"tabletop/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSessionNotFound is returned when a session id resolves to nothing.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore is the transactional boundary between the turn machine
// and persisted session state.
type SessionStore interface {
	// Get returns the current persisted session.
	Get(sessionID string) (*models.GameSession, error)

	// CommitTurnTransition reads the session, applies mutate, and
	// writes the result back atomically with respect to other
	// concurrent turn transitions on the same session. If mutate
	// returns an error nothing is written and the error is passed
	// through.
	CommitTurnTransition(sessionID string, mutate func(*models.GameSession) error) (*models.GameSession, error)
}

// GormStore is the database-backed SessionStore.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps a gorm handle as a SessionStore.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *GormStore) CommitTurnTransition(sessionID string, mutate func(*models.GameSession) error) (*models.GameSession, error) {
	var session models.GameSession
	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Row lock so a second transition on the same session waits for
		// this commit instead of reading a half-applied pointer.
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&session, "id = ?", sessionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if err := mutate(&session); err != nil {
			return err
		}
		return tx.Save(&session).Error
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}
