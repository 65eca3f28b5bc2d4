package game

import (
	"errors"

	"tabletop/backend/internal/models"
)

// Turn-machine failure modes. ErrNotTurnHolder is deliberately silent
// at the protocol level: the gateway drops the action without replying
// so non-holders learn nothing about turn ownership.
var (
	ErrNotAuthorized = errors.New("only the session creator can start the game")
	ErrInvalidState  = errors.New("session is not waiting to start")
	ErrNoPlayers     = errors.New("no players in session")
	ErrNotTurnHolder = errors.New("requester does not hold the turn")
	ErrNoNextPlayer  = errors.New("current holder has no successor in players order")
)

// TurnInfo describes the opening turn of a started game.
type TurnInfo struct {
	CurrentPlayerID uint   `json:"current_player_id"`
	TurnNumber      int    `json:"turn_number"`
	PlayersOrder    []uint `json:"players_order"`
}

// TurnResult describes a completed end-turn transition.
type TurnResult struct {
	CurrentPlayerID uint
	NextPlayerID    uint
	TurnNumber      int
}

// TurnCoordinator guards the turn pointer. Every transition is
// validated against, and committed to, the persisted session under the
// store's transactional boundary, so concurrent actions on the same
// session serialize instead of observing half-applied state.
type TurnCoordinator struct {
	store SessionStore
}

// NewTurnCoordinator creates a coordinator over the given store.
func NewTurnCoordinator(store SessionStore) *TurnCoordinator {
	return &TurnCoordinator{store: store}
}

// Start moves a waiting session to active: it freezes order as the
// players order, hands the first turn to order[0], and opens turn 1.
// order must be the membership snapshot in creation order.
func (t *TurnCoordinator) Start(sessionID string, requesterID uint, order []uint) (*models.GameSession, error) {
	return t.store.CommitTurnTransition(sessionID, func(s *models.GameSession) error {
		if s.CreatorID != requesterID {
			return ErrNotAuthorized
		}
		if s.Status != models.StatusWaiting {
			return ErrInvalidState
		}
		if len(order) == 0 {
			return ErrNoPlayers
		}

		s.PlayersOrder = order
		first := order[0]
		s.CurrentTurnUserID = &first
		s.IsTurnActive = true
		s.TurnNumber = 1
		s.Status = models.StatusActive
		return nil
	})
}

// EndTurn closes the requester's turn and opens the next one in a
// single transition; there is no observable idle gap between turns.
// A requester that does not hold an active turn gets ErrNotTurnHolder
// and the pointer stays untouched.
func (t *TurnCoordinator) EndTurn(sessionID string, requesterID uint) (*TurnResult, error) {
	var result TurnResult
	_, err := t.store.CommitTurnTransition(sessionID, func(s *models.GameSession) error {
		if s.Status != models.StatusActive || !s.IsTurnActive ||
			s.CurrentTurnUserID == nil || *s.CurrentTurnUserID != requesterID {
			return ErrNotTurnHolder
		}

		next, ok := nextInOrder(s.PlayersOrder, requesterID)
		if !ok {
			// The holder appears zero times (or more than once) in the
			// frozen order. That breaks a membership invariant; abort
			// the action rather than corrupt the pointer.
			return ErrNoNextPlayer
		}

		s.IsTurnActive = false
		nextID := next
		s.CurrentTurnUserID = &nextID
		s.TurnNumber++
		s.IsTurnActive = true

		result = TurnResult{
			CurrentPlayerID: requesterID,
			NextPlayerID:    next,
			TurnNumber:      s.TurnNumber,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CanAct reports whether userID currently holds an active turn. This
// is the hot-path check for moves; it reads without locking the row
// because it mutates nothing.
func (t *TurnCoordinator) CanAct(sessionID string, userID uint) bool {
	s, err := t.store.Get(sessionID)
	if err != nil {
		return false
	}
	return s.Status == models.StatusActive &&
		s.IsTurnActive &&
		s.CurrentTurnUserID != nil &&
		*s.CurrentTurnUserID == userID
}

// nextInOrder returns the cyclic successor of current in order. ok is
// false when current is absent or duplicated, both of which violate
// membership uniqueness.
func nextInOrder(order []uint, current uint) (next uint, ok bool) {
	idx := -1
	for i, id := range order {
		if id == current {
			if idx != -1 {
				return 0, false
			}
			idx = i
		}
	}
	if idx == -1 {
		return 0, false
	}
	return order[(idx+1)%len(order)], true
}
