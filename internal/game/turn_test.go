package game

import (
	"testing"

	"tabletop/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	creatorID uint = 1
	playerB   uint = 2
	playerC   uint = 3
)

func newWaitingSession(id string) *models.GameSession {
	return &models.GameSession{
		ID:         id,
		CreatorID:  creatorID,
		Status:     models.StatusWaiting,
		MaxPlayers: 4,
	}
}

func newCoordinator(t *testing.T, session *models.GameSession) (*TurnCoordinator, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	store.Put(session)
	return NewTurnCoordinator(store), store
}

func TestStartTransitionsWaitingToActive(t *testing.T) {
	turns, store := newCoordinator(t, newWaitingSession("s1"))

	session, err := turns.Start("s1", creatorID, []uint{creatorID, playerB, playerC})
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, session.Status)
	require.NotNil(t, session.CurrentTurnUserID)
	assert.Equal(t, creatorID, *session.CurrentTurnUserID)
	assert.Equal(t, 1, session.TurnNumber)
	assert.True(t, session.IsTurnActive)
	assert.Equal(t, []uint{creatorID, playerB, playerC}, []uint(session.PlayersOrder))

	// The transition is persisted, not just returned.
	persisted, err := store.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, persisted.Status)
}

func TestStartFailsForNonCreator(t *testing.T) {
	turns, store := newCoordinator(t, newWaitingSession("s1"))

	_, err := turns.Start("s1", playerB, []uint{creatorID, playerB})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	persisted, _ := store.Get("s1")
	assert.Equal(t, models.StatusWaiting, persisted.Status)
}

func TestStartFailsWithNoPlayers(t *testing.T) {
	turns, _ := newCoordinator(t, newWaitingSession("s1"))

	_, err := turns.Start("s1", creatorID, nil)
	assert.ErrorIs(t, err, ErrNoPlayers)
}

func TestStartSucceedsExactlyOnce(t *testing.T) {
	turns, _ := newCoordinator(t, newWaitingSession("s1"))

	_, err := turns.Start("s1", creatorID, []uint{creatorID, playerB})
	require.NoError(t, err)

	_, err = turns.Start("s1", creatorID, []uint{creatorID, playerB})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartUnknownSession(t *testing.T) {
	turns := NewTurnCoordinator(NewMemoryStore())
	_, err := turns.Start("nope", creatorID, []uint{creatorID})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func startedSession(t *testing.T) (*TurnCoordinator, *MemoryStore) {
	t.Helper()
	turns, store := newCoordinator(t, newWaitingSession("s1"))
	_, err := turns.Start("s1", creatorID, []uint{creatorID, playerB, playerC})
	require.NoError(t, err)
	return turns, store
}

func TestEndTurnAdvancesToNextPlayer(t *testing.T) {
	turns, store := startedSession(t)

	result, err := turns.EndTurn("s1", creatorID)
	require.NoError(t, err)

	assert.Equal(t, creatorID, result.CurrentPlayerID)
	assert.Equal(t, playerB, result.NextPlayerID)
	assert.Equal(t, 2, result.TurnNumber)

	persisted, _ := store.Get("s1")
	require.NotNil(t, persisted.CurrentTurnUserID)
	assert.Equal(t, playerB, *persisted.CurrentTurnUserID)
	assert.True(t, persisted.IsTurnActive)
}

func TestEndTurnWrapsAroundOrder(t *testing.T) {
	turns, store := startedSession(t)

	_, err := turns.EndTurn("s1", creatorID)
	require.NoError(t, err)
	_, err = turns.EndTurn("s1", playerB)
	require.NoError(t, err)

	// Holder is now playerC, the last in order; ending wraps to the first.
	result, err := turns.EndTurn("s1", playerC)
	require.NoError(t, err)
	assert.Equal(t, creatorID, result.NextPlayerID)
	assert.Equal(t, 4, result.TurnNumber)

	persisted, _ := store.Get("s1")
	assert.Equal(t, 4, persisted.TurnNumber)
}

func TestEndTurnByNonHolderIsNoOp(t *testing.T) {
	turns, store := startedSession(t)

	_, err := turns.EndTurn("s1", playerB)
	assert.ErrorIs(t, err, ErrNotTurnHolder)

	persisted, _ := store.Get("s1")
	require.NotNil(t, persisted.CurrentTurnUserID)
	assert.Equal(t, creatorID, *persisted.CurrentTurnUserID)
	assert.Equal(t, 1, persisted.TurnNumber)
	assert.True(t, persisted.IsTurnActive)
}

func TestEndTurnWithCorruptedOrderDoesNotAdvance(t *testing.T) {
	session := newWaitingSession("s1")
	turns, store := newCoordinator(t, session)
	_, err := turns.Start("s1", creatorID, []uint{creatorID, playerB})
	require.NoError(t, err)

	// Corrupt the frozen order so the holder no longer appears in it.
	_, err = store.CommitTurnTransition("s1", func(s *models.GameSession) error {
		s.PlayersOrder = []uint{playerB, playerC}
		return nil
	})
	require.NoError(t, err)

	_, err = turns.EndTurn("s1", creatorID)
	assert.ErrorIs(t, err, ErrNoNextPlayer)

	persisted, _ := store.Get("s1")
	assert.Equal(t, creatorID, *persisted.CurrentTurnUserID)
	assert.Equal(t, 1, persisted.TurnNumber)
}

func TestCanAct(t *testing.T) {
	turns, store := startedSession(t)

	assert.True(t, turns.CanAct("s1", creatorID))
	assert.False(t, turns.CanAct("s1", playerB))
	assert.False(t, turns.CanAct("missing", creatorID))

	_, err := turns.EndTurn("s1", creatorID)
	require.NoError(t, err)
	assert.False(t, turns.CanAct("s1", creatorID))
	assert.True(t, turns.CanAct("s1", playerB))

	// A finished session accepts no actions at all.
	_, err = store.CommitTurnTransition("s1", func(s *models.GameSession) error {
		s.Status = models.StatusFinished
		return nil
	})
	require.NoError(t, err)
	assert.False(t, turns.CanAct("s1", playerB))
}

func TestNextInOrder(t *testing.T) {
	order := []uint{1, 2, 3}

	next, ok := nextInOrder(order, 1)
	require.True(t, ok)
	assert.Equal(t, uint(2), next)

	next, ok = nextInOrder(order, 3)
	require.True(t, ok)
	assert.Equal(t, uint(1), next)

	_, ok = nextInOrder(order, 9)
	assert.False(t, ok)

	_, ok = nextInOrder([]uint{1, 2, 1}, 1)
	assert.False(t, ok, "duplicated holder must not resolve a successor")

	_, ok = nextInOrder(nil, 1)
	assert.False(t, ok)
}
