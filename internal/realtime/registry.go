package realtime

import (
	"sync"

	"tabletop/backend/internal/models"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/sirupsen/logrus"
)

// PlayerState is the transient per-participant metadata a session hub
// tracks for each user that has connected at least once. It survives a
// disconnect (so position and role carry over a reconnect) but not a
// process restart.
type PlayerState struct {
	UserID    uint            `json:"user_id"`
	Position  models.Position `json:"position"`
	IsGM      bool            `json:"is_gm"`
	Connected bool            `json:"connected"`
}

// sessionHub holds all transient state for one session. Its mutex
// serializes every mutation for that session; independent sessions
// never share a lock.
type sessionHub struct {
	mu      sync.Mutex
	clients map[uint]*Client
	players map[uint]*PlayerState
	gmID    *uint

	// dead marks a hub that has been removed from the registry map; a
	// concurrent Connect that raced the removal must retry against a
	// fresh hub instead of registering into this one.
	dead bool
}

func newSessionHub() *sessionHub {
	return &sessionHub{
		clients: make(map[uint]*Client),
		players: make(map[uint]*PlayerState),
	}
}

// Registry tracks which participants currently hold a live connection
// to which session. The top-level map is sharded so sessions scale
// independently; all per-session state is serialized by that session's
// hub lock. The registry is owned by whoever constructs it and passed
// by reference — there is no package-level instance.
type Registry struct {
	sessions cmap.ConcurrentMap[string, *sessionHub]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: cmap.New[*sessionHub]()}
}

// Connect registers a live connection for (sessionID, userID) and
// returns its client handle. An existing connection for the same pair
// is closed and replaced (last-writer-wins; dual connections are not
// supported). Position and metadata from a previous connection of the
// same user are preserved.
func (r *Registry) Connect(sessionID string, userID uint, conn wsConn, isGM bool) *Client {
	for {
		hub := r.sessions.Upsert(sessionID, nil, func(exists bool, current, _ *sessionHub) *sessionHub {
			if exists {
				return current
			}
			return newSessionHub()
		})

		hub.mu.Lock()
		if hub.dead {
			hub.mu.Unlock()
			continue // lost a race with teardown; retry on a fresh hub
		}

		if old, ok := hub.clients[userID]; ok {
			old.close()
		}

		client := newClient(sessionID, userID, conn)
		hub.clients[userID] = client

		state, ok := hub.players[userID]
		if !ok {
			state = &PlayerState{UserID: userID}
			hub.players[userID] = state
		}
		state.IsGM = isGM
		state.Connected = true

		if isGM {
			id := userID
			hub.gmID = &id
		}
		hub.mu.Unlock()

		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
			"is_gm":      isGM,
		}).Debug("connection registered")

		return client
	}
}

// Disconnect drops the connection for (sessionID, userID). Metadata is
// retained so a reconnecting user keeps their position and role; only
// the channel entry goes away. When the last connection of a session
// drops, the session's transient state is torn down entirely.
func (r *Registry) Disconnect(sessionID string, userID uint) {
	r.disconnect(sessionID, userID, nil)
}

// DisconnectClient drops the given connection only if it is still the
// registered channel for its pair. A connection that lost a
// last-writer-wins replacement race must not deregister its successor;
// its cleanup becomes a no-op. Reports whether a channel was removed.
func (r *Registry) DisconnectClient(c *Client) bool {
	return r.disconnect(c.sessionID, c.userID, c)
}

func (r *Registry) disconnect(sessionID string, userID uint, only *Client) bool {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return false
	}

	hub.mu.Lock()
	client, ok := hub.clients[userID]
	if only != nil && (!ok || client != only) {
		hub.mu.Unlock()
		return false
	}
	if ok {
		client.close()
		delete(hub.clients, userID)
	}
	if state, ok := hub.players[userID]; ok {
		state.Connected = false
	}
	if hub.gmID != nil && *hub.gmID == userID {
		hub.gmID = nil
	}
	empty := len(hub.clients) == 0
	hub.mu.Unlock()

	if ok {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
		}).Debug("connection removed")
	}

	if empty {
		// Tear down only if the hub is still empty at removal time;
		// RemoveCb holds the shard lock, so this cannot race a Connect.
		r.sessions.RemoveCb(sessionID, func(_ string, h *sessionHub, exists bool) bool {
			if !exists {
				return false
			}
			h.mu.Lock()
			defer h.mu.Unlock()
			if len(h.clients) > 0 {
				return false
			}
			h.dead = true
			return true
		})
	}
	return ok
}

// UpdatePosition records a participant's last-known position. It is a
// no-op when the pair holds no live connection, which makes stale
// updates after a disconnect harmless.
func (r *Registry) UpdatePosition(sessionID string, userID uint, position models.Position) {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.clients[userID]; !ok {
		return
	}
	if state, ok := hub.players[userID]; ok {
		state.Position = position
	}
}

// ListPlayers returns a snapshot of the session's known participants.
// The snapshot is not kept in sync with concurrent mutation.
func (r *Registry) ListPlayers(sessionID string) []PlayerState {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return nil
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	players := make([]PlayerState, 0, len(hub.players))
	for _, state := range hub.players {
		players = append(players, *state)
	}
	return players
}

// GM returns the user id of the session's registered GM contact, if one
// is currently connected.
func (r *Registry) GM(sessionID string) (uint, bool) {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return 0, false
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	if hub.gmID == nil {
		return 0, false
	}
	return *hub.gmID, true
}

// IsConnected reports whether the pair currently holds a live channel.
func (r *Registry) IsConnected(sessionID string, userID uint) bool {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return false
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	_, ok = hub.clients[userID]
	return ok
}

// ConnectedCount returns the number of live channels in the session.
func (r *Registry) ConnectedCount(sessionID string) int {
	hub, ok := r.sessions.Get(sessionID)
	if !ok {
		return 0
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.clients)
}

// CleanupSession forcibly closes every channel in the session and
// discards all transient state. Used when the session itself is
// deleted.
func (r *Registry) CleanupSession(sessionID string) {
	hub, ok := r.sessions.Pop(sessionID)
	if !ok {
		return
	}

	hub.mu.Lock()
	defer hub.mu.Unlock()
	for _, client := range hub.clients {
		client.close()
	}
	hub.clients = make(map[uint]*Client)
	hub.players = make(map[uint]*PlayerState)
	hub.gmID = nil
	hub.dead = true

	logrus.WithField("session_id", sessionID).Debug("session transient state discarded")
}
