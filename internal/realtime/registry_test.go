package realtime

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"tabletop/backend/internal/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory wsConn recording delivered text frames.
type fakeConn struct {
	mu         sync.Mutex
	frames     [][]byte
	failWrites bool
	closed     bool
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("connection closed")
	}
	if f.failWrites {
		return errors.New("write failed")
	}
	if messageType == websocket.TextMessage {
		cp := make([]byte, len(data))
		copy(cp, data)
		f.frames = append(f.frames, cp)
	}
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// frameEnvelope mirrors Envelope with the payload kept raw for
// per-test decoding.
type frameEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (f *fakeConn) envelopes(t *testing.T) []frameEnvelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]frameEnvelope, 0, len(f.frames))
	for _, frame := range f.frames {
		var env frameEnvelope
		require.NoError(t, json.Unmarshal(frame, &env))
		out = append(out, env)
	}
	return out
}

// waitFrames blocks until the conn has received at least n frames.
func waitFrames(t *testing.T, conn *fakeConn, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return conn.frameCount() >= n },
		time.Second, 2*time.Millisecond)
}

func findPlayer(players []PlayerState, userID uint) (PlayerState, bool) {
	for _, p := range players {
		if p.UserID == userID {
			return p, true
		}
	}
	return PlayerState{}, false
}

func TestConnectedCountTracksDistinctLiveChannels(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, 0, r.ConnectedCount("s1"))

	r.Connect("s1", 1, &fakeConn{}, true)
	r.Connect("s1", 2, &fakeConn{}, false)
	r.Connect("s1", 3, &fakeConn{}, false)
	assert.Equal(t, 3, r.ConnectedCount("s1"))

	r.Disconnect("s1", 2)
	assert.Equal(t, 2, r.ConnectedCount("s1"))
	assert.False(t, r.IsConnected("s1", 2))
	assert.True(t, r.IsConnected("s1", 1))

	// Disconnecting an unknown user changes nothing.
	r.Disconnect("s1", 99)
	assert.Equal(t, 2, r.ConnectedCount("s1"))

	r.Disconnect("s1", 1)
	r.Disconnect("s1", 3)
	assert.Equal(t, 0, r.ConnectedCount("s1"))
}

func TestConnectReplacesExistingChannel(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}
	r.Connect("s1", 1, first, false)
	r.Connect("s1", 1, second, false)

	assert.Equal(t, 1, r.ConnectedCount("s1"))
	// The replaced connection is closed, last writer wins.
	require.Eventually(t, first.isClosed, time.Second, 2*time.Millisecond)
	assert.False(t, second.isClosed())
}

func TestStaleCleanupCannotEvictReplacement(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}
	old := r.Connect("s1", 1, first, false)
	replacement := r.Connect("s1", 1, second, false)

	// The replaced connection's read loop runs its cleanup after losing
	// the race; it must not deregister the connection that won.
	removed := r.DisconnectClient(old)
	assert.False(t, removed, "stale cleanup must be a no-op")
	assert.True(t, r.IsConnected("s1", 1))
	assert.Equal(t, 1, r.ConnectedCount("s1"))
	assert.False(t, second.isClosed())

	state, ok := findPlayer(r.ListPlayers("s1"), 1)
	require.True(t, ok)
	assert.True(t, state.Connected, "metadata must still show the user connected")

	// The replacement still receives traffic.
	r.Broadcast("s1", Envelope{Type: TypeGameStarted}, NoExclude)
	waitFrames(t, second, 1)

	// The live connection's own cleanup still works.
	removed = r.DisconnectClient(replacement)
	assert.True(t, removed)
	assert.False(t, r.IsConnected("s1", 1))
}

func TestMetadataSurvivesReconnect(t *testing.T) {
	r := NewRegistry()

	r.Connect("s1", 1, &fakeConn{}, true) // GM, keeps the session alive
	r.Connect("s1", 2, &fakeConn{}, false)
	r.UpdatePosition("s1", 2, models.Position{X: 3, Y: 4})

	r.Disconnect("s1", 2)
	players := r.ListPlayers("s1")
	state, ok := findPlayer(players, 2)
	require.True(t, ok, "metadata must be retained after disconnect")
	assert.False(t, state.Connected)
	assert.Equal(t, models.Position{X: 3, Y: 4}, state.Position)

	r.Connect("s1", 2, &fakeConn{}, false)
	state, ok = findPlayer(r.ListPlayers("s1"), 2)
	require.True(t, ok)
	assert.True(t, state.Connected)
	assert.Equal(t, models.Position{X: 3, Y: 4}, state.Position, "position survives a reconnect")
}

func TestGMRoleSurvivesReconnect(t *testing.T) {
	r := NewRegistry()

	r.Connect("s1", 1, &fakeConn{}, true)
	r.Connect("s1", 2, &fakeConn{}, false)

	gm, ok := r.GM("s1")
	require.True(t, ok)
	assert.Equal(t, uint(1), gm)

	r.Disconnect("s1", 1)
	_, ok = r.GM("s1")
	assert.False(t, ok, "GM contact clears when the GM drops")

	r.Connect("s1", 1, &fakeConn{}, true)
	gm, ok = r.GM("s1")
	require.True(t, ok)
	assert.Equal(t, uint(1), gm)

	state, found := findPlayer(r.ListPlayers("s1"), 1)
	require.True(t, found)
	assert.True(t, state.IsGM)
}

func TestSessionTornDownAfterLastDisconnect(t *testing.T) {
	r := NewRegistry()

	r.Connect("s1", 1, &fakeConn{}, true)
	r.UpdatePosition("s1", 1, models.Position{X: 7, Y: 7})
	r.Disconnect("s1", 1)

	// Transient state is gone entirely, not just the channel.
	assert.Nil(t, r.ListPlayers("s1"))
	assert.Equal(t, 0, r.ConnectedCount("s1"))

	// A later reconnect starts from a clean slate.
	r.Connect("s1", 1, &fakeConn{}, true)
	state, ok := findPlayer(r.ListPlayers("s1"), 1)
	require.True(t, ok)
	assert.Equal(t, models.Position{}, state.Position)
}

func TestUpdatePositionIgnoresUnregisteredPair(t *testing.T) {
	r := NewRegistry()

	r.UpdatePosition("s1", 1, models.Position{X: 1, Y: 1}) // unknown session

	r.Connect("s1", 1, &fakeConn{}, true)
	r.UpdatePosition("s1", 2, models.Position{X: 1, Y: 1}) // unknown user

	_, ok := findPlayer(r.ListPlayers("s1"), 2)
	assert.False(t, ok)
}

func TestCleanupSessionClosesEveryChannel(t *testing.T) {
	r := NewRegistry()

	conns := []*fakeConn{{}, {}, {}}
	for i, conn := range conns {
		r.Connect("s1", uint(i+1), conn, i == 0)
	}

	r.CleanupSession("s1")

	for _, conn := range conns {
		require.Eventually(t, conn.isClosed, time.Second, 2*time.Millisecond)
	}
	assert.Equal(t, 0, r.ConnectedCount("s1"))
	assert.Nil(t, r.ListPlayers("s1"))

	// Idempotent on an unknown session.
	r.CleanupSession("s1")
}

func TestSessionsAreIndependent(t *testing.T) {
	r := NewRegistry()

	r.Connect("s1", 1, &fakeConn{}, true)
	r.Connect("s2", 1, &fakeConn{}, false)

	r.Disconnect("s1", 1)
	assert.Equal(t, 0, r.ConnectedCount("s1"))
	assert.Equal(t, 1, r.ConnectedCount("s2"))
}
