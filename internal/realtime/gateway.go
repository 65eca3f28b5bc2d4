package realtime

import (
	"encoding/json"
	"time"

	"tabletop/backend/internal/dice"
	"tabletop/backend/internal/game"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Maximum inbound frame size. Client messages are small control
// payloads; anything bigger is abuse.
const maxMessageSize = 4096

// RollFunc turns a dice formula into a result. Injected so tests can
// pin the dice.
type RollFunc func(formula string) (dice.Result, error)

// Gateway is the single entry point for inbound client events: it
// drives one read loop per connection and translates each event into
// turn-machine and broadcast calls.
type Gateway struct {
	registry *Registry
	turns    *game.TurnCoordinator
	roll     RollFunc
}

// NewGateway wires a gateway over the given registry and turn
// coordinator.
func NewGateway(registry *Registry, turns *game.TurnCoordinator, roll RollFunc) *Gateway {
	if roll == nil {
		roll = dice.Roll
	}
	return &Gateway{registry: registry, turns: turns, roll: roll}
}

// Run serves one admitted connection until the peer drops. The caller
// has already authenticated the user and verified session membership.
//
// A dropped connection ends only this read loop; cleanup never touches
// other participants' in-flight actions.
func (g *Gateway) Run(conn *websocket.Conn, sessionID string, userID uint, isGM bool) {
	client := g.registry.Connect(sessionID, userID, conn, isGM)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	g.sendInitialState(sessionID, userID, isGM)
	g.registry.Broadcast(sessionID, Envelope{
		Type: TypePlayerConnected,
		Data: PlayerConnectedData{UserID: userID, IsGM: isGM},
	}, userID)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		g.dispatch(sessionID, userID, isGM, raw)
	}

	// Deregister only if this connection is still the registered one: a
	// read loop that lost a reconnect replacement race must not tear
	// down its successor or announce a disconnect the peer never had.
	if g.registry.DisconnectClient(client) {
		g.registry.Broadcast(sessionID, Envelope{
			Type: TypePlayerDisconnected,
			Data: PlayerDisconnectedData{UserID: userID},
		}, NoExclude)
	}
}

// sendInitialState unicasts the current session snapshot to a freshly
// opened connection.
func (g *Gateway) sendInitialState(sessionID string, userID uint, isGM bool) {
	state := InitialStateData{
		SessionID: sessionID,
		UserID:    userID,
		IsGM:      isGM,
		Players:   g.registry.ListPlayers(sessionID),
	}
	if gmID, ok := g.registry.GM(sessionID); ok {
		state.GMID = &gmID
	}
	g.registry.SendToOne(sessionID, userID, Envelope{Type: TypeInitialState, Data: state})
}

// dispatch routes one inbound frame by its message type. Unknown types
// are ignored so older servers tolerate newer clients.
func (g *Gateway) dispatch(sessionID string, userID uint, isGM bool, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
		}).Debug("discarding malformed frame")
		return
	}

	switch msg.Type {
	case TypeMove:
		g.handleMove(sessionID, userID, msg.Data)
	case TypeEndTurn:
		g.handleEndTurn(sessionID, userID)
	case TypeRollDice:
		g.handleRollDice(sessionID, userID, msg.Data)
	case TypeGMCommand:
		if !isGM {
			return
		}
		// Echoed verbatim; the payload is opaque to the server.
		g.registry.Broadcast(sessionID, Envelope{Type: TypeGMCommand, Data: msg.Data}, NoExclude)
	case TypeChatMessage:
		g.handleChat(sessionID, userID, msg.Data)
	default:
		// Unknown message types are a forward-compatible no-op.
	}
}

// handleMove applies a move if the sender holds an active turn;
// otherwise the action is dropped without a reply. The silence is
// deliberate: the hot path stays cheap and non-holders learn nothing
// about turn ownership.
func (g *Gateway) handleMove(sessionID string, userID uint, data json.RawMessage) {
	var payload MovePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	if !g.turns.CanAct(sessionID, userID) {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
		}).Debug("dropping move from non-holder")
		return
	}

	g.registry.UpdatePosition(sessionID, userID, payload.Position)
	g.registry.Broadcast(sessionID, Envelope{
		Type: TypePlayerMoved,
		Data: PlayerMovedData{UserID: userID, Position: payload.Position},
	}, NoExclude)
}

// handleEndTurn advances the turn pointer. A stale or unauthorized
// end_turn is dropped silently, same policy as handleMove.
func (g *Gateway) handleEndTurn(sessionID string, userID uint) {
	result, err := g.turns.EndTurn(sessionID, userID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"session_id": sessionID,
			"user_id":    userID,
		}).WithError(err).Debug("dropping end_turn")
		return
	}

	g.registry.Broadcast(sessionID, Envelope{
		Type: TypeTurnEnded,
		Data: TurnEndedData{
			CurrentPlayerID: result.CurrentPlayerID,
			NextPlayerID:    result.NextPlayerID,
			TurnNumber:      result.TurnNumber,
		},
	}, NoExclude)
}

// handleRollDice rolls and fans out the result; a malformed formula is
// reported only to the requester, never broadcast.
func (g *Gateway) handleRollDice(sessionID string, userID uint, data json.RawMessage) {
	var payload RollDicePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	result, err := g.roll(payload.DiceFormula)
	if err != nil {
		g.registry.SendToOne(sessionID, userID, Envelope{
			Type: TypeDiceError,
			Data: DiceErrorData{Error: err.Error()},
		})
		return
	}

	g.registry.Broadcast(sessionID, Envelope{
		Type: TypeDiceRolled,
		Data: DiceRolledData{UserID: userID, Result: result, Formula: payload.DiceFormula},
	}, NoExclude)
}

// handleChat fans out a chat line. Authorship is stamped server-side;
// any user id the client put in the payload is ignored.
func (g *Gateway) handleChat(sessionID string, userID uint, data json.RawMessage) {
	var payload ChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return
	}

	g.registry.Broadcast(sessionID, Envelope{
		Type: TypeChatMessage,
		Data: ChatMessageData{
			UserID:    userID,
			Message:   payload.Message,
			Timestamp: payload.Timestamp,
		},
	}, NoExclude)
}
