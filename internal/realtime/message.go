package realtime

import (
	"encoding/json"

	"tabletop/backend/internal/dice"
	"tabletop/backend/internal/models"
)

// Inbound message types accepted from clients.
const (
	TypeMove        = "move"
	TypeEndTurn     = "end_turn"
	TypeRollDice    = "roll_dice"
	TypeGMCommand   = "gm_command"
	TypeChatMessage = "chat_message"
)

// Outbound message types pushed to clients.
const (
	TypeInitialState       = "initial_state"
	TypePlayerConnected    = "player_connected"
	TypePlayerDisconnected = "player_disconnected"
	TypePlayerJoined       = "player_joined"
	TypePlayerMoved        = "player_moved"
	TypeGameStarted        = "game_started"
	TypeTurnEnded          = "turn_ended"
	TypeDiceRolled         = "dice_rolled"
	TypeDiceError          = "dice_error"
	TypeSessionDeleted     = "session_deleted"
)

// Envelope is the wire format for every outbound realtime message.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// inboundMessage is the envelope as read off the socket; Data stays raw
// until the dispatcher knows the concrete payload type.
type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MovePayload is the client payload for a "move" message.
type MovePayload struct {
	Position models.Position `json:"position"`
}

// RollDicePayload is the client payload for a "roll_dice" message.
type RollDicePayload struct {
	DiceFormula string `json:"dice_formula"`
}

// ChatPayload is the client payload for a "chat_message" message. Any
// user id a client puts in here is ignored; authorship is stamped
// server-side.
type ChatPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// InitialStateData is unicast to a connection right after it opens.
type InitialStateData struct {
	SessionID string        `json:"session_id"`
	UserID    uint          `json:"user_id"`
	IsGM      bool          `json:"is_gm"`
	GMID      *uint         `json:"gm_id,omitempty"`
	Players   []PlayerState `json:"players"`
}

// PlayerConnectedData announces a new live connection to the rest of
// the session.
type PlayerConnectedData struct {
	UserID uint `json:"user_id"`
	IsGM   bool `json:"is_gm"`
}

// PlayerDisconnectedData announces a dropped connection.
type PlayerDisconnectedData struct {
	UserID uint `json:"user_id"`
}

// PlayerMovedData fans out a validated move.
type PlayerMovedData struct {
	UserID   uint            `json:"user_id"`
	Position models.Position `json:"position"`
}

// TurnEndedData fans out a completed turn transition.
type TurnEndedData struct {
	CurrentPlayerID uint `json:"current_player_id"`
	NextPlayerID    uint `json:"next_player_id"`
	TurnNumber      int  `json:"turn_number"`
}

// DiceRolledData fans out a successful roll.
type DiceRolledData struct {
	UserID  uint        `json:"user_id"`
	Result  dice.Result `json:"result"`
	Formula string      `json:"formula"`
}

// DiceErrorData is unicast to the requester on a malformed formula.
type DiceErrorData struct {
	Error string `json:"error"`
}

// ChatMessageData fans out a chat line with server-stamped authorship.
type ChatMessageData struct {
	UserID    uint   `json:"user_id"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// SessionDeletedData is the final message a session's audience receives.
type SessionDeletedData struct {
	Message string `json:"message"`
}
