package handler

import (
	"crypto/rand"
	"errors"
	"net/http"
	"time"

	"tabletop/backend/internal/database"
	"tabletop/backend/internal/game"
	"tabletop/backend/internal/models"
	"tabletop/backend/internal/realtime"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type SessionInput struct {
	MaxPlayers int `json:"max_players" binding:"omitempty,min=2,max=10" example:"4"`
}

type JoinSessionInput struct {
	CharacterID *uint `json:"character_id"`
}

type SessionPlayerResponse struct {
	ID          uint   `json:"id"`
	SessionID   string `json:"session_id"`
	UserID      uint   `json:"user_id"`
	CharacterID *uint  `json:"character_id,omitempty"`
	IsReady     bool   `json:"is_ready"`
	IsGM        bool   `json:"is_gm"`
}

type SessionResponse struct {
	ID                string                  `json:"id" example:"aB3xY9Qz"`
	CreatorID         uint                    `json:"creator_id"`
	Status            models.SessionStatus    `json:"status"`
	MaxPlayers        int                     `json:"max_players"`
	CreatedAt         time.Time               `json:"created_at"`
	CurrentTurnUserID *uint                   `json:"current_turn_user_id,omitempty"`
	IsTurnActive      bool                    `json:"is_turn_active"`
	TurnNumber        int                     `json:"turn_number"`
	PlayersOrder      []uint                  `json:"players_order,omitempty"`
	Players           []SessionPlayerResponse `json:"players"`
}

func newSessionPlayerResponse(player models.SessionPlayer) SessionPlayerResponse {
	return SessionPlayerResponse{
		ID:          player.ID,
		SessionID:   player.SessionID,
		UserID:      player.UserID,
		CharacterID: player.CharacterID,
		IsReady:     player.IsReady,
		IsGM:        player.IsGM,
	}
}

func newSessionResponse(session models.GameSession) SessionResponse {
	players := make([]SessionPlayerResponse, 0, len(session.Players))
	for _, player := range session.Players {
		players = append(players, newSessionPlayerResponse(player))
	}

	return SessionResponse{
		ID:                session.ID,
		CreatorID:         session.CreatorID,
		Status:            session.Status,
		MaxPlayers:        session.MaxPlayers,
		CreatedAt:         session.CreatedAt,
		CurrentTurnUserID: session.CurrentTurnUserID,
		IsTurnActive:      session.IsTurnActive,
		TurnNumber:        session.TurnNumber,
		PlayersOrder:      session.PlayersOrder,
		Players:           players,
	}
}

// endregion

// SessionHandler serves the session lifecycle endpoints. It holds the
// realtime registry and the turn coordinator by reference; neither is
// a package-level singleton.
type SessionHandler struct {
	registry *realtime.Registry
	turns    *game.TurnCoordinator
}

// NewSessionHandler wires a session handler.
func NewSessionHandler(registry *realtime.Registry, turns *game.TurnCoordinator) *SessionHandler {
	return &SessionHandler{registry: registry, turns: turns}
}

const sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateSessionID produces the short opaque id format the clients
// expect: 8 alphanumeric characters.
func generateSessionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = sessionIDAlphabet[int(buf[i])%len(sessionIDAlphabet)]
	}
	return string(buf), nil
}

// CreateSession godoc
// @Summary      Create a game session
// @Description  Creates a new session; the creator becomes its GM and first (already ready) member.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body SessionInput true "Session settings"
// @Success      201 {object} SessionResponse
// @Failure      400 {object} ErrorResponse
// @Router       /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	userID := currentUserID(c)

	var input SessionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.MaxPlayers == 0 {
		input.MaxPlayers = 4
	}

	sessionID, err := generateSessionID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate session id"})
		return
	}

	session := models.GameSession{
		ID:         sessionID,
		CreatorID:  userID,
		Status:     models.StatusWaiting,
		MaxPlayers: input.MaxPlayers,
	}
	gm := models.SessionPlayer{
		SessionID: sessionID,
		UserID:    userID,
		IsReady:   true, // the GM is always ready
		IsGM:      true,
	}

	// The GM membership must exist from the moment the session does.
	tx := database.DB.Begin()
	if err := tx.Create(&session).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}
	if err := tx.Create(&gm).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create GM membership"})
		return
	}
	tx.Commit()

	database.DB.Preload("Players").First(&session, "id = ?", session.ID)
	c.JSON(http.StatusCreated, newSessionResponse(session))
}

// GetOpenSessions godoc
// @Summary      List joinable sessions
// @Description  Gets a paginated list of sessions still waiting for players.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(20)
// @Success      200 {object} PaginatedResponse[SessionResponse]
// @Router       /sessions [get]
func (h *SessionHandler) GetOpenSessions(c *gin.Context) {
	page, limit := parsePageQuery(c)

	query := database.DB.Model(&models.GameSession{}).
		Preload("Players").
		Where("status = ?", models.StatusWaiting).
		Order("created_at DESC")

	result, err := paginate[models.GameSession](query, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}

	response := PaginatedResponse[SessionResponse]{Meta: result.Meta}
	for _, session := range result.Data {
		response.Data = append(response.Data, newSessionResponse(session))
	}
	c.JSON(http.StatusOK, response)
}

// GetMySessions godoc
// @Summary      List sessions created by the current user
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} SessionResponse
// @Router       /sessions/my-sessions [get]
func (h *SessionHandler) GetMySessions(c *gin.Context) {
	userID := currentUserID(c)

	var sessions []models.GameSession
	database.DB.Preload("Players").
		Where("creator_id = ?", userID).
		Order("created_at DESC").
		Find(&sessions)

	response := make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, newSessionResponse(session))
	}
	c.JSON(http.StatusOK, response)
}

// GetSessionByID godoc
// @Summary      Get a session by ID
// @Description  Session details are visible to any authenticated user.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [get]
func (h *SessionHandler) GetSessionByID(c *gin.Context) {
	var session models.GameSession
	if err := database.DB.Preload("Players").First(&session, "id = ?", c.Param("id")).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(session))
}

// JoinSession godoc
// @Summary      Join a session
// @Description  Joins a waiting session. A character may be picked now or later in the lobby.
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path string           true  "Session ID"
// @Param        input body JoinSessionInput false "Optional character selection"
// @Success      200 {object} SessionPlayerResponse
// @Failure      400 {object} ErrorResponse "Session not joinable, full, or character invalid"
// @Failure      409 {object} ErrorResponse "Already in session"
// @Router       /sessions/{id}/join [post]
func (h *SessionHandler) JoinSession(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := c.Param("id")

	// The body is optional; a character can be picked later in the lobby.
	var input JoinSessionInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var session models.GameSession
	if err := database.DB.First(&session, "id = ? AND status = ?", sessionID, models.StatusWaiting).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session not found or already started"})
		return
	}

	if input.CharacterID != nil {
		var character models.Character
		if err := database.DB.First(&character, "id = ? AND owner_id = ?", *input.CharacterID, userID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Character not found or doesn't belong to you"})
			return
		}
	}

	var memberCount int64
	database.DB.Model(&models.SessionPlayer{}).Where("session_id = ?", sessionID).Count(&memberCount)
	if memberCount >= int64(session.MaxPlayers) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session is full"})
		return
	}

	var existing models.SessionPlayer
	if err := database.DB.First(&existing, "session_id = ? AND user_id = ?", sessionID, userID).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Player already in session"})
		return
	}

	player := models.SessionPlayer{
		SessionID:   sessionID,
		UserID:      userID,
		CharacterID: input.CharacterID,
	}
	if err := database.DB.Create(&player).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join session"})
		return
	}

	h.registry.Broadcast(sessionID, realtime.Envelope{
		Type: realtime.TypePlayerJoined,
		Data: gin.H{"user_id": userID},
	}, realtime.NoExclude)

	c.JSON(http.StatusOK, newSessionPlayerResponse(player))
}

// GetSessionPlayers godoc
// @Summary      List session members
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {array} SessionPlayerResponse
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/players [get]
func (h *SessionHandler) GetSessionPlayers(c *gin.Context) {
	sessionID := c.Param("id")

	var session models.GameSession
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var players []models.SessionPlayer
	database.DB.Where("session_id = ?", sessionID).Order("id ASC").Find(&players)

	response := make([]SessionPlayerResponse, 0, len(players))
	for _, player := range players {
		response = append(response, newSessionPlayerResponse(player))
	}
	c.JSON(http.StatusOK, response)
}

// ToggleReady godoc
// @Summary      Toggle the caller's ready flag
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionPlayerResponse
// @Failure      404 {object} ErrorResponse "Not a member of this session"
// @Router       /sessions/{id}/ready [post]
func (h *SessionHandler) ToggleReady(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := c.Param("id")

	var player models.SessionPlayer
	if err := database.DB.First(&player, "session_id = ? AND user_id = ?", sessionID, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Player not found in this session"})
		return
	}

	player.IsReady = !player.IsReady
	database.DB.Save(&player)

	c.JSON(http.StatusOK, newSessionPlayerResponse(player))
}

// GMRedirect godoc
// @Summary      GM entry point into a session
// @Description  Verifies the caller is the session's GM, marks them ready, and returns the full session.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionResponse
// @Failure      403 {object} ErrorResponse "Caller is not the GM"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/gm-redirect [get]
func (h *SessionHandler) GMRedirect(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := c.Param("id")

	var session models.GameSession
	if err := database.DB.Preload("Players").First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	var player models.SessionPlayer
	if err := database.DB.First(&player, "session_id = ? AND user_id = ? AND is_gm = ?", sessionID, userID, true).Error; err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not the GM of this session"})
		return
	}

	player.IsReady = true
	database.DB.Save(&player)

	c.JSON(http.StatusOK, newSessionResponse(session))
}

// StartSession godoc
// @Summary      Start the game (creator only)
// @Description  Freezes the turn order as the membership snapshot and opens turn 1.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} SessionResponse
// @Failure      400 {object} ErrorResponse "Session not waiting, or has no players"
// @Failure      403 {object} ErrorResponse "Caller is not the creator"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id}/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := c.Param("id")

	// Turn order is membership creation order.
	var order []uint
	database.DB.Model(&models.SessionPlayer{}).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Pluck("user_id", &order)

	session, err := h.turns.Start(sessionID, userID, order)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, game.ErrNotAuthorized):
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the session creator can start the game"})
		case errors.Is(err, game.ErrInvalidState):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Session already started"})
		case errors.Is(err, game.ErrNoPlayers):
			c.JSON(http.StatusBadRequest, gin.H{"error": "No players in session"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		}
		return
	}

	h.registry.Broadcast(sessionID, realtime.Envelope{
		Type: realtime.TypeGameStarted,
		Data: gin.H{"turn_info": game.TurnInfo{
			CurrentPlayerID: *session.CurrentTurnUserID,
			TurnNumber:      session.TurnNumber,
			PlayersOrder:    session.PlayersOrder,
		}},
	}, realtime.NoExclude)

	database.DB.Preload("Players").First(session, "id = ?", sessionID)
	c.JSON(http.StatusOK, newSessionResponse(*session))
}

// DeleteSession godoc
// @Summary      Delete a session (creator only)
// @Description  Notifies connected players, then removes the session and all of its players, NPCs and maps.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Session ID"
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse "Caller is not the creator"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /sessions/{id} [delete]
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	userID := currentUserID(c)
	sessionID := c.Param("id")

	var session models.GameSession
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	if session.CreatorID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the session creator can delete it"})
		return
	}

	// Tell the audience before pulling the plug on their connections.
	h.registry.Broadcast(sessionID, realtime.Envelope{
		Type: realtime.TypeSessionDeleted,
		Data: realtime.SessionDeletedData{Message: "Session was deleted by the creator"},
	}, realtime.NoExclude)

	tx := database.DB.Begin()
	if err := tx.Where("session_id = ?", sessionID).Delete(&models.SessionPlayer{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session players"})
		return
	}
	if err := tx.Where("session_id = ?", sessionID).Delete(&models.NPC{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session NPCs"})
		return
	}
	if err := tx.Where("session_id = ?", sessionID).Delete(&models.GameMap{}).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session maps"})
		return
	}
	if err := tx.Delete(&session).Error; err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}
	tx.Commit()

	h.registry.CleanupSession(sessionID)

	c.JSON(http.StatusOK, gin.H{"message": "Session " + sessionID + " deleted successfully"})
}
