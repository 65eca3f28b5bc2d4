package handler

import (
	"net/http"

	"tabletop/backend/internal/database"
	"tabletop/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type NPCInput struct {
	SessionID   string `json:"session_id" binding:"required" example:"aB3xY9Qz"`
	Name        string `json:"name" binding:"required" example:"Old Innkeeper"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

type NPCResponse struct {
	ID          uint   `json:"id"`
	SessionID   string `json:"session_id"`
	Name        string `json:"name"`
	ImageURL    string `json:"image_url"`
	Description string `json:"description"`
}

func newNPCResponse(npc models.NPC) NPCResponse {
	return NPCResponse{
		ID:          npc.ID,
		SessionID:   npc.SessionID,
		Name:        npc.Name,
		ImageURL:    npc.ImageURL,
		Description: npc.Description,
	}
}

// endregion

// requireSessionGM loads the session and verifies the caller holds its
// GM membership. Returns nil after writing the error response when the
// check fails.
func requireSessionGM(c *gin.Context, sessionID string) *models.GameSession {
	var session models.GameSession
	if err := database.DB.First(&session, "id = ?", sessionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil
	}

	var player models.SessionPlayer
	err := database.DB.
		Where("session_id = ? AND user_id = ? AND is_gm = ?", sessionID, currentUserID(c), true).
		First(&player).Error
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the GM can do this"})
		return nil
	}
	return &session
}

// CreateNPC godoc
// @Summary      Create an NPC (GM only)
// @Tags         npcs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body NPCInput true "NPC info"
// @Success      201 {object} NPCResponse
// @Failure      403 {object} ErrorResponse "Caller is not the session's GM"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /npcs [post]
func CreateNPC(c *gin.Context) {
	var input NPCInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requireSessionGM(c, input.SessionID) == nil {
		return
	}

	npc := models.NPC{
		SessionID:   input.SessionID,
		Name:        input.Name,
		ImageURL:    input.ImageURL,
		Description: input.Description,
	}
	if err := database.DB.Create(&npc).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create NPC"})
		return
	}

	c.JSON(http.StatusCreated, newNPCResponse(npc))
}

// GetSessionNPCs godoc
// @Summary      List a session's NPCs
// @Tags         npcs
// @Produce      json
// @Security     BearerAuth
// @Param        sessionID path string true "Session ID"
// @Success      200 {array} NPCResponse
// @Router       /npcs/{sessionID} [get]
func GetSessionNPCs(c *gin.Context) {
	var npcs []models.NPC
	database.DB.Where("session_id = ?", c.Param("sessionID")).Find(&npcs)

	response := make([]NPCResponse, 0, len(npcs))
	for _, npc := range npcs {
		response = append(response, newNPCResponse(npc))
	}
	c.JSON(http.StatusOK, response)
}
