package handler

import (
	"net/http"
	"strconv"

	"tabletop/backend/internal/database"
	"tabletop/backend/internal/game"
	"tabletop/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type MapInput struct {
	SessionID     string `json:"session_id" binding:"required" example:"aB3xY9Qz"`
	Name          string `json:"name" example:"Crypt of the Forgotten"`
	BackgroundURL string `json:"background_url"`
	GridSize      int    `json:"grid_size" binding:"omitempty,min=10,max=200" example:"50"`
	Width         int    `json:"width" binding:"required,min=1" example:"30"`
	Height        int    `json:"height" binding:"required,min=1" example:"20"`
}

type WallInput struct {
	Start models.Position `json:"start"`
	End   models.Position `json:"end"`
}

type WallsInput struct {
	Walls []WallInput `json:"walls" binding:"required"`
}

type ValidateMoveInput struct {
	Start models.Position `json:"start"`
	End   models.Position `json:"end"`
}

type MapResponse struct {
	ID              uint              `json:"id"`
	SessionID       string            `json:"session_id"`
	Name            string            `json:"name"`
	BackgroundImage string            `json:"background_image"`
	GridSize        int               `json:"grid_size"`
	Width           int               `json:"width"`
	Height          int               `json:"height"`
	Walls           []models.Wall     `json:"walls"`
	Obstacles       []models.Position `json:"obstacles"`
}

func newMapResponse(gameMap models.GameMap) MapResponse {
	return MapResponse{
		ID:              gameMap.ID,
		SessionID:       gameMap.SessionID,
		Name:            gameMap.Name,
		BackgroundImage: gameMap.BackgroundImage,
		GridSize:        gameMap.GridSize,
		Width:           gameMap.Width,
		Height:          gameMap.Height,
		Walls:           gameMap.Walls,
		Obstacles:       gameMap.Obstacles,
	}
}

// endregion

// CreateMap godoc
// @Summary      Create a battle map (GM only)
// @Tags         maps
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body MapInput true "Map info"
// @Success      201 {object} MapResponse
// @Failure      403 {object} ErrorResponse "Caller is not the session's GM"
// @Failure      404 {object} ErrorResponse "Session not found"
// @Router       /maps [post]
func CreateMap(c *gin.Context) {
	var input MapInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if requireSessionGM(c, input.SessionID) == nil {
		return
	}

	if input.GridSize == 0 {
		input.GridSize = 50
	}

	gameMap := models.GameMap{
		SessionID:       input.SessionID,
		Name:            input.Name,
		BackgroundImage: input.BackgroundURL,
		GridSize:        input.GridSize,
		Width:           input.Width,
		Height:          input.Height,
	}
	if err := database.DB.Create(&gameMap).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create map"})
		return
	}

	c.JSON(http.StatusCreated, newMapResponse(gameMap))
}

// GetMapByID godoc
// @Summary      Get a map by ID
// @Tags         maps
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Map ID"
// @Success      200 {object} MapResponse
// @Failure      404 {object} ErrorResponse "Map not found"
// @Router       /maps/{id} [get]
func GetMapByID(c *gin.Context) {
	mapID, _ := strconv.Atoi(c.Param("id"))

	var gameMap models.GameMap
	if err := database.DB.First(&gameMap, mapID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Map not found"})
		return
	}
	c.JSON(http.StatusOK, newMapResponse(gameMap))
}

// UpdateWalls godoc
// @Summary      Replace a map's walls (GM only)
// @Tags         maps
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int        true "Map ID"
// @Param        input body WallsInput true "Wall segments"
// @Success      200 {object} MapResponse
// @Failure      403 {object} ErrorResponse "Caller is not the session's GM"
// @Failure      404 {object} ErrorResponse "Map not found"
// @Router       /maps/{id}/walls [put]
func UpdateWalls(c *gin.Context) {
	mapID, _ := strconv.Atoi(c.Param("id"))

	var gameMap models.GameMap
	if err := database.DB.First(&gameMap, mapID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Map not found"})
		return
	}

	if requireSessionGM(c, gameMap.SessionID) == nil {
		return
	}

	var input WallsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	walls := make([]models.Wall, 0, len(input.Walls))
	for _, wall := range input.Walls {
		walls = append(walls, models.Wall{
			X1: wall.Start.X, Y1: wall.Start.Y,
			X2: wall.End.X, Y2: wall.End.Y,
		})
	}

	gameMap.Walls = walls
	database.DB.Save(&gameMap)

	c.JSON(http.StatusOK, newMapResponse(gameMap))
}

// ValidateMapMove godoc
// @Summary      Check whether a move is legal on a map
// @Tags         maps
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int               true "Map ID"
// @Param        input body ValidateMoveInput true "Move to check"
// @Success      200 {object} map[string]bool "{"valid": true}"
// @Failure      404 {object} ErrorResponse "Map not found"
// @Router       /maps/{id}/validate-move [post]
func ValidateMapMove(c *gin.Context) {
	mapID, _ := strconv.Atoi(c.Param("id"))

	var gameMap models.GameMap
	if err := database.DB.First(&gameMap, mapID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Map not found"})
		return
	}

	var input ValidateMoveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"valid": game.ValidateMove(&gameMap, input.Start, input.End)})
}
