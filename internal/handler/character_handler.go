package handler

import (
	"net/http"
	"strconv"

	"tabletop/backend/internal/database"
	"tabletop/backend/internal/models"

	"github.com/gin-gonic/gin"
)

// region --- DTOs ---

type CharacterInput struct {
	Name         string `json:"name" binding:"required" example:"Tharok"`
	Race         string `json:"race" example:"dwarf"`
	Class        string `json:"class" example:"fighter"`
	Strength     int    `json:"strength" binding:"required,min=1" example:"7"`
	Dexterity    int    `json:"dexterity" binding:"required,min=1" example:"4"`
	Intelligence int    `json:"intelligence" binding:"required,min=1" example:"4"`
}

type CharacterResponse struct {
	ID           uint   `json:"id"`
	OwnerID      uint   `json:"owner_id"`
	Name         string `json:"name"`
	Race         string `json:"race"`
	Class        string `json:"class"`
	Strength     int    `json:"strength"`
	Dexterity    int    `json:"dexterity"`
	Intelligence int    `json:"intelligence"`
	Level        int    `json:"level"`
	Experience   int    `json:"experience"`
}

func newCharacterResponse(character models.Character) CharacterResponse {
	return CharacterResponse{
		ID:           character.ID,
		OwnerID:      character.OwnerID,
		Name:         character.Name,
		Race:         character.Race,
		Class:        character.Class,
		Strength:     character.Strength,
		Dexterity:    character.Dexterity,
		Intelligence: character.Intelligence,
		Level:        character.Level,
		Experience:   character.Experience,
	}
}

// endregion

// Total attribute points a fresh character may distribute.
const characterPointBudget = 15

// CreateCharacter godoc
// @Summary      Create a character
// @Description  Creates a character owned by the caller. Attribute points are capped at 15 total.
// @Tags         characters
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body CharacterInput true "Character sheet"
// @Success      201 {object} CharacterResponse
// @Failure      400 {object} ErrorResponse "Validation failed or point budget exceeded"
// @Router       /characters [post]
func CreateCharacter(c *gin.Context) {
	userID := currentUserID(c)

	var input CharacterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Strength+input.Dexterity+input.Intelligence > characterPointBudget {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Total points cannot exceed 15"})
		return
	}

	character := models.Character{
		OwnerID:      userID,
		Name:         input.Name,
		Race:         input.Race,
		Class:        input.Class,
		Strength:     input.Strength,
		Dexterity:    input.Dexterity,
		Intelligence: input.Intelligence,
		Level:        1,
	}
	if err := database.DB.Create(&character).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create character"})
		return
	}

	c.JSON(http.StatusCreated, newCharacterResponse(character))
}

// GetMyCharacters godoc
// @Summary      List the caller's characters
// @Tags         characters
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} CharacterResponse
// @Router       /characters [get]
func GetMyCharacters(c *gin.Context) {
	userID := currentUserID(c)

	var characters []models.Character
	database.DB.Where("owner_id = ?", userID).Find(&characters)

	response := make([]CharacterResponse, 0, len(characters))
	for _, character := range characters {
		response = append(response, newCharacterResponse(character))
	}
	c.JSON(http.StatusOK, response)
}

// GetCharacterByID godoc
// @Summary      Get one of the caller's characters
// @Tags         characters
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Character ID"
// @Success      200 {object} CharacterResponse
// @Failure      404 {object} ErrorResponse "Character not found"
// @Router       /characters/{id} [get]
func GetCharacterByID(c *gin.Context) {
	userID := currentUserID(c)
	characterID, _ := strconv.Atoi(c.Param("id"))

	var character models.Character
	if err := database.DB.First(&character, "id = ? AND owner_id = ?", characterID, userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Character not found"})
		return
	}
	c.JSON(http.StatusOK, newCharacterResponse(character))
}
