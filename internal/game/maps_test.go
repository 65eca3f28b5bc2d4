package game

import (
	"testing"

	"tabletop/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func testMap() *models.GameMap {
	return &models.GameMap{
		Width:  10,
		Height: 10,
		Walls: []models.Wall{
			{X1: 5, Y1: 0, X2: 5, Y2: 4}, // vertical wall in the upper half
		},
		Obstacles: []models.Position{
			{X: 2, Y: 8},
		},
	}
}

func TestValidateMoveInsideGrid(t *testing.T) {
	m := testMap()
	assert.True(t, ValidateMove(m, models.Position{X: 0, Y: 9}, models.Position{X: 1, Y: 9}))
}

func TestValidateMoveOutOfBounds(t *testing.T) {
	m := testMap()
	start := models.Position{X: 1, Y: 1}
	for _, end := range []models.Position{
		{X: -1, Y: 1}, {X: 10, Y: 1}, {X: 1, Y: -1}, {X: 1, Y: 10},
	} {
		assert.False(t, ValidateMove(m, start, end), "move to %+v should be rejected", end)
	}
}

func TestValidateMoveOntoObstacle(t *testing.T) {
	m := testMap()
	assert.False(t, ValidateMove(m, models.Position{X: 2, Y: 7}, models.Position{X: 2, Y: 8}))
}

func TestValidateMoveThroughWall(t *testing.T) {
	m := testMap()
	// Crossing the wall at y=2.
	assert.False(t, ValidateMove(m, models.Position{X: 3, Y: 2}, models.Position{X: 7, Y: 2}))
	// Passing below the wall's end is fine.
	assert.True(t, ValidateMove(m, models.Position{X: 3, Y: 6}, models.Position{X: 7, Y: 6}))
}

func TestSegmentsIntersect(t *testing.T) {
	p := func(x, y int) models.Position { return models.Position{X: x, Y: y} }

	assert.True(t, segmentsIntersect(p(0, 0), p(4, 4), p(0, 4), p(4, 0)), "crossing diagonals")
	assert.False(t, segmentsIntersect(p(0, 0), p(1, 1), p(3, 3), p(4, 4)), "collinear but disjoint")
	assert.True(t, segmentsIntersect(p(0, 0), p(4, 4), p(2, 2), p(6, 6)), "collinear overlap")
	assert.True(t, segmentsIntersect(p(0, 0), p(4, 0), p(2, 0), p(2, 3)), "touching endpoint")
	assert.False(t, segmentsIntersect(p(0, 0), p(1, 0), p(0, 2), p(1, 2)), "parallel")
}
