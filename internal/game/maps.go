package game

import "tabletop/backend/internal/models"

// ValidateMove reports whether a move from start to end is legal on the
// given map: the destination must be inside the grid, must not land on
// an obstacle, and the straight path must not cross a wall.
func ValidateMove(m *models.GameMap, start, end models.Position) bool {
	if end.X < 0 || end.X >= m.Width || end.Y < 0 || end.Y >= m.Height {
		return false
	}
	for _, obstacle := range m.Obstacles {
		if obstacle == end {
			return false
		}
	}
	for _, wall := range m.Walls {
		if segmentsIntersect(
			start, end,
			models.Position{X: wall.X1, Y: wall.Y1},
			models.Position{X: wall.X2, Y: wall.Y2},
		) {
			return false
		}
	}
	return true
}

// segmentsIntersect reports whether segments p1p2 and p3p4 intersect,
// including collinear overlap.
func segmentsIntersect(p1, p2, p3, p4 models.Position) bool {
	d1 := orientation(p3, p4, p1)
	d2 := orientation(p3, p4, p2)
	d3 := orientation(p1, p2, p3)
	d4 := orientation(p1, p2, p4)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(p3, p4, p1):
		return true
	case d2 == 0 && onSegment(p3, p4, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, p3):
		return true
	case d4 == 0 && onSegment(p1, p2, p4):
		return true
	}
	return false
}

// orientation returns the cross product sign of (b-a) x (c-a).
func orientation(a, b, c models.Position) int {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// onSegment reports whether collinear point p lies within segment ab's
// bounding box.
func onSegment(a, b, p models.Position) bool {
	return min(a.X, b.X) <= p.X && p.X <= max(a.X, b.X) &&
		min(a.Y, b.Y) <= p.Y && p.Y <= max(a.Y, b.Y)
}
