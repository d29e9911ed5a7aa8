package geometry

import (
	"image"
	"math"
)

// SignedArea computes the signed area of a closed polygon with the shoelace
// formula. Counter-clockwise vertex order (in image coordinates, y down)
// gives a negative value.
func SignedArea(polygon []image.Point) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var sum int64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += int64(polygon[i].X)*int64(polygon[j].Y) - int64(polygon[j].X)*int64(polygon[i].Y)
	}
	return float64(sum) / 2
}

// PolygonArea returns the absolute area of a closed polygon.
func PolygonArea(polygon []image.Point) float64 {
	return math.Abs(SignedArea(polygon))
}

// BoundingBoxInt computes the minimal axis-aligned rectangle containing every
// pixel of the polygon vertices, i.e. width = maxX - minX + 1.
func BoundingBoxInt(points []image.Point) RectInt {
	if len(points) == 0 {
		return RectInt{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return RectInt{X: minX, Y: minY, Width: maxX - minX + 1, Height: maxY - minY + 1}
}
