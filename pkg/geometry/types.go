// Package geometry provides basic geometric types used throughout the application.
package geometry

import "image"

// RectInt represents a rectangle with integer coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRectInt creates a new RectInt.
func NewRectInt(x, y, width, height int) RectInt {
	return RectInt{X: x, Y: y, Width: width, Height: height}
}

// FromRectangle converts an image.Rectangle (Min inclusive, Max exclusive).
func FromRectangle(r image.Rectangle) RectInt {
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rectangle returns the image.Rectangle covering the same pixels.
func (r RectInt) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Right returns the exclusive right edge.
func (r RectInt) Right() int {
	return r.X + r.Width
}

// Bottom returns the exclusive bottom edge.
func (r RectInt) Bottom() int {
	return r.Y + r.Height
}

// Area returns width*height.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rectangle covers no pixels.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Within returns true if the rectangle lies inside [0,width) x [0,height).
func (r RectInt) Within(width, height int) bool {
	return r.X >= 0 && r.Y >= 0 && r.Right() <= width && r.Bottom() <= height
}

// Clip returns the part of the rectangle inside [0,width) x [0,height).
func (r RectInt) Clip(width, height int) RectInt {
	return FromRectangle(r.Rectangle().Intersect(image.Rect(0, 0, width, height)))
}

// SpansFrame returns true if the rectangle touches all four edges of a
// width x height frame, allowing for a one pixel border.
func (r RectInt) SpansFrame(width, height int) bool {
	return r.X <= 1 && r.Y <= 1 && r.Right() >= width-1 && r.Bottom() >= height-1
}
