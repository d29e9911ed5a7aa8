package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolygonArea(t *testing.T) {
	square := []image.Point{{0, 0}, {0, 49}, {49, 49}, {49, 0}}
	assert.Equal(t, 2401.0, PolygonArea(square))
	assert.Equal(t, -2401.0, SignedArea(square), "counter-clockwise in image coordinates is negative")

	reversed := []image.Point{{0, 0}, {49, 0}, {49, 49}, {0, 49}}
	assert.Equal(t, 2401.0, SignedArea(reversed))

	triangle := []image.Point{{0, 0}, {10, 0}, {0, 10}}
	assert.Equal(t, 50.0, PolygonArea(triangle))

	assert.Zero(t, PolygonArea([]image.Point{{1, 1}, {2, 2}}))
	assert.Zero(t, PolygonArea(nil))
}

func TestBoundingBoxInt(t *testing.T) {
	pts := []image.Point{{100, 100}, {100, 149}, {149, 149}, {149, 100}}
	assert.Equal(t, NewRectInt(100, 100, 50, 50), BoundingBoxInt(pts))
	assert.Equal(t, NewRectInt(7, 3, 1, 1), BoundingBoxInt([]image.Point{{7, 3}}))
	assert.Equal(t, RectInt{}, BoundingBoxInt(nil))
}

func TestRectIntBounds(t *testing.T) {
	r := NewRectInt(10, 20, 30, 40)
	assert.Equal(t, 40, r.Right())
	assert.Equal(t, 60, r.Bottom())
	assert.Equal(t, 1200, r.Area())
	assert.Equal(t, image.Rect(10, 20, 40, 60), r.Rectangle())
	assert.Equal(t, r, FromRectangle(r.Rectangle()))

	assert.True(t, r.Within(40, 60))
	assert.False(t, r.Within(39, 60))
	assert.False(t, NewRectInt(-1, 0, 5, 5).Within(100, 100))

	assert.Equal(t, NewRectInt(0, 0, 5, 5), NewRectInt(-5, -5, 10, 10).Clip(100, 100))
	assert.True(t, NewRectInt(0, 0, 0, 5).Empty())
}

func TestRectIntSpansFrame(t *testing.T) {
	assert.True(t, NewRectInt(0, 0, 400, 300).SpansFrame(400, 300))
	assert.True(t, NewRectInt(1, 1, 398, 298).SpansFrame(400, 300))
	assert.False(t, NewRectInt(100, 100, 50, 50).SpansFrame(400, 300))
	assert.False(t, NewRectInt(0, 0, 400, 150).SpansFrame(400, 300))
}
