// Package component extracts candidate components from a binary foreground
// mask and builds the annotated and composite outputs.
package component

import (
	"fmt"

	"pcb-extractor/pkg/geometry"

	"gocv.io/x/gocv"
)

// Component is one extracted region of the board image.
type Component struct {
	ID      int              `json:"id"`                // Sequential from 0 in discovery order
	Bounds  geometry.RectInt `json:"bounds"`            // Bounding box in image coordinates
	Area    float64          `json:"area"`              // Contour area in pixels
	Marking string           `json:"marking,omitempty"` // OCR text, when a reader is configured

	// Thumbnail is a copy of the source pixels inside Bounds.
	Thumbnail gocv.Mat `json:"-"`
}

// Details renders the one-line summary shown in component lists.
func (c *Component) Details() string {
	return fmt.Sprintf("Component %d (area: %g px²), (X: %d, Y: %d, W: %d, H: %d)",
		c.ID, c.Area, c.Bounds.X, c.Bounds.Y, c.Bounds.Width, c.Bounds.Height)
}

// Close releases the thumbnail.
func (c *Component) Close() {
	if c == nil {
		return
	}
	c.Thumbnail.Close()
}

// CloseAll releases the thumbnails of every component in the list.
func CloseAll(components []*Component) {
	for _, c := range components {
		c.Close()
	}
}
