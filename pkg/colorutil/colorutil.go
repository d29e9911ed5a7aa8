// Package colorutil provides shared colors for the component extractor.
package colorutil

import "image/color"

// Overlay colors. gocv drawing functions take color.RGBA and write them in
// BGR order, so these are plain RGB values.
var (
	Black = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
)

// Annotation colors for detected component boxes, their labels and
// watershed region boundaries.
var (
	BoxColor      = Green
	LabelColor    = Red
	BoundaryColor = Green
)
