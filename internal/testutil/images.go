// Package testutil builds synthetic board images for tests.
package testutil

import (
	"image"
	"image/color"

	"pcb-extractor/pkg/colorutil"

	"gocv.io/x/gocv"
)

var (
	White    = colorutil.White
	Black    = colorutil.Black
	BoardGrn = color.RGBA{R: 20, G: 120, B: 40, A: 255}
)

// Canvas returns a w×h 8-bit BGR Mat filled with c.
func Canvas(w, h int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), h, w, gocv.MatTypeCV8UC3)
}

// GrayCanvas returns a w×h single-channel Mat filled with v.
func GrayCanvas(w, h int, v uint8) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(v), 0, 0, 0), h, w, gocv.MatTypeCV8UC1)
}

// FillRect paints the w×h rectangle at (x, y) with c.
func FillRect(m *gocv.Mat, x, y, w, h int, c color.RGBA) {
	gocv.Rectangle(m, image.Rect(x, y, x+w, y+h), c, -1)
}

// WhiteWithSquares returns a 400×300 white canvas with black squares of the
// given size at each origin.
func WhiteWithSquares(size int, origins ...image.Point) gocv.Mat {
	m := Canvas(400, 300, White)
	for _, o := range origins {
		FillRect(&m, o.X, o.Y, size, size, Black)
	}
	return m
}

// MatsEqual reports whether two Mats have identical size, type and pixels.
func MatsEqual(a, b gocv.Mat) bool {
	if a.Rows() != b.Rows() || a.Cols() != b.Cols() || a.Type() != b.Type() {
		return false
	}
	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(a, b, &diff)

	if diff.Channels() == 1 {
		return gocv.CountNonZero(diff) == 0
	}
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
	return gocv.CountNonZero(gray) == 0
}
