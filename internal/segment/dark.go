package segment

import (
	"fmt"
	"image"

	pcbimage "pcb-extractor/internal/image"

	"gocv.io/x/gocv"
)

// Dark region thresholds (OpenCV HSV ranges).
const (
	DarkValueMax        = 40 // Pixels with V at or below this are near-black
	darkCloseKernelSize = 5
	darkCloseIterations = 3
)

// DarkRegions flags near-black pixels of a BGR image regardless of hue and
// saturation, then closes the result to merge fragmented dark speckles. It
// recovers black ICs that the primary threshold loses against a dark board.
// The caller owns the returned mask.
func DarkRegions(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput(src, "dark regions"); err != nil {
		return gocv.Mat{}, err
	}
	if src.Channels() != 3 {
		return gocv.Mat{}, fmt.Errorf("dark regions: need color input, got %d channels: %w",
			src.Channels(), pcbimage.ErrUnsupportedFormat)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv,
		gocv.NewScalar(0, 0, 0, 0),
		gocv.NewScalar(180, 255, DarkValueMax, 0),
		&mask)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse,
		image.Point{X: darkCloseKernelSize, Y: darkCloseKernelSize})
	defer kernel.Close()

	closed := closeIterations(mask, kernel, darkCloseIterations)
	mask.Close()
	return closed, nil
}

// closeIterations performs a morphological close with the given number of
// iterations: n dilations followed by n erosions.
func closeIterations(src gocv.Mat, kernel gocv.Mat, n int) gocv.Mat {
	cur := src.Clone()
	for i := 0; i < n; i++ {
		next := gocv.NewMat()
		gocv.Dilate(cur, &next, kernel)
		cur.Close()
		cur = next
	}
	for i := 0; i < n; i++ {
		next := gocv.NewMat()
		gocv.Erode(cur, &next, kernel)
		cur.Close()
		cur = next
	}
	return cur
}
