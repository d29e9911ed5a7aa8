package segment

import (
	"fmt"
	"image"

	"pcb-extractor/pkg/colorutil"

	"gocv.io/x/gocv"
)

// Default Canny hysteresis thresholds for the contour view.
const (
	DefaultCannyLow  = 50
	DefaultCannyHigh = 150
)

const (
	edgeDilateSize  = 7   // Square kernel joining Canny edges into bands
	markerThreshold = 0.4 // Fraction of the peak edge-band distance kept as markers
)

// WatershedView draws region boundaries found by a marker-based watershed on
// a grayscale copy of a BGR image. Markers come from the board-removed,
// equalized image: Canny edges are dilated into bands, the band cores are
// kept by a distance-transform threshold, and each core becomes one marker.
// Boundary pixels are painted in colorutil.BoundaryColor. The caller owns
// the returned Mat.
func WatershedView(src gocv.Mat, low, high float32) (gocv.Mat, error) {
	if low < 0 || high < low {
		return gocv.Mat{}, fmt.Errorf("contour view: canny thresholds %v/%v out of order", low, high)
	}
	equalized, err := MaskPreview(src)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("contour view: %w", err)
	}
	defer equalized.Close()

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(equalized, &edges, low, high)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: edgeDilateSize, Y: edgeDilateSize})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	markers := seedMarkers(edges)
	defer markers.Close()

	gocv.Watershed(src, &markers)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	display := gocv.NewMat()
	gocv.CvtColor(gray, &display, gocv.ColorGrayToBGR)

	// Watershed labels boundary pixels -1.
	boundary := gocv.NewMat()
	defer boundary.Close()
	gocv.InRangeWithScalar(markers, gocv.NewScalar(-1, 0, 0, 0), gocv.NewScalar(-1, 0, 0, 0), &boundary)

	c := colorutil.BoundaryColor
	paint := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0),
		display.Rows(), display.Cols(), display.Type())
	defer paint.Close()
	paint.CopyToWithMask(&display, boundary)
	return display, nil
}

// seedMarkers labels the cores of dilated edge bands for watershed. Each
// filled external contour of the thresholded distance map gets its own
// label; everything else is 0 (unknown). The result is CV_32S.
func seedMarkers(bands gocv.Mat) gocv.Mat {
	dist := gocv.NewMat()
	defer dist.Close()
	labels := gocv.NewMat()
	defer labels.Close()
	gocv.DistanceTransform(bands, &dist, &labels, gocv.DistL2, gocv.DistanceMask3, gocv.DistanceLabelCComp)
	gocv.Normalize(dist, &dist, 0, 1, gocv.NormMinMax)

	cores := gocv.NewMat()
	defer cores.Close()
	gocv.Threshold(dist, &cores, markerThreshold, 1, gocv.ThresholdBinary)
	cores.ConvertTo(&cores, gocv.MatTypeCV8U)

	contours := gocv.FindContours(cores, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	filled := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), bands.Rows(), bands.Cols(), gocv.MatTypeCV8UC1)
	defer filled.Close()
	if contours.Size() > 0 {
		gocv.DrawContours(&filled, contours, -1, colorutil.White, -1)
	}

	markers := gocv.NewMat()
	gocv.ConnectedComponents(filled, &markers)
	return markers
}
