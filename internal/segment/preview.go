package segment

import (
	"fmt"
	"image"

	pcbimage "pcb-extractor/internal/image"

	"gocv.io/x/gocv"
)

// Green solder mask range (OpenCV HSV).
var (
	boardGreenLower = gocv.NewScalar(35, 50, 50, 0)
	boardGreenUpper = gocv.NewScalar(85, 255, 255, 0)
)

// MaskPreview removes green board surface from a BGR image and returns the
// remaining pixels as a histogram-equalized grayscale image, for inspecting
// which areas could hold components. The caller owns the returned Mat.
func MaskPreview(src gocv.Mat) (gocv.Mat, error) {
	if err := checkInput(src, "mask preview"); err != nil {
		return gocv.Mat{}, err
	}
	if src.Channels() != 3 {
		return gocv.Mat{}, fmt.Errorf("mask preview: %d channels: %w", src.Channels(), pcbimage.ErrUnsupportedFormat)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	green := gocv.NewMat()
	defer green.Close()
	gocv.InRangeWithScalar(hsv, boardGreenLower, boardGreenUpper, &green)

	notBoard := gocv.NewMat()
	defer notBoard.Close()
	gocv.BitwiseNot(green, &notBoard)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
	defer kernel.Close()
	opened := gocv.NewMat()
	defer opened.Close()
	gocv.MorphologyEx(notBoard, &opened, gocv.MorphOpen, kernel)

	masked := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), src.Rows(), src.Cols(), src.Type())
	defer masked.Close()
	src.CopyToWithMask(&masked, opened)

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(masked, &gray, gocv.ColorBGRToGray)

	equalized := gocv.NewMat()
	gocv.EqualizeHist(gray, &equalized)
	return equalized, nil
}
