package segment

import (
	"fmt"
	"image"

	pcbimage "pcb-extractor/internal/image"

	"gocv.io/x/gocv"
)

// Combine returns the pixel-wise union of two binary masks of equal size.
// The caller owns the returned mask.
func Combine(primary, dark gocv.Mat) (gocv.Mat, error) {
	if err := checkMask(primary, "combine"); err != nil {
		return gocv.Mat{}, err
	}
	if err := checkMask(dark, "combine"); err != nil {
		return gocv.Mat{}, err
	}
	if primary.Rows() != dark.Rows() || primary.Cols() != dark.Cols() {
		return gocv.Mat{}, fmt.Errorf("combine: mask sizes differ (%dx%d vs %dx%d): %w",
			primary.Cols(), primary.Rows(), dark.Cols(), dark.Rows(), pcbimage.ErrUnsupportedFormat)
	}

	combined := gocv.NewMat()
	gocv.BitwiseOr(primary, dark, &combined)
	return combined, nil
}

// Clean fills small holes with a rectangular close and then separates
// touching blobs with a rectangular open. Each pass runs only when its kernel
// is larger than one pixel. Closing first keeps small isolated blobs that an
// open-then-close order would erase. The caller owns the returned mask.
func Clean(mask gocv.Mat, opts Options) (gocv.Mat, error) {
	if err := checkMask(mask, "clean"); err != nil {
		return gocv.Mat{}, err
	}

	cur := mask.Clone()
	if k := opts.FillHolesKernelSize; k > 1 {
		cur = morph(cur, gocv.MorphClose, k)
	}
	if k := opts.SeparationKernelSize; k > 1 {
		cur = morph(cur, gocv.MorphOpen, k)
	}
	return cur, nil
}

// morph applies one rectangular morphology pass and closes src.
func morph(src gocv.Mat, op gocv.MorphType, size int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: size, Y: size})
	defer kernel.Close()

	dst := gocv.NewMat()
	gocv.MorphologyEx(src, &dst, op, kernel)
	src.Close()
	return dst
}
