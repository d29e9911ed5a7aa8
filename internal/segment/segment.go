// Package segment turns a board photograph into a cleaned binary foreground
// mask: preprocessing, threshold strategy selection, dark-region recovery,
// mask fusion and morphological cleanup.
package segment

import (
	"fmt"

	pcbimage "pcb-extractor/internal/image"

	"gocv.io/x/gocv"
)

// Options holds the derived kernel sizes and filter strengths for one run.
type Options struct {
	BlurKernelSize       int     // Gaussian kernel size (odd)
	Sigma                float64 // Gaussian sigma
	ClipLimit            float64 // CLAHE clip limit; 0 disables clipping
	FillHolesKernelSize  int     // Rectangular close kernel size (odd)
	SeparationKernelSize int     // Rectangular open kernel size (odd)
}

// checkInput validates a Mat entering a stage.
func checkInput(src gocv.Mat, stage string) error {
	if src.Empty() || src.Rows() <= 0 || src.Cols() <= 0 {
		return fmt.Errorf("%s: %w", stage, pcbimage.ErrEmptyInput)
	}
	if ch := src.Channels(); ch != 1 && ch != 3 {
		return fmt.Errorf("%s: %d channels: %w", stage, ch, pcbimage.ErrUnsupportedFormat)
	}
	return nil
}

// checkMask validates a single-channel binary mask.
func checkMask(mask gocv.Mat, stage string) error {
	if mask.Empty() {
		return fmt.Errorf("%s: %w", stage, pcbimage.ErrEmptyInput)
	}
	if mask.Channels() != 1 {
		return fmt.Errorf("%s: mask has %d channels: %w", stage, mask.Channels(), pcbimage.ErrUnsupportedFormat)
	}
	return nil
}
