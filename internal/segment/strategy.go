package segment

import (
	"gocv.io/x/gocv"
)

// Strategy is the binarization strategy used for the primary mask.
type Strategy int

const (
	StrategyNone       Strategy = iota // No thresholding ran, e.g. manual rectangles
	StrategyAdaptive                   // Local mean threshold, bright boards
	StrategyGlobalOtsu                 // Otsu global threshold, dark/mid boards
)

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyAdaptive:
		return "adaptive"
	case StrategyGlobalOtsu:
		return "otsu"
	default:
		return "unknown"
	}
}

// Thresholding constants.
const (
	BrightnessThreshold = 140.0 // Mean intensity above which the adaptive path runs
	AdaptiveBlockSize   = 15    // Adaptive neighborhood (pixels, odd)
	AdaptiveOffset      = 10.0  // Constant subtracted from the neighborhood mean
	FixedThreshold      = 117.0 // Diagnostic-only global threshold
)

// Diagnostics records how the primary mask was chosen. Nothing downstream
// depends on it.
type Diagnostics struct {
	Strategy      Strategy `json:"strategy"`
	MeanIntensity float64  `json:"mean_intensity"`

	// Adaptive path
	UsedInverted     bool `json:"used_inverted"`
	NormalContours   int  `json:"normal_contours"`
	InvertedContours int  `json:"inverted_contours"`

	// Global path
	OtsuThreshold            float64 `json:"otsu_threshold"`
	FixedThresholdForeground int     `json:"fixed_threshold_foreground"`
}

// ChooseStrategy picks the binarization strategy from the mean intensity of
// the enhanced grayscale image.
func ChooseStrategy(meanBrightness float64) Strategy {
	if meanBrightness > BrightnessThreshold {
		return StrategyAdaptive
	}
	return StrategyGlobalOtsu
}

// SelectPrimaryMask binarizes the enhanced grayscale image with the strategy
// chosen by its mean intensity. The caller owns the returned mask.
func SelectPrimaryMask(enhanced gocv.Mat) (gocv.Mat, Diagnostics, error) {
	if err := checkMask(enhanced, "select threshold"); err != nil {
		return gocv.Mat{}, Diagnostics{}, err
	}

	diag := Diagnostics{MeanIntensity: enhanced.Mean().Val1}
	diag.Strategy = ChooseStrategy(diag.MeanIntensity)

	if diag.Strategy == StrategyAdaptive {
		return adaptiveMask(enhanced, diag)
	}
	return otsuMask(enhanced, diag)
}

// adaptiveMask computes the normal and inverted adaptive-mean binarizations
// and keeps the one yielding more external contours. Equal counts keep the
// inverted variant.
func adaptiveMask(gray gocv.Mat, diag Diagnostics) (gocv.Mat, Diagnostics, error) {
	normal := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &normal, 255, gocv.AdaptiveThresholdMean,
		gocv.ThresholdBinary, AdaptiveBlockSize, AdaptiveOffset)

	inverted := gocv.NewMat()
	gocv.AdaptiveThreshold(gray, &inverted, 255, gocv.AdaptiveThresholdMean,
		gocv.ThresholdBinaryInv, AdaptiveBlockSize, AdaptiveOffset)

	diag.NormalContours = countExternalContours(normal)
	diag.InvertedContours = countExternalContours(inverted)

	if preferNormal(diag.NormalContours, diag.InvertedContours) {
		inverted.Close()
		return normal, diag, nil
	}
	normal.Close()
	diag.UsedInverted = true
	return inverted, diag, nil
}

// preferNormal reports whether the normal adaptive mask wins. It must have
// strictly more external contours; ties go to the inverted mask.
func preferNormal(normal, inverted int) bool {
	return normal > inverted
}

// otsuMask binarizes with Otsu's threshold. The fixed threshold mask is only
// measured for diagnostics.
func otsuMask(gray gocv.Mat, diag Diagnostics) (gocv.Mat, Diagnostics, error) {
	mask := gocv.NewMat()
	diag.OtsuThreshold = float64(gocv.Threshold(gray, &mask, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu))

	fixed := gocv.NewMat()
	defer fixed.Close()
	gocv.Threshold(gray, &fixed, FixedThreshold, 255, gocv.ThresholdBinary)
	diag.FixedThresholdForeground = gocv.CountNonZero(fixed)

	return mask, diag, nil
}

// countExternalContours returns the number of outermost contours in a mask.
func countExternalContours(mask gocv.Mat) int {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()
	return contours.Size()
}
