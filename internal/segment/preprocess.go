package segment

import (
	"image"

	"gocv.io/x/gocv"
)

// claheTileGrid is the CLAHE tile grid, OpenCV's default.
var claheTileGrid = image.Point{X: 8, Y: 8}

// Preprocess converts src to grayscale, smooths it and enhances local
// contrast. src may have 1 or 3 channels and is not modified. The caller owns
// the returned Mat.
func Preprocess(src gocv.Mat, opts Options) (gocv.Mat, error) {
	if err := checkInput(src, "preprocess"); err != nil {
		return gocv.Mat{}, err
	}

	gray := toGray(src)
	defer gray.Close()

	smoothed := gray
	if k := opts.BlurKernelSize; k > 0 {
		smoothed = gocv.NewMat()
		defer smoothed.Close()
		gocv.GaussianBlur(gray, &smoothed, image.Point{X: k, Y: k}, opts.Sigma, opts.Sigma, gocv.BorderDefault)
	}

	clahe := gocv.NewCLAHEWithParams(opts.ClipLimit, claheTileGrid)
	defer clahe.Close()

	enhanced := gocv.NewMat()
	clahe.Apply(smoothed, &enhanced)
	return enhanced, nil
}

// toGray returns an owned single-channel copy of a 1- or 3-channel Mat.
func toGray(src gocv.Mat) gocv.Mat {
	if src.Channels() == 1 {
		return src.Clone()
	}
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}
