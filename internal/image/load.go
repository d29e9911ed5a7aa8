// Package image provides image loading and conversion to the pipeline's
// internal pixel layout (8-bit, 3-channel BGR).
package image

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"gocv.io/x/gocv"
)

var (
	// ErrEmptyInput is returned when the source image is absent or has no pixels.
	ErrEmptyInput = errors.New("empty input image")

	// ErrUnsupportedFormat is returned for channel counts outside {1, 3}.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Load decodes the image file at path.
func Load(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyInput)
	}
	return img, nil
}

// LoadMat decodes the image file at path into a BGR Mat. The caller owns the
// returned Mat.
func LoadMat(path string) (gocv.Mat, error) {
	img, err := Load(path)
	if err != nil {
		return gocv.Mat{}, err
	}
	return ToMat(img)
}

// ToMat converts a Go image to an 8-bit BGR Mat.
func ToMat(img image.Image) (gocv.Mat, error) {
	if img == nil || img.Bounds().Empty() {
		return gocv.Mat{}, ErrEmptyInput
	}
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != w*4 || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	mat, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("create mat: %w", err)
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)
	return bgr, nil
}

// Normalize returns an owned 8-bit BGR copy of src. Grayscale input is
// expanded to three channels; other channel counts are rejected. src is not
// modified.
func Normalize(src gocv.Mat) (gocv.Mat, error) {
	if src.Empty() || src.Rows() <= 0 || src.Cols() <= 0 {
		return gocv.Mat{}, ErrEmptyInput
	}

	channels := src.Channels()
	if channels != 1 && channels != 3 {
		return gocv.Mat{}, fmt.Errorf("%d channels: %w", channels, ErrUnsupportedFormat)
	}

	depth := src.Clone()
	if src.Type() != gocv.MatTypeCV8UC1 && src.Type() != gocv.MatTypeCV8UC3 {
		alpha, beta := depthScale(src.Type())
		converted := gocv.NewMat()
		depth.ConvertToWithParams(&converted, gocv.MatTypeCV8U, alpha, beta)
		depth.Close()
		depth = converted
	}

	if channels == 3 {
		return depth, nil
	}

	bgr := gocv.NewMat()
	gocv.CvtColor(depth, &bgr, gocv.ColorGrayToBGR)
	depth.Close()
	return bgr, nil
}

// depthScale returns the linear map from a Mat type's value range onto
// 0-255. Float images are taken to be in [0, 1].
func depthScale(t gocv.MatType) (alpha, beta float32) {
	switch t & 7 { // depth bits
	case gocv.MatTypeCV16U:
		return 1.0 / 256, 0
	case gocv.MatTypeCV16S:
		return 1.0 / 256, 128
	case gocv.MatTypeCV8S:
		return 1, 128
	case gocv.MatTypeCV32F, gocv.MatTypeCV64F:
		return 255, 0
	default:
		return 1, 0
	}
}

// SupportedFormats returns the list of supported image formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg", ".bmp"}
}

// IsSupportedFormat checks if the given path has a supported image format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
