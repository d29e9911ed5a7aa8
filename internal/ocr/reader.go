// Package ocr reads printed markings from component thumbnails with Tesseract.
package ocr

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"gocv.io/x/gocv"
)

// ElectronicsChars is the character set for part markings. Lowercase is
// excluded to reduce 0/O and 1/I confusion.
const ElectronicsChars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ-/"

// MinThumbnailSize is the smallest side, in pixels, worth reading.
const MinThumbnailSize = 8

// ocrTargetSize is the shorter side thumbnails are upscaled to.
const ocrTargetSize = 150

// ErrTooSmall is returned for thumbnails below MinThumbnailSize.
var ErrTooSmall = errors.New("thumbnail too small for OCR")

// Reader recognizes component markings. It is not safe for concurrent use.
type Reader struct {
	client          *gosseract.Client
	electronicsMode bool
}

// NewReader creates a reader for the given Tesseract language ("eng" when
// empty) with the electronics character whitelist enabled.
func NewReader(language string) (*Reader, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}

	// Part numbers aren't dictionary words; keep Tesseract from "correcting"
	// DM74LS244N to something else.
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")
	_ = client.SetVariable("language_model_penalty_non_dict_word", "0")
	_ = client.SetVariable("language_model_penalty_non_freq_dict_word", "0")

	return &Reader{client: client, electronicsMode: true}, nil
}

// Close releases the Tesseract client.
func (r *Reader) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// SetElectronicsMode enables or disables the character whitelist and the
// binarization step.
func (r *Reader) SetElectronicsMode(enabled bool) {
	r.electronicsMode = enabled
}

// ReadMarking returns the text printed on a component thumbnail.
func (r *Reader) ReadMarking(thumbnail gocv.Mat) (string, error) {
	if thumbnail.Empty() {
		return "", errors.New("empty thumbnail")
	}
	if min(thumbnail.Rows(), thumbnail.Cols()) < MinThumbnailSize {
		return "", ErrTooSmall
	}

	processed := preprocessForOCR(thumbnail, r.electronicsMode)
	defer processed.Close()

	buf, err := gocv.IMEncode(gocv.PNGFileExt, processed)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	// PSM 6: a single uniform block of text
	if err := r.client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("failed to set PSM: %w", err)
	}
	whitelist := ""
	if r.electronicsMode {
		whitelist = ElectronicsChars
	}
	_ = r.client.SetWhitelist(whitelist)

	if err := r.client.SetImageFromBytes(buf.GetBytes()); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return CleanText(text, r.electronicsMode), nil
}

// CleanText collapses whitespace in raw OCR output and, in electronics mode,
// upper-cases it and drops characters outside ElectronicsChars.
func CleanText(text string, electronicsMode bool) string {
	text = strings.Join(strings.Fields(text), " ")
	if !electronicsMode {
		return text
	}
	text = strings.ToUpper(text)
	return strings.Map(func(r rune) rune {
		if r == ' ' || strings.ContainsRune(ElectronicsChars, r) {
			return r
		}
		return -1
	}, text)
}

// preprocessForOCR upscales a thumbnail and, in electronics mode, binarizes
// it to dark text on a light background.
func preprocessForOCR(region gocv.Mat, electronicsMode bool) gocv.Mat {
	var scaled gocv.Mat
	if minDim := min(region.Rows(), region.Cols()); minDim < ocrTargetSize {
		scale := float64(ocrTargetSize) / float64(minDim)
		scaled = gocv.NewMat()
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		scaled = region.Clone()
	}

	if !electronicsMode {
		return scaled
	}

	gray := gocv.NewMat()
	if scaled.Channels() == 1 {
		scaled.CopyTo(&gray)
	} else {
		gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)
	}
	scaled.Close()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Point{X: 8, Y: 8})
	defer clahe.Close()
	enhanced := gocv.NewMat()
	clahe.Apply(gray, &enhanced)
	gray.Close()

	binary := gocv.NewMat()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)
	enhanced.Close()

	// IC markings are usually light on a dark body; Tesseract wants dark on light.
	if InvertNeeded(gocv.CountNonZero(binary), binary.Rows()*binary.Cols()) {
		gocv.BitwiseNot(binary, &binary)
	}
	return binary
}

// InvertNeeded reports whether a binarized thumbnail with the given number
// of white pixels has a dark background.
func InvertNeeded(white, total int) bool {
	if total == 0 {
		return false
	}
	return float64(white)/float64(total) < 0.5
}
