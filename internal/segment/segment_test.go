package segment

import (
	"errors"
	"image"
	"testing"

	pcbimage "pcb-extractor/internal/image"
	"pcb-extractor/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// defaultOptions matches the pipeline defaults (indices 2, 10, 20, 1, 2).
var defaultOptions = Options{
	BlurKernelSize:       5,
	Sigma:                1.0,
	ClipLimit:            2.0,
	FillHolesKernelSize:  5,
	SeparationKernelSize: 3,
}

func TestChooseStrategy(t *testing.T) {
	tests := []struct {
		mean float64
		want Strategy
	}{
		{0, StrategyGlobalOtsu},
		{50, StrategyGlobalOtsu},
		{140, StrategyGlobalOtsu},
		{140.01, StrategyAdaptive},
		{200, StrategyAdaptive},
		{255, StrategyAdaptive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChooseStrategy(tt.mean), "mean %v", tt.mean)
	}
}

func TestBrightnessRouting(t *testing.T) {
	tests := []struct {
		name  string
		value uint8
		want  Strategy
	}{
		{"bright board", 200, StrategyAdaptive},
		{"dark board", 50, StrategyGlobalOtsu},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := testutil.GrayCanvas(120, 80, tt.value)
			defer src.Close()

			enhanced, err := Preprocess(src, defaultOptions)
			require.NoError(t, err)
			defer enhanced.Close()

			mask, diag, err := SelectPrimaryMask(enhanced)
			require.NoError(t, err)
			defer mask.Close()

			assert.Equal(t, tt.want, diag.Strategy)
			assert.Equal(t, 1, mask.Channels())
			assert.Equal(t, src.Rows(), mask.Rows())
			assert.Equal(t, src.Cols(), mask.Cols())
		})
	}
}

func TestPreprocessInputErrors(t *testing.T) {
	_, err := Preprocess(gocv.NewMat(), defaultOptions)
	assert.True(t, errors.Is(err, pcbimage.ErrEmptyInput))

	four := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC4)
	defer four.Close()
	_, err = Preprocess(four, defaultOptions)
	assert.True(t, errors.Is(err, pcbimage.ErrUnsupportedFormat))
}

func TestPreprocessWithoutBlur(t *testing.T) {
	src := testutil.Canvas(40, 30, testutil.White)
	defer src.Close()

	opts := defaultOptions
	opts.BlurKernelSize = 0
	enhanced, err := Preprocess(src, opts)
	require.NoError(t, err)
	defer enhanced.Close()
	assert.Equal(t, gocv.MatTypeCV8UC1, enhanced.Type())
}

func TestPreferNormal(t *testing.T) {
	tests := []struct {
		normal, inverted int
		want             bool
	}{
		{1, 1, false},
		{2, 1, true},
		{0, 1, false},
		{0, 0, false},
		{7, 3, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, preferNormal(tt.normal, tt.inverted), "normal=%d inverted=%d", tt.normal, tt.inverted)
	}
}

func TestAdaptiveTieKeepsInverted(t *testing.T) {
	// One dark square on white: the normal mask has a single frame-wide
	// contour and the inverted mask a single ring around the square.
	src := testutil.WhiteWithSquares(50, image.Pt(100, 100))
	defer src.Close()

	enhanced, err := Preprocess(src, defaultOptions)
	require.NoError(t, err)
	defer enhanced.Close()

	mask, diag, err := SelectPrimaryMask(enhanced)
	require.NoError(t, err)
	defer mask.Close()

	require.Equal(t, StrategyAdaptive, diag.Strategy)
	require.Equal(t, diag.NormalContours, diag.InvertedContours)
	assert.True(t, diag.UsedInverted)
}

func TestDarkRegions(t *testing.T) {
	src := testutil.WhiteWithSquares(30, image.Pt(50, 40))
	defer src.Close()

	mask, err := DarkRegions(src)
	require.NoError(t, err)
	defer mask.Close()

	assert.Equal(t, uint8(255), mask.GetUCharAt(55, 65), "inside square")
	assert.Equal(t, uint8(0), mask.GetUCharAt(5, 5), "white background")
	assert.Equal(t, uint8(0), mask.GetUCharAt(200, 300))

	gray := testutil.GrayCanvas(10, 10, 0)
	defer gray.Close()
	_, err = DarkRegions(gray)
	assert.True(t, errors.Is(err, pcbimage.ErrUnsupportedFormat))
}

func TestCombineIsUnion(t *testing.T) {
	a := testutil.GrayCanvas(60, 40, 0)
	defer a.Close()
	b := testutil.GrayCanvas(60, 40, 0)
	defer b.Close()
	gocv.Rectangle(&a, image.Rect(0, 0, 20, 20), testutil.White, -1)
	gocv.Rectangle(&b, image.Rect(10, 10, 40, 30), testutil.White, -1)

	combined, err := Combine(a, b)
	require.NoError(t, err)
	defer combined.Close()

	for y := 0; y < 40; y++ {
		for x := 0; x < 60; x++ {
			want := a.GetUCharAt(y, x) == 255 || b.GetUCharAt(y, x) == 255
			assert.Equal(t, want, combined.GetUCharAt(y, x) == 255, "pixel (%d,%d)", x, y)
		}
	}
	assert.Equal(t, 400+600-100, gocv.CountNonZero(combined))
}

func TestCombineSizeMismatch(t *testing.T) {
	a := testutil.GrayCanvas(10, 10, 0)
	defer a.Close()
	b := testutil.GrayCanvas(11, 10, 0)
	defer b.Close()

	_, err := Combine(a, b)
	assert.Error(t, err)
}

func TestClean(t *testing.T) {
	mask := testutil.GrayCanvas(100, 80, 0)
	defer mask.Close()
	gocv.Rectangle(&mask, image.Rect(20, 20, 60, 60), testutil.White, -1)
	mask.SetUCharAt(40, 40, 0)  // pinhole
	mask.SetUCharAt(5, 90, 255) // isolated speck

	cleaned, err := Clean(mask, defaultOptions)
	require.NoError(t, err)
	defer cleaned.Close()

	assert.Equal(t, uint8(255), cleaned.GetUCharAt(40, 40), "hole filled")
	assert.Equal(t, uint8(0), cleaned.GetUCharAt(5, 90), "speck removed")
	assert.Equal(t, uint8(255), cleaned.GetUCharAt(20, 20), "square corner kept")
	assert.Equal(t, uint8(0), mask.GetUCharAt(40, 40), "input untouched")

	t.Run("unit kernels are no-ops", func(t *testing.T) {
		out, err := Clean(mask, Options{FillHolesKernelSize: 1, SeparationKernelSize: 1})
		require.NoError(t, err)
		defer out.Close()
		assert.True(t, testutil.MatsEqual(mask, out))
	})
}

func TestMaskPreview(t *testing.T) {
	src := testutil.Canvas(80, 60, testutil.BoardGrn)
	defer src.Close()
	testutil.FillRect(&src, 20, 20, 20, 20, testutil.White)

	preview, err := MaskPreview(src)
	require.NoError(t, err)
	defer preview.Close()

	assert.Equal(t, gocv.MatTypeCV8UC1, preview.Type())
	assert.Equal(t, uint8(0), preview.GetUCharAt(5, 5), "board removed")
	assert.Equal(t, uint8(255), preview.GetUCharAt(30, 30), "component kept")
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "none", StrategyNone.String())
	assert.Equal(t, "none", Diagnostics{}.Strategy.String())
	assert.Equal(t, "adaptive", StrategyAdaptive.String())
	assert.Equal(t, "otsu", StrategyGlobalOtsu.String())
}

func TestWatershedViewSeparatesRegions(t *testing.T) {
	src := testutil.Canvas(240, 120, testutil.BoardGrn)
	defer src.Close()
	testutil.FillRect(&src, 30, 40, 40, 40, testutil.White)
	testutil.FillRect(&src, 170, 40, 40, 40, testutil.White)

	view, err := WatershedView(src, DefaultCannyLow, DefaultCannyHigh)
	require.NoError(t, err)
	defer view.Close()

	require.Equal(t, gocv.MatTypeCV8UC3, view.Type())
	require.Equal(t, 120, view.Rows())
	require.Equal(t, 240, view.Cols())

	isBoundary := func(row, col int) bool {
		px := view.GetVecbAt(row, col)
		return px[0] == 0 && px[1] == 255 && px[2] == 0
	}

	found := false
	for col := 75; col <= 165 && !found; col++ {
		found = isBoundary(60, col)
	}
	assert.True(t, found, "boundary between the two regions")

	for _, p := range []image.Point{{50, 60}, {190, 60}} {
		px := view.GetVecbAt(p.Y, p.X)
		assert.Equal(t, px[0], px[1], "region interior stays gray at %v", p)
		assert.Equal(t, px[1], px[2], "region interior stays gray at %v", p)
	}
}

func TestWatershedViewErrors(t *testing.T) {
	src := testutil.Canvas(40, 40, testutil.BoardGrn)
	defer src.Close()
	_, err := WatershedView(src, 150, 50)
	assert.Error(t, err)

	gray := testutil.GrayCanvas(40, 40, 0)
	defer gray.Close()
	_, err = WatershedView(gray, DefaultCannyLow, DefaultCannyHigh)
	assert.True(t, errors.Is(err, pcbimage.ErrUnsupportedFormat))
}
