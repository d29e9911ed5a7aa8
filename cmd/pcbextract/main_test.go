package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"pcb-extractor/internal/report"
	"pcb-extractor/internal/testutil"
	"pcb-extractor/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestParseRects(t *testing.T) {
	rects, err := parseRects("10,20,30,40; 1,2,3,4;")
	require.NoError(t, err)
	assert.Equal(t, []geometry.RectInt{
		geometry.NewRectInt(10, 20, 30, 40),
		geometry.NewRectInt(1, 2, 3, 4),
	}, rects)

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "0,0,0,5"} {
		_, err := parseRects(bad)
		assert.Error(t, err, bad)
	}
}

// setup writes a board image and returns the flags common to every run.
func setup(t *testing.T) (dir string, args []string) {
	t.Helper()
	dir = t.TempDir()

	board := testutil.WhiteWithSquares(50, image.Pt(20, 20), image.Pt(300, 200))
	defer board.Close()
	imagePath := filepath.Join(dir, "board.png")
	require.True(t, gocv.IMWrite(imagePath, board))

	return dir, []string{
		"-image", imagePath,
		"-prefs", filepath.Join(dir, "prefs.json"),
		"-env", filepath.Join(dir, ".env"),
		"-out", filepath.Join(dir, "out"),
		"-thumbs", filepath.Join(dir, "thumbs"),
		"-log-level", "error",
	}
}

func TestRun(t *testing.T) {
	dir, args := setup(t)
	preview := filepath.Join(dir, "preview.png")
	contours := filepath.Join(dir, "contours.png")
	args = append(args, "-chart", "-pdf", "-min-area", "50", "-mask-preview", preview,
		"-contours-view", contours, "-canny-low", "30", "-canny-high", "90")

	var stdout bytes.Buffer
	require.NoError(t, run(args, &stdout))

	assert.Contains(t, stdout.String(), "Found 2 components")
	for _, name := range []string{annotatedFile, compositeFile, listingFile, chartFile, pdfFile} {
		assert.FileExists(t, filepath.Join(dir, "out", name))
	}
	assert.FileExists(t, filepath.Join(dir, "thumbs", "component_0.png"))
	assert.FileExists(t, filepath.Join(dir, "thumbs", "component_1.png"))
	assert.FileExists(t, preview)
	assert.FileExists(t, contours)

	data, err := os.ReadFile(filepath.Join(dir, "out", listingFile))
	require.NoError(t, err)
	var listing report.Listing
	require.NoError(t, json.Unmarshal(data, &listing))
	assert.Equal(t, 50, listing.Params.MinArea)
	assert.Len(t, listing.Components, 2)
}

func TestRunManualRectangles(t *testing.T) {
	_, args := setup(t)
	args = append(args, "-rects", "0,0,10,10;100,100,20,20")

	var stdout bytes.Buffer
	require.NoError(t, run(args, &stdout))
	assert.Contains(t, stdout.String(), "Found 2 components")
	assert.Contains(t, stdout.String(), "Component 1 (area: 400 px²), (X: 100, Y: 100, W: 20, H: 20)")
}

func TestRunSavePrefs(t *testing.T) {
	dir := t.TempDir()
	prefsPath := filepath.Join(dir, "prefs.json")

	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-prefs", prefsPath, "-env", "", "-min-area", "77", "-save-prefs", "-log-level", "error"}, &stdout))

	data, err := os.ReadFile(prefsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"min_area": 77`)
}

func TestRunUsage(t *testing.T) {
	var stdout bytes.Buffer
	err := run([]string{"-prefs", filepath.Join(t.TempDir(), "p.json"), "-env", ""}, &stdout)
	assert.True(t, errors.Is(err, errUsage))

	err = run([]string{"-no-such-flag"}, &stdout)
	assert.True(t, errors.Is(err, errUsage))
}

func TestRunRejectsUnsupportedFormat(t *testing.T) {
	dir, args := setup(t)
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("not an image"), 0o644))
	args = append(args, "-image", notes)

	var stdout bytes.Buffer
	err := run(args, &stdout)
	assert.True(t, errors.Is(err, errUsage))
	assert.Contains(t, err.Error(), ".png")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestRunRejectsCannyOrder(t *testing.T) {
	_, args := setup(t)
	args = append(args, "-canny-low", "200", "-canny-high", "100")

	var stdout bytes.Buffer
	err := run(args, &stdout)
	assert.True(t, errors.Is(err, errUsage))
}

func TestRunRawOCRWithoutTesseract(t *testing.T) {
	_, args := setup(t)
	args = append(args, "-ocr", "-ocr-raw", "-lang", "no-such-language", "-min-area", "50")

	var stdout bytes.Buffer
	require.NoError(t, run(args, &stdout))
	assert.Contains(t, stdout.String(), "Found 2 components")
}

func TestRunVersion(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-version"}, &stdout))
	assert.Contains(t, stdout.String(), program)
}
