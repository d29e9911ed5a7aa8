// Command pcbextract finds candidate components on a PCB photograph and
// writes the annotated image, the composite, thumbnails and reports.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pcb-extractor/internal/component"
	"pcb-extractor/internal/config"
	pcbimage "pcb-extractor/internal/image"
	"pcb-extractor/internal/logging"
	"pcb-extractor/internal/ocr"
	"pcb-extractor/internal/pipeline"
	"pcb-extractor/internal/report"
	"pcb-extractor/internal/segment"
	"pcb-extractor/internal/version"
	"pcb-extractor/pkg/geometry"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const program = "pcbextract"

// Output file names inside the output directory.
const (
	annotatedFile = "annotated.png"
	compositeFile = "composite.png"
	listingFile   = "components.json"
	chartFile     = "areas.png"
	pdfFile       = "components.pdf"
)

var errUsage = errors.New("usage: pcbextract -image <path> [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", program, err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// options holds the flags that are not part of the persisted configuration.
type options struct {
	imagePath    string
	prefsPath    string
	envFile      string
	maskPreview  string
	contoursView string
	cannyLow     float64
	cannyHigh    float64
	rects        string
	chart        bool
	pdf          bool
	savePrefs    bool
	showVersion  bool
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(program, flag.ContinueOnError)
	fs.SetOutput(stdout)

	var opts options
	fs.StringVar(&opts.imagePath, "image", "", "Path to PCB image (PNG, JPEG, TIFF or BMP)")
	fs.StringVar(&opts.prefsPath, "prefs", config.DefaultPrefsPath(), "Preferences file")
	fs.StringVar(&opts.envFile, "env", config.DefaultEnvFile, "dotenv file with PCBX_* settings")
	fs.StringVar(&opts.maskPreview, "mask-preview", "", "Write the board-removed mask preview to this path")
	fs.StringVar(&opts.contoursView, "contours-view", "", "Write the watershed contour view to this path")
	fs.Float64Var(&opts.cannyLow, "canny-low", segment.DefaultCannyLow, "Contour view Canny low threshold")
	fs.Float64Var(&opts.cannyHigh, "canny-high", segment.DefaultCannyHigh, "Contour view Canny high threshold")
	fs.StringVar(&opts.rects, "rects", "", `Manual rectangles "x,y,w,h;..." instead of segmentation`)
	fs.BoolVar(&opts.chart, "chart", false, "Write an area bar chart ("+chartFile+")")
	fs.BoolVar(&opts.pdf, "pdf", false, "Write a PDF contact sheet ("+pdfFile+")")
	fs.BoolVar(&opts.savePrefs, "save-prefs", false, "Save the resolved settings to the preferences file")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	defaults := config.Default()
	blur := fs.Int("blur", defaults.Params.BlurKernelIndex, "Blur kernel index (kernel = 2n+1)")
	sigma := fs.Int("sigma", defaults.Params.SigmaIndex, "Blur sigma index (sigma = n/10)")
	clahe := fs.Int("clahe", defaults.Params.ClaheClipIndex, "CLAHE clip index (clip = n/10)")
	separation := fs.Int("separation", defaults.Params.SeparationKernelIndex, "Separation (open) kernel index")
	fill := fs.Int("fill", defaults.Params.FillHolesKernelIndex, "Fill holes (close) kernel index")
	minArea := fs.Int("min-area", defaults.Params.MinArea, "Minimum component area in pixels")
	outDir := fs.String("out", defaults.OutputDir, "Output directory")
	thumbs := fs.String("thumbs", defaults.ThumbnailDir, "Thumbnail directory")
	prune := fs.Bool("prune", defaults.PruneStale, "Remove stale thumbnails from earlier runs")
	useOCR := fs.Bool("ocr", defaults.OCR, "Read component markings with Tesseract")
	lang := fs.String("lang", defaults.OCRLanguage, "Tesseract language")
	ocrRaw := fs.Bool("ocr-raw", defaults.OCRRaw, "Read markings as free text, without the part-number whitelist")
	logLevel := fs.String("log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	jsonLog := fs.Bool("json-log", !defaults.ConsoleLog, "Log JSON instead of console output")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	if opts.showVersion {
		fmt.Fprintln(stdout, version.String(program))
		return nil
	}

	cfg, prefs, err := config.Load(opts.prefsPath, opts.envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags given on the command line win over every other source.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "blur":
			cfg.Params = cfg.Params.WithBlurKernelIndex(*blur)
		case "sigma":
			cfg.Params = cfg.Params.WithSigmaIndex(*sigma)
		case "clahe":
			cfg.Params = cfg.Params.WithClaheClipIndex(*clahe)
		case "separation":
			cfg.Params = cfg.Params.WithSeparationKernelIndex(*separation)
		case "fill":
			cfg.Params = cfg.Params.WithFillHolesKernelIndex(*fill)
		case "min-area":
			cfg.Params = cfg.Params.WithMinArea(*minArea)
		case "out":
			cfg.OutputDir = *outDir
		case "thumbs":
			cfg.ThumbnailDir = *thumbs
		case "prune":
			cfg.PruneStale = *prune
		case "ocr":
			cfg.OCR = *useOCR
		case "lang":
			cfg.OCRLanguage = *lang
		case "ocr-raw":
			cfg.OCRRaw = *ocrRaw
		case "log-level":
			cfg.LogLevel = *logLevel
		case "json-log":
			cfg.ConsoleLog = !*jsonLog
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.For(logging.NewStderr(cfg.LogLevel, cfg.ConsoleLog), program)

	if opts.savePrefs {
		if err := cfg.SaveTo(prefs); err != nil {
			return fmt.Errorf("save preferences: %w", err)
		}
		logger.Info().Str("path", prefs.Path()).Msg("preferences saved")
	}

	if opts.imagePath == "" {
		if opts.savePrefs {
			return nil
		}
		fs.Usage()
		return errUsage
	}

	if !pcbimage.IsSupportedFormat(opts.imagePath) {
		return fmt.Errorf("%w: %s: want one of %s", errUsage, opts.imagePath,
			strings.Join(pcbimage.SupportedFormats(), ", "))
	}
	if opts.cannyLow < 0 || opts.cannyHigh < opts.cannyLow {
		return fmt.Errorf("%w: -canny-low must be >= 0 and <= -canny-high", errUsage)
	}

	return extract(cfg, opts, logger, stdout)
}

func extract(cfg config.Config, opts options, logger zerolog.Logger, stdout io.Writer) error {
	src, err := pcbimage.LoadMat(opts.imagePath)
	if err != nil {
		return err
	}
	defer src.Close()
	logger.Info().Str("image", opts.imagePath).Int("width", src.Cols()).Int("height", src.Rows()).Msg("loaded image")

	extractor := pipeline.NewExtractor(logger)
	store := component.NewDirStore(cfg.ThumbnailDir, cfg.PruneStale)
	extractor.Thumbnails = store

	if cfg.OCR {
		reader, err := ocr.NewReader(cfg.OCRLanguage)
		if err != nil {
			logger.Warn().Err(err).Msg("OCR unavailable, markings will be empty")
		} else {
			defer reader.Close()
			reader.SetElectronicsMode(!cfg.OCRRaw)
			extractor.Markings = reader
		}
	}

	var res *pipeline.Result
	if opts.rects != "" {
		rects, err := parseRects(opts.rects)
		if err != nil {
			return fmt.Errorf("%w: -rects: %v", errUsage, err)
		}
		res, err = extractor.ProcessRectangles(src, rects)
		if err != nil {
			return err
		}
	} else {
		res, err = extractor.Process(src, cfg.Params)
		if err != nil {
			return err
		}
	}
	defer res.Close()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := writeMat(filepath.Join(cfg.OutputDir, annotatedFile), res.Annotated); err != nil {
		return err
	}
	if err := writeMat(filepath.Join(cfg.OutputDir, compositeFile), res.Composite); err != nil {
		return err
	}

	listing := report.NewListing(opts.imagePath, cfg.Params, res, store.Path)
	if err := writeFile(filepath.Join(cfg.OutputDir, listingFile), func(w io.Writer) error {
		return report.WriteJSON(w, listing)
	}); err != nil {
		return err
	}

	if opts.chart {
		err := writeFile(filepath.Join(cfg.OutputDir, chartFile), func(w io.Writer) error {
			return report.WriteAreaChart(w, res.Components)
		})
		if errors.Is(err, report.ErrNoComponents) {
			logger.Warn().Msg("no components, area chart skipped")
		} else if err != nil {
			return err
		}
	}

	if opts.pdf {
		if err := writeFile(filepath.Join(cfg.OutputDir, pdfFile), func(w io.Writer) error {
			return report.WriteContactSheet(w, filepath.Base(opts.imagePath), res.Annotated, res.Components)
		}); err != nil {
			return err
		}
	}

	if opts.maskPreview != "" || opts.contoursView != "" {
		if err := writeViews(opts, src); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "Found %d components\n", len(res.Components))
	for _, c := range res.Components {
		line := c.Details()
		if c.Marking != "" {
			line += " " + strconv.Quote(c.Marking)
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

// writeViews writes the requested inspection views of the board.
func writeViews(opts options, src gocv.Mat) error {
	normalized, err := pcbimage.Normalize(src)
	if err != nil {
		return err
	}
	defer normalized.Close()

	if opts.maskPreview != "" {
		preview, err := segment.MaskPreview(normalized)
		if err != nil {
			return fmt.Errorf("mask preview: %w", err)
		}
		defer preview.Close()
		if err := writeMat(opts.maskPreview, preview); err != nil {
			return err
		}
	}

	if opts.contoursView != "" {
		view, err := segment.WatershedView(normalized, float32(opts.cannyLow), float32(opts.cannyHigh))
		if err != nil {
			return err
		}
		defer view.Close()
		if err := writeMat(opts.contoursView, view); err != nil {
			return err
		}
	}
	return nil
}

func writeMat(path string, mat gocv.Mat) error {
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("write %s failed", path)
	}
	return nil
}

// writeFile creates path and passes it to write, removing the file if write
// fails.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// parseRects parses "x,y,w,h;x,y,w,h" into rectangles.
func parseRects(s string) ([]geometry.RectInt, error) {
	var rects []geometry.RectInt
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) != 4 {
			return nil, fmt.Errorf("rectangle %q: want x,y,w,h", part)
		}
		var v [4]int
		for i, f := range fields {
			n, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("rectangle %q: %w", part, err)
			}
			v[i] = n
		}
		if v[2] <= 0 || v[3] <= 0 {
			return nil, fmt.Errorf("rectangle %q: width and height must be positive", part)
		}
		rects = append(rects, geometry.NewRectInt(v[0], v[1], v[2], v[3]))
	}
	if len(rects) == 0 {
		return nil, errors.New("no rectangles given")
	}
	return rects, nil
}
