// Package pipeline runs the full extraction chain on one image: preprocessing,
// threshold selection, dark-region recovery, mask fusion, cleanup and
// component extraction.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"pcb-extractor/internal/component"
	pcbimage "pcb-extractor/internal/image"
	"pcb-extractor/internal/segment"
	"pcb-extractor/pkg/geometry"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// ErrProcessing wraps failures raised inside OpenCV during a run.
var ErrProcessing = errors.New("processing failed")

// MarkingReader reads the printed marking of a component thumbnail.
type MarkingReader interface {
	ReadMarking(thumbnail gocv.Mat) (string, error)
}

// Result is the output of one run. It replaces any earlier result; the
// caller must Close it.
type Result struct {
	RunID       string
	Annotated   gocv.Mat
	Composite   gocv.Mat
	Components  []*component.Component
	Diagnostics segment.Diagnostics
}

// Close releases every Mat held by the result.
func (r *Result) Close() {
	if r == nil {
		return
	}
	r.Annotated.Close()
	r.Composite.Close()
	component.CloseAll(r.Components)
}

// Extractor runs the pipeline. The zero value is usable: it logs nothing,
// persists no thumbnails and reads no markings.
type Extractor struct {
	Logger     zerolog.Logger
	Thumbnails component.ThumbnailSink // Optional
	Markings   MarkingReader           // Optional
}

// NewExtractor returns an Extractor with the given logger.
func NewExtractor(logger zerolog.Logger) *Extractor {
	return &Extractor{Logger: logger.With().Str("component", "pipeline").Logger()}
}

// Process runs every stage on src with params and returns the result. src is
// not modified. Identical inputs give identical results.
func (e *Extractor) Process(src gocv.Mat, params Params) (result *Result, err error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := e.Logger.With().Str("run", runID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("run aborted")
			result.Close()
			result, err = nil, fmt.Errorf("%w: %v", ErrProcessing, r)
		}
	}()

	start := time.Now()
	source, err := pcbimage.Normalize(src)
	if err != nil {
		log.Warn().Err(err).Msg("rejected input image")
		return nil, err
	}
	defer source.Close()

	mask, diag, err := e.buildMask(source, params, log)
	if err != nil {
		return nil, err
	}
	defer mask.Close()

	builder := &component.Builder{Logger: log, Sink: e.Thumbnails}
	ext, err := builder.Extract(source, mask, float64(params.MinArea))
	if err != nil {
		return nil, fmt.Errorf("extract components: %w", err)
	}

	result = &Result{
		RunID:       runID,
		Annotated:   ext.Annotated,
		Composite:   ext.Composite,
		Components:  ext.Components,
		Diagnostics: diag,
	}
	e.readMarkings(result.Components, log)

	log.Info().
		Int("components", len(result.Components)).
		Str("strategy", diag.Strategy.String()).
		Float64("mean", diag.MeanIntensity).
		Dur("elapsed", time.Since(start)).
		Msg("extraction complete")
	return result, nil
}

// ProcessRectangles builds a result from caller-supplied rectangles instead
// of the segmentation chain.
func (e *Extractor) ProcessRectangles(src gocv.Mat, rects []geometry.RectInt) (result *Result, err error) {
	runID := uuid.NewString()
	log := e.Logger.With().Str("run", runID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("manual run aborted")
			result.Close()
			result, err = nil, fmt.Errorf("%w: %v", ErrProcessing, r)
		}
	}()

	source, err := pcbimage.Normalize(src)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	builder := &component.Builder{Logger: log, Sink: e.Thumbnails}
	ext, err := builder.FromRectangles(source, rects)
	if err != nil {
		return nil, err
	}

	result = &Result{
		RunID:      runID,
		Annotated:  ext.Annotated,
		Composite:  ext.Composite,
		Components: ext.Components,
	}
	e.readMarkings(result.Components, log)
	log.Info().Int("components", len(result.Components)).Msg("manual extraction complete")
	return result, nil
}

// buildMask produces the cleaned foreground mask for a normalized source.
func (e *Extractor) buildMask(source gocv.Mat, params Params, log zerolog.Logger) (gocv.Mat, segment.Diagnostics, error) {
	opts := params.SegmentOptions()

	enhanced, err := segment.Preprocess(source, opts)
	if err != nil {
		return gocv.Mat{}, segment.Diagnostics{}, fmt.Errorf("preprocess: %w", err)
	}
	defer enhanced.Close()

	primary, diag, err := segment.SelectPrimaryMask(enhanced)
	if err != nil {
		return gocv.Mat{}, diag, fmt.Errorf("select threshold: %w", err)
	}
	defer primary.Close()

	log.Debug().
		Str("strategy", diag.Strategy.String()).
		Float64("mean", diag.MeanIntensity).
		Bool("inverted", diag.UsedInverted).
		Int("normal_contours", diag.NormalContours).
		Int("inverted_contours", diag.InvertedContours).
		Float64("otsu", diag.OtsuThreshold).
		Int("fixed_foreground", diag.FixedThresholdForeground).
		Msg("primary mask")

	dark, err := segment.DarkRegions(source)
	if err != nil {
		return gocv.Mat{}, diag, fmt.Errorf("dark regions: %w", err)
	}
	defer dark.Close()

	combined, err := segment.Combine(primary, dark)
	if err != nil {
		return gocv.Mat{}, diag, fmt.Errorf("combine masks: %w", err)
	}
	defer combined.Close()

	cleaned, err := segment.Clean(combined, opts)
	if err != nil {
		return gocv.Mat{}, diag, fmt.Errorf("clean mask: %w", err)
	}
	log.Debug().Int("foreground", gocv.CountNonZero(cleaned)).Msg("cleaned mask")
	return cleaned, diag, nil
}

// readMarkings fills in component markings when a reader is configured.
// Read failures leave the marking empty.
func (e *Extractor) readMarkings(components []*component.Component, log zerolog.Logger) {
	if e.Markings == nil {
		return
	}
	for _, c := range components {
		text, err := e.Markings.ReadMarking(c.Thumbnail)
		if err != nil {
			log.Debug().Err(err).Int("id", c.ID).Msg("no marking read")
			continue
		}
		c.Marking = text
	}
}
