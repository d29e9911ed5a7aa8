package component

import (
	"fmt"
	"image"
	"strconv"

	pcbimage "pcb-extractor/internal/image"
	"pcb-extractor/pkg/colorutil"
	"pcb-extractor/pkg/geometry"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

const (
	boxThickness   = 2
	labelFontScale = 0.5
	labelThickness = 1
)

// Extraction holds the components found in one run and the two rendered
// outputs. The caller owns all Mats and must call Close.
type Extraction struct {
	Components []*Component
	Annotated  gocv.Mat // Source with boxes and IDs drawn
	Composite  gocv.Mat // White canvas with each component pasted in place
}

// Close releases the rendered outputs and every thumbnail.
func (e *Extraction) Close() {
	if e == nil {
		return
	}
	e.Annotated.Close()
	e.Composite.Close()
	CloseAll(e.Components)
}

// Builder turns candidate regions into components.
type Builder struct {
	Logger zerolog.Logger
	Sink   ThumbnailSink // Optional; nil disables thumbnail persistence
}

// Extract finds the external contours of mask and builds a component for each
// one whose area is strictly greater than minArea. source is the normalized,
// unprocessed image the thumbnails are cut from; neither input is modified.
func (b *Builder) Extract(source, mask gocv.Mat, minArea float64) (*Extraction, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}
	if mask.Empty() || mask.Channels() != 1 {
		return nil, fmt.Errorf("extract: mask must be single-channel: %w", pcbimage.ErrUnsupportedFormat)
	}
	if mask.Rows() != source.Rows() || mask.Cols() != source.Cols() {
		return nil, fmt.Errorf("extract: mask %dx%d does not match source %dx%d: %w",
			mask.Cols(), mask.Rows(), source.Cols(), source.Rows(), pcbimage.ErrUnsupportedFormat)
	}

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	width, height := source.Cols(), source.Rows()
	ext := newExtraction(source)
	defer closeOnPanic(ext)

	for i := 0; i < contours.Size(); i++ {
		points := contours.At(i).ToPoints()
		area := geometry.PolygonArea(points)
		if area <= minArea {
			b.Logger.Debug().Int("contour", i).Float64("area", area).Float64("min_area", minArea).
				Msg("REJECT: area at or below minimum")
			continue
		}

		bounds := geometry.BoundingBoxInt(points)
		if bounds.Empty() || !bounds.Within(width, height) {
			b.Logger.Debug().Int("contour", i).Interface("bounds", bounds).
				Msg("REJECT: bounding box outside image")
			continue
		}
		if bounds.SpansFrame(width, height) {
			b.Logger.Debug().Int("contour", i).Interface("bounds", bounds).
				Msg("REJECT: background region spans the whole frame")
			continue
		}

		b.add(ext, source, bounds, area)
	}

	b.finish(ext)
	return ext, nil
}

// FromRectangles builds components from caller-supplied rectangles, such as
// ones drawn by hand, using the same annotation and composite rules as
// Extract. Rectangles are clipped to the image; empty ones are skipped. The
// area of a manual component is the area of its clipped rectangle.
func (b *Builder) FromRectangles(source gocv.Mat, rects []geometry.RectInt) (*Extraction, error) {
	if err := checkSource(source); err != nil {
		return nil, err
	}

	width, height := source.Cols(), source.Rows()
	ext := newExtraction(source)
	defer closeOnPanic(ext)

	for i, r := range rects {
		bounds := r.Clip(width, height)
		if bounds.Empty() {
			b.Logger.Debug().Int("rect", i).Interface("bounds", r).Msg("REJECT: rectangle outside image")
			continue
		}
		b.add(ext, source, bounds, float64(bounds.Area()))
	}

	b.finish(ext)
	return ext, nil
}

func checkSource(source gocv.Mat) error {
	if source.Empty() {
		return fmt.Errorf("extract: %w", pcbimage.ErrEmptyInput)
	}
	if ch := source.Channels(); ch != 1 && ch != 3 {
		return fmt.Errorf("extract: %d channels: %w", ch, pcbimage.ErrUnsupportedFormat)
	}
	return nil
}

func newExtraction(source gocv.Mat) *Extraction {
	white := gocv.NewScalar(255, 255, 255, 0)
	return &Extraction{
		Annotated: source.Clone(),
		Composite: gocv.NewMatWithSizeFromScalar(white, source.Rows(), source.Cols(), source.Type()),
	}
}

// add assigns the next ID, cuts the thumbnail, draws the annotation, pastes
// the thumbnail on the composite and hands it to the sink.
func (b *Builder) add(ext *Extraction, source gocv.Mat, bounds geometry.RectInt, area float64) {
	rect := bounds.Rectangle()

	region := source.Region(rect)
	thumb := region.Clone()
	region.Close()

	comp := &Component{
		ID:        len(ext.Components),
		Bounds:    bounds,
		Area:      area,
		Thumbnail: thumb,
	}
	ext.Components = append(ext.Components, comp)

	gocv.Rectangle(&ext.Annotated, rect, colorutil.BoxColor, boxThickness)
	gocv.PutText(&ext.Annotated, strconv.Itoa(comp.ID), labelPosition(rect),
		gocv.FontHersheySimplex, labelFontScale, colorutil.LabelColor, labelThickness)

	b.paste(ext.Composite, thumb, rect, comp.ID)

	if b.Sink != nil {
		if err := b.Sink.Save(comp.ID, thumb); err != nil {
			b.Logger.Warn().Err(err).Int("id", comp.ID).Msg("failed to save thumbnail")
		}
	}

	b.Logger.Debug().Int("id", comp.ID).Float64("area", area).Interface("bounds", bounds).Msg("ACCEPT")
}

// paste copies thumb into the composite at rect, converting it to the
// composite's type first when they differ.
func (b *Builder) paste(composite, thumb gocv.Mat, rect image.Rectangle, id int) {
	if thumb.Type() != composite.Type() {
		converted, ok := matchType(thumb, composite.Type())
		if !ok {
			b.Logger.Warn().Int("id", id).Msg("thumbnail type differs from composite, not pasted")
			return
		}
		defer converted.Close()
		thumb = converted
	}
	dst := composite.Region(rect)
	thumb.CopyTo(&dst)
	dst.Close()
}

// matchType converts an 8-bit gray or BGR Mat to typ. It reports false when
// no conversion produces typ. The caller owns the returned Mat.
func matchType(m gocv.Mat, typ gocv.MatType) (gocv.Mat, bool) {
	out := gocv.NewMat()
	switch {
	case m.Type() == gocv.MatTypeCV8UC1 && typ == gocv.MatTypeCV8UC3:
		gocv.CvtColor(m, &out, gocv.ColorGrayToBGR)
	case m.Type() == gocv.MatTypeCV8UC3 && typ == gocv.MatTypeCV8UC1:
		gocv.CvtColor(m, &out, gocv.ColorBGRToGray)
	default:
		out.Close()
		return gocv.Mat{}, false
	}
	return out, true
}

// closeOnPanic releases a partially built extraction while a panic unwinds
// through the builder. The panic continues.
func closeOnPanic(ext *Extraction) {
	if r := recover(); r != nil {
		ext.Close()
		panic(r)
	}
}

func (b *Builder) finish(ext *Extraction) {
	if b.Sink == nil {
		return
	}
	if err := b.Sink.Finish(len(ext.Components)); err != nil {
		b.Logger.Warn().Err(err).Msg("failed to finalize thumbnail store")
	}
}

// labelPosition places the ID just above the box, or inside it when the box
// touches the top edge.
func labelPosition(rect image.Rectangle) image.Point {
	pos := image.Point{X: rect.Min.X, Y: rect.Min.Y - 5}
	if pos.Y < 12 {
		pos.Y = rect.Min.Y + 15
	}
	return pos
}
