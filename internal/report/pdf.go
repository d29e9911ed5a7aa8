package report

import (
	"bytes"
	"fmt"
	"io"

	"pcb-extractor/internal/component"

	"github.com/jung-kurt/gofpdf"
	"gocv.io/x/gocv"
)

// Contact sheet layout, in millimetres on A4 portrait.
const (
	pageMargin  = 10.0
	pageWidth   = 210.0 - 2*pageMargin
	pageBottom  = 297.0 - pageMargin
	gridColumns = 4
	cellWidth   = pageWidth / gridColumns
	thumbBox    = cellWidth - 5
	captionH    = 5.0
)

// WriteContactSheet writes a PDF with the annotated board on the first page
// followed by a grid of component thumbnails with captions.
func WriteContactSheet(w io.Writer, title string, annotated gocv.Mat, components []*component.Component) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "B", 14)

	pdf.AddPage()
	pdf.CellFormat(pageWidth, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(pageWidth, 6, fmt.Sprintf("%d components", len(components)), "", 1, "L", false, 0, "")

	if !annotated.Empty() {
		if err := placeImage(pdf, "annotated", annotated, pageMargin, pdf.GetY()+2, pageWidth, pageBottom-pdf.GetY()-2); err != nil {
			return err
		}
	}

	if len(components) > 0 {
		pdf.AddPage()
	}
	y := pageMargin
	for i, c := range components {
		col := i % gridColumns
		if col == 0 && i > 0 {
			y += thumbBox + captionH + 3
		}
		if y+thumbBox+captionH > pageBottom {
			pdf.AddPage()
			y = pageMargin
		}
		x := pageMargin + float64(col)*cellWidth

		if !c.Thumbnail.Empty() {
			name := fmt.Sprintf("component_%d", c.ID)
			if err := placeImage(pdf, name, c.Thumbnail, x, y, thumbBox, thumbBox); err != nil {
				return err
			}
		}
		pdf.SetXY(x, y+thumbBox)
		pdf.CellFormat(cellWidth, captionH,
			fmt.Sprintf("#%d  %.0f px  %dx%d", c.ID, c.Area, c.Bounds.Width, c.Bounds.Height),
			"", 0, "L", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

// placeImage draws mat scaled to fit inside the w×h box at (x, y), keeping
// its aspect ratio.
func placeImage(pdf *gofpdf.Fpdf, name string, mat gocv.Mat, x, y, w, h float64) error {
	data, err := encodePNG(mat)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))

	scale := w / float64(mat.Cols())
	if s := h / float64(mat.Rows()); s < scale {
		scale = s
	}
	pdf.ImageOptions(name, x, y, float64(mat.Cols())*scale, float64(mat.Rows())*scale, false, opts, 0, "")
	return pdf.Error()
}

func encodePNG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
