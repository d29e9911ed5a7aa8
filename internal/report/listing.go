package report

import (
	"encoding/json"
	"io"

	"pcb-extractor/internal/pipeline"
	"pcb-extractor/internal/segment"
	"pcb-extractor/pkg/geometry"
)

// Entry is one component in the listing.
type Entry struct {
	ID        int              `json:"id"`
	Bounds    geometry.RectInt `json:"bounds"`
	Area      float64          `json:"area"`
	Marking   string           `json:"marking,omitempty"`
	Details   string           `json:"details"`
	Thumbnail string           `json:"thumbnail,omitempty"`
}

// Listing is the machine-readable record of one run.
type Listing struct {
	RunID       string               `json:"run_id"`
	Image       string               `json:"image"`
	Params      pipeline.Params      `json:"params"`
	Strategy    string               `json:"strategy,omitempty"`
	Diagnostics *segment.Diagnostics `json:"diagnostics,omitempty"`
	Summary     Summary              `json:"summary"`
	Components  []Entry              `json:"components"`
}

// NewListing builds a listing from a run result. thumbnailPath maps a
// component ID to its saved thumbnail and may be nil. Runs that did no
// thresholding, such as manual rectangles, carry no strategy or diagnostics.
func NewListing(image string, params pipeline.Params, res *pipeline.Result, thumbnailPath func(id int) string) Listing {
	l := Listing{
		RunID:      res.RunID,
		Image:      image,
		Params:     params,
		Summary:    Summarize(res.Components),
		Components: make([]Entry, 0, len(res.Components)),
	}
	if res.Diagnostics.Strategy != segment.StrategyNone {
		diag := res.Diagnostics
		l.Strategy = diag.Strategy.String()
		l.Diagnostics = &diag
	}
	for _, c := range res.Components {
		e := Entry{
			ID:      c.ID,
			Bounds:  c.Bounds,
			Area:    c.Area,
			Marking: c.Marking,
			Details: c.Details(),
		}
		if thumbnailPath != nil {
			e.Thumbnail = thumbnailPath(c.ID)
		}
		l.Components = append(l.Components, e)
	}
	return l
}

// WriteJSON writes the listing as indented JSON.
func WriteJSON(w io.Writer, l Listing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}
