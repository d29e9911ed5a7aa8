// Package report writes run outputs: the component listing, area statistics,
// an area bar chart and a PDF contact sheet.
package report

import (
	"errors"
	"sort"

	"pcb-extractor/internal/component"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoComponents is returned by writers that need at least one component.
var ErrNoComponents = errors.New("no components to report")

// Summary holds area statistics over the components of one run.
type Summary struct {
	Count      int     `json:"count"`
	TotalArea  float64 `json:"total_area"`
	MeanArea   float64 `json:"mean_area"`
	StdDevArea float64 `json:"stddev_area"`
	MinArea    float64 `json:"min_area"`
	MedianArea float64 `json:"median_area"`
	MaxArea    float64 `json:"max_area"`
}

// Summarize computes area statistics. An empty list gives a zero Summary.
func Summarize(components []*component.Component) Summary {
	if len(components) == 0 {
		return Summary{}
	}

	areas := make([]float64, len(components))
	for i, c := range components {
		areas[i] = c.Area
	}
	sort.Float64s(areas)

	s := Summary{
		Count:      len(areas),
		TotalArea:  floats.Sum(areas),
		MeanArea:   stat.Mean(areas, nil),
		MinArea:    floats.Min(areas),
		MaxArea:    floats.Max(areas),
		MedianArea: stat.Quantile(0.5, stat.Empirical, areas, nil),
	}
	if len(areas) > 1 {
		s.StdDevArea = stat.StdDev(areas, nil)
	}
	return s
}
