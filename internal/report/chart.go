package report

import (
	"io"
	"strconv"

	"pcb-extractor/internal/component"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartHeight   = 400
	chartMinWidth = 512
	barWidth      = 20
	barSpacing    = 10
)

// WriteAreaChart renders a PNG bar chart of component areas by ID.
func WriteAreaChart(w io.Writer, components []*component.Component) error {
	if len(components) == 0 {
		return ErrNoComponents
	}

	bars := make([]chart.Value, 0, len(components))
	maxArea := 0.0
	for _, c := range components {
		bars = append(bars, chart.Value{Value: c.Area, Label: strconv.Itoa(c.ID)})
		if c.Area > maxArea {
			maxArea = c.Area
		}
	}

	width := len(bars)*(barWidth+barSpacing) + 120
	if width < chartMinWidth {
		width = chartMinWidth
	}

	graph := chart.BarChart{
		Title: "Component area (px²)",
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxArea * 1.1},
		},
		Bars: bars,
	}
	return graph.Render(chart.PNG, w)
}
