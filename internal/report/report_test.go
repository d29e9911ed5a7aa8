package report

import (
	"bytes"
	"encoding/json"
	"image"
	"testing"

	"pcb-extractor/internal/component"
	"pcb-extractor/internal/pipeline"
	"pcb-extractor/internal/segment"
	"pcb-extractor/internal/testutil"
	"pcb-extractor/pkg/geometry"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func components(areas ...float64) []*component.Component {
	out := make([]*component.Component, len(areas))
	for i, a := range areas {
		out[i] = &component.Component{ID: i, Area: a, Bounds: geometry.NewRectInt(i*10, 0, 10, 10)}
	}
	return out
}

func TestSummarize(t *testing.T) {
	s := Summarize(components(100, 300, 200))
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 600.0, s.TotalArea)
	assert.Equal(t, 200.0, s.MeanArea)
	assert.Equal(t, 200.0, s.MedianArea)
	assert.Equal(t, 100.0, s.MinArea)
	assert.Equal(t, 300.0, s.MaxArea)
	assert.InDelta(t, 100.0, s.StdDevArea, 1e-9)

	one := Summarize(components(42))
	assert.Equal(t, 42.0, one.MeanArea)
	assert.Zero(t, one.StdDevArea)

	assert.Equal(t, Summary{}, Summarize(nil))
}

func runPipeline(t *testing.T) *pipeline.Result {
	t.Helper()
	src := testutil.WhiteWithSquares(50, image.Pt(20, 20), image.Pt(300, 200))
	t.Cleanup(src.Close)

	res, err := pipeline.NewExtractor(zerolog.Nop()).Process(src, pipeline.DefaultParams())
	require.NoError(t, err)
	t.Cleanup(res.Close)
	return res
}

func TestListingJSON(t *testing.T) {
	res := runPipeline(t)
	store := component.NewDirStore("thumbs", false)

	l := NewListing("board.png", pipeline.DefaultParams(), res, store.Path)
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, l))

	var decoded Listing
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.RunID, decoded.RunID)
	assert.Equal(t, "adaptive", decoded.Strategy)
	require.NotNil(t, decoded.Diagnostics)
	assert.Equal(t, segment.StrategyAdaptive, decoded.Diagnostics.Strategy)
	assert.Equal(t, len(res.Components), decoded.Summary.Count)
	require.Len(t, decoded.Components, len(res.Components))
	for i, e := range decoded.Components {
		assert.Equal(t, res.Components[i].Details(), e.Details)
		assert.Equal(t, store.Path(e.ID), e.Thumbnail)
	}
}

func TestListingManualRectangles(t *testing.T) {
	src := testutil.Canvas(100, 100, testutil.White)
	defer src.Close()

	res, err := pipeline.NewExtractor(zerolog.Nop()).ProcessRectangles(src, []geometry.RectInt{geometry.NewRectInt(10, 10, 30, 20)})
	require.NoError(t, err)
	defer res.Close()

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, NewListing("board.png", pipeline.DefaultParams(), res, nil)))
	assert.NotContains(t, buf.String(), `"strategy"`)
	assert.NotContains(t, buf.String(), `"diagnostics"`)

	var decoded Listing
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded.Strategy)
	assert.Nil(t, decoded.Diagnostics)
	assert.Len(t, decoded.Components, 1)
}

func TestWriteAreaChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAreaChart(&buf, components(2401, 1200, 3000)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	buf.Reset()
	require.NoError(t, WriteAreaChart(&buf, components(500)), "single bar")

	assert.ErrorIs(t, WriteAreaChart(&buf, nil), ErrNoComponents)
}

func TestWriteContactSheet(t *testing.T) {
	res := runPipeline(t)

	var buf bytes.Buffer
	require.NoError(t, WriteContactSheet(&buf, "board.png", res.Annotated, res.Components))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
