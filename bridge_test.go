package omezarr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	omezarr "github.com/ianhi/xarray-ome"
	"github.com/ianhi/xarray-ome/ngff"
)

const bridgeDoc = `{
	"multiscales": [{
		"version": "0.4",
		"name": "nucleus",
		"axes": [
			{"name": "c", "type": "channel"},
			{"name": "z", "type": "space", "unit": "micrometer"},
			{"name": "y", "type": "space", "unit": "micrometer"},
			{"name": "x", "type": "space", "unit": "micrometer"}
		],
		"datasets": [
			{"path": "0", "coordinateTransformations": [
				{"type": "scale", "scale": [1.0, 0.5, 0.36, 0.36]}
			]}
		]
	}],
	"omero": {
		"channels": [
			{"label": "LaminB1", "color": "00FF00", "window": {"min": 0, "max": 255, "start": 0, "end": 200}},
			{"label": "Dapi", "color": "0000FF"}
		]
	},
	"acquisition_notes": "kept verbatim"
}`

func TestDocumentToAttrs(t *testing.T) {
	doc, err := ngff.ParseDocument([]byte(bridgeDoc))
	require.NoError(t, err)

	attrs := omezarr.DocumentToAttrs(doc)

	assert.Equal(t, "nucleus", attrs[omezarr.AttrName])
	assert.Equal(t, "0.4", attrs[omezarr.AttrVersion])
	assert.Equal(t, []string{"channel", "space", "space", "space"}, attrs[omezarr.AttrAxesTypes])
	assert.Equal(t, map[string]string{"z": "micrometer", "y": "micrometer", "x": "micrometer"},
		attrs[omezarr.AttrAxesUnits])
	assert.Equal(t, []string{"0"}, attrs[omezarr.AttrMultiscalePaths])
	assert.Equal(t, 1, attrs[omezarr.AttrNumResolutions])
	assert.Equal(t, []string{"00FF00", "0000FF"}, attrs[omezarr.AttrChannelColors])
	assert.Equal(t, []string{"LaminB1", "Dapi"}, attrs[omezarr.AttrChannelLabels])

	windows, ok := attrs[omezarr.AttrChannelWindows].([]ngff.Window)
	require.True(t, ok)
	require.Len(t, windows, 1)
	assert.Equal(t, 200.0, windows[0].End)

	// The verbatim document rides along unmodified.
	assert.Same(t, doc, attrs[omezarr.AttrMetadata])
}

func TestAttrsToDocumentVerbatimSplice(t *testing.T) {
	doc, err := ngff.ParseDocument([]byte(bridgeDoc))
	require.NoError(t, err)
	attrs := omezarr.DocumentToAttrs(doc)

	out, err := omezarr.AttrsToDocument(attrs,
		[]string{"c", "z", "y", "x"},
		[][]ngff.CoordinateTransformation{{
			{Type: "scale", Scale: []float64{1, 0.5, 0.36, 0.36}},
			{Type: "translation", Translation: []float64{0, 0, 1.5, 1.5}},
		}},
		[]string{"LaminB1", "Dapi"},
	)
	require.NoError(t, err)

	// Recovered transforms spliced in.
	cts := out.Multiscales[0].Datasets[0].CoordinateTransformations
	require.Len(t, cts, 2)
	assert.Equal(t, []float64{0, 0, 1.5, 1.5}, cts[1].Translation)

	// Unknown fields survive untouched.
	assert.Equal(t, "kept verbatim", out.Raw()["acquisition_notes"])

	// The input document is not mutated.
	assert.Len(t, doc.Multiscales[0].Datasets[0].CoordinateTransformations, 1)
}

func TestAttrsToDocumentKeepsDeclaredZeroTranslation(t *testing.T) {
	doc, err := ngff.ParseDocument([]byte(`{
		"multiscales": [{
			"version": "0.4",
			"axes": [
				{"name": "y", "type": "space"},
				{"name": "x", "type": "space"}
			],
			"datasets": [{"path": "0", "coordinateTransformations": [
				{"type": "scale", "scale": [0.5, 0.5]},
				{"type": "translation", "translation": [0.0, 0.0]}
			]}]
		}]
	}`))
	require.NoError(t, err)
	attrs := omezarr.DocumentToAttrs(doc)

	// An all-zero translation collapses away during recovery; the splice
	// must restore it so the output matches the source entry.
	out, err := omezarr.AttrsToDocument(attrs,
		[]string{"y", "x"},
		[][]ngff.CoordinateTransformation{{
			{Type: "scale", Scale: []float64{0.5, 0.5}},
		}},
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, doc.Raw(), out.Raw())
	cts := out.Multiscales[0].Datasets[0].CoordinateTransformations
	require.Len(t, cts, 2)
	assert.Equal(t, "translation", cts[1].Type)
	assert.Equal(t, []float64{0, 0}, cts[1].Translation)
}

func TestAxisOrientationsRoundTrip(t *testing.T) {
	doc, err := ngff.ParseDocument([]byte(`{
		"multiscales": [{
			"version": "0.4",
			"axes": [
				{"name": "z", "type": "space", "orientation": "inferior-to-superior"},
				{"name": "y", "type": "space", "orientation": "anterior-to-posterior"},
				{"name": "x", "type": "space"}
			],
			"datasets": [{"path": "0", "coordinateTransformations": [
				{"type": "scale", "scale": [1, 1, 1]}
			]}]
		}]
	}`))
	require.NoError(t, err)

	attrs := omezarr.DocumentToAttrs(doc)
	assert.Equal(t, map[string]string{
		"z": "inferior-to-superior",
		"y": "anterior-to-posterior",
	}, attrs[omezarr.AttrAxesOrientations])

	// Orientations survive the synthesis path too. Two levels against a
	// one-dataset document forces a rebuilt metadata block.
	out, err := omezarr.AttrsToDocument(attrs,
		[]string{"z", "y", "x"},
		[][]ngff.CoordinateTransformation{
			{{Type: "scale", Scale: []float64{1, 1, 1}}},
			{{Type: "scale", Scale: []float64{1, 2, 2}}},
		},
		nil,
	)
	require.NoError(t, err)
	axes := out.Multiscales[0].Axes
	assert.Equal(t, "inferior-to-superior", axes[0].Orientation)
	assert.Equal(t, "anterior-to-posterior", axes[1].Orientation)
	assert.Equal(t, "", axes[2].Orientation)
}

func TestAttrsToDocumentLevelCountFallsBackToSynthesis(t *testing.T) {
	doc, err := ngff.ParseDocument([]byte(bridgeDoc))
	require.NoError(t, err)
	attrs := omezarr.DocumentToAttrs(doc)

	// Two levels against a one-dataset verbatim document: synthesized.
	out, err := omezarr.AttrsToDocument(attrs,
		[]string{"c", "z", "y", "x"},
		[][]ngff.CoordinateTransformation{
			{{Type: "scale", Scale: []float64{1, 0.5, 0.36, 0.36}}},
			{{Type: "scale", Scale: []float64{1, 0.5, 0.72, 0.72}}},
		},
		[]string{"LaminB1", "Dapi"},
	)
	require.NoError(t, err)
	require.Len(t, out.Multiscales[0].Datasets, 2)
	assert.Equal(t, "1", out.Multiscales[0].Datasets[1].Path)
	assert.NotContains(t, out.Raw(), "acquisition_notes")
}

func TestAttrsToDocumentSynthesisMinimal(t *testing.T) {
	out, err := omezarr.AttrsToDocument(map[string]any{},
		[]string{"c", "y", "x"},
		[][]ngff.CoordinateTransformation{{
			{Type: "scale", Scale: []float64{1, 0.25, 0.25}},
		}},
		[]string{"A", "B"},
	)
	require.NoError(t, err)

	ms := out.Multiscales[0]
	assert.Equal(t, "0.4", ms.Version)
	require.Len(t, ms.Axes, 3)
	assert.Equal(t, ngff.AxisTypeChannel, ms.Axes[0].Type)
	assert.Equal(t, ngff.AxisTypeSpace, ms.Axes[1].Type)
	require.Len(t, ms.Datasets, 1)
	assert.Equal(t, "0", ms.Datasets[0].Path)

	require.NotNil(t, out.Omero)
	require.Len(t, out.Omero.Channels, 2)
	assert.Equal(t, "A", out.Omero.Channels[0].Label)

	// The synthesized raw form parses back to the same structure.
	data, err := out.MarshalJSON()
	require.NoError(t, err)
	reparsed, err := ngff.ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, ms.Axes, reparsed.Multiscales[0].Axes)
}

func TestAttrsToDocumentNoChannels(t *testing.T) {
	out, err := omezarr.AttrsToDocument(map[string]any{},
		[]string{"y", "x"},
		[][]ngff.CoordinateTransformation{{
			{Type: "scale", Scale: []float64{1, 1}},
		}},
		nil,
	)
	require.NoError(t, err)
	assert.Nil(t, out.Omero)
}

func TestAttrsToDocumentAxisCountMismatch(t *testing.T) {
	attrs := map[string]any{
		omezarr.AttrAxesTypes: []string{"channel", "space"},
	}
	_, err := omezarr.AttrsToDocument(attrs,
		[]string{"c", "y", "x"},
		[][]ngff.CoordinateTransformation{{{Type: "scale", Scale: []float64{1, 1, 1}}}},
		nil,
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, omezarr.ErrShapeMismatch))
}
