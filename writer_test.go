package omezarr_test

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	omezarr "github.com/ianhi/xarray-ome"
	"github.com/ianhi/xarray-ome/ngff"
	"github.com/ianhi/xarray-ome/xarr"
)

func float32ArrayOf(t *testing.T, vals []float32, shape []int) xarr.Array {
	t.Helper()
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	arr, err := xarr.NewArray(buf, shape, "<f4", 4)
	require.NoError(t, err)
	return arr
}

func float64sFromBytes(raw []byte) []float64 {
	out := make([]float64, len(raw)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
	}
	return out
}

func rawDocOf(t *testing.T, attrs map[string]any) map[string]any {
	t.Helper()
	doc, ok := attrs[omezarr.AttrMetadata].(*ngff.Document)
	require.True(t, ok)
	return doc.Raw()
}

func TestWriteDatasetRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := singleLevelFixture(t)
	dst := filepath.Join(t.TempDir(), "out.zarr")

	ds1, err := omezarr.OpenDataset(ctx, src, 0)
	require.NoError(t, err)
	defer ds1.Close()

	require.NoError(t, omezarr.WriteDataset(ctx, ds1, dst))

	ds2, err := omezarr.OpenDataset(ctx, dst, 0)
	require.NoError(t, err)
	defer ds2.Close()

	// The full metadata document survives the cycle, including the field
	// this module does not model.
	raw1 := rawDocOf(t, ds1.Attrs)
	raw2 := rawDocOf(t, ds2.Attrs)
	assert.Equal(t, raw1, raw2)
	assert.Equal(t, "kept verbatim", raw2["acquisition_notes"])

	da1, da2 := ds1.Primary(), ds2.Primary()
	assert.Equal(t, da1.Dims, da2.Dims)
	assert.Equal(t, da1.Coords, da2.Coords)
	assert.Equal(t, da1.Data.Shape(), da2.Data.Shape())

	want, err := da1.Data.Read(ctx)
	require.NoError(t, err)
	got, err := da2.Data.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteDatasetKeepsDeclaredZeroTranslation(t *testing.T) {
	ctx := context.Background()
	src := t.TempDir()
	attrs := `{
		"multiscales": [{
			"version": "0.4",
			"axes": [
				{"name": "y", "type": "space", "unit": "micrometer"},
				{"name": "x", "type": "space", "unit": "micrometer"}
			],
			"datasets": [{"path": "0", "coordinateTransformations": [
				{"type": "scale", "scale": [0.5, 0.5]},
				{"type": "translation", "translation": [0.0, 0.0]}
			]}]
		}]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(src, ".zgroup"), []byte(`{"zarr_format":2}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".zattrs"), []byte(attrs), 0o644))
	writeLevelFixture(t, src, "0", []int{2, 2}, sequentialFloats(4))

	ds1, err := omezarr.OpenDataset(ctx, src, 0)
	require.NoError(t, err)
	defer ds1.Close()

	dst := filepath.Join(t.TempDir(), "out.zarr")
	require.NoError(t, omezarr.WriteDataset(ctx, ds1, dst))

	ds2, err := omezarr.OpenDataset(ctx, dst, 0)
	require.NoError(t, err)
	defer ds2.Close()

	// The declared zero translation is not pruned on write.
	assert.Equal(t, rawDocOf(t, ds1.Attrs), rawDocOf(t, ds2.Attrs))
}

func TestWriteDataTreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := multiLevelFixture(t)
	dst := filepath.Join(t.TempDir(), "out.zarr")

	tree1, err := omezarr.OpenDataTree(ctx, src)
	require.NoError(t, err)
	defer tree1.Close()

	require.NoError(t, omezarr.WriteDataTree(ctx, tree1, dst))

	tree2, err := omezarr.OpenDataTree(ctx, dst)
	require.NoError(t, err)
	defer tree2.Close()

	assert.Equal(t, rawDocOf(t, tree1.Attrs), rawDocOf(t, tree2.Attrs))

	require.Len(t, tree2.Children, 2)
	for i := range tree1.Children {
		da1 := tree1.Children[i].Dataset.Primary()
		da2 := tree2.Children[i].Dataset.Primary()
		assert.Equal(t, da1.Coords, da2.Coords)

		want, err := da1.Data.Read(ctx)
		require.NoError(t, err)
		got, err := da2.Data.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestWriteDataTreeRejectsBadChildNames(t *testing.T) {
	ctx := context.Background()
	ds := datasetWithCoords(
		xarr.Coordinate{Name: "y", Values: []float64{0, 1}},
		xarr.Coordinate{Name: "x", Values: []float64{0, 1}},
	)
	tree := &xarr.DataTree{
		Attrs:    map[string]any{},
		Children: []xarr.TreeNode{{Name: "level0", Dataset: ds}},
	}

	err := omezarr.WriteDataTree(ctx, tree, filepath.Join(t.TempDir(), "out.zarr"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, omezarr.ErrValidation))
}

func TestWriteDataTreeRejectsGappedIndices(t *testing.T) {
	ctx := context.Background()
	mk := func() *xarr.Dataset {
		return datasetWithCoords(
			xarr.Coordinate{Name: "y", Values: []float64{0, 1}},
			xarr.Coordinate{Name: "x", Values: []float64{0, 1}},
		)
	}
	tree := &xarr.DataTree{
		Attrs: map[string]any{},
		Children: []xarr.TreeNode{
			{Name: "scale0", Dataset: mk()},
			{Name: "scale2", Dataset: mk()},
		},
	}

	err := omezarr.WriteDataTree(ctx, tree, filepath.Join(t.TempDir(), "out.zarr"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, omezarr.ErrValidation))
}

func TestWriteDatasetScaleFactors(t *testing.T) {
	ctx := context.Background()
	dst := filepath.Join(t.TempDir(), "pyramid.zarr")

	// value(c, y, x) = c*16 + y*4 + x
	vals := make([]float32, 32)
	for i := range vals {
		vals[i] = float32(i)
	}
	coords := []xarr.Coordinate{
		{Name: "c", Labels: []string{"red", "green"}},
		{Name: "y", Values: []float64{0, 0.5, 1, 1.5}},
		{Name: "x", Values: []float64{0, 0.5, 1, 1.5}},
	}
	ds := xarr.NewDataset(&xarr.DataArray{
		Name:   "image",
		Dims:   []string{"c", "y", "x"},
		Coords: coords,
		Data:   float32ArrayOf(t, vals, []int{2, 4, 4}),
	})

	require.NoError(t, omezarr.WriteDataset(ctx, ds, dst, omezarr.WithScaleFactors(2)))

	tree, err := omezarr.OpenDataTree(ctx, dst)
	require.NoError(t, err)
	defer tree.Close()

	require.Len(t, tree.Children, 2)

	// Full resolution round trips untouched.
	da0 := tree.Children[0].Dataset.Primary()
	assert.Equal(t, []int{2, 4, 4}, da0.Data.Shape())
	c0, ok := da0.Coord("c")
	require.True(t, ok)
	assert.Equal(t, []string{"red", "green"}, c0.Labels)

	// Downsampled level: space axes halved, channel axis untouched, and
	// coordinates shifted to the block centers.
	da1 := tree.Children[1].Dataset.Primary()
	assert.Equal(t, []int{2, 2, 2}, da1.Data.Shape())
	x1, ok := da1.Coord("x")
	require.True(t, ok)
	require.True(t, floats.EqualApprox([]float64{0.25, 1.25}, x1.Values, 1e-12))

	got, err := da1.Data.Read(ctx)
	require.NoError(t, err)
	expected := []float64{
		2.5, 4.5, 10.5, 12.5,
		18.5, 20.5, 26.5, 28.5,
	}
	require.True(t, floats.EqualApprox(expected, float64sFromBytes(got), 1e-5))
}

func TestWriteDatasetSynthesizesMetadata(t *testing.T) {
	ctx := context.Background()
	dst := filepath.Join(t.TempDir(), "fresh.zarr")

	// A dataset built in memory, no prior document anywhere.
	ds := datasetWithCoords(
		xarr.Coordinate{Name: "c", Labels: []string{"A", "B"}},
		xarr.Coordinate{Name: "y", Values: []float64{0, 0.25, 0.5}},
		xarr.Coordinate{Name: "x", Values: []float64{0, 0.25, 0.5}},
	)

	require.NoError(t, omezarr.WriteDataset(ctx, ds, dst))

	out, err := omezarr.OpenDataset(ctx, dst, 0)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, map[string]float64{"c": 1, "y": 0.25, "x": 0.25},
		out.Attrs[omezarr.AttrScale])

	da := out.Primary()
	c, ok := da.Coord("c")
	require.True(t, ok)
	assert.Equal(t, []string{"A", "B"}, c.Labels)

	doc := rawDocOf(t, out.Attrs)
	assert.Contains(t, doc, "multiscales")
	assert.Contains(t, doc, "omero")
}

func TestWriteDatasetChunkRankMismatch(t *testing.T) {
	ctx := context.Background()
	ds := datasetWithCoords(
		xarr.Coordinate{Name: "y", Values: []float64{0, 1}},
		xarr.Coordinate{Name: "x", Values: []float64{0, 1}},
	)

	err := omezarr.WriteDataset(ctx, ds, filepath.Join(t.TempDir(), "out.zarr"),
		omezarr.WithChunks([]int{2}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, omezarr.ErrShapeMismatch))
}
