package omezarr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ianhi/xarray-ome/ngff"
	"github.com/ianhi/xarray-ome/xarr"
	"github.com/ianhi/xarray-ome/zarr"
)

// WriteDataset writes a labeled dataset to an OME-Zarr store. With
// WithScaleFactors, downsampled levels are generated from the full
// resolution by block-mean reduction along the space axes; otherwise only
// the provided level is written. The metadata document is recovered from
// the dataset's side channel when present, so a read-write cycle preserves
// fields this module does not model.
func WriteDataset(ctx context.Context, ds *xarr.Dataset, path string, opts ...WriteOption) error {
	o := writeOptions{compressor: "zstd"}
	for _, opt := range opts {
		opt(&o)
	}

	da := ds.Primary()
	if da == nil {
		return fmt.Errorf("dataset has no data arrays")
	}

	data, err := da.Data.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to materialize %q: %w", da.Name, err)
	}
	shape := da.Data.Shape()

	scale, translation := CoordsToTransform(ds)

	levels := []writeLevel{{data: data, shape: shape}}
	transforms := [][]ngff.CoordinateTransformation{
		positionalTransforms(da.Dims, scale, translation),
	}

	axisTypes := resolveAxisTypes(ds.Attrs, da.Dims)
	for _, f := range o.scaleFactors {
		if f < 1 {
			return fmt.Errorf("invalid scale factor %d", f)
		}
		factors := make([]int, len(da.Dims))
		levelScale := make(map[string]float64, len(da.Dims))
		levelTranslation := make(map[string]float64, len(da.Dims))
		for i, dim := range da.Dims {
			if axisTypes[i] == ngff.AxisTypeSpace {
				factors[i] = f
				levelScale[dim] = scale[dim] * float64(f)
				// Pixel-center convention: the mean of f source pixels
				// sits half a block in from the first one.
				levelTranslation[dim] = translation[dim] + 0.5*float64(f-1)*scale[dim]
			} else {
				factors[i] = 1
				levelScale[dim] = scale[dim]
				levelTranslation[dim] = translation[dim]
			}
		}

		reduced, reducedShape, err := zarr.Downsample(data, shape, da.Data.DType(), factors)
		if err != nil {
			return fmt.Errorf("failed to downsample by %d: %w", f, err)
		}
		levels = append(levels, writeLevel{data: reduced, shape: reducedShape})
		transforms = append(transforms, positionalTransforms(da.Dims, levelScale, levelTranslation))
	}

	doc, err := AttrsToDocument(ds.Attrs, da.Dims, transforms, channelLabelsOf(da))
	if err != nil {
		return err
	}
	return writeStore(ctx, path, doc, da.Data.DType(), levels, &o)
}

// WriteDataTree writes a multiscale tree to an OME-Zarr store. Children
// must be named "scale0", "scale1", ... with consecutive indices from 0;
// anything else is a validation error. Levels are written in index order
// with each child's own recovered transform.
func WriteDataTree(ctx context.Context, tree *xarr.DataTree, path string, opts ...WriteOption) error {
	o := writeOptions{compressor: "zstd"}
	for _, opt := range opts {
		opt(&o)
	}

	if len(tree.Children) == 0 {
		return fmt.Errorf("%w: tree has no scale children to write", ErrValidation)
	}

	ordered := make([]*xarr.Dataset, len(tree.Children))
	for _, node := range tree.Children {
		idx, ok := scaleIndex(node.Name)
		if !ok || idx < 0 || idx >= len(ordered) || ordered[idx] != nil {
			return fmt.Errorf("%w: child %q does not follow the scale{index} convention", ErrValidation, node.Name)
		}
		ordered[idx] = node.Dataset
	}

	var (
		levels     []writeLevel
		transforms [][]ngff.CoordinateTransformation
		dims       []string
		dtype      string
		labels     []string
	)
	for i, ds := range ordered {
		da := ds.Primary()
		if da == nil {
			return fmt.Errorf("%w: scale%d has no data arrays", ErrValidation, i)
		}
		if dims == nil {
			dims = da.Dims
			dtype = da.Data.DType()
			labels = channelLabelsOf(da)
		}

		data, err := da.Data.Read(ctx)
		if err != nil {
			return fmt.Errorf("failed to materialize scale%d: %w", i, err)
		}
		scale, translation := CoordsToTransform(ds)
		levels = append(levels, writeLevel{data: data, shape: da.Data.Shape()})
		transforms = append(transforms, positionalTransforms(da.Dims, scale, translation))
	}

	doc, err := AttrsToDocument(tree.Attrs, dims, transforms, labels)
	if err != nil {
		return err
	}
	return writeStore(ctx, path, doc, dtype, levels, &o)
}

type writeLevel struct {
	data  []byte
	shape []int
}

// writeStore lays out the group: root .zgroup/.zattrs plus one array per
// level at the path its dataset entry declares.
func writeStore(ctx context.Context, path string, doc *ngff.Document, dtype string, levels []writeLevel, o *writeOptions) error {
	if !strings.Contains(path, "://") {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	store, err := zarr.OpenStore(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	encoded, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := store.WriteGroup(ctx, "", encoded); err != nil {
		return err
	}

	paths := levelPaths(doc, len(levels))
	for i, level := range levels {
		chunks := o.chunks
		if chunks == nil {
			chunks = zarr.DefaultChunks(level.shape)
		} else if len(chunks) != len(level.shape) {
			return fmt.Errorf("%w: chunk shape %v for array rank %d", ErrShapeMismatch, chunks, len(level.shape))
		}

		var compressor *zarr.CompressorConfig
		if o.compressor != "" {
			compressor = &zarr.CompressorConfig{ID: o.compressor}
		}
		meta := &zarr.Metadata{
			ZarrFormat: 2,
			Shape:      level.shape,
			Chunks:     chunks,
			DType:      dtype,
			Compressor: compressor,
			FillValue:  0,
			Order:      "C",
		}
		if _, err := zarr.CreateArray(ctx, store, paths[i]+"/", meta, level.data); err != nil {
			return fmt.Errorf("failed to write level %d: %w", i, err)
		}
	}
	return nil
}

// levelPaths reads the dataset paths out of the document being written so
// arrays land where the metadata says they are.
func levelPaths(doc *ngff.Document, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = strconv.Itoa(i)
	}
	if len(doc.Multiscales) > 0 {
		for i, entry := range doc.Multiscales[0].Datasets {
			if i < n && entry.Path != "" {
				paths[i] = strings.TrimSuffix(entry.Path, "/")
			}
		}
	}
	return paths
}

// positionalTransforms converts named scale/translation maps into the
// positional transform list the on-disk schema uses.
func positionalTransforms(dims []string, scale, translation map[string]float64) []ngff.CoordinateTransformation {
	s := make([]float64, len(dims))
	t := make([]float64, len(dims))
	nonzero := false
	for i, dim := range dims {
		s[i] = 1.0
		if v, ok := scale[dim]; ok {
			s[i] = v
		}
		if v, ok := translation[dim]; ok {
			t[i] = v
			if v != 0 {
				nonzero = true
			}
		}
	}
	cts := []ngff.CoordinateTransformation{{Type: "scale", Scale: s}}
	if nonzero {
		cts = append(cts, ngff.CoordinateTransformation{Type: "translation", Translation: t})
	}
	return cts
}

// resolveAxisTypes returns the axis type per dimension, from the side
// channel when available and by naming convention otherwise.
func resolveAxisTypes(attrs map[string]any, dims []string) []string {
	types := asStringSlice(attrs[AttrAxesTypes])
	if len(types) == len(dims) {
		return types
	}
	types = make([]string, len(dims))
	for i, dim := range dims {
		types[i] = guessAxisType(dim)
	}
	return types
}

// channelLabelsOf pulls categorical labels off the channel coordinate, if
// the array has one.
func channelLabelsOf(da *xarr.DataArray) []string {
	for _, c := range da.Coords {
		if c.Categorical() {
			return c.Labels
		}
	}
	return nil
}

func scaleIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "scale")
	if !ok {
		return 0, false
	}
	idx, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return idx, true
}
