package omezarr

import (
	"context"
	"fmt"
	"strings"

	"github.com/ianhi/xarray-ome/ngff"
	"github.com/ianhi/xarray-ome/xarr"
	"github.com/ianhi/xarray-ome/zarr"
)

// Classify opens the store's root metadata and reports what kind of
// OME-Zarr store it is. Only the metadata document is read; classification
// succeeds even when array payloads are unreadable.
func Classify(ctx context.Context, path string) (ngff.StoreKind, error) {
	store, err := zarr.OpenStore(ctx, path)
	if err != nil {
		return ngff.KindUnknown, err
	}
	defer store.Close()

	raw, err := store.ReadAttrs(ctx, "")
	if err != nil {
		return ngff.KindUnknown, err
	}
	return ngff.Classify(raw), nil
}

// OpenDataTree opens a whole OME-Zarr image pyramid. The returned tree has
// one child per resolution level, named "scale0", "scale1", ... in the
// order the store's dataset list declares them, with the full metadata
// document preserved in the root attrs. Array payloads stay lazy.
//
// Stores that classify as plates or unknown fail with a
// ClassificationError.
func OpenDataTree(ctx context.Context, path string, opts ...Option) (*xarr.DataTree, error) {
	store, doc, err := openImage(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	ms := doc.Multiscales[0]
	tree := &xarr.DataTree{Attrs: DocumentToAttrs(doc)}
	for i := range ms.Datasets {
		ds, err := assembleLevel(ctx, store, doc, i)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to assemble level %d: %w", i, err)
		}
		tree.Children = append(tree.Children, xarr.TreeNode{
			Name:    fmt.Sprintf("scale%d", i),
			Dataset: ds,
		})
	}
	return tree, nil
}

// OpenDataset opens a single resolution level (0 is the highest resolution
// by convention) as a labeled dataset.
func OpenDataset(ctx context.Context, path string, resolution int, opts ...Option) (*xarr.Dataset, error) {
	store, doc, err := openImage(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	ms := doc.Multiscales[0]
	if resolution < 0 || resolution >= len(ms.Datasets) {
		store.Close()
		return nil, fmt.Errorf("%w: level %d requested, store declares levels 0-%d",
			ErrResolutionRange, resolution, len(ms.Datasets)-1)
	}

	ds, err := assembleLevel(ctx, store, doc, resolution)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to assemble level %d: %w", resolution, err)
	}
	return ds, nil
}

// openImage opens the store, classifies it, and parses the metadata
// document. The caller owns the store on success.
func openImage(ctx context.Context, path string, opts []Option) (*zarr.Store, *ngff.Document, error) {
	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	store, err := zarr.OpenStore(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	raw, err := store.ReadAttrs(ctx, "")
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	if kind := ngff.Classify(raw); kind != ngff.KindImage {
		store.Close()
		return nil, nil, &ClassificationError{Kind: kind}
	}

	doc, err := ngff.DocumentFromRaw(raw)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	if o.validate {
		if err := ngff.Validate(doc); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	return store, doc, nil
}

// assembleLevel combines one level's lazy array, computed coordinates, and
// bridged metadata into a dataset. The dataset attrs carry the level's own
// transform verbatim so a later write can restore it exactly.
func assembleLevel(ctx context.Context, store *zarr.Store, doc *ngff.Document, level int) (*xarr.Dataset, error) {
	ms := doc.Multiscales[0]
	entry := ms.Datasets[level]

	prefix := strings.TrimSuffix(entry.Path, "/")
	if prefix != "" {
		prefix += "/"
	}
	arr, err := zarr.OpenArray(ctx, store, prefix)
	if err != nil {
		return nil, err
	}

	axes := ms.Axes
	if len(axes) == 0 {
		axes = defaultAxes(len(arr.Shape()))
	}

	scale, translation, err := doc.LevelTransforms(level)
	if err != nil {
		return nil, err
	}

	coords, err := TransformToCoords(arr.Shape(), axes, scale, translation, doc.ChannelLabels())
	if err != nil {
		return nil, err
	}

	dims := make([]string, len(axes))
	for i, ax := range axes {
		dims[i] = ax.Name
	}

	name := ms.Name
	if name == "" {
		name = "image"
	}

	ds := xarr.NewDataset(&xarr.DataArray{
		Name:   name,
		Dims:   dims,
		Coords: coords,
		Data:   arr,
	})
	ds.Attrs = DocumentToAttrs(doc)
	ds.Attrs[AttrScale] = scale
	ds.Attrs[AttrTranslation] = translation
	ds.Attrs[AttrResolution] = level
	return ds, nil
}

// defaultAxes names dimensions for stores predating the axes field
// (NGFF < 0.3), which fixed the order t, c, z, y, x.
func defaultAxes(rank int) []ngff.Axis {
	full := []ngff.Axis{
		{Name: "t", Type: ngff.AxisTypeTime},
		{Name: "c", Type: ngff.AxisTypeChannel},
		{Name: "z", Type: ngff.AxisTypeSpace},
		{Name: "y", Type: ngff.AxisTypeSpace},
		{Name: "x", Type: ngff.AxisTypeSpace},
	}
	if rank >= len(full) {
		return full
	}
	return full[len(full)-rank:]
}
