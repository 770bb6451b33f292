// Package xarr is a small labeled-array model: n-dimensional arrays with
// named dimensions, per-dimension coordinate values, free-form attributes,
// and a tree container for multiscale pyramids. Array payloads stay lazy;
// a container only holds a handle and never forces evaluation itself.
package xarr

import (
	"context"
	"fmt"
	"io"
)

// Array is a lazy n-dimensional array handle. Read materializes the full
// payload as little-endian bytes in C order; implementations decide how and
// when chunks are fetched.
type Array interface {
	Shape() []int
	DType() string
	Read(ctx context.Context) ([]byte, error)
}

// Coordinate holds the per-index values of one dimension. Exactly one of
// Values (numeric) or Labels (categorical) is set.
type Coordinate struct {
	Name   string
	Values []float64
	Labels []string
}

// Categorical reports whether the coordinate carries labels instead of
// numeric values.
func (c Coordinate) Categorical() bool { return c.Labels != nil }

// Len returns the number of coordinate entries.
func (c Coordinate) Len() int {
	if c.Labels != nil {
		return len(c.Labels)
	}
	return len(c.Values)
}

// DataArray binds an array handle to named dimensions and coordinates.
// Coords are ordered to match Dims.
type DataArray struct {
	Name   string
	Dims   []string
	Coords []Coordinate
	Data   Array
}

// Coord looks up a coordinate by dimension name.
func (da *DataArray) Coord(name string) (Coordinate, bool) {
	for _, c := range da.Coords {
		if c.Name == name {
			return c, true
		}
	}
	return Coordinate{}, false
}

// Dataset is a collection of data arrays plus attributes. The first array
// is the primary one; single-image stores produce exactly one.
type Dataset struct {
	Arrays []*DataArray
	Attrs  map[string]any
}

// NewDataset builds a dataset around the given arrays.
func NewDataset(arrays ...*DataArray) *Dataset {
	return &Dataset{Arrays: arrays, Attrs: map[string]any{}}
}

// Primary returns the first data array, or nil for an empty dataset.
func (ds *Dataset) Primary() *DataArray {
	if len(ds.Arrays) == 0 {
		return nil
	}
	return ds.Arrays[0]
}

// Close releases any closable array handles.
func (ds *Dataset) Close() error {
	var first error
	for _, da := range ds.Arrays {
		if c, ok := da.Data.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// TreeNode is one named child of a DataTree.
type TreeNode struct {
	Name    string
	Dataset *Dataset
}

// DataTree is a two-level container: root attributes plus ordered child
// datasets. Children keep the order of the source metadata's dataset list.
type DataTree struct {
	Attrs    map[string]any
	Children []TreeNode
}

// Child returns the dataset of the named child, or nil.
func (t *DataTree) Child(name string) *Dataset {
	for _, n := range t.Children {
		if n.Name == name {
			return n.Dataset
		}
	}
	return nil
}

// Close releases array handles across all children.
func (t *DataTree) Close() error {
	var first error
	for _, n := range t.Children {
		if err := n.Dataset.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// inMemoryArray is an eager Array for programmatically built containers.
type inMemoryArray struct {
	data  []byte
	shape []int
	dtype string
}

// NewArray wraps raw little-endian C-order bytes as an Array. The byte
// length must agree with shape and dtype item size.
func NewArray(data []byte, shape []int, dtype string, itemSize int) (Array, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	if len(data) != n*itemSize {
		return nil, fmt.Errorf("data length %d does not match shape %v with item size %d", len(data), shape, itemSize)
	}
	return &inMemoryArray{data: data, shape: shape, dtype: dtype}, nil
}

func (a *inMemoryArray) Shape() []int { return a.shape }
func (a *inMemoryArray) DType() string { return a.dtype }

func (a *inMemoryArray) Read(ctx context.Context) ([]byte, error) {
	out := make([]byte, len(a.data))
	copy(out, a.data)
	return out, nil
}
