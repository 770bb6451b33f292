package zarr

import (
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"gocloud.dev/gcerrors"
)

// Array is a lazy handle on one Zarr v2 array within a store. Opening an
// array reads only its .zarray document; chunk payloads are fetched when
// Read, ReadRegion, or ReadChunk is called.
type Array struct {
	store  *Store
	prefix string
	meta   *Metadata
}

// OpenArray opens the array stored under prefix ("" for the bucket root,
// "0/" for the first level of a pyramid).
func OpenArray(ctx context.Context, store *Store, prefix string) (*Array, error) {
	data, err := store.ReadAll(ctx, prefix+".zarray")
	if err != nil {
		return nil, fmt.Errorf("failed to open array at %q: %w", prefix, err)
	}
	meta, err := LoadMetadata(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load array metadata at %q: %w", prefix, err)
	}
	return &Array{store: store, prefix: prefix, meta: meta}, nil
}

// Metadata returns the array's .zarray document.
func (a *Array) Metadata() *Metadata { return a.meta }

// Shape returns the array's shape.
func (a *Array) Shape() []int { return a.meta.Shape }

// DType returns the numpy-style dtype string (e.g. "<f4").
func (a *Array) DType() string { return a.meta.DType }

// Close releases the store shared by all arrays opened from it.
func (a *Array) Close() error { return a.store.Close() }

// Read materializes the whole array into a flat C-order byte slice,
// stitching chunks together. Missing chunks fill with zero bytes.
func (a *Array) Read(ctx context.Context) ([]byte, error) {
	itemSize, err := a.meta.ItemSize()
	if err != nil {
		return nil, fmt.Errorf("invalid dtype: %w", err)
	}

	total := itemSize
	for _, dim := range a.meta.Shape {
		total *= dim
	}
	buffer := make([]byte, total)

	if len(a.meta.Shape) == 0 {
		chunk, err := a.ReadChunk(ctx, nil)
		if err != nil {
			return nil, err
		}
		copy(buffer, chunk)
		return buffer, nil
	}

	return buffer, a.eachChunk(GridShape(a.meta.Shape, a.meta.Chunks), func(coords []int) error {
		return a.stitchChunk(ctx, coords, buffer, itemSize)
	})
}

// ReadRegion materializes an n-dimensional region as flat C-order bytes.
func (a *Array) ReadRegion(ctx context.Context, start, shape []int) ([]byte, error) {
	if len(start) != len(a.meta.Shape) || len(shape) != len(a.meta.Shape) {
		return nil, fmt.Errorf("start and shape must match array dimensionality")
	}
	for i := range a.meta.Shape {
		if start[i] < 0 || shape[i] <= 0 || start[i]+shape[i] > a.meta.Shape[i] {
			return nil, fmt.Errorf("region out of bounds at dimension %d", i)
		}
	}
	itemSize, err := a.meta.ItemSize()
	if err != nil {
		return nil, fmt.Errorf("invalid dtype: %w", err)
	}

	total := itemSize
	for _, dim := range shape {
		total *= dim
	}
	out := make([]byte, total)

	if len(a.meta.Shape) == 0 {
		return a.ReadChunk(ctx, nil)
	}

	minChunk := make([]int, len(start))
	gridSpan := make([]int, len(start))
	for i := range start {
		minChunk[i] = start[i] / a.meta.Chunks[i]
		gridSpan[i] = (start[i]+shape[i]-1)/a.meta.Chunks[i] - minChunk[i] + 1
	}

	dstStrides := strides(shape)
	chunkStrides := strides(a.meta.Chunks)

	err = a.eachChunk(gridSpan, func(rel []int) error {
		coords := make([]int, len(rel))
		for i := range rel {
			coords[i] = minChunk[i] + rel[i]
		}
		chunkData, err := a.ReadChunk(ctx, coords)
		if err != nil {
			return err
		}

		copyShape := make([]int, len(a.meta.Shape))
		srcOffset := make([]int, len(a.meta.Shape))
		dstOffset := make([]int, len(a.meta.Shape))
		for i := range a.meta.Shape {
			chunkStart := coords[i] * a.meta.Chunks[i]
			chunkEnd := min(chunkStart+a.meta.Chunks[i], a.meta.Shape[i])

			lo := max(chunkStart, start[i])
			hi := min(chunkEnd, start[i]+shape[i])
			if lo >= hi {
				return nil
			}
			copyShape[i] = hi - lo
			srcOffset[i] = lo - chunkStart
			dstOffset[i] = lo - start[i]
		}

		copyND(out, dstStrides, dstOffset, chunkData, chunkStrides, srcOffset, copyShape, itemSize)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadChunk fetches and decompresses a single chunk. A missing chunk comes
// back zero-filled at the full chunk size.
func (a *Array) ReadChunk(ctx context.Context, coords []int) ([]byte, error) {
	key := a.prefix + ChunkKey(coords, a.meta.Separator())

	data, err := a.store.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			itemSize, derr := a.meta.ItemSize()
			if derr != nil {
				return nil, fmt.Errorf("invalid dtype: %w", derr)
			}
			n := itemSize
			for _, dim := range a.meta.Chunks {
				n *= dim
			}
			if len(a.meta.Shape) == 0 {
				n = itemSize
			}
			return make([]byte, n), nil
		}
		return nil, err
	}
	return decompress(data, a.meta.Compressor, key)
}

func decompress(data []byte, cfg *CompressorConfig, key string) ([]byte, error) {
	if cfg == nil {
		return data, nil
	}
	switch cfg.ID {
	case "zstd":
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer decoder.Close()
		out, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zstd chunk %s: %w", key, err)
		}
		return out, nil
	case "zlib", "gzip":
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to init zlib reader for chunk %s: %w", key, err)
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress zlib chunk %s: %w", key, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compressor: %s", cfg.ID)
	}
}

// stitchChunk copies one chunk into its place in the full-array buffer.
func (a *Array) stitchChunk(ctx context.Context, coords []int, buffer []byte, itemSize int) error {
	chunkData, err := a.ReadChunk(ctx, coords)
	if err != nil {
		return err
	}

	copyShape := make([]int, len(a.meta.Shape))
	srcOffset := make([]int, len(a.meta.Shape))
	dstOffset := make([]int, len(a.meta.Shape))
	for i, c := range coords {
		chunkStart := c * a.meta.Chunks[i]
		chunkEnd := min(chunkStart+a.meta.Chunks[i], a.meta.Shape[i])
		copyShape[i] = chunkEnd - chunkStart
		dstOffset[i] = chunkStart
	}

	copyND(buffer, strides(a.meta.Shape), dstOffset, chunkData, strides(a.meta.Chunks), srcOffset, copyShape, itemSize)
	return nil
}

// eachChunk visits every coordinate of an n-dimensional grid in C order.
func (a *Array) eachChunk(grid []int, fn func(coords []int) error) error {
	coords := make([]int, len(grid))
	var walk func(dim int) error
	walk = func(dim int) error {
		if dim == len(grid) {
			return fn(coords)
		}
		for i := 0; i < grid[dim]; i++ {
			coords[dim] = i
			if err := walk(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(0)
}

// copyND copies an n-dimensional block between two flat C-order buffers.
// Element counts in strides/offsets; byte addressing derives from itemSize.
func copyND(
	dst []byte, dstStrides, dstOffset []int,
	src []byte, srcStrides, srcOffset []int,
	copyShape []int, itemSize int,
) {
	if len(copyShape) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}

	srcBase := 0
	dstBase := 0
	for i := range copyShape {
		srcBase += srcOffset[i] * srcStrides[i]
		dstBase += dstOffset[i] * dstStrides[i]
	}

	var iterate func(dim, srcIdx, dstIdx int)
	iterate = func(dim, srcIdx, dstIdx int) {
		if dim == len(copyShape)-1 {
			n := copyShape[dim]
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				// Innermost dimension is contiguous on both sides.
				byteLen := n * itemSize
				copy(dst[dstIdx*itemSize:dstIdx*itemSize+byteLen], src[srcIdx*itemSize:srcIdx*itemSize+byteLen])
				return
			}
			for i := 0; i < n; i++ {
				s := (srcIdx + i*srcStrides[dim]) * itemSize
				d := (dstIdx + i*dstStrides[dim]) * itemSize
				copy(dst[d:d+itemSize], src[s:s+itemSize])
			}
			return
		}
		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, srcIdx+i*srcStrides[dim], dstIdx+i*dstStrides[dim])
		}
	}
	iterate(0, srcBase, dstBase)
}
