package zarr

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// CreateArray writes a full array under prefix: its .zarray document plus
// every chunk, compressed per meta.Compressor. data is flat C-order bytes
// whose length must agree with shape and dtype.
func CreateArray(ctx context.Context, store *Store, prefix string, meta *Metadata, data []byte) (*Array, error) {
	itemSize, err := meta.ItemSize()
	if err != nil {
		return nil, fmt.Errorf("invalid dtype: %w", err)
	}
	total := itemSize
	for _, dim := range meta.Shape {
		total *= dim
	}
	if len(data) != total {
		return nil, fmt.Errorf("data length %d does not match shape %v (%d bytes expected)", len(data), meta.Shape, total)
	}
	if len(meta.Chunks) != len(meta.Shape) {
		return nil, fmt.Errorf("chunk rank %d does not match shape rank %d", len(meta.Chunks), len(meta.Shape))
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to encode .zarray: %w", err)
	}
	if err := store.WriteAll(ctx, prefix+".zarray", encoded); err != nil {
		return nil, err
	}

	arr := &Array{store: store, prefix: prefix, meta: meta}

	if len(meta.Shape) == 0 {
		chunk, err := compress(data, meta.Compressor)
		if err != nil {
			return nil, err
		}
		if err := store.WriteAll(ctx, prefix+"0", chunk); err != nil {
			return nil, err
		}
		return arr, nil
	}

	globalStrides := strides(meta.Shape)
	chunkStrides := strides(meta.Chunks)
	chunkBytes := itemSize
	for _, dim := range meta.Chunks {
		chunkBytes *= dim
	}

	err = arr.eachChunk(GridShape(meta.Shape, meta.Chunks), func(coords []int) error {
		copyShape := make([]int, len(meta.Shape))
		srcOffset := make([]int, len(meta.Shape))
		dstOffset := make([]int, len(meta.Shape))
		for i, c := range coords {
			chunkStart := c * meta.Chunks[i]
			chunkEnd := min(chunkStart+meta.Chunks[i], meta.Shape[i])
			copyShape[i] = chunkEnd - chunkStart
			srcOffset[i] = chunkStart
		}

		// Edge chunks are stored at the full chunk shape, zero padded.
		buf := make([]byte, chunkBytes)
		copyND(buf, chunkStrides, dstOffset, data, globalStrides, srcOffset, copyShape, itemSize)

		payload, err := compress(buf, meta.Compressor)
		if err != nil {
			return err
		}
		key := prefix + ChunkKey(coords, meta.Separator())
		return store.WriteAll(ctx, key, payload)
	})
	if err != nil {
		return nil, err
	}
	return arr, nil
}

func compress(data []byte, cfg *CompressorConfig) ([]byte, error) {
	if cfg == nil {
		return data, nil
	}
	switch cfg.ID {
	case "zstd":
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd writer: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compressor for writing: %s", cfg.ID)
	}
}

// DefaultChunks picks chunk sizes for a shape: whole dimensions, capped at
// 256 elements per dimension.
func DefaultChunks(shape []int) []int {
	const maxChunk = 256
	chunks := make([]int, len(shape))
	for i, dim := range shape {
		if dim > maxChunk {
			chunks[i] = maxChunk
		} else if dim < 1 {
			chunks[i] = 1
		} else {
			chunks[i] = dim
		}
	}
	return chunks
}
