// Package zarr is the chunked-storage layer: Zarr v2 arrays and groups on
// top of gocloud.dev blob buckets. Array handles are lazy; chunk payloads
// are fetched only when a read is explicitly requested.
package zarr

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// CompressorConfig is the Zarr v2 compressor block.
type CompressorConfig struct {
	ID      string `json:"id"`
	Cname   string `json:"cname,omitempty"`
	Clevel  int    `json:"clevel,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// Metadata is a Zarr v2 .zarray document.
type Metadata struct {
	ZarrFormat         int               `json:"zarr_format"`
	Shape              []int             `json:"shape"`
	Chunks             []int             `json:"chunks"`
	DType              string            `json:"dtype"`
	Compressor         *CompressorConfig `json:"compressor"`
	FillValue          any               `json:"fill_value"`
	Order              string            `json:"order"`
	Filters            any               `json:"filters"`
	DimensionSeparator string            `json:"dimension_separator,omitempty"`
}

// LoadMetadata parses a .zarray payload.
func LoadMetadata(reader io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := json.NewDecoder(reader).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("unsupported zarr_format: %d, expected 2", meta.ZarrFormat)
	}
	return &meta, nil
}

// Separator returns the chunk-key separator, defaulting to "." per v2.
func (m *Metadata) Separator() string {
	if m.DimensionSeparator == "" {
		return "."
	}
	return m.DimensionSeparator
}

// ItemSize returns the per-element byte size of the array's dtype.
func (m *Metadata) ItemSize() (int, error) {
	_, size, err := ParseDType(m.DType)
	return size, err
}

// ParseDType takes a numpy-style string like "<f4", "|b1", "<i8" and
// returns a simplified name ("float32", "bool", "int64"), the byte size,
// and an error if unsupported. Big-endian (>) types are rejected.
func ParseDType(s string) (string, int, error) {
	if len(s) < 3 {
		return "", 0, fmt.Errorf("invalid dtype: %s", s)
	}
	if s[0] == '>' {
		return "", 0, fmt.Errorf("big-endian types are unsupported: %s", s)
	}

	kind := s[1]
	size, err := strconv.Atoi(s[2:])
	if err != nil {
		return "", 0, fmt.Errorf("invalid size in dtype: %s", s)
	}

	switch kind {
	case 'b':
		return "bool", size, nil
	case 'i':
		return fmt.Sprintf("int%d", size*8), size, nil
	case 'u':
		return fmt.Sprintf("uint%d", size*8), size, nil
	case 'f':
		return fmt.Sprintf("float%d", size*8), size, nil
	case 'c':
		return fmt.Sprintf("complex%d", size*8), size, nil
	default:
		return "", 0, fmt.Errorf("unsupported dtype kind: %c in %s", kind, s)
	}
}

// GridShape calculates the number of chunks per dimension,
// ceil(shape[i]/chunks[i]).
func GridShape(shape, chunks []int) []int {
	if len(shape) == 0 || len(chunks) == 0 {
		return []int{}
	}
	grid := make([]int, len(shape))
	for i := range shape {
		grid[i] = (shape[i] + chunks[i] - 1) / chunks[i]
	}
	return grid
}

// ChunkKey generates the storage key for a chunk from its grid indices.
// 0-d arrays use the single key "0" per the v2 spec.
func ChunkKey(indices []int, separator string) string {
	if len(indices) == 0 {
		return "0"
	}
	key := strconv.Itoa(indices[0])
	for _, idx := range indices[1:] {
		key += separator + strconv.Itoa(idx)
	}
	return key
}

// strides computes C-order strides for a shape.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}
