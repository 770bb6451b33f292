package zarr_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ianhi/xarray-ome/zarr"
)

func TestParseDType(t *testing.T) {
	tests := []struct {
		input       string
		expectedStr string
		expectedSz  int
		expectErr   bool
	}{
		{"<f4", "float32", 4, false},
		{"<f8", "float64", 8, false},
		{"<i8", "int64", 8, false},
		{"<u2", "uint16", 2, false},
		{"|u1", "uint8", 1, false},
		{"|b1", "bool", 1, false},
		{">f4", "", 0, true}, // big-endian should fail
		{"x2", "", 0, true},  // invalid encoding
		{"<x4", "", 0, true}, // unknown kind
		{"<i", "", 0, true},  // incomplete size
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			str, sz, err := zarr.ParseDType(tt.input)

			if tt.expectErr {
				if err == nil {
					t.Errorf("expected error for input %q, but got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error for input %q: %v", tt.input, err)
			}
			if str != tt.expectedStr {
				t.Errorf("expected string %q, got %q", tt.expectedStr, str)
			}
			if sz != tt.expectedSz {
				t.Errorf("expected size %d, got %d", tt.expectedSz, sz)
			}
		})
	}
}

func TestLoadMetadata(t *testing.T) {
	mockJSON := `{
		"zarr_format": 2,
		"shape": [128, 128],
		"chunks": [64, 64],
		"dtype": "<f4",
		"compressor": null,
		"fill_value": 0.0,
		"order": "C"
	}`

	meta, err := zarr.LoadMetadata(strings.NewReader(mockJSON))
	if err != nil {
		t.Fatalf("LoadMetadata failed: %v", err)
	}

	if !reflect.DeepEqual(meta.Shape, []int{128, 128}) {
		t.Errorf("expected shape [128 128], got %v", meta.Shape)
	}
	if !reflect.DeepEqual(meta.Chunks, []int{64, 64}) {
		t.Errorf("expected chunks [64 64], got %v", meta.Chunks)
	}
	if meta.DType != "<f4" {
		t.Errorf("expected dtype <f4, got %s", meta.DType)
	}
	if meta.Separator() != "." {
		t.Errorf("expected default separator '.', got %q", meta.Separator())
	}
}

func TestLoadMetadataWrongFormat(t *testing.T) {
	_, err := zarr.LoadMetadata(strings.NewReader(`{"zarr_format": 3, "shape": [], "chunks": [], "dtype": "<f4"}`))
	if err == nil {
		t.Fatal("expected error for zarr_format 3, got nil")
	}
}

func TestChunkKey(t *testing.T) {
	tests := []struct {
		indices   []int
		separator string
		expected  string
	}{
		{[]int{1, 4}, ".", "1.4"},
		{[]int{0, 0, 0}, ".", "0.0.0"},
		{[]int{10}, ".", "10"},
		{[]int{1, 2}, "/", "1/2"},
		{nil, ".", "0"}, // 0-d array
	}

	for _, tt := range tests {
		got := zarr.ChunkKey(tt.indices, tt.separator)
		if got != tt.expected {
			t.Errorf("ChunkKey(%v, %q) = %q, want %q", tt.indices, tt.separator, got, tt.expected)
		}
	}
}

func TestGridShape(t *testing.T) {
	got := zarr.GridShape([]int{10, 4}, []int{4, 4})
	if !reflect.DeepEqual(got, []int{3, 1}) {
		t.Errorf("GridShape([10 4], [4 4]) = %v, want [3 1]", got)
	}
}

func TestDefaultChunks(t *testing.T) {
	got := zarr.DefaultChunks([]int{2, 1000, 16})
	if !reflect.DeepEqual(got, []int{2, 256, 16}) {
		t.Errorf("DefaultChunks([2 1000 16]) = %v, want [2 256 16]", got)
	}
}
