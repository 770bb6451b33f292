package xarr

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Tensor materializes the array into a gomlx tensor. This is the one place
// the lazy handle is forced; everything upstream of it stays deferred.
func (da *DataArray) Tensor(ctx context.Context) (*tensors.Tensor, error) {
	raw, err := da.Data.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read array %q: %w", da.Name, err)
	}
	shape := da.Data.Shape()

	switch dt := da.Data.DType(); dt {
	case "<f4":
		vals := make([]float32, len(raw)/4)
		for i := range vals {
			vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	case "<f8":
		vals := make([]float64, len(raw)/8)
		for i := range vals {
			vals[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	case "<i4":
		vals := make([]int32, len(raw)/4)
		for i := range vals {
			vals[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
		}
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	case "<i8":
		vals := make([]int64, len(raw)/8)
		for i := range vals {
			vals[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	case "|u1":
		vals := make([]uint8, len(raw))
		copy(vals, raw)
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	case "<u2":
		vals := make([]uint16, len(raw)/2)
		for i := range vals {
			vals[i] = binary.LittleEndian.Uint16(raw[i*2:])
		}
		return tensors.FromFlatDataAndDimensions(vals, shape...), nil
	default:
		return nil, fmt.Errorf("unsupported dtype for tensor materialization: %s", dt)
	}
}
