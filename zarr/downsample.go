package zarr

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Downsample reduces an array by integer factors per dimension using a
// block mean. factors[i] == 1 leaves dimension i untouched; dimensions that
// do not divide evenly keep a truncated trailing block. Returns the reduced
// flat buffer and its shape.
func Downsample(data []byte, shape []int, dtype string, factors []int) ([]byte, []int, error) {
	if len(factors) != len(shape) {
		return nil, nil, fmt.Errorf("factor rank %d does not match shape rank %d", len(factors), len(shape))
	}
	_, itemSize, err := ParseDType(dtype)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid dtype: %w", err)
	}

	outShape := make([]int, len(shape))
	for i := range shape {
		if factors[i] < 1 {
			return nil, nil, fmt.Errorf("factor %d at dimension %d, must be >= 1", factors[i], i)
		}
		outShape[i] = (shape[i] + factors[i] - 1) / factors[i]
	}

	outTotal := 1
	for _, dim := range outShape {
		outTotal *= dim
	}
	out := make([]byte, outTotal*itemSize)

	inStrides := strides(shape)
	outStrides := strides(outShape)

	outCoord := make([]int, len(outShape))
	blockRel := make([]int, len(shape))
	var walkOut func(dim int) error
	walkOut = func(dim int) error {
		if dim == len(outShape) {
			mean, err := blockMean(data, dtype, itemSize, shape, inStrides, outCoord, factors, blockRel)
			if err != nil {
				return err
			}
			idx := 0
			for i, c := range outCoord {
				idx += c * outStrides[i]
			}
			writeValue(out[idx*itemSize:], dtype, mean)
			return nil
		}
		for i := 0; i < outShape[dim]; i++ {
			outCoord[dim] = i
			if err := walkOut(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walkOut(0); err != nil {
		return nil, nil, err
	}
	return out, outShape, nil
}

// blockMean averages the input block that maps onto one output element.
func blockMean(data []byte, dtype string, itemSize int, shape, inStrides, outCoord, factors, rel []int) (float64, error) {
	sum := 0.0
	count := 0
	var walk func(dim int) error
	walk = func(dim int) error {
		if dim == len(shape) {
			idx := 0
			for i := range shape {
				idx += (outCoord[i]*factors[i] + rel[i]) * inStrides[i]
			}
			v, err := readValue(data[idx*itemSize:], dtype)
			if err != nil {
				return err
			}
			sum += v
			count++
			return nil
		}
		span := factors[dim]
		if end := shape[dim] - outCoord[dim]*factors[dim]; end < span {
			span = end
		}
		for i := 0; i < span; i++ {
			rel[dim] = i
			if err := walk(dim + 1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	return sum / float64(count), nil
}

func readValue(b []byte, dtype string) (float64, error) {
	switch dtype {
	case "<f4":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case "<f8":
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
	case "<i4":
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case "<i8":
		return float64(int64(binary.LittleEndian.Uint64(b))), nil
	case "<u2":
		return float64(binary.LittleEndian.Uint16(b)), nil
	case "|u1":
		return float64(b[0]), nil
	default:
		return 0, fmt.Errorf("unsupported dtype for downsampling: %s", dtype)
	}
}

func writeValue(b []byte, dtype string, v float64) {
	switch dtype {
	case "<f4":
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case "<f8":
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case "<i4":
		binary.LittleEndian.PutUint32(b, uint32(int32(math.Round(v))))
	case "<i8":
		binary.LittleEndian.PutUint64(b, uint64(int64(math.Round(v))))
	case "<u2":
		binary.LittleEndian.PutUint16(b, uint16(math.Round(v)))
	case "|u1":
		b[0] = byte(math.Round(v))
	}
}
