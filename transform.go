package omezarr

import (
	"fmt"

	"github.com/ianhi/xarray-ome/ngff"
	"github.com/ianhi/xarray-ome/xarr"
)

// TransformToCoords converts per-axis scale/translation transforms into
// explicit coordinate arrays, one per axis in declared order.
//
// Non-categorical axes get the arithmetic sequence
// translation + scale*i for i in [0, size). A channel axis is categorical:
// its coordinate is the declared label list, or synthesized labels
// "channel_0", "channel_1", ... when the store declares none. A declared
// label list whose length disagrees with the axis extent is rejected, never
// truncated or padded.
//
// Axes missing from scale or translation default to 1.0 and 0.0.
func TransformToCoords(shape []int, axes []ngff.Axis, scale, translation map[string]float64, channelLabels []string) ([]xarr.Coordinate, error) {
	if len(axes) != len(shape) {
		return nil, fmt.Errorf("%w: %d axes for %d array dimensions", ErrShapeMismatch, len(axes), len(shape))
	}

	coords := make([]xarr.Coordinate, len(axes))
	for i, ax := range axes {
		size := shape[i]

		if ax.Type == ngff.AxisTypeChannel {
			labels := channelLabels
			if labels == nil {
				labels = make([]string, size)
				for j := range labels {
					labels[j] = fmt.Sprintf("channel_%d", j)
				}
			} else if len(labels) != size {
				return nil, fmt.Errorf("%w: %d channel labels for axis %q with extent %d", ErrShapeMismatch, len(labels), ax.Name, size)
			}
			coords[i] = xarr.Coordinate{Name: ax.Name, Labels: labels}
			continue
		}

		s, ok := scale[ax.Name]
		if !ok {
			s = 1.0
		}
		t, ok := translation[ax.Name]
		if !ok {
			t = 0.0
		}
		values := make([]float64, size)
		for j := range values {
			values[j] = t + s*float64(j)
		}
		coords[i] = xarr.Coordinate{Name: ax.Name, Values: values}
	}
	return coords, nil
}

// CoordsToTransform recovers per-axis scale and translation from a dataset.
//
// When the dataset carries its original transform in attrs (AttrScale and
// AttrTranslation, set by every read), that is returned unchanged: the
// exact-fidelity path, and the only correct one for categorical axes whose
// labels cannot be inverted.
//
// Without the stored transform, each numeric coordinate is reduced to a
// two-point linear fit: scale = v[1]-v[0], translation = v[0] (scale 1.0
// and translation v[0], or 0.0 when empty, for sequences shorter than 2).
// Uniform spacing is assumed and not verified; non-uniform coordinates
// silently collapse to the fit. NGFF transforms are affine-only, so there
// is nothing better to recover into. Categorical axes fall back to
// scale 1.0, translation 0.0, which has no meaningful relation to the
// labels; callers that need round-trip fidelity must keep the attrs path
// intact.
func CoordsToTransform(ds *xarr.Dataset) (map[string]float64, map[string]float64) {
	if s, t, ok := storedTransform(ds.Attrs); ok {
		return s, t
	}

	scale := map[string]float64{}
	translation := map[string]float64{}
	da := ds.Primary()
	if da == nil {
		return scale, translation
	}

	for _, dim := range da.Dims {
		coord, ok := da.Coord(dim)
		switch {
		case !ok || coord.Categorical() || coord.Len() == 0:
			scale[dim] = 1.0
			translation[dim] = 0.0
		case coord.Len() == 1:
			scale[dim] = 1.0
			translation[dim] = coord.Values[0]
		default:
			scale[dim] = coord.Values[1] - coord.Values[0]
			translation[dim] = coord.Values[0]
		}
	}
	return scale, translation
}

func storedTransform(attrs map[string]any) (scale, translation map[string]float64, ok bool) {
	s, sok := attrs[AttrScale].(map[string]float64)
	t, tok := attrs[AttrTranslation].(map[string]float64)
	if !sok || !tok {
		return nil, nil, false
	}
	scale = make(map[string]float64, len(s))
	translation = make(map[string]float64, len(t))
	for k, v := range s {
		scale[k] = v
	}
	for k, v := range t {
		translation[k] = v
	}
	return scale, translation, true
}
