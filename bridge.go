package omezarr

import (
	"fmt"

	"github.com/ianhi/xarray-ome/ngff"
)

// Attribute keys used as the side channel for metadata that has no native
// labeled-array representation. AttrMetadata holds the verbatim document
// and is authoritative; the other keys are derived projections of it and
// are never independently mutated after a read.
const (
	AttrMetadata         = "ome_ngff_metadata"
	AttrName             = "ome_name"
	AttrVersion          = "ome_version"
	AttrAxesTypes        = "ome_axes_types"
	AttrAxesUnits        = "ome_axes_units"
	AttrAxesOrientations = "ome_axes_orientations"
	AttrMultiscalePaths  = "ome_multiscale_paths"
	AttrNumResolutions   = "ome_num_resolutions"
	AttrChannelColors    = "ome_channel_colors"
	AttrChannelWindows   = "ome_channel_windows"
	AttrChannelLabels    = "ome_channel_labels"
	AttrScale            = "ome_scale"
	AttrTranslation      = "ome_translation"
	AttrResolution       = "ome_ngff_resolution"
)

// DocumentToAttrs projects a parsed document into flat side-channel
// attributes. Unrecognized fields are not dropped: the whole document rides
// along under AttrMetadata, so future schema fields survive a
// read-modify-write cycle untouched.
func DocumentToAttrs(doc *ngff.Document) map[string]any {
	attrs := map[string]any{AttrMetadata: doc}
	if len(doc.Multiscales) == 0 {
		return attrs
	}
	ms := doc.Multiscales[0]

	if ms.Name != "" {
		attrs[AttrName] = ms.Name
	}
	if ms.Version != "" {
		attrs[AttrVersion] = ms.Version
	}

	if len(ms.Axes) > 0 {
		types := make([]string, len(ms.Axes))
		units := map[string]string{}
		orientations := map[string]string{}
		for i, ax := range ms.Axes {
			types[i] = ax.Type
			if ax.Unit != "" {
				units[ax.Name] = ax.Unit
			}
			if ax.Orientation != "" {
				orientations[ax.Name] = ax.Orientation
			}
		}
		attrs[AttrAxesTypes] = types
		if len(units) > 0 {
			attrs[AttrAxesUnits] = units
		}
		if len(orientations) > 0 {
			attrs[AttrAxesOrientations] = orientations
		}
	}

	if len(ms.Datasets) > 0 {
		paths := make([]string, len(ms.Datasets))
		for i, d := range ms.Datasets {
			paths[i] = d.Path
		}
		attrs[AttrMultiscalePaths] = paths
		attrs[AttrNumResolutions] = len(ms.Datasets)
	}

	if doc.Omero != nil && len(doc.Omero.Channels) > 0 {
		colors := make([]string, len(doc.Omero.Channels))
		anyColor := false
		var windows []ngff.Window
		for i, ch := range doc.Omero.Channels {
			colors[i] = ch.Color
			if ch.Color != "" {
				anyColor = true
			}
			if ch.Window != nil {
				windows = append(windows, *ch.Window)
			}
		}
		if anyColor {
			attrs[AttrChannelColors] = colors
		}
		if len(windows) > 0 {
			attrs[AttrChannelWindows] = windows
		}
		if labels := doc.ChannelLabels(); labels != nil {
			attrs[AttrChannelLabels] = labels
		}
	}

	return attrs
}

// AttrsToDocument reconstructs a metadata document for writing.
//
// When the side channel still holds the verbatim document and its dataset
// count matches the levels being written, the result is a deep copy of that
// document with the recovered transforms spliced in; everything else passes
// through unchanged. Otherwise a minimal valid document is synthesized from
// the flat attributes, the dimension names, and the channel labels.
func AttrsToDocument(attrs map[string]any, dims []string, levelTransforms [][]ngff.CoordinateTransformation, channelLabels []string) (*ngff.Document, error) {
	if prior, ok := attrs[AttrMetadata].(*ngff.Document); ok && len(prior.Multiscales) > 0 &&
		len(prior.Multiscales[0].Datasets) == len(levelTransforms) {
		doc, err := prior.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to copy prior metadata: %w", err)
		}
		for i, cts := range levelTransforms {
			cts = keepDeclaredTranslation(prior.Multiscales[0].Datasets[i].CoordinateTransformations, cts)
			if err := doc.SetLevelTransforms(i, cts); err != nil {
				return nil, err
			}
		}
		return doc, nil
	}
	return synthesizeDocument(attrs, dims, levelTransforms, channelLabels)
}

// keepDeclaredTranslation restores a translation entry the recovery step
// collapsed away. A source entry that declared an all-zero translation keeps
// it on write, so an unmodified read-write cycle reproduces the source
// document exactly.
func keepDeclaredTranslation(declared, cts []ngff.CoordinateTransformation) []ngff.CoordinateTransformation {
	for _, ct := range cts {
		if ct.Type == "translation" {
			return cts
		}
	}
	for _, ct := range declared {
		if ct.Type == "translation" {
			out := append([]ngff.CoordinateTransformation{}, cts...)
			return append(out, ngff.CoordinateTransformation{
				Type:        "translation",
				Translation: make([]float64, len(ct.Translation)),
			})
		}
	}
	return cts
}

func synthesizeDocument(attrs map[string]any, dims []string, levelTransforms [][]ngff.CoordinateTransformation, channelLabels []string) (*ngff.Document, error) {
	axes := make([]ngff.Axis, len(dims))
	types := asStringSlice(attrs[AttrAxesTypes])
	if types != nil && len(types) != len(dims) {
		return nil, fmt.Errorf("%w: %d axis types for %d dimensions", ErrShapeMismatch, len(types), len(dims))
	}
	units := asStringMap(attrs[AttrAxesUnits])
	orientations := asStringMap(attrs[AttrAxesOrientations])
	for i, dim := range dims {
		ax := ngff.Axis{Name: dim}
		if types != nil {
			ax.Type = types[i]
		} else {
			ax.Type = guessAxisType(dim)
		}
		if u, ok := units[dim]; ok {
			ax.Unit = u
		}
		if o, ok := orientations[dim]; ok {
			ax.Orientation = o
		}
		axes[i] = ax
	}

	version := "0.4"
	if v, ok := attrs[AttrVersion].(string); ok && v != "" {
		version = v
	}

	datasets := make([]ngff.DatasetEntry, len(levelTransforms))
	for i, cts := range levelTransforms {
		datasets[i] = ngff.DatasetEntry{
			Path:                      fmt.Sprintf("%d", i),
			CoordinateTransformations: cts,
		}
	}

	ms := ngff.Multiscale{
		Version:  version,
		Axes:     axes,
		Datasets: datasets,
	}
	if name, ok := attrs[AttrName].(string); ok {
		ms.Name = name
	}

	omero := synthesizeOmero(attrs, channelLabels)
	return ngff.NewDocument(ms, omero)
}

func synthesizeOmero(attrs map[string]any, channelLabels []string) *ngff.Omero {
	colors := asStringSlice(attrs[AttrChannelColors])
	windows, _ := attrs[AttrChannelWindows].([]ngff.Window)

	n := len(channelLabels)
	if len(colors) > n {
		n = len(colors)
	}
	if len(windows) > n {
		n = len(windows)
	}
	if n == 0 {
		return nil
	}

	channels := make([]ngff.Channel, n)
	for i := range channels {
		if i < len(channelLabels) {
			channels[i].Label = channelLabels[i]
		}
		if i < len(colors) {
			channels[i].Color = colors[i]
		}
		if i < len(windows) {
			w := windows[i]
			channels[i].Window = &w
		}
	}
	return &ngff.Omero{Channels: channels}
}

// guessAxisType maps the conventional single-letter dimension names used
// across OME-Zarr tooling to axis types.
func guessAxisType(dim string) string {
	switch dim {
	case "x", "y", "z":
		return ngff.AxisTypeSpace
	case "c":
		return ngff.AxisTypeChannel
	case "t":
		return ngff.AxisTypeTime
	default:
		return ""
	}
}

func asStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			s, _ := e.(string)
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func asStringMap(v any) map[string]string {
	switch vv := v.(type) {
	case map[string]string:
		return vv
	case map[string]any:
		out := make(map[string]string, len(vv))
		for k, e := range vv {
			if s, ok := e.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return map[string]string{}
	}
}
