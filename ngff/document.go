// Package ngff models the OME-NGFF metadata document attached to the root
// of an OME-Zarr store. The document is decoded twice: once into typed
// structs for the fields this module understands, and once into a raw map
// that is kept verbatim so fields from newer or unknown schema revisions
// survive a read-modify-write cycle untouched.
package ngff

import (
	"encoding/json"
	"fmt"
)

// Axis is one entry of a multiscale "axes" list.
type Axis struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Orientation string `json:"orientation,omitempty"`
}

// UnmarshalJSON accepts both the v0.4 object form and the bare-string form
// used by NGFF 0.3 axes lists.
func (a *Axis) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*a = Axis{Name: name}
		return nil
	}
	type plain Axis
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Axis(p)
	return nil
}

// Axis type values defined by the NGFF spec.
const (
	AxisTypeSpace   = "space"
	AxisTypeChannel = "channel"
	AxisTypeTime    = "time"
)

// CoordinateTransformation is a single scale or translation transform.
// Exactly one of Scale/Translation is populated depending on Type.
type CoordinateTransformation struct {
	Type        string    `json:"type"`
	Scale       []float64 `json:"scale,omitempty"`
	Translation []float64 `json:"translation,omitempty"`
}

// DatasetEntry describes one resolution level of a multiscale pyramid.
type DatasetEntry struct {
	Path                      string                     `json:"path"`
	CoordinateTransformations []CoordinateTransformation `json:"coordinateTransformations,omitempty"`
}

// Multiscale is one entry of the root "multiscales" list.
type Multiscale struct {
	Version                   string                     `json:"version,omitempty"`
	Name                      string                     `json:"name,omitempty"`
	Axes                      []Axis                     `json:"axes,omitempty"`
	Datasets                  []DatasetEntry             `json:"datasets"`
	CoordinateTransformations []CoordinateTransformation `json:"coordinateTransformations,omitempty"`
}

// Window holds the omero rendering window of a channel.
type Window struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Channel is one omero channel record.
type Channel struct {
	Label  string  `json:"label,omitempty"`
	Color  string  `json:"color,omitempty"`
	Window *Window `json:"window,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Omero holds rendering metadata carried alongside the multiscales block.
type Omero struct {
	Channels []Channel `json:"channels,omitempty"`
}

// Document is a parsed OME-NGFF root metadata document. The typed fields
// are projections; Raw holds the complete original document and is
// authoritative for round-tripping.
type Document struct {
	Multiscales []Multiscale
	Omero       *Omero

	raw map[string]any
}

// ParseDocument decodes a root .zattrs payload.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode NGFF document: %w", err)
	}

	var typed struct {
		Multiscales []Multiscale `json:"multiscales"`
		Omero       *Omero       `json:"omero"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return nil, fmt.Errorf("failed to decode multiscales metadata: %w", err)
	}

	return &Document{
		Multiscales: typed.Multiscales,
		Omero:       typed.Omero,
		raw:         raw,
	}, nil
}

// DocumentFromRaw builds a Document from an already-decoded attribute map.
func DocumentFromRaw(raw map[string]any) (*Document, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode attributes: %w", err)
	}
	return ParseDocument(data)
}

// NewDocument wraps a freshly built multiscales/omero pair into a Document
// whose raw form is derived from the typed fields.
func NewDocument(ms Multiscale, omero *Omero) (*Document, error) {
	doc := map[string]any{"multiscales": []Multiscale{ms}}
	if omero != nil {
		doc["omero"] = omero
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode NGFF document: %w", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to normalize NGFF document: %w", err)
	}
	return &Document{
		Multiscales: []Multiscale{ms},
		Omero:       omero,
		raw:         raw,
	}, nil
}

// Raw returns the verbatim document map. Callers must not mutate it; use
// Clone for a writable copy.
func (d *Document) Raw() map[string]any {
	return d.raw
}

// Clone deep-copies the document, raw form included. The copy goes through
// JSON so nested maps and lists do not share storage with the original.
func (d *Document) Clone() (*Document, error) {
	data, err := d.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return ParseDocument(data)
}

// MarshalJSON encodes the verbatim form of the document.
func (d *Document) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(d.raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode NGFF document: %w", err)
	}
	return data, nil
}

// SetLevelTransforms replaces the coordinateTransformations of dataset
// level in both the typed view and the raw document. The raw edit keeps
// every sibling field of the dataset entry (and everything else in the
// document) untouched.
func (d *Document) SetLevelTransforms(level int, transforms []CoordinateTransformation) error {
	if len(d.Multiscales) == 0 {
		return fmt.Errorf("document has no multiscales block")
	}
	if level < 0 || level >= len(d.Multiscales[0].Datasets) {
		return fmt.Errorf("dataset level %d out of range (have %d)", level, len(d.Multiscales[0].Datasets))
	}
	d.Multiscales[0].Datasets[level].CoordinateTransformations = transforms

	encoded, err := json.Marshal(transforms)
	if err != nil {
		return fmt.Errorf("failed to encode transforms: %w", err)
	}
	var asAny any
	if err := json.Unmarshal(encoded, &asAny); err != nil {
		return fmt.Errorf("failed to normalize transforms: %w", err)
	}

	msList, ok := d.raw["multiscales"].([]any)
	if !ok || len(msList) == 0 {
		return fmt.Errorf("raw document has no multiscales list")
	}
	ms, ok := msList[0].(map[string]any)
	if !ok {
		return fmt.Errorf("raw multiscales entry is not an object")
	}
	dsList, ok := ms["datasets"].([]any)
	if !ok || level >= len(dsList) {
		return fmt.Errorf("raw datasets list missing level %d", level)
	}
	entry, ok := dsList[level].(map[string]any)
	if !ok {
		return fmt.Errorf("raw dataset entry %d is not an object", level)
	}
	entry["coordinateTransformations"] = asAny
	return nil
}

// LevelTransforms returns the named scale and translation for one dataset
// entry, applying the NGFF defaults (scale 1.0, translation 0.0) for axes
// that carry no transform.
func (d *Document) LevelTransforms(level int) (scale, translation map[string]float64, err error) {
	if len(d.Multiscales) == 0 {
		return nil, nil, fmt.Errorf("document has no multiscales block")
	}
	ms := d.Multiscales[0]
	if level < 0 || level >= len(ms.Datasets) {
		return nil, nil, fmt.Errorf("dataset level %d out of range (have %d)", level, len(ms.Datasets))
	}

	scale = make(map[string]float64, len(ms.Axes))
	translation = make(map[string]float64, len(ms.Axes))
	for _, ax := range ms.Axes {
		scale[ax.Name] = 1.0
		translation[ax.Name] = 0.0
	}

	apply := func(cts []CoordinateTransformation) {
		for _, ct := range cts {
			switch ct.Type {
			case "scale":
				for i, ax := range ms.Axes {
					if i < len(ct.Scale) {
						scale[ax.Name] = ct.Scale[i]
					}
				}
			case "translation":
				for i, ax := range ms.Axes {
					if i < len(ct.Translation) {
						translation[ax.Name] = ct.Translation[i]
					}
				}
			}
		}
	}
	// Per-dataset transforms first, then the optional top-level ones, which
	// NGFF defines as applying after each dataset's. A top-level scale acts
	// on the already-translated value, so it multiplies the translation too.
	apply(ms.Datasets[level].CoordinateTransformations)
	for _, ct := range ms.CoordinateTransformations {
		switch ct.Type {
		case "scale":
			for i, ax := range ms.Axes {
				if i < len(ct.Scale) {
					scale[ax.Name] *= ct.Scale[i]
					translation[ax.Name] *= ct.Scale[i]
				}
			}
		case "translation":
			for i, ax := range ms.Axes {
				if i < len(ct.Translation) {
					translation[ax.Name] += ct.Translation[i]
				}
			}
		}
	}
	return scale, translation, nil
}

// ChannelLabels returns the declared omero channel labels, or nil when the
// document carries none.
func (d *Document) ChannelLabels() []string {
	if d.Omero == nil || len(d.Omero.Channels) == 0 {
		return nil
	}
	labels := make([]string, len(d.Omero.Channels))
	any := false
	for i, ch := range d.Omero.Channels {
		labels[i] = ch.Label
		if ch.Label != "" {
			any = true
		}
	}
	if !any {
		return nil
	}
	return labels
}
