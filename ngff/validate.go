package ngff

import "fmt"

var knownVersions = map[string]bool{
	"0.1": true,
	"0.2": true,
	"0.3": true,
	"0.4": true,
	"0.5": true,
}

// Validate checks a document for conformance with the multiscales schema.
// It is intentionally stricter than ParseDocument: parsing accepts anything
// JSON-shaped so best-effort reads keep working, while Validate is the
// opt-in gate for callers that want spec conformance before assembly.
func Validate(doc *Document) error {
	if len(doc.Multiscales) == 0 {
		return fmt.Errorf("no multiscales block")
	}
	for mi, ms := range doc.Multiscales {
		if ms.Version != "" && !knownVersions[ms.Version] {
			return fmt.Errorf("multiscales[%d]: unknown version %q", mi, ms.Version)
		}
		if len(ms.Axes) > 0 {
			if len(ms.Axes) < 2 || len(ms.Axes) > 5 {
				return fmt.Errorf("multiscales[%d]: %d axes, spec allows 2-5", mi, len(ms.Axes))
			}
			if err := validateAxes(ms.Axes); err != nil {
				return fmt.Errorf("multiscales[%d]: %w", mi, err)
			}
		}
		if len(ms.Datasets) == 0 {
			return fmt.Errorf("multiscales[%d]: empty datasets list", mi)
		}
		for di, ds := range ms.Datasets {
			if ds.Path == "" {
				return fmt.Errorf("multiscales[%d].datasets[%d]: missing path", mi, di)
			}
			if err := validateTransforms(ds.CoordinateTransformations, len(ms.Axes)); err != nil {
				return fmt.Errorf("multiscales[%d].datasets[%d]: %w", mi, di, err)
			}
		}
	}
	return nil
}

func validateAxes(axes []Axis) error {
	seen := make(map[string]bool, len(axes))
	spaceCount := 0
	firstSpace := -1
	for i, ax := range axes {
		if ax.Name == "" {
			return fmt.Errorf("axes[%d]: missing name", i)
		}
		if seen[ax.Name] {
			return fmt.Errorf("axes[%d]: duplicate name %q", i, ax.Name)
		}
		seen[ax.Name] = true
		if ax.Type == AxisTypeSpace {
			spaceCount++
			if firstSpace < 0 {
				firstSpace = i
			}
		} else if firstSpace >= 0 {
			// Space axes must be contiguous and last in the axis list.
			return fmt.Errorf("axis %q follows a space axis", ax.Name)
		}
	}
	if spaceCount < 2 || spaceCount > 3 {
		return fmt.Errorf("%d space axes, spec requires 2 or 3", spaceCount)
	}
	return nil
}

func validateTransforms(cts []CoordinateTransformation, naxes int) error {
	if len(cts) == 0 {
		return fmt.Errorf("missing coordinateTransformations")
	}
	if cts[0].Type != "scale" {
		return fmt.Errorf("first transform must be scale, got %q", cts[0].Type)
	}
	for i, ct := range cts {
		switch ct.Type {
		case "scale":
			if naxes > 0 && len(ct.Scale) != naxes {
				return fmt.Errorf("transform[%d]: scale has %d entries for %d axes", i, len(ct.Scale), naxes)
			}
			for j, s := range ct.Scale {
				if s <= 0 {
					return fmt.Errorf("transform[%d]: non-positive scale %v at axis %d", i, s, j)
				}
			}
		case "translation":
			if naxes > 0 && len(ct.Translation) != naxes {
				return fmt.Errorf("transform[%d]: translation has %d entries for %d axes", i, len(ct.Translation), naxes)
			}
		default:
			return fmt.Errorf("transform[%d]: unsupported type %q", i, ct.Type)
		}
	}
	return nil
}
