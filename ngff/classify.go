package ngff

// StoreKind is the result of classifying a store's root metadata.
type StoreKind string

const (
	KindImage   StoreKind = "image"
	KindPlate   StoreKind = "plate"
	KindUnknown StoreKind = "unknown"
)

// Classify inspects a root attribute map and reports what kind of OME-Zarr
// store it belongs to. It looks only at the declared schema keys and never
// touches array data, so it works even when chunk payloads are unreadable.
// Every input, including nil, maps to exactly one kind.
func Classify(raw map[string]any) StoreKind {
	if raw == nil {
		return KindUnknown
	}
	if _, ok := raw["plate"]; ok {
		return KindPlate
	}
	if _, ok := raw["well"]; ok {
		return KindPlate
	}
	if ms, ok := raw["multiscales"]; ok {
		if list, ok := ms.([]any); ok && len(list) > 0 {
			return KindImage
		}
		return KindUnknown
	}
	return KindUnknown
}
