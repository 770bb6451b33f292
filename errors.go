package omezarr

import (
	"errors"
	"fmt"

	"github.com/ianhi/xarray-ome/ngff"
)

// Common errors
var (
	// ErrNotImage means the store's root metadata does not declare an
	// image pyramid. The concrete ClassificationError carries what the
	// store was classified as instead.
	ErrNotImage = errors.New("store is not an OME-NGFF image")

	// ErrValidation means the metadata document failed spec-conformance
	// validation. Only returned when validation was requested.
	ErrValidation = errors.New("metadata failed validation")

	// ErrResolutionRange means the requested resolution level has no
	// entry in the store's dataset list.
	ErrResolutionRange = errors.New("resolution level out of range")

	// ErrShapeMismatch means axis, label, or dimension counts disagree
	// with the array they describe.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// ClassificationError reports a store that is not an image pyramid,
// carrying the classification result so callers can route plates or
// unknown stores to a fallback opener.
type ClassificationError struct {
	Kind ngff.StoreKind
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("store is not an OME-NGFF image (classified as %s)", e.Kind)
}

func (e *ClassificationError) Unwrap() error { return ErrNotImage }
