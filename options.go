package omezarr

type openOptions struct {
	validate bool
}

// Option configures an open call.
type Option func(*openOptions)

// WithValidation routes the retrieved metadata document through the NGFF
// spec-conformance validator before assembly. Failures surface as
// ErrValidation instead of proceeding with best-effort assembly.
func WithValidation() Option {
	return func(o *openOptions) { o.validate = true }
}

type writeOptions struct {
	scaleFactors []int
	chunks       []int
	compressor   string
}

// WriteOption configures a write call.
type WriteOption func(*writeOptions)

// WithScaleFactors requests downsampled pyramid levels on write. Each
// factor is relative to the full-resolution level, e.g. [2, 4] adds two
// levels at half and quarter resolution along the space axes.
func WithScaleFactors(factors ...int) WriteOption {
	return func(o *writeOptions) { o.scaleFactors = factors }
}

// WithChunks sets the chunk shape for written arrays. It must match the
// array rank; by default chunks follow zarr.DefaultChunks.
func WithChunks(chunks []int) WriteOption {
	return func(o *writeOptions) { o.chunks = chunks }
}

// WithCompressor selects the chunk compressor id ("zstd" or "" for none).
// The default is zstd.
func WithCompressor(id string) WriteOption {
	return func(o *writeOptions) { o.compressor = id }
}
