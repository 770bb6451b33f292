package zarr

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Store wraps a blob bucket rooted at a Zarr hierarchy. One store may hold
// several arrays under different key prefixes (the resolution levels of a
// pyramid). Close is safe to call more than once; lazy array handles share
// the store and any of them may close it.
type Store struct {
	bucket    *blob.Bucket
	closeOnce sync.Once
	closeErr  error
}

// OpenStore opens the bucket behind a path or URL. Paths without a scheme
// are treated as local directories; relative paths resolve against the
// working directory before the file URL is built, since the URL form has no
// way to express them.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	url := path
	if !strings.Contains(url, "://") {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
		}
		url = "file://" + filepath.ToSlash(abs)
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", path, err)
	}
	return &Store{bucket: bucket}, nil
}

// ReadAll fetches one key in full. Missing keys report gcerrors.NotFound
// through errors.Is-compatible wrapping.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Exists reports whether a key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	return s.bucket.Exists(ctx, key)
}

// WriteAll stores one key in full.
func (s *Store) WriteAll(ctx context.Context, key string, data []byte) error {
	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// ReadAttrs reads and decodes the .zattrs document under prefix. A missing
// .zattrs yields an empty map, matching how zarr treats absent attributes.
func (s *Store) ReadAttrs(ctx context.Context, prefix string) (map[string]any, error) {
	data, err := s.bucket.ReadAll(ctx, prefix+".zattrs")
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read %s.zattrs: %w", prefix, err)
	}
	var attrs map[string]any
	if err := json.Unmarshal(data, &attrs); err != nil {
		return nil, fmt.Errorf("failed to decode %s.zattrs: %w", prefix, err)
	}
	return attrs, nil
}

// WriteGroup marks prefix as a Zarr v2 group and attaches attributes.
func (s *Store) WriteGroup(ctx context.Context, prefix string, attrs []byte) error {
	if err := s.WriteAll(ctx, prefix+".zgroup", []byte(`{"zarr_format":2}`)); err != nil {
		return err
	}
	if attrs != nil {
		return s.WriteAll(ctx, prefix+".zattrs", attrs)
	}
	return nil
}

// IsNotFound reports whether err is the storage layer's not-found result.
func IsNotFound(err error) bool {
	return gcerrors.Code(err) == gcerrors.NotFound
}

// Close releases the underlying bucket.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.bucket.Close()
	})
	return s.closeErr
}
