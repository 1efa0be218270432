package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sauryaacharya/csvchunk"
)

// LocalStore serves objects from a directory tree laid out as
// <root>/<container>/<path>. It stands in for a bucket during local runs and
// tests.
type LocalStore struct {
	root string
}

var _ csvchunk.Source = (*LocalStore)(nil)

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the directory the store serves from.
func (s *LocalStore) Root() string { return s.root }

// Open opens the file backing loc. Missing files and paths that escape the
// container directory are reported before any byte is read.
func (s *LocalStore) Open(ctx context.Context, loc csvchunk.Location) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}
	if loc.Container == "" || !filepath.IsLocal(loc.Container) {
		return nil, wrapError(CodeBucketNotFound, false, fmt.Errorf("invalid container %q", loc.Container))
	}
	key := filepath.FromSlash(loc.Path)
	if loc.Path == "" || !filepath.IsLocal(key) {
		return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("invalid path %q", loc.Path))
	}

	bucket := filepath.Join(s.root, loc.Container)
	if info, err := os.Stat(bucket); err != nil || !info.IsDir() {
		return nil, wrapError(CodeBucketNotFound, false, fmt.Errorf("container %q: %w", loc.Container, os.ErrNotExist))
	}

	f, err := os.Open(filepath.Join(bucket, key))
	if err != nil {
		return nil, classify(err)
	}
	if info, err := f.Stat(); err == nil && info.IsDir() {
		_ = f.Close()
		return nil, wrapError(CodeObjectNotFound, false, fmt.Errorf("%s is a directory", loc))
	}
	return f, nil
}
