package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DiskStore keeps recordings as files in a directory.
type DiskStore struct {
	dir string
}

// DirStore splits a file path into a store for its directory and the file
// name as key. The directory is not created.
func DirStore(path string) (*DiskStore, string, error) {
	dir, name := filepath.Split(path)
	if name == "" {
		return nil, "", fmt.Errorf("%w: %q names a directory", ErrBadLocation, path)
	}
	if dir == "" {
		dir = "."
	}
	return &DiskStore{dir: dir}, name, nil
}

func (s *DiskStore) path(key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("%w: key %q", ErrBadLocation, key)
	}
	return filepath.Join(s.dir, key), nil
}

// Put writes r to a file named key. The file is written under a temporary
// name first and renamed into place.
func (s *DiskStore) Put(_ context.Context, key string, r io.Reader, size int64) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".capture-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if size >= 0 && n != size {
		return fmt.Errorf("capture: wrote %d bytes, expected %d", n, size)
	}
	return os.Rename(tmp.Name(), path)
}

// Get opens the file named key.
func (s *DiskStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return f, err
}
