package capture

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when a recording does not exist.
	ErrNotFound = errors.New("capture: recording not found")

	// ErrLimit is returned by Recorder.Err once the size limit was hit.
	ErrLimit = errors.New("capture: size limit reached")

	// ErrBadLocation is returned for locations that cannot be resolved.
	ErrBadLocation = errors.New("capture: invalid location")
)

// Store keeps recordings by key.
type Store interface {
	// Put stores size bytes from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error

	// Get opens the recording stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// S3Scheme prefixes locations stored in S3: s3://bucket/key.
const S3Scheme = "s3://"

// Resolve maps a location to a store and key. "s3://bucket/key" uses
// client; anything else is a local file path. client may be nil when no
// S3 location is expected.
func Resolve(location string, client S3API) (Store, string, error) {
	if rest, ok := strings.CutPrefix(location, S3Scheme); ok {
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || client == nil {
			return nil, "", ErrBadLocation
		}
		return NewS3Store(client, bucket, ""), key, nil
	}
	if location == "" {
		return nil, "", ErrBadLocation
	}
	store, key, err := DirStore(location)
	if err != nil {
		return nil, "", err
	}
	return store, key, nil
}

// ReadAll reads the whole recording at location.
func ReadAll(ctx context.Context, location string, client S3API) ([]byte, error) {
	store, key, err := Resolve(location, client)
	if err != nil {
		return nil, err
	}
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Upload copies the local file at path to location.
func Upload(ctx context.Context, path, location string, client S3API) error {
	store, key, err := Resolve(location, client)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return store.Put(ctx, key, f, info.Size())
}
