package domain

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned by ObjectStore.Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes one stored object as returned by a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is the object storage backend the snapshots are written to.
type ObjectStore interface {
	// Put stores data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the full contents of the object stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// ListPages calls fn once per listing page of objects whose key starts
	// with prefix, until the listing is exhausted or fn returns an error.
	ListPages(ctx context.Context, prefix string, fn func(page []ObjectInfo) error) error

	// DeleteMany removes the given keys and returns how many were deleted.
	DeleteMany(ctx context.Context, keys []string) (int, error)

	// Name identifies the backend in logs, e.g. "s3://bucket".
	Name() string
}
