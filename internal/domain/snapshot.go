package domain

import (
	"context"

	"github.com/spf13/afero"
)

// SnapshotFetcher downloads a snapshot into a staging file.
type SnapshotFetcher interface {
	// Fetch writes the snapshot to path on fs and returns the number of bytes
	// written. A partially written file is removed on failure.
	Fetch(ctx context.Context, fs afero.Fs, path string) (int64, error)
}
