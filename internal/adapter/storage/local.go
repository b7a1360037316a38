package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/semmidev/zkbackup/internal/domain"
)

const localPageSize = 1000

// LocalStorage keeps objects as files under basePath. Keys containing "/"
// map to subdirectories.
type LocalStorage struct {
	fs       afero.Fs
	basePath string
}

func NewLocal(fs afero.Fs, basePath string) (*LocalStorage, error) {
	if err := fs.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	return &LocalStorage{fs: fs, basePath: basePath}, nil
}

func (l *LocalStorage) Name() string {
	return "file://" + filepath.ToSlash(l.basePath)
}

func (l *LocalStorage) Put(ctx context.Context, key string, data []byte) error {
	dest, err := l.GetPath(key)
	if err != nil {
		return domain.E(domain.KindStorageWrite, "put "+key, err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return domain.E(domain.KindStorageWrite, "put "+key, fmt.Errorf("failed to create dir: %w", err))
	}
	if err := afero.WriteFile(l.fs, dest, data, 0644); err != nil {
		return domain.E(domain.KindStorageWrite, "put "+key, fmt.Errorf("failed to write: %w", err))
	}

	return nil
}

func (l *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	src, err := l.GetPath(key)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(l.fs, src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", key, domain.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// ListPages walks basePath in lexical order and reports files whose key
// starts with prefix, localPageSize per page.
func (l *LocalStorage) ListPages(ctx context.Context, prefix string, fn func(page []domain.ObjectInfo) error) error {
	var page []domain.ObjectInfo
	var fnErr error
	flush := func() error {
		if len(page) == 0 {
			return nil
		}
		fnErr = fn(page)
		page = nil
		return fnErr
	}

	err := afero.Walk(l.fs, l.basePath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}

		page = append(page, domain.ObjectInfo{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		if len(page) == localPageSize {
			return flush()
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return domain.E(domain.KindStorageList, "list "+prefix, err)
	}

	return flush()
}

func (l *LocalStorage) DeleteMany(ctx context.Context, keys []string) (int, error) {
	deleted := 0
	for _, key := range keys {
		p, err := l.GetPath(key)
		if err != nil {
			return deleted, domain.E(domain.KindStorageDelete, "delete "+key, err)
		}
		if err := l.fs.Remove(p); err != nil {
			return deleted, domain.E(domain.KindStorageDelete, "delete "+key, fmt.Errorf("failed to delete file: %w", err))
		}
		deleted++
	}
	return deleted, nil
}

// GetPath maps key to a path under basePath, rejecting keys that would
// escape it.
func (l *LocalStorage) GetPath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(l.basePath, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}
