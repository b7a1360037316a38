package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/semmidev/zkbackup/internal/domain"
)

const gcsPageSize = 1000

// GCSStorage stores snapshots in a Google Cloud Storage bucket.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCSStorage for bucket. A non-empty credentialsFile is
// used instead of application default credentials; opts are passed through
// to the client.
func NewGCS(ctx context.Context, bucket, credentialsFile string, opts ...option.ClientOption) (*GCSStorage, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (g *GCSStorage) Name() string {
	return "gs://" + g.bucket
}

func (g *GCSStorage) Put(ctx context.Context, key string, data []byte) error {
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "application/gzip"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return domain.E(domain.KindStorageWrite, "put "+g.url(key), err)
	}
	if err := w.Close(); err != nil {
		return domain.E(domain.KindStorageWrite, "put "+g.url(key), err)
	}
	return nil
}

func (g *GCSStorage) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("get %s: %w", g.url(key), domain.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", g.url(key), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", g.url(key), err)
	}
	return data, nil
}

func (g *GCSStorage) ListPages(ctx context.Context, prefix string, fn func(page []domain.ObjectInfo) error) error {
	it := g.client.Bucket(g.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	pager := iterator.NewPager(it, gcsPageSize, "")

	for {
		var attrs []*storage.ObjectAttrs
		token, err := pager.NextPage(&attrs)
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return domain.E(domain.KindStorageList, "list "+g.url(prefix), err)
		}

		if len(attrs) > 0 {
			if err := fn(objectInfos(attrs)); err != nil {
				return err
			}
		}
		if token == "" {
			return nil
		}
	}
}

// DeleteMany deletes keys one by one; GCS has no multi-object delete call.
// Keys that are already gone count as deleted.
func (g *GCSStorage) DeleteMany(ctx context.Context, keys []string) (int, error) {
	deleted := 0
	for _, key := range keys {
		err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return deleted, domain.E(domain.KindStorageDelete, "delete "+g.url(key), err)
		}
		deleted++
	}
	return deleted, nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}

func (g *GCSStorage) url(key string) string {
	return g.Name() + "/" + key
}

func objectInfos(attrs []*storage.ObjectAttrs) []domain.ObjectInfo {
	objects := make([]domain.ObjectInfo, 0, len(attrs))
	for _, a := range attrs {
		objects = append(objects, domain.ObjectInfo{
			Key:          a.Name,
			Size:         a.Size,
			LastModified: a.Updated,
		})
	}
	return objects
}
