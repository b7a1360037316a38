package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/semmidev/zkbackup/internal/domain"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, fs afero.Fs, path string) (int64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	if err := afero.WriteFile(fs, path, f.data, 0644); err != nil {
		return 0, domain.E(domain.KindLocalIO, "write staging file", err)
	}
	return int64(len(f.data)), nil
}

type fakeStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	modTimes map[string]time.Time
	pageSize int

	putErr    error
	listErr   error
	deleteErr error

	puts        []string
	listCalls   int
	deleteCalls [][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:  make(map[string][]byte),
		modTimes: make(map[string]time.Time),
		pageSize: 1000,
	}
}

func (s *fakeStore) Name() string { return "fake://bucket" }

func (s *fakeStore) add(key string, modTime time.Time) {
	s.objects[key] = []byte(key)
	s.modTimes[key] = modTime
}

func (s *fakeStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts = append(s.puts, key)
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), data...)
	s.modTimes[key] = time.Now()
	return nil
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrObjectNotFound
	}
	return data, nil
}

func (s *fakeStore) ListPages(ctx context.Context, prefix string, fn func(page []domain.ObjectInfo) error) error {
	s.mu.Lock()
	s.listCalls++
	if s.listErr != nil {
		s.mu.Unlock()
		return s.listErr
	}
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	var infos []domain.ObjectInfo
	for _, k := range keys {
		infos = append(infos, domain.ObjectInfo{Key: k, Size: int64(len(s.objects[k])), LastModified: s.modTimes[k]})
	}
	s.mu.Unlock()

	for start := 0; start < len(infos); start += s.pageSize {
		if err := fn(infos[start:min(start+s.pageSize, len(infos))]); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeStore) DeleteMany(ctx context.Context, keys []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls = append(s.deleteCalls, append([]string(nil), keys...))
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	for _, k := range keys {
		delete(s.objects, k)
		delete(s.modTimes, k)
	}
	return len(keys), nil
}

// countingFs counts Remove calls and can make them fail.
type countingFs struct {
	afero.Fs
	removes   map[string]int
	removeErr error
}

func newCountingFs() *countingFs {
	return &countingFs{Fs: afero.NewMemMapFs(), removes: make(map[string]int)}
}

func (c *countingFs) Remove(name string) error {
	c.removes[name]++
	if c.removeErr != nil {
		return c.removeErr
	}
	return c.Fs.Remove(name)
}

type recordingNotifier struct {
	results []domain.Result
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, result domain.Result) error {
	n.results = append(n.results, result)
	return n.err
}

var errBoom = errors.New("boom")
