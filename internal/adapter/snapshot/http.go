// Package snapshot downloads ZooKeeper snapshots from the AdminServer.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/semmidev/zkbackup/internal/domain"
)

const commandPath = "/commands/snapshot"

type Options struct {
	// AdminURL is the AdminServer base URL, e.g. http://zk-0:8080. A path
	// prefix is kept and the command path appended to it.
	AdminURL string

	// Timeout bounds the whole request including the body. Zero means no
	// timeout beyond the context's.
	Timeout time.Duration

	Username string
	Password string

	// Client overrides the HTTP client; Timeout is ignored when set.
	Client *http.Client
}

// HTTPFetcher streams the snapshot command's response into a staging file.
type HTTPFetcher struct {
	client   *http.Client
	url      string
	username string
	password string
}

func NewHTTP(opts Options) (*HTTPFetcher, error) {
	u, err := url.Parse(opts.AdminURL)
	if err != nil {
		return nil, fmt.Errorf("parse admin url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("admin url %q must be absolute", opts.AdminURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + commandPath
	q := u.Query()
	q.Set("streaming", "true")
	u.RawQuery = q.Encode()

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPFetcher{
		client:   client,
		url:      u.String(),
		username: opts.Username,
		password: opts.Password,
	}, nil
}

// URL returns the snapshot command URL requested by Fetch.
func (f *HTTPFetcher) URL() string {
	return f.url
}

func (f *HTTPFetcher) Fetch(ctx context.Context, fs afero.Fs, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, domain.E(domain.KindTransport, "build snapshot request", err)
	}
	if f.username != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, domain.E(domain.KindTransport, "get snapshot", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, &domain.Error{
			Kind:       domain.KindRemoteFetch,
			Op:         "get snapshot",
			StatusCode: resp.StatusCode,
		}
	}

	file, err := fs.Create(path)
	if err != nil {
		return 0, domain.E(domain.KindLocalIO, "create staging file", err)
	}

	w := &recordingWriter{w: file}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		_ = file.Close()
		_ = fs.Remove(path)
		if w.err != nil {
			return n, domain.E(domain.KindLocalIO, "write staging file", err)
		}
		return n, domain.E(domain.KindTransport, "read snapshot body", err)
	}

	if err := file.Close(); err != nil {
		_ = fs.Remove(path)
		return n, domain.E(domain.KindLocalIO, "close staging file", err)
	}

	return n, nil
}

// recordingWriter remembers write failures so a failed copy can be
// attributed to the local side or the network side.
type recordingWriter struct {
	w   io.Writer
	err error
}

func (r *recordingWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		r.err = err
	}
	return n, err
}
