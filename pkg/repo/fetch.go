package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"aptcheck/pkg/cache"
)

// ErrNotFound marks a fetch that failed because the file does not exist
// upstream, as opposed to a transport or server failure.
var ErrNotFound = errors.New("not found")

const (
	// NamespaceRelease caches release files, which change often.
	NamespaceRelease cache.Namespace = "release"
	// NamespaceIndex caches package and source indices.
	NamespaceIndex cache.Namespace = "index"
)

// Fetcher retrieves files from a remote repository, memoizing responses
// in a cache.Storage.
type Fetcher struct {
	baseURL url.URL
	client  *http.Client
	storage cache.Storage
}

func NewFetcher(baseURL url.URL, storage cache.Storage) *Fetcher {
	if storage == nil {
		storage = cache.NewLRUStorage(cache.LRUConfig{})
	}
	storage.NamespaceTTL(NamespaceRelease, 5*time.Minute)
	storage.NamespaceTTL(NamespaceIndex, time.Hour)
	return &Fetcher{
		baseURL: baseURL,
		client:  http.DefaultClient,
		storage: storage,
	}
}

// BaseURL returns a copy of the repository root URL.
func (f *Fetcher) BaseURL() *url.URL {
	u := f.baseURL
	return &u
}

// Get fetches a repository-relative path, serving repeated requests from
// the cache namespace.
func (f *Fetcher) Get(ctx context.Context, ns cache.Namespace, rel string) ([]byte, error) {
	u := f.baseURL.JoinPath(rel).String()
	key := ns.Key(u)
	if b, ok := f.storage.Get(ctx, key); ok {
		slog.Debug("fetch cache hit", slog.String("url", u))
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetching %s: %w", u, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetching %s: status %s", u, resp.Status)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("reading %s: %w", u, err)
	}
	f.storage.Add(ctx, key, buf.Bytes())
	return buf.Bytes(), nil
}
