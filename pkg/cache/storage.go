package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"
)

// Storage holds fetched repository data between lookups. Implementations
// expire entries by namespace TTL.
type Storage interface {
	Get(ctx context.Context, key Key) ([]byte, bool)
	Add(ctx context.Context, key Key, value []byte)
	NamespaceTTL(namespace Namespace, ttl time.Duration)
}

type Config struct {
	URL string        `yaml:"url"`
	TTL time.Duration `yaml:"ttl"`
}

// StorageFromConfig builds a Storage from configuration. An empty URL
// selects the in-memory cache, file:// a directory-backed one.
func StorageFromConfig(cfg Config) (Storage, error) {
	if cfg.URL == "" {
		return NewLRUStorage(LRUConfig{TTL: cfg.TTL}), nil
	}

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing cache URL: %w", err)
	}
	switch u.Scheme {
	case "file":
		p := filepath.Join(u.Hostname(), u.Path)
		slog.Debug("using file cache", slog.String("path", p))
		return NewFileStorage(FileConfig{Path: p, TTL: cfg.TTL}), nil

	default:
		return nil, fmt.Errorf("unsupported cache scheme %q", u.Scheme)
	}
}
