package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Prober checks that pool artifacts exist upstream without downloading
// them.
type Prober struct {
	client  *http.Client
	limiter *rate.Limiter
	memo    *expirable.LRU[string, error]
	flight  singleflight.Group
}

type Config struct {
	// RatePerSecond caps outgoing probes. Zero means unlimited.
	RatePerSecond float64       `yaml:"rate"`
	CacheSize     int           `yaml:"cacheSize"`
	CacheTTL      time.Duration `yaml:"cacheTTL"`
}

func NewProber(cfg Config) *Prober {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	size := cfg.CacheSize
	if size == 0 {
		size = 4096
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = time.Hour
	}
	return &Prober{
		client:  http.DefaultClient,
		limiter: limiter,
		memo:    expirable.NewLRU[string, error](size, nil, ttl),
	}
}

// Probe verifies the URL responds without fetching its body. Results are
// memoized, and concurrent probes of the same URL collapse into one
// request.
func (p *Prober) Probe(ctx context.Context, url string) error {
	if err, ok := p.memo.Get(url); ok {
		return err
	}

	result, err, _ := p.flight.Do(url, func() (any, error) {
		if err, ok := p.memo.Get(url); ok {
			return err, nil
		}
		err := p.probe(ctx, url)
		if ctx.Err() == nil {
			p.memo.Add(url, err)
		}
		return err, nil
	})
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	return result.(error)
}

func (p *Prober) probe(ctx context.Context, url string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	status, err := p.head(ctx, url)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented {
		slog.Debug("HEAD not supported, probing with ranged GET", slog.String("url", url))
		if status, err = p.rangedGet(ctx, url); err != nil {
			return err
		}
	}
	if status >= http.StatusBadRequest {
		return fmt.Errorf("probing %s: status %d", url, status)
	}
	return nil
}

func (p *Prober) head(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (p *Prober) rangedGet(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probing %s: %w", url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return resp.StatusCode, nil
}
