package repo

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"aptcheck/pkg/debian"
)

// Provider fetches, verifies and parses the indices of one repository
// release.
type Provider struct {
	fetcher *Fetcher
	distro  Distro
	release *Release
}

func NewProvider(f *Fetcher, d Distro, r *Release) *Provider {
	return &Provider{fetcher: f, distro: d, release: r}
}

// PackageIndex fetches the Packages index for one component and
// architecture, preferring compressed forms and verifying any digest the
// release declares.
func (p *Provider) PackageIndex(ctx context.Context, component string, arch debian.Architecture) (*PackageIndex, error) {
	data, err := p.fetchIndex(ctx, p.distro.packagesPath(component, arch))
	if err != nil {
		return nil, err
	}
	ix, err := ParsePackages(component, arch, p.fetcher.BaseURL(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	slog.Debug("built package index",
		slog.String("component", component),
		slog.String("architecture", string(arch)),
		slog.Int("packages", ix.Len()))
	return ix, nil
}

// SourceIndex fetches the Sources index for one component.
func (p *Provider) SourceIndex(ctx context.Context, component string) (*SourceIndex, error) {
	data, err := p.fetchIndex(ctx, p.distro.sourcesPath(component))
	if err != nil {
		return nil, err
	}
	ix, err := ParseSources(component, p.fetcher.BaseURL(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	slog.Debug("built source index",
		slog.String("component", component),
		slog.Int("sources", ix.Len()))
	return ix, nil
}

// fetchIndex retrieves a release-relative index, trying compressed
// variants first. Wire bytes are verified against the release digest
// table before decompression.
func (p *Provider) fetchIndex(ctx context.Context, rel string) ([]byte, error) {
	var lastErr error
	for _, c := range indexCompressions {
		candidate := rel + c.Extension()
		raw, err := p.fetcher.Get(ctx, NamespaceIndex, p.distro.metaPath(candidate))
		if errors.Is(err, ErrNotFound) {
			lastErr = err
			continue
		} else if err != nil {
			return nil, err
		}
		if err := p.verifyDigest(candidate, raw); err != nil {
			return nil, err
		}
		data, err := c.Decompress(raw)
		if err != nil {
			return nil, fmt.Errorf("decompressing %s: %w", candidate, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("no index found at %s: %w", rel, lastErr)
}

func (p *Provider) verifyDigest(rel string, data []byte) error {
	digest, ok := p.release.SHA256[rel]
	if !ok {
		slog.Debug("release declares no digest for index", slog.String("path", rel))
		return nil
	}
	if int64(len(data)) != digest.Size {
		return fmt.Errorf("index %s has size %d, release declares %d", rel, len(data), digest.Size)
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != digest.SHA256 {
		return fmt.Errorf("index %s has digest %s, release declares %s", rel, got, digest.SHA256)
	}
	return nil
}
