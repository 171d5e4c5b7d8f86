package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"aptcheck/pkg/debian"
	"aptcheck/pkg/repo"
)

// IndexProvider supplies the package and source indices of a release.
type IndexProvider interface {
	PackageIndex(ctx context.Context, component string, arch debian.Architecture) (*repo.PackageIndex, error)
	SourceIndex(ctx context.Context, component string) (*repo.SourceIndex, error)
}

// Prober verifies that a pool artifact exists upstream.
type Prober interface {
	Probe(ctx context.Context, url string) error
}

const defaultConcurrency = 4

// Config assembles a Checker.
type Config struct {
	Release  *repo.Release
	Provider IndexProvider
	Prober   Prober

	// Distro labels the report, e.g. "jammy" or the repository URL.
	Distro string
	// Components and Architectures narrow the run. Empty means everything
	// the release declares.
	Components    []string
	Architectures []debian.Architecture
	// CheckFiles probes every pool artifact the indices reference.
	CheckFiles  bool
	Concurrency int
}

// Checker walks a release's indices and records inconsistencies. Index
// errors and unresolvable entries become findings, not run failures: the
// run only aborts on cancellation.
type Checker struct {
	release  *repo.Release
	provider IndexProvider
	prober   Prober

	distro        string
	components    []string
	architectures []debian.Architecture
	checkFiles    bool
	concurrency   int

	mu            sync.Mutex
	sourceIndices map[string]*repo.SourceIndex
}

func New(cfg Config) (*Checker, error) {
	if cfg.Release == nil {
		return nil, errors.New("release is required")
	}
	if cfg.Provider == nil {
		return nil, errors.New("index provider is required")
	}
	if cfg.CheckFiles && cfg.Prober == nil {
		return nil, errors.New("checking files requires a prober")
	}

	components := cfg.Components
	if len(components) == 0 {
		components = cfg.Release.Components
	}
	architectures := cfg.Architectures
	if len(architectures) == 0 {
		architectures = cfg.Release.Architectures
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Checker{
		release:       cfg.Release,
		provider:      cfg.Provider,
		prober:        cfg.Prober,
		distro:        cfg.Distro,
		components:    components,
		architectures: architectures,
		checkFiles:    cfg.CheckFiles,
		concurrency:   concurrency,
		sourceIndices: map[string]*repo.SourceIndex{},
	}, nil
}

// Run checks every selected component and architecture. The returned bool
// is true when no findings were recorded. A non-nil error means the run
// did not complete, not that the repository is broken.
func (c *Checker) Run(ctx context.Context) (bool, *Report, error) {
	report := &Report{
		Distro:              c.distro,
		Components:          c.components,
		Architectures:       c.architectures,
		CheckFiles:          c.checkFiles,
		Issues:              []Issue{},
		MissingDependencies: []MissingDependency{},
		MissingSources:      []MissingSource{},
	}
	agg := newAggregator(report)

	if err := c.release.CheckCompliance(); err != nil {
		slog.Warn("release metadata is not compliant", slog.String("error", err.Error()))
	}

	// Source indices first, the binary pass consults them for origin checks.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, component := range c.components {
		g.Go(func() error {
			return c.checkSourceComponent(gctx, agg, component)
		})
	}
	if err := g.Wait(); err != nil {
		return false, nil, err
	}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, component := range c.components {
		for _, arch := range c.architectures {
			if arch == debian.ArchSource {
				continue
			}
			g.Go(func() error {
				return c.checkBinaryComponent(gctx, agg, component, arch)
			})
		}
	}
	if err := g.Wait(); err != nil {
		return false, nil, err
	}

	c.crossCheck(agg)

	ok := report.OK()
	issues, dependencies, sources := report.Counts()
	slog.Info("check complete",
		slog.Bool("ok", ok),
		slog.Int("issues", issues),
		slog.Int("missing_dependencies", dependencies),
		slog.Int("missing_sources", sources))
	return ok, report, nil
}

func (c *Checker) checkSourceComponent(ctx context.Context, agg *aggregator, component string) error {
	ix, err := c.provider.SourceIndex(ctx, component)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		agg.issue(component, debian.ArchSource, fmt.Errorf("building source index: %w", err))
		return nil
	}

	for _, name := range ix.Names() {
		entry := ix.Get(name, nil)
		if entry == nil {
			agg.issue(component, debian.ArchSource, fmt.Errorf("source %s is listed but cannot be resolved", name))
			continue
		}
		if !c.checkFiles {
			continue
		}
		for file, link := range entry.Links {
			if err := c.prober.Probe(ctx, link); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				agg.issue(component, debian.ArchSource, fmt.Errorf("source %s file %s: %w", name, file, err))
			}
		}
	}

	c.mu.Lock()
	c.sourceIndices[component] = ix
	c.mu.Unlock()
	return nil
}

func (c *Checker) checkBinaryComponent(ctx context.Context, agg *aggregator, component string, arch debian.Architecture) error {
	ix, err := c.provider.PackageIndex(ctx, component, arch)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		agg.issue(component, arch, fmt.Errorf("building package index: %w", err))
		return nil
	}
	sources := c.sourceIndex(component)

	for _, name := range ix.Names() {
		pkg := ix.Get(name, nil)
		if pkg == nil {
			agg.issue(component, arch, fmt.Errorf("package %s is listed but cannot be resolved", name))
			continue
		}

		if c.checkFiles && pkg.Link != "" {
			if err := c.prober.Probe(ctx, pkg.Link); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// File probe failures always land under the source architecture.
				agg.issue(component, debian.ArchSource, fmt.Errorf("package %s file %s: %w", name, pkg.Link, err))
			}
		}

		for _, dep := range pkg.Depends {
			if !resolves(ix, dep) {
				agg.missingDependency(component, name, dep)
			}
		}

		c.checkSourceOrigin(agg, sources, component, pkg)
	}
	return nil
}

// checkSourceOrigin verifies the binary's declared source exists at the
// binary's exact version. Packages without a Source field and components
// without a usable source index are skipped, the latter already produced
// an issue in the source pass.
func (c *Checker) checkSourceOrigin(agg *aggregator, sources *repo.SourceIndex, component string, pkg *repo.PackageEntry) {
	if pkg.Source == "" {
		slog.Warn("package declares no source",
			slog.String("component", component),
			slog.String("package", pkg.Package))
		return
	}
	if sources == nil {
		slog.Warn("no source index for component, skipping origin check",
			slog.String("component", component),
			slog.String("package", pkg.Package))
		return
	}

	constraint := &debian.Constraint{
		Name:         pkg.Source,
		Architecture: pkg.Architecture,
		Relation:     debian.RelationExact,
		Version:      &pkg.Version,
	}
	if sources.Get(pkg.Source, constraint) == nil {
		agg.missingSource(component, pkg.Package, pkg.Source, pkg.Version)
	}
}

// crossCheck is reserved for relations that span components, e.g. a
// package whose source lives in another component. Nothing is checked
// today.
func (c *Checker) crossCheck(*aggregator) {}

func (c *Checker) sourceIndex(component string) *repo.SourceIndex {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceIndices[component]
}

// resolves reports whether any alternative of the dependency is satisfied
// by the index.
func resolves(ix *repo.PackageIndex, dep debian.Dependency) bool {
	for _, alt := range dep {
		if ix.Get(alt.Name, &alt) != nil {
			return true
		}
	}
	return false
}
