package check

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"aptcheck/pkg/debian"
)

// Issue is a hard finding: an index that could not be built, a declared
// name that resolves to nothing, or an artifact that failed its probe.
type Issue struct {
	Component    string              `json:"component"`
	Architecture debian.Architecture `json:"architecture"`
	Problem      string              `json:"problem"`
}

// MissingDependency is a soft finding: a dependency of a binary package
// that no candidate in the same index satisfies.
type MissingDependency struct {
	Component  string            `json:"component"`
	Package    string            `json:"package"`
	Dependency debian.Dependency `json:"dependency"`
}

// MissingSource is a soft finding: a binary package whose declared source
// is absent at the binary's exact version.
type MissingSource struct {
	Component string         `json:"component"`
	Package   string         `json:"package"`
	Source    string         `json:"source"`
	Version   debian.Version `json:"version"`
}

// Report is the aggregate outcome of one run.
type Report struct {
	Distro              string                `json:"distro,omitempty"`
	Components          []string              `json:"components"`
	Architectures       []debian.Architecture `json:"architectures"`
	CheckFiles          bool                  `json:"check_files"`
	Issues              []Issue               `json:"issues"`
	MissingDependencies []MissingDependency   `json:"missing_dependencies"`
	MissingSources      []MissingSource       `json:"missing_sources"`
}

// OK reports whether the run found nothing wrong.
func (r *Report) OK() bool {
	return len(r.Issues) == 0 && len(r.MissingDependencies) == 0 && len(r.MissingSources) == 0
}

// Counts returns the size of each finding collection.
func (r *Report) Counts() (issues, dependencies, sources int) {
	return len(r.Issues), len(r.MissingDependencies), len(r.MissingSources)
}

// Save writes the report as indented JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// aggregator is the only mutable state shared between check workers.
// Dependency and source findings are deduplicated, since the same package
// can be checked for several architectures.
type aggregator struct {
	mu          sync.Mutex
	report      *Report
	seenDeps    map[string]bool
	seenSources map[string]bool
}

func newAggregator(report *Report) *aggregator {
	return &aggregator{
		report:      report,
		seenDeps:    map[string]bool{},
		seenSources: map[string]bool{},
	}
}

func (a *aggregator) issue(component string, arch debian.Architecture, problem error) {
	slog.Warn("issue found",
		slog.String("component", component),
		slog.String("architecture", string(arch)),
		slog.String("problem", problem.Error()))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.report.Issues = append(a.report.Issues, Issue{
		Component:    component,
		Architecture: arch,
		Problem:      problem.Error(),
	})
}

func (a *aggregator) missingDependency(component, pkg string, dep debian.Dependency) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := component + "\x00" + pkg + "\x00" + dep.String()
	if a.seenDeps[key] {
		return
	}
	a.seenDeps[key] = true

	slog.Warn("missing dependency",
		slog.String("component", component),
		slog.String("package", pkg),
		slog.String("dependency", dep.String()))
	a.report.MissingDependencies = append(a.report.MissingDependencies, MissingDependency{
		Component:  component,
		Package:    pkg,
		Dependency: dep,
	})
}

func (a *aggregator) missingSource(component, pkg, source string, version debian.Version) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := component + "\x00" + pkg + "\x00" + source + "\x00" + version.String()
	if a.seenSources[key] {
		return
	}
	a.seenSources[key] = true

	slog.Warn("missing source",
		slog.String("component", component),
		slog.String("package", pkg),
		slog.String("source", source),
		slog.String("version", version.String()))
	a.report.MissingSources = append(a.report.MissingSources, MissingSource{
		Component: component,
		Package:   pkg,
		Source:    source,
		Version:   version,
	})
}
