package repo

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"aptcheck/pkg/debian"
)

// PackageEntry is one binary package stanza of a Packages index.
type PackageEntry struct {
	Package      string              `json:"package"`
	Version      debian.Version      `json:"version"`
	Architecture debian.Architecture `json:"architecture"`
	Source       string              `json:"source,omitempty"`
	Depends      []debian.Dependency `json:"depends,omitempty"`
	Filename     string              `json:"filename,omitempty"`
	Size         int64               `json:"size,omitempty"`
	SHA256       string              `json:"sha256,omitempty"`
	Link         string              `json:"link,omitempty"`
}

// SourceEntry is one source package stanza of a Sources index. Links maps
// the entry's files to their pool URLs.
type SourceEntry struct {
	Package   string            `json:"package"`
	Version   debian.Version    `json:"version"`
	Directory string            `json:"directory,omitempty"`
	Binary    []string          `json:"binary,omitempty"`
	Links     map[string]string `json:"links,omitempty"`
}

// PackageIndex resolves the binary packages of one component and
// architecture.
type PackageIndex struct {
	component string
	arch      debian.Architecture
	names     []string
	entries   map[string][]PackageEntry
}

// NewPackageIndex builds an index from parsed entries.
func NewPackageIndex(component string, arch debian.Architecture, entries []PackageEntry) *PackageIndex {
	ix := &PackageIndex{
		component: component,
		arch:      arch,
		entries:   map[string][]PackageEntry{},
	}
	for _, e := range entries {
		if _, ok := ix.entries[e.Package]; !ok {
			ix.names = append(ix.names, e.Package)
		}
		ix.entries[e.Package] = append(ix.entries[e.Package], e)
	}
	sort.Strings(ix.names)
	return ix
}

// ParsePackages parses a Packages index. Stanzas that declare a name but
// cannot be parsed into a usable entry remain listed in Names without a
// resolvable entry.
func ParsePackages(component string, arch debian.Architecture, base *url.URL, in io.Reader) (*PackageIndex, error) {
	graphs, err := debian.ParseControlFile(in)
	if err != nil {
		return nil, fmt.Errorf("parsing packages index: %w", err)
	}

	ix := &PackageIndex{
		component: component,
		arch:      arch,
		entries:   map[string][]PackageEntry{},
	}
	seen := map[string]bool{}
	for _, graph := range graphs {
		name := graph["Package"]
		if name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			ix.names = append(ix.names, name)
		}
		entry, err := packageEntry(graph, base)
		if err != nil {
			slog.Warn("skipping unusable package stanza",
				slog.String("package", name),
				slog.String("component", component),
				slog.String("architecture", string(arch)),
				slog.String("error", err.Error()))
			continue
		}
		ix.entries[name] = append(ix.entries[name], entry)
	}
	sort.Strings(ix.names)
	return ix, nil
}

func packageEntry(graph debian.Paragraph, base *url.URL) (PackageEntry, error) {
	version, err := debian.ParseVersion(graph["Version"])
	if err != nil {
		return PackageEntry{}, fmt.Errorf("version: %w", err)
	}
	depends, err := debian.ParseDepends(graph["Depends"])
	if err != nil {
		return PackageEntry{}, fmt.Errorf("depends: %w", err)
	}

	e := PackageEntry{
		Package:      graph["Package"],
		Version:      version,
		Architecture: debian.Architecture(graph["Architecture"]),
		Source:       sourceName(graph["Source"]),
		Depends:      depends,
		Filename:     graph["Filename"],
		SHA256:       graph["SHA256"],
	}
	if size := graph["Size"]; size != "" {
		if n, err := strconv.ParseInt(size, 10, 64); err == nil {
			e.Size = n
		}
	}
	if e.Filename != "" && base != nil {
		e.Link = base.JoinPath(e.Filename).String()
	}
	return e, nil
}

// sourceName strips the version annotation some Source fields carry, e.g.
// "glibc (2.35-0ubuntu3)" names the source package glibc.
func sourceName(s string) string {
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func (ix *PackageIndex) Component() string                 { return ix.component }
func (ix *PackageIndex) Architecture() debian.Architecture { return ix.arch }
func (ix *PackageIndex) Len() int                          { return len(ix.names) }

// Names lists every package name the index declares, sorted.
func (ix *PackageIndex) Names() []string { return ix.names }

// Get returns the best entry for name that satisfies the constraint, or
// nil. With several candidate versions the highest wins.
func (ix *PackageIndex) Get(name string, c *debian.Constraint) *PackageEntry {
	var best *PackageEntry
	for i := range ix.entries[name] {
		e := &ix.entries[name][i]
		if c != nil {
			if c.Architecture != "" && e.Architecture != c.Architecture {
				continue
			}
			if !c.MatchesVersion(e.Version) {
				continue
			}
		}
		if best == nil || e.Version.Compare(best.Version) > 0 {
			best = e
		}
	}
	return best
}

// SourceIndex resolves the source packages of one component.
type SourceIndex struct {
	component string
	names     []string
	entries   map[string][]SourceEntry
}

// NewSourceIndex builds an index from parsed entries.
func NewSourceIndex(component string, entries []SourceEntry) *SourceIndex {
	ix := &SourceIndex{
		component: component,
		entries:   map[string][]SourceEntry{},
	}
	for _, e := range entries {
		if _, ok := ix.entries[e.Package]; !ok {
			ix.names = append(ix.names, e.Package)
		}
		ix.entries[e.Package] = append(ix.entries[e.Package], e)
	}
	sort.Strings(ix.names)
	return ix
}

// ParseSources parses a Sources index, with the same tolerance for broken
// stanzas as ParsePackages.
func ParseSources(component string, base *url.URL, in io.Reader) (*SourceIndex, error) {
	graphs, err := debian.ParseControlFile(in)
	if err != nil {
		return nil, fmt.Errorf("parsing sources index: %w", err)
	}

	ix := &SourceIndex{
		component: component,
		entries:   map[string][]SourceEntry{},
	}
	seen := map[string]bool{}
	for _, graph := range graphs {
		name := graph["Package"]
		if name == "" {
			continue
		}
		if !seen[name] {
			seen[name] = true
			ix.names = append(ix.names, name)
		}
		entry, err := sourceEntry(graph, base)
		if err != nil {
			slog.Warn("skipping unusable source stanza",
				slog.String("package", name),
				slog.String("component", component),
				slog.String("error", err.Error()))
			continue
		}
		ix.entries[name] = append(ix.entries[name], entry)
	}
	sort.Strings(ix.names)
	return ix, nil
}

func sourceEntry(graph debian.Paragraph, base *url.URL) (SourceEntry, error) {
	version, err := debian.ParseVersion(graph["Version"])
	if err != nil {
		return SourceEntry{}, fmt.Errorf("version: %w", err)
	}

	e := SourceEntry{
		Package:   graph["Package"],
		Version:   version,
		Directory: graph["Directory"],
		Links:     map[string]string{},
	}
	for _, b := range strings.Split(graph["Binary"], ",") {
		if b = strings.TrimSpace(b); b != "" {
			e.Binary = append(e.Binary, b)
		}
	}

	files := graph["Checksums-Sha256"]
	if files == "" {
		files = graph["Files"]
	}
	for _, line := range strings.Split(files, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		if base != nil && e.Directory != "" {
			e.Links[fields[2]] = base.JoinPath(e.Directory, fields[2]).String()
		}
	}
	return e, nil
}

func (ix *SourceIndex) Component() string { return ix.component }
func (ix *SourceIndex) Len() int          { return len(ix.names) }

// Names lists every source package name the index declares, sorted.
func (ix *SourceIndex) Names() []string { return ix.names }

// Get returns the best entry for name whose version satisfies the
// constraint, or nil. Source stanzas carry no single architecture, so the
// constraint's architecture is not consulted.
func (ix *SourceIndex) Get(name string, c *debian.Constraint) *SourceEntry {
	var best *SourceEntry
	for i := range ix.entries[name] {
		e := &ix.entries[name][i]
		if c != nil && !c.MatchesVersion(e.Version) {
			continue
		}
		if best == nil || e.Version.Compare(best.Version) > 0 {
			best = e
		}
	}
	return best
}
