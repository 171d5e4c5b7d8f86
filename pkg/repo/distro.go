package repo

import (
	"path"

	"aptcheck/pkg/debian"
)

// Distro locates a repository to check: a base URL plus either a suite
// under dists/ or a path for flat repositories.
type Distro struct {
	URL      string     `yaml:"url"`
	Suite    string     `yaml:"suite"`
	FlatPath string     `yaml:"path"`
	Key      TrustedKey `yaml:"key"`
}

// TrustedKey references the OpenPGP key a repository must be signed with.
// A zero value skips signature verification.
type TrustedKey struct {
	Path string `yaml:"path"`
	Raw  bool   `yaml:"raw"`
}

func (k TrustedKey) IsZero() bool { return k.Path == "" }

// Flat reports whether the repository uses the flat layout, with indices
// relative to a path instead of a suite under dists/.
func (d Distro) Flat() bool { return d.FlatPath != "" }

func (d Distro) String() string {
	if d.Flat() {
		return d.URL + " " + d.FlatPath
	}
	return d.URL + " " + d.Suite
}

// metaPath resolves a release-relative path against the repository root.
func (d Distro) metaPath(rel string) string {
	if d.Flat() {
		return path.Join(d.FlatPath, rel)
	}
	return path.Join("dists", d.Suite, rel)
}

// packagesPath returns the Packages index path relative to the release
// file, as listed in its digest table.
func (d Distro) packagesPath(component string, arch debian.Architecture) string {
	if d.Flat() {
		return "Packages"
	}
	return path.Join(component, "binary-"+string(arch), "Packages")
}

// sourcesPath returns the Sources index path relative to the release file.
func (d Distro) sourcesPath(component string) string {
	if d.Flat() {
		return "Sources"
	}
	return path.Join(component, "source", "Sources")
}
