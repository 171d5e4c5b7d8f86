package debian

import (
	"fmt"
	"strings"
)

// Relation is the version comparison of a dependency constraint.
type Relation int

const (
	// RelationAny matches every version.
	RelationAny Relation = iota
	RelationExact
	RelationLess
	RelationLessEq
	RelationGreater
	RelationGreaterEq
)

func (r Relation) String() string {
	switch r {
	case RelationExact:
		return "="
	case RelationLess:
		return "<<"
	case RelationLessEq:
		return "<="
	case RelationGreater:
		return ">>"
	case RelationGreaterEq:
		return ">="
	default:
		return ""
	}
}

func (r Relation) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Relation) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*r = RelationAny
		return nil
	}
	rel, err := parseRelation(string(text))
	if err != nil {
		return err
	}
	*r = rel
	return nil
}

func parseRelation(s string) (Relation, error) {
	switch s {
	case "=":
		return RelationExact, nil
	case "<<":
		return RelationLess, nil
	case "<=", "<":
		return RelationLessEq, nil
	case ">>":
		return RelationGreater, nil
	case ">=", ">":
		return RelationGreaterEq, nil
	}
	return RelationAny, fmt.Errorf("unknown version relation %q", s)
}

// Constraint matches packages by name, optionally narrowed by architecture
// and by a version relation. A zero Relation matches any version.
type Constraint struct {
	Name         string       `json:"name"`
	Architecture Architecture `json:"architecture,omitempty"`
	Relation     Relation     `json:"relation,omitempty"`
	Version      *Version     `json:"version,omitempty"`
}

// MatchesVersion reports whether a candidate version satisfies the
// constraint's relation.
func (c Constraint) MatchesVersion(v Version) bool {
	if c.Relation == RelationAny || c.Version == nil {
		return true
	}
	cmp := v.Compare(*c.Version)
	switch c.Relation {
	case RelationExact:
		return cmp == 0
	case RelationLess:
		return cmp < 0
	case RelationLessEq:
		return cmp <= 0
	case RelationGreater:
		return cmp > 0
	case RelationGreaterEq:
		return cmp >= 0
	}
	return false
}

func (c Constraint) String() string {
	var sb strings.Builder
	sb.WriteString(c.Name)
	if c.Architecture != "" {
		sb.WriteByte(':')
		sb.WriteString(string(c.Architecture))
	}
	if c.Relation != RelationAny && c.Version != nil {
		fmt.Fprintf(&sb, " (%s %s)", c.Relation, c.Version)
	}
	return sb.String()
}

// Dependency is one comma-separated element of a Depends field: a group of
// alternative constraints, satisfied when any alternative is.
type Dependency []Constraint

func (d Dependency) String() string {
	alts := make([]string, len(d))
	for i, c := range d {
		alts[i] = c.String()
	}
	return strings.Join(alts, " | ")
}

// ParseDepends parses a Depends-style field into dependency groups.
func ParseDepends(field string) ([]Dependency, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil, nil
	}
	var deps []Dependency
	for _, group := range strings.Split(field, ",") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}
		var dep Dependency
		for _, alt := range strings.Split(group, "|") {
			c, err := ParseConstraint(alt)
			if err != nil {
				return nil, err
			}
			dep = append(dep, c)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// ParseConstraint parses a single dependency alternative, e.g.
// "libc6 (>= 2.34)" or "cmake:native [amd64]".
func ParseConstraint(s string) (Constraint, error) {
	rest := strings.TrimSpace(s)
	name := rest
	if i := strings.IndexAny(rest, " \t(["); i >= 0 {
		name, rest = rest[:i], strings.TrimSpace(rest[i:])
	} else {
		rest = ""
	}
	if name == "" {
		return Constraint{}, fmt.Errorf("dependency %q has no package name", s)
	}

	var c Constraint
	if qi := strings.IndexByte(name, ':'); qi >= 0 {
		qual := name[qi+1:]
		name = name[:qi]
		if qual != "any" && qual != "native" {
			c.Architecture = Architecture(qual)
		}
	}
	c.Name = name

	for rest != "" {
		switch rest[0] {
		case '(':
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return Constraint{}, fmt.Errorf("dependency %q has an unterminated version relation", s)
			}
			rel, ver, err := parseVersionRelation(rest[1:end])
			if err != nil {
				return Constraint{}, fmt.Errorf("dependency %q: %w", s, err)
			}
			c.Relation = rel
			c.Version = &ver
			rest = strings.TrimSpace(rest[end+1:])
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Constraint{}, fmt.Errorf("dependency %q has an unterminated architecture list", s)
			}
			if arch := firstPositiveArch(rest[1:end]); arch != "" {
				c.Architecture = arch
			}
			rest = strings.TrimSpace(rest[end+1:])
		case '<':
			// build profiles, not meaningful in binary indices
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return Constraint{}, fmt.Errorf("dependency %q has an unterminated build profile", s)
			}
			rest = strings.TrimSpace(rest[end+1:])
		default:
			return Constraint{}, fmt.Errorf("dependency %q has trailing content %q", s, rest)
		}
	}
	return c, nil
}

func parseVersionRelation(body string) (Relation, Version, error) {
	body = strings.TrimSpace(body)
	i := 0
	for i < len(body) && (body[i] == '<' || body[i] == '>' || body[i] == '=') {
		i++
	}
	// dpkg treats a bare version as an exact match
	rel := RelationExact
	if i > 0 {
		var err error
		if rel, err = parseRelation(body[:i]); err != nil {
			return RelationAny, Version{}, err
		}
	}
	ver, err := ParseVersion(body[i:])
	if err != nil {
		return RelationAny, Version{}, err
	}
	return rel, ver, nil
}

func firstPositiveArch(list string) Architecture {
	for _, tok := range strings.Fields(list) {
		if strings.HasPrefix(tok, "!") {
			continue
		}
		return Architecture(tok)
	}
	return ""
}
