package debian

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Version is a Debian package version, split into epoch, upstream version
// and Debian revision.
type Version struct {
	Epoch    int
	Upstream string
	Revision string
}

// ParseVersion parses a version string of the form
// [epoch:]upstream[-revision]. The epoch runs to the first colon, the
// revision from the last hyphen.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, errors.New("empty version")
	}
	if strings.ContainsAny(s, " \t") {
		return Version{}, fmt.Errorf("version %q contains whitespace", s)
	}

	var v Version
	rest := s
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		epoch := rest[:i]
		if !allDigits(epoch) {
			return Version{}, fmt.Errorf("version %q has a non-numeric epoch", s)
		}
		n, err := strconv.Atoi(epoch)
		if err != nil {
			return Version{}, fmt.Errorf("version %q has an invalid epoch: %w", s, err)
		}
		v.Epoch = n
		rest = rest[i+1:]
	}
	if i := strings.LastIndexByte(rest, '-'); i >= 0 {
		v.Revision = rest[i+1:]
		rest = rest[:i]
	}
	if rest == "" {
		return Version{}, fmt.Errorf("version %q has an empty upstream version", s)
	}
	v.Upstream = rest
	return v, nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func (v Version) String() string {
	var sb strings.Builder
	if v.Epoch > 0 {
		fmt.Fprintf(&sb, "%d:", v.Epoch)
	}
	sb.WriteString(v.Upstream)
	if v.Revision != "" {
		sb.WriteByte('-')
		sb.WriteString(v.Revision)
	}
	return sb.String()
}

func (v Version) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *Version) UnmarshalText(b []byte) error {
	parsed, err := ParseVersion(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Compare orders versions per Debian policy. It returns a negative value
// when v is older than o, zero when they are equal and a positive value
// when v is newer.
func (v Version) Compare(o Version) int {
	if v.Epoch != o.Epoch {
		return v.Epoch - o.Epoch
	}
	if c := compareFragment(v.Upstream, o.Upstream); c != 0 {
		return c
	}
	return compareFragment(v.Revision, o.Revision)
}

// compareFragment orders one version fragment by dpkg's rules: alternating
// non-digit and numeric spans, where '~' sorts before everything including
// the end of the string, letters sort before non-letters, and numeric
// spans compare by value.
func compareFragment(a, b string) int {
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for (i < len(a) && !isDigit(a[i])) || (j < len(b) && !isDigit(b[j])) {
			ac, bc := charOrder(a, i), charOrder(b, j)
			if ac != bc {
				return ac - bc
			}
			i++
			j++
		}
		for i < len(a) && a[i] == '0' {
			i++
		}
		for j < len(b) && b[j] == '0' {
			j++
		}
		firstDiff := 0
		for i < len(a) && j < len(b) && isDigit(a[i]) && isDigit(b[j]) {
			if firstDiff == 0 {
				firstDiff = int(a[i]) - int(b[j])
			}
			i++
			j++
		}
		if i < len(a) && isDigit(a[i]) {
			return 1
		}
		if j < len(b) && isDigit(b[j]) {
			return -1
		}
		if firstDiff != 0 {
			return firstDiff
		}
	}
	return 0
}

func charOrder(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	switch c := s[i]; {
	case isDigit(c):
		return 0
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return int(c)
	case c == '~':
		return -1
	default:
		return int(c) + 256
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
