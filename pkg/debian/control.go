package debian

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Paragraph is one RFC822-style stanza of a Debian control file.
type Paragraph map[string]string

// knownFieldOrder lists fields written before any others, in dpkg's
// customary order.
var knownFieldOrder = []string{
	"Package",
	"Source",
	"Origin",
	"Label",
	"Suite",
	"Codename",
	"Binary",
	"Version",
	"Architecture",
	"Architectures",
	"Components",
	"Date",
	"Maintainer",
	"Installed-Size",
	"Depends",
	"Pre-Depends",
	"Recommends",
	"Suggests",
	"Section",
	"Priority",
	"Format",
	"Directory",
	"Filename",
	"Size",
	"MD5sum",
	"SHA1",
	"SHA256",
	"Files",
	"Checksums-Sha256",
	"Description",
}

// ParseControlFile splits a control file into paragraphs. Continuation
// lines are folded into the preceding field, separated by newlines.
func ParseControlFile(in io.Reader) ([]Paragraph, error) {
	var graphs []Paragraph
	var cur Paragraph
	var lastField string

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.TrimSpace(line) == "":
			if cur != nil {
				graphs = append(graphs, cur)
				cur, lastField = nil, ""
			}
		case line[0] == '#':
			continue
		case line[0] == ' ' || line[0] == '\t':
			if lastField == "" {
				return nil, fmt.Errorf("continuation line outside a field: %q", line)
			}
			cur[lastField] += "\n" + strings.TrimRight(line[1:], " \t")
		default:
			key, value, ok := strings.Cut(line, ":")
			if !ok || strings.ContainsAny(key, " \t") {
				return nil, fmt.Errorf("invalid control line: %q", line)
			}
			if cur == nil {
				cur = Paragraph{}
			}
			lastField = key
			cur[key] = strings.TrimSpace(value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading control file: %w", err)
	}
	if cur != nil {
		graphs = append(graphs, cur)
	}
	return graphs, nil
}

// WriteControlFile writes paragraphs separated by blank lines, fields in
// dpkg's customary order.
func WriteControlFile(w io.Writer, graphs ...Paragraph) error {
	for i, p := range graphs {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		for _, key := range p.fieldOrder() {
			value := strings.ReplaceAll(p[key], "\n", "\n ")
			sep := " "
			if strings.HasPrefix(value, "\n") {
				sep = ""
			}
			if _, err := fmt.Fprintf(w, "%s:%s%s\n", key, sep, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p Paragraph) fieldOrder() []string {
	keys := make([]string, 0, len(p))
	seen := make(map[string]bool, len(p))
	for _, key := range knownFieldOrder {
		if _, ok := p[key]; ok {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	rest := make([]string, 0, len(p)-len(keys))
	for key := range p {
		if !seen[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
