package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"aptcheck/pkg/debian"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
)

// Release describes a repository snapshot: its identity, the components
// and architectures it carries, and digests for its index files.
type Release struct {
	Origin        string
	Label         string
	Suite         string
	Codename      string
	Date          time.Time
	Components    []string
	Architectures []debian.Architecture
	SHA256        map[string]FileDigest
}

// FileDigest is one row of a release digest table.
type FileDigest struct {
	SHA256 string
	Size   int64
}

// LoadRelease fetches and parses the repository's release file. With a
// trusted key the clearsigned InRelease is required and verified; without
// one InRelease is preferred and a bare Release accepted.
func LoadRelease(ctx context.Context, f *Fetcher, d Distro) (*Release, error) {
	if !d.Key.IsZero() {
		keyring, err := KeyringFromTrustedKey(d.Key)
		if err != nil {
			return nil, err
		}
		data, err := f.Get(ctx, NamespaceRelease, d.metaPath("InRelease"))
		if err != nil {
			return nil, err
		}
		body, err := verifyClearsigned(data, keyring)
		if err != nil {
			return nil, fmt.Errorf("verifying InRelease: %w", err)
		}
		return ParseRelease(body)
	}

	data, err := f.Get(ctx, NamespaceRelease, d.metaPath("InRelease"))
	if err == nil {
		if block, _ := clearsign.Decode(data); block != nil {
			return ParseRelease(block.Plaintext)
		}
		return ParseRelease(data)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	slog.Debug("InRelease not found, falling back to Release")
	data, err = f.Get(ctx, NamespaceRelease, d.metaPath("Release"))
	if err != nil {
		return nil, err
	}
	return ParseRelease(data)
}

func verifyClearsigned(data []byte, keyring openpgp.EntityList) ([]byte, error) {
	block, _ := clearsign.Decode(data)
	if block == nil {
		return nil, errors.New("no clearsigned message found")
	}
	if _, err := openpgp.CheckDetachedSignature(keyring, bytes.NewReader(block.Bytes), block.ArmoredSignature.Body, nil); err != nil {
		return nil, fmt.Errorf("checking signature: %w", err)
	}
	return block.Plaintext, nil
}

// ParseRelease parses the paragraph of a Release file.
func ParseRelease(data []byte) (*Release, error) {
	graphs, err := debian.ParseControlFile(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing release: %w", err)
	}
	if len(graphs) == 0 {
		return nil, errors.New("empty release file")
	}
	graph := graphs[0]

	rel := &Release{
		Origin:   graph["Origin"],
		Label:    graph["Label"],
		Suite:    graph["Suite"],
		Codename: graph["Codename"],
		SHA256:   map[string]FileDigest{},
	}
	if date := graph["Date"]; date != "" {
		for _, layout := range []string{time.RFC1123Z, time.RFC1123} {
			if ts, err := time.Parse(layout, date); err == nil {
				rel.Date = ts
				break
			}
		}
	}
	rel.Components = strings.Fields(graph["Components"])
	for _, s := range strings.Fields(graph["Architectures"]) {
		rel.Architectures = append(rel.Architectures, debian.Architecture(s))
	}
	for _, line := range strings.Split(graph["SHA256"], "\n") {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			continue
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		rel.SHA256[fields[2]] = FileDigest{SHA256: fields[0], Size: size}
	}
	return rel, nil
}

// CheckCompliance reports policy problems with the release metadata. The
// findings are advisory and do not block checking.
func (r *Release) CheckCompliance() error {
	var errs []error
	if r.Origin == "" {
		errs = append(errs, errors.New("release has no Origin"))
	}
	if r.Label == "" {
		errs = append(errs, errors.New("release has no Label"))
	}
	if r.Suite == "" && r.Codename == "" {
		errs = append(errs, errors.New("release has neither Suite nor Codename"))
	}
	if len(r.Components) == 0 {
		errs = append(errs, errors.New("release lists no Components"))
	}
	if len(r.Architectures) == 0 {
		errs = append(errs, errors.New("release lists no Architectures"))
	}
	if r.Date.IsZero() {
		errs = append(errs, errors.New("release has no valid Date"))
	}
	if len(r.SHA256) == 0 {
		errs = append(errs, errors.New("release has no SHA256 digest table"))
	}
	return errors.Join(errs...)
}
