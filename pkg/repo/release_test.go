package repo_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"aptcheck/pkg/debian"
	"aptcheck/pkg/repo"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/ProtonMail/go-crypto/openpgp/clearsign"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const releaseFixture = `Origin: Ubuntu
Label: Ubuntu
Suite: jammy
Codename: jammy
Date: Thu, 21 Apr 2022 17:16:08 UTC
Architectures: amd64 arm64
Components: main restricted
SHA256:
 9a6d9340a3b027ef85e4a8bb05a41a12c79e9dd5a4eb5a0e73a749d7d4c306a3 1234 main/binary-amd64/Packages
 60a5e9ecafbe887b1cbaf91f8bada1f4f71b96bbc7f1ae657701c5b1e92bfbe5 999 main/binary-amd64/Packages.xz
`

func TestParseRelease(t *testing.T) {
	t.Parallel()

	rel, err := repo.ParseRelease([]byte(releaseFixture))
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
	assert.Equal(t, "jammy", rel.Suite)
	assert.Equal(t, []string{"main", "restricted"}, rel.Components)
	assert.Equal(t, []debian.Architecture{debian.ArchAmd64, debian.ArchArm64}, rel.Architectures)
	assert.Equal(t, 2022, rel.Date.Year())

	require.Len(t, rel.SHA256, 2)
	digest := rel.SHA256["main/binary-amd64/Packages.xz"]
	assert.Equal(t, int64(999), digest.Size)
	assert.Equal(t, "60a5e9ecafbe887b1cbaf91f8bada1f4f71b96bbc7f1ae657701c5b1e92bfbe5", digest.SHA256)
}

func TestReleaseCheckCompliance(t *testing.T) {
	t.Parallel()

	rel, err := repo.ParseRelease([]byte(releaseFixture))
	require.NoError(t, err)
	assert.NoError(t, rel.CheckCompliance())

	err = (&repo.Release{}).CheckCompliance()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no Origin")
	assert.Contains(t, err.Error(), "no SHA256")
}

func TestLoadRelease_Unsigned(t *testing.T) {
	t.Parallel()
	router := chi.NewRouter()
	router.Get("/dists/jammy/InRelease", serveBytes([]byte(releaseFixture)))
	base := serverURL(t, router)

	rel, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), repo.Distro{URL: base.String(), Suite: "jammy"})
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
}

func TestLoadRelease_FallsBackToRelease(t *testing.T) {
	t.Parallel()
	router := chi.NewRouter()
	router.Get("/dists/jammy/Release", serveBytes([]byte(releaseFixture)))
	base := serverURL(t, router)

	rel, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), repo.Distro{URL: base.String(), Suite: "jammy"})
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
}

func TestLoadRelease_Flat(t *testing.T) {
	t.Parallel()
	router := chi.NewRouter()
	router.Get("/debs/InRelease", serveBytes([]byte(releaseFixture)))
	base := serverURL(t, router)

	rel, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), repo.Distro{URL: base.String(), FlatPath: "debs"})
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
}

func TestLoadRelease_Signed(t *testing.T) {
	t.Parallel()
	entity := testEntity(t)
	signed := clearsignBody(t, entity, releaseFixture)

	router := chi.NewRouter()
	router.Get("/dists/jammy/InRelease", serveBytes(signed))
	base := serverURL(t, router)

	d := repo.Distro{
		URL:   base.String(),
		Suite: "jammy",
		Key:   repo.TrustedKey{Path: armoredKeyFile(t, entity)},
	}
	rel, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), d)
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
	assert.NoError(t, rel.CheckCompliance())
}

func TestLoadRelease_SignedRawKeyring(t *testing.T) {
	t.Parallel()
	entity := testEntity(t)
	signed := clearsignBody(t, entity, releaseFixture)

	router := chi.NewRouter()
	router.Get("/dists/jammy/InRelease", serveBytes(signed))
	base := serverURL(t, router)

	var raw bytes.Buffer
	require.NoError(t, entity.Serialize(&raw))
	keyPath := filepath.Join(t.TempDir(), "key.gpg")
	require.NoError(t, os.WriteFile(keyPath, raw.Bytes(), 0o600))

	d := repo.Distro{
		URL:   base.String(),
		Suite: "jammy",
		Key:   repo.TrustedKey{Path: keyPath, Raw: true},
	}
	rel, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), d)
	require.NoError(t, err)
	assert.Equal(t, "Ubuntu", rel.Origin)
}

func TestLoadRelease_WrongKey(t *testing.T) {
	t.Parallel()
	signer := testEntity(t)
	signed := clearsignBody(t, signer, releaseFixture)

	router := chi.NewRouter()
	router.Get("/dists/jammy/InRelease", serveBytes(signed))
	base := serverURL(t, router)

	d := repo.Distro{
		URL:   base.String(),
		Suite: "jammy",
		Key:   repo.TrustedKey{Path: armoredKeyFile(t, testEntity(t))},
	}
	_, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verifying InRelease")
}

func TestLoadRelease_SignedMissing(t *testing.T) {
	t.Parallel()
	// signature required, so a bare Release is not an acceptable fallback
	router := chi.NewRouter()
	router.Get("/dists/jammy/Release", serveBytes([]byte(releaseFixture)))
	base := serverURL(t, router)

	d := repo.Distro{
		URL:   base.String(),
		Suite: "jammy",
		Key:   repo.TrustedKey{Path: armoredKeyFile(t, testEntity(t))},
	}
	_, err := repo.LoadRelease(context.Background(), repo.NewFetcher(base, nil), d)
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func testEntity(t *testing.T) *openpgp.Entity {
	t.Helper()
	entity, err := openpgp.NewEntity("Test Archive", "", "archive@aptcheck.test", nil)
	require.NoError(t, err)
	return entity
}

func clearsignBody(t *testing.T, entity *openpgp.Entity, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := clearsign.Encode(&buf, entity.PrivateKey, nil)
	require.NoError(t, err)
	_, err = enc.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func armoredKeyFile(t *testing.T, entity *openpgp.Entity) string {
	t.Helper()
	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(aw))
	require.NoError(t, aw.Close())

	p := filepath.Join(t.TempDir(), "key.asc")
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o600))
	return p
}

func serveBytes(b []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(b)
	}
}
