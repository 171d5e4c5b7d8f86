package repo_test

import (
	"testing"

	"aptcheck/pkg/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompression_Roundtrip(t *testing.T) {
	t.Parallel()
	payload := []byte("Package: foo\nVersion: 1.0\n")

	for _, c := range []repo.Compression{repo.CompressionNone, repo.CompressionGZIP, repo.CompressionXZ} {
		t.Run(c.Extension(), func(t *testing.T) {
			t.Parallel()
			compressed, err := c.Compress(payload)
			require.NoError(t, err)
			if c != repo.CompressionNone {
				assert.NotEqual(t, payload, compressed)
			}

			decompressed, err := c.Decompress(compressed)
			require.NoError(t, err)
			assert.Equal(t, payload, decompressed)
		})
	}
}

func TestCompression_DecompressGarbage(t *testing.T) {
	t.Parallel()

	_, err := repo.CompressionGZIP.Decompress([]byte("not gzip"))
	assert.Error(t, err)
	_, err = repo.CompressionXZ.Decompress([]byte("not xz"))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	t.Parallel()

	assert.Equal(t, repo.CompressionGZIP, repo.ParseCompression(".gz"))
	assert.Equal(t, repo.CompressionGZIP, repo.ParseCompression("gz"))
	assert.Equal(t, repo.CompressionXZ, repo.ParseCompression("xz"))
	assert.Equal(t, repo.CompressionNone, repo.ParseCompression("zip"))

	assert.Equal(t, ".xz", repo.CompressionXZ.Extension())
	assert.Equal(t, "", repo.CompressionNone.Extension())
}
