package debian_test

import (
	"testing"

	"aptcheck/pkg/debian"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArchitecture(t *testing.T) {
	t.Parallel()

	a, err := debian.ParseArchitecture("amd64")
	require.NoError(t, err)
	assert.Equal(t, debian.ArchAmd64, a)

	a, err = debian.ParseArchitecture("source")
	require.NoError(t, err)
	assert.Equal(t, debian.ArchSource, a)

	_, err = debian.ParseArchitecture("sparc")
	assert.Error(t, err)

	_, err = debian.ParseArchitecture("")
	assert.Error(t, err)
}
