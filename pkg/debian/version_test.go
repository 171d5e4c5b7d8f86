package debian_test

import (
	"fmt"
	"testing"

	"aptcheck/pkg/debian"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	t.Parallel()
	cases := map[string]debian.Version{
		"1.2.3":            {Upstream: "1.2.3"},
		"1.0-1":            {Upstream: "1.0", Revision: "1"},
		"2:1.0-1ubuntu1":   {Epoch: 2, Upstream: "1.0", Revision: "1ubuntu1"},
		"1.0-1-1":          {Upstream: "1.0-1", Revision: "1"},
		"0:1.0":            {Upstream: "1.0"},
		"5.10.240~rc2-1":   {Upstream: "5.10.240~rc2", Revision: "1"},
		"1:2.38.1-5+deb12": {Epoch: 1, Upstream: "2.38.1", Revision: "5+deb12"},
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			v, err := debian.ParseVersion(in)
			require.NoError(t, err)
			assert.Equal(t, want, v)
		})
	}
}

func TestParseVersion_Invalid(t *testing.T) {
	t.Parallel()
	for _, in := range []string{
		"",
		"abc:1.0",
		"1.0 beta",
		"2:",
		"-1",
		":1.0",
	} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			t.Parallel()
			_, err := debian.ParseVersion(in)
			assert.Error(t, err)
		})
	}
}

func TestVersionString(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"1.2.3", "1.0-1", "2:1.0-1ubuntu1", "1.0~rc1-3"} {
		v, err := debian.ParseVersion(s)
		require.NoError(t, err)
		assert.Equal(t, s, v.String())
	}
}

func TestVersionCompare(t *testing.T) {
	t.Parallel()
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.0", "1.1", -1},
		{"1.1", "1.0", 1},
		{"09", "9", 0},
		{"9", "10", -1},
		{"1.0~rc1", "1.0", -1},
		{"1.0~rc1", "1.0~rc2", -1},
		{"1.0~~", "1.0~", -1},
		{"3.0~beta1", "3.0", -1},
		{"1.0-1", "1.0-2", -1},
		{"1.0", "1.0-1", -1},
		{"1.0-0", "1.0", 0},
		{"2.0", "1:1.0", -1},
		{"1:1.0", "1:1.0", 0},
		{"1:1.0", "2:0.5", -1},
		{"1.2.3", "1.2.3a", -1},
		{"1.0a", "1.0.1", -1},
		{"1.0+git1", "1.0", 1},
		{"2.4.7-1", "2.4.7-z", -1},
		{"1.0-1ubuntu1", "1.0-1", 1},
		{"6.0-4.el6.x86_64", "6.0-5.el6.x86_64", -1},
	}
	for _, tc := range cases {
		t.Run(tc.a+" vs "+tc.b, func(t *testing.T) {
			t.Parallel()
			a, err := debian.ParseVersion(tc.a)
			require.NoError(t, err)
			b, err := debian.ParseVersion(tc.b)
			require.NoError(t, err)

			got := a.Compare(b)
			switch {
			case tc.want < 0:
				assert.Negative(t, got)
				assert.Positive(t, b.Compare(a))
			case tc.want > 0:
				assert.Positive(t, got)
				assert.Negative(t, b.Compare(a))
			default:
				assert.Zero(t, got)
				assert.Zero(t, b.Compare(a))
			}
		})
	}
}

func TestVersionMarshalText(t *testing.T) {
	t.Parallel()
	v, err := debian.ParseVersion("2:1.0-1")
	require.NoError(t, err)

	text, err := v.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2:1.0-1", string(text))

	var back debian.Version
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, v, back)
}
