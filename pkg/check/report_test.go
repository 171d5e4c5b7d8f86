package check_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aptcheck/pkg/check"
	"aptcheck/pkg/debian"
)

func TestReport_Save(t *testing.T) {
	t.Parallel()
	dep, err := debian.ParseDepends("gadget (>= 2.0) | widget")
	require.NoError(t, err)
	report := &check.Report{
		Distro:        "http://archive.ubuntu.com/ubuntu jammy",
		Components:    []string{"main"},
		Architectures: []debian.Architecture{debian.ArchAmd64},
		Issues: []check.Issue{
			{Component: "main", Architecture: debian.ArchArm64, Problem: "building package index: status 502"},
		},
		MissingDependencies: []check.MissingDependency{
			{Component: "main", Package: "a", Dependency: dep[0]},
		},
		MissingSources: []check.MissingSource{
			{Component: "main", Package: "foo", Source: "foo", Version: version(t, "1.2")},
		},
	}

	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, report.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got check.Report
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, report, &got)

	assert.False(t, got.OK())
	issues, dependencies, sources := got.Counts()
	assert.Equal(t, 1, issues)
	assert.Equal(t, 1, dependencies)
	assert.Equal(t, 1, sources)
}

func TestReport_JSONFields(t *testing.T) {
	t.Parallel()
	report := &check.Report{
		Components:          []string{"main"},
		Architectures:       []debian.Architecture{debian.ArchAmd64},
		CheckFiles:          true,
		Issues:              []check.Issue{},
		MissingDependencies: []check.MissingDependency{},
		MissingSources:      []check.MissingSource{},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"components": ["main"],
		"architectures": ["amd64"],
		"check_files": true,
		"issues": [],
		"missing_dependencies": [],
		"missing_sources": []
	}`, string(data))
	assert.True(t, report.OK())
}

func version(t *testing.T, s string) debian.Version {
	t.Helper()
	v, err := debian.ParseVersion(s)
	require.NoError(t, err)
	return v
}
