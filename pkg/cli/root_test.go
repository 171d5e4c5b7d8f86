package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Exercises the exit code contract through the real root command:
// 0 for a clean run, 1 when findings were recorded, 2 for hard failures.
func TestExecute_ExitCodes(t *testing.T) {
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	noConfig := filepath.Join(t.TempDir(), "none.yml")

	rootCmd.SetArgs([]string{"version"})
	assert.Equal(t, 0, Execute(context.Background()))

	url := fixtureServer(t, packagesFixture+"Depends: gadget (>= 2.0)\n")
	output := filepath.Join(t.TempDir(), "result.json")
	rootCmd.SetArgs([]string{"check", url, "-d", "test", "-o", output, "--config", noConfig})
	assert.Equal(t, 1, Execute(context.Background()))

	rootCmd.SetArgs([]string{"check", url, "-d", "test", "-o", output, "-a", "sparc", "--config", noConfig})
	assert.Equal(t, 2, Execute(context.Background()))
}

func TestVersionCommand(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123")
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "aptcheck 1.2.3 (abc123)\n", out.String())
}
