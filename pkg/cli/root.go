package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

// errFindings marks a run that completed but recorded findings, so
// Execute can exit 1 instead of 2.
var errFindings = errors.New("issues were found")

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
)

var (
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "aptcheck",
	Short: "Check a Debian-style package repository for inconsistencies",
	Long: `aptcheck validates that an APT repository is internally consistent:
every listed package resolves in its own index, every dependency is
satisfiable within the same index, and every binary package's declared
source exists at a matching version. Optionally it probes every artifact
the indices reference.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if noColor {
			color.NoColor = true
		}
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:   level,
			NoColor: noColor,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// SetBuildInfo records the version stamped in by the build via -ldflags.
func SetBuildInfo(version, commit string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	rootCmd.Version = fmt.Sprintf("%s (%s)", buildVersion, buildCommit)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

// Execute runs the CLI. It returns the process exit code: 0 for a clean
// check, 1 when findings were recorded, 2 for hard failures.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errFindings) {
			return 1
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 2
	}
	return 0
}
