package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"aptcheck/pkg/cache"
	"aptcheck/pkg/check"
	"aptcheck/pkg/debian"
	"aptcheck/pkg/probe"
	"aptcheck/pkg/repo"
)

const defaultRepoURL = "http://archive.ubuntu.com/ubuntu"

type checkOptions struct {
	config        string
	distro        string
	path          string
	key           string
	rawKey        bool
	components    []string
	architectures []string
	checkFiles    bool
	concurrency   int
	output        string
	cacheURL      string
	probeRate     float64
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}
	cmd := &cobra.Command{
		Use:   "check [url]",
		Short: "Check one repository",
		Long: `Check the consistency of an APT repository.

The positional argument is the repository URL, or the name of a preset
from the config file. Without it the Ubuntu archive is checked.

Exit codes:
  0 = repository is consistent
  1 = issues were found, see the logs and the JSON report
  2 = the check did not run to completion`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, args)
		},
	}

	opts.bindFlags(cmd.Flags())
	return cmd
}

func (o *checkOptions) bindFlags(f *pflag.FlagSet) {
	f.StringVar(&o.config, "config", "aptcheck.yml", "path to the preset file")
	f.StringVarP(&o.distro, "distro", "d", "", "name of the distribution, defaults to jammy")
	f.StringVarP(&o.path, "path", "p", "", "path for flat repos, use './' for the root folder")
	f.StringVarP(&o.key, "key", "k", "", "signing key of the InRelease file")
	f.BoolVarP(&o.rawKey, "raw-key", "r", false, "key is a binary key, i.e. not armored")
	f.StringSliceVarP(&o.components, "component", "c", nil, "component to check, repeatable, defaults to all")
	f.StringSliceVarP(&o.architectures, "arch", "a", nil, "architecture to check, repeatable, defaults to all")
	f.BoolVar(&o.checkFiles, "check-files", false, "probe every artifact the indices reference")
	f.IntVar(&o.concurrency, "concurrency", 4, "concurrent index checks")
	f.StringVarP(&o.output, "output", "o", "result.json", "write the JSON report to this path, empty disables")
	f.StringVar(&o.cacheURL, "cache", "", "cache URL, e.g. file://./cache, defaults to in-memory")
	f.Float64Var(&o.probeRate, "probe-rate", 0, "max artifact probes per second, 0 = unlimited")
}

func (o *checkOptions) run(cmd *cobra.Command, args []string) error {
	distro, err := o.resolveDistro(cmd, args)
	if err != nil {
		return err
	}

	architectures := make([]debian.Architecture, 0, len(o.architectures))
	for _, a := range o.architectures {
		arch, err := debian.ParseArchitecture(a)
		if err != nil {
			return err
		}
		architectures = append(architectures, arch)
	}

	logDistro(distro)

	storage, err := cache.StorageFromConfig(cache.Config{URL: o.cacheURL})
	if err != nil {
		return err
	}
	base, err := url.Parse(distro.URL)
	if err != nil {
		return fmt.Errorf("parsing repository URL: %w", err)
	}
	fetcher := repo.NewFetcher(*base, storage)

	ctx := cmd.Context()
	release, err := repo.LoadRelease(ctx, fetcher, distro)
	if err != nil {
		return fmt.Errorf("loading release: %w", err)
	}

	var prober check.Prober
	if o.checkFiles {
		prober = probe.NewProber(probe.Config{RatePerSecond: o.probeRate})
	}

	checker, err := check.New(check.Config{
		Release:       release,
		Provider:      repo.NewProvider(fetcher, distro, release),
		Prober:        prober,
		Distro:        distro.String(),
		Components:    o.components,
		Architectures: architectures,
		CheckFiles:    o.checkFiles,
		Concurrency:   o.concurrency,
	})
	if err != nil {
		return err
	}

	ok, report, err := checker.Run(ctx)
	if err != nil {
		return err
	}

	if o.output != "" {
		if err := report.Save(o.output); err != nil {
			return fmt.Errorf("saving report: %w", err)
		}
		slog.Info("report written", slog.String("path", o.output))
	}

	printSummary(cmd.OutOrStdout(), ok, report)
	if !ok {
		return errFindings
	}
	return nil
}

// resolveDistro combines the positional argument, the preset file and the
// flags into the repository to check.
func (o *checkOptions) resolveDistro(cmd *cobra.Command, args []string) (repo.Distro, error) {
	d := repo.Distro{
		URL:      defaultRepoURL,
		Suite:    o.distro,
		FlatPath: o.path,
		Key:      repo.TrustedKey{Path: o.key, Raw: o.rawKey},
	}

	if len(args) == 1 {
		cfg, err := loadConfig(o.config)
		if err != nil {
			return repo.Distro{}, err
		}
		if preset, ok := cfg.Repos[args[0]]; ok {
			slog.Debug("using preset", slog.String("preset", args[0]))
			o.applyPreset(cmd, &d, preset)
		} else {
			d.URL = args[0]
		}
	}

	if d.Suite == "" && d.FlatPath == "" {
		d.Suite = "jammy"
	}
	return d, nil
}

// applyPreset fills in everything the user did not set explicitly.
func (o *checkOptions) applyPreset(cmd *cobra.Command, d *repo.Distro, preset RepoPreset) {
	flags := cmd.Flags()
	if preset.URL != "" {
		d.URL = preset.URL
	}
	if !flags.Changed("distro") && preset.Distro != "" {
		d.Suite = preset.Distro
	}
	if !flags.Changed("path") && preset.Path != "" {
		d.FlatPath = preset.Path
	}
	if !flags.Changed("key") && preset.Key != "" {
		d.Key = repo.TrustedKey{Path: preset.Key, Raw: preset.RawKey}
	}
	if len(o.components) == 0 {
		o.components = preset.Components
	}
	if len(o.architectures) == 0 {
		o.architectures = preset.Architectures
	}
}

func logDistro(d repo.Distro) {
	attrs := []any{slog.String("url", d.URL)}
	if d.Flat() {
		attrs = append(attrs, slog.String("path", d.FlatPath))
	} else {
		attrs = append(attrs, slog.String("distro", d.Suite))
	}
	if !d.Key.IsZero() {
		attrs = append(attrs, slog.String("key", d.Key.Path))
	}
	slog.Info("checking repository", attrs...)
	if d.Key.IsZero() {
		slog.Warn("no key configured, the release signature will not be verified")
	}
}

func printSummary(w io.Writer, ok bool, report *check.Report) {
	if ok {
		color.New(color.FgGreen).Fprintln(w, "Repo is OK.")
		return
	}
	color.New(color.FgRed, color.Bold).Fprintln(w, "Issues were found during check:")
	if n := len(report.Issues); n > 0 {
		color.New(color.FgRed).Fprintf(w, "  %d issues\n", n)
	}
	if n := len(report.MissingDependencies); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %d missing dependencies\n", n)
	}
	if n := len(report.MissingSources); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %d missing sources\n", n)
	}
}

func init() {
	rootCmd.AddCommand(newCheckCommand())
}
