package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the optional aptcheck.yml file: named repository presets so
// `aptcheck check internal` works without repeating flags every run.
type Config struct {
	Repos map[string]RepoPreset `yaml:"repos"`
}

// RepoPreset pre-fills check flags for a named repository. Flags given on
// the command line win over preset values.
type RepoPreset struct {
	URL           string   `yaml:"url"`
	Distro        string   `yaml:"distro"`
	Path          string   `yaml:"path"`
	Key           string   `yaml:"key"`
	RawKey        bool     `yaml:"rawkey"`
	Components    []string `yaml:"components"`
	Architectures []string `yaml:"architectures"`
}

func loadConfig(path string) (*Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			return nil, fmt.Errorf("error decoding config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error opening config: %w", err)
	} else {
		slog.Debug("no config file found", slog.String("path", path))
	}

	if cfg.Repos == nil {
		cfg.Repos = map[string]RepoPreset{}
	}
	return &cfg, nil
}
