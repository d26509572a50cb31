package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "shipyard.yaml"

// rawTimeouts mirrors the optional timeouts section of the config file.
// Values are duration strings ("5m", "90s").
type rawTimeouts struct {
	Provision string `yaml:"provision"`
	Network   string `yaml:"network"`
}

type rawFile struct {
	Config   `yaml:",inline"`
	Timeouts rawTimeouts `yaml:"timeouts"`
}

// LoadFile reads, defaults, and validates the configuration from a YAML
// file. A missing file is reported as ErrMissing.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: config file %s", ErrMissing, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw rawFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	cfg := raw.Config

	// Defaults for teardown policy: both flags are on unless explicitly
	// disabled in the file.
	var rawMap map[string]any
	_ = yaml.Unmarshal(data, &rawMap)
	if _, set := rawMap["auto_stop"]; !set {
		cfg.AutoStop = true
	}
	if _, set := rawMap["auto_stop_on_failure"]; !set {
		cfg.AutoStopOnFailure = true
	}

	applyDefaults(&cfg)

	cfg.Timeouts = LoadTimeouts()
	if err := overrideTimeouts(cfg.Timeouts, raw.Timeouts); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Remote.User == "" {
		cfg.Remote.User = "ubuntu"
	}
	if cfg.Remote.Directory == "" {
		cfg.Remote.Directory = "/home/ubuntu/app"
	}
	if cfg.Remote.KnownHosts == "" {
		cfg.Remote.KnownHosts = "~/.shipyard/known_hosts"
	}
	cfg.Remote.KeyPath = expandHome(cfg.Remote.KeyPath)
	cfg.Remote.KnownHosts = expandHome(cfg.Remote.KnownHosts)

	if len(cfg.FileSets.Install) == 0 {
		cfg.FileSets.Install = []string{"."}
	}
	if len(cfg.FileSets.Run) == 0 {
		cfg.FileSets.Run = []string{"."}
	}
	if len(cfg.FileSets.Retrieve) == 0 {
		cfg.FileSets.Retrieve = []string{"logs", "params"}
	}

	// The workload is a docker compose project; these match its lifecycle.
	if cfg.Commands.Install == "" {
		cfg.Commands.Install = "docker compose build --pull"
	}
	if cfg.Commands.Run == "" {
		cfg.Commands.Run = "docker compose up --build"
	}
	if cfg.Commands.Start == "" {
		cfg.Commands.Start = "docker compose up -d --build"
	}
	if cfg.Commands.Stop == "" {
		cfg.Commands.Stop = "docker compose down"
	}
}

func overrideTimeouts(t *Timeouts, raw rawTimeouts) error {
	if raw.Provision != "" {
		d, err := time.ParseDuration(raw.Provision)
		if err != nil {
			return fmt.Errorf("invalid timeouts.provision %q: %w", raw.Provision, err)
		}
		t.Provision = d
	}
	if raw.Network != "" {
		d, err := time.ParseDuration(raw.Network)
		if err != nil {
			return fmt.Errorf("invalid timeouts.network %q: %w", raw.Network, err)
		}
		t.Network = d
	}
	return nil
}

// expandHome replaces a leading ~ with the caller's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
