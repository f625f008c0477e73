// Package config holds the domain settings shared by the CLI and the HTTP
// service. Settings come from a YAML file and ZKPASSPORT_ environment
// variables, the latter taking precedence.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mynextid/zk-passport/inputs"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/watchlist"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "ZKPASSPORT_"

type Config struct {
	Registry  RegistryConfig  `yaml:"registry"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	CSCA      CSCAConfig      `yaml:"csca"`
	Inputs    InputsConfig    `yaml:"inputs"`
	Log       LogConfig       `yaml:"log"`
}

type RegistryConfig struct {
	MaxDepth int `yaml:"max_depth"`
	// SnapshotPath is read at start and written on shutdown when set
	SnapshotPath string `yaml:"snapshot_path"`
	// SnapshotURL seeds the registry when no local snapshot exists
	SnapshotURL string `yaml:"snapshot_url"`
}

type WatchlistConfig struct {
	SourcePath string `yaml:"source_path"`
	Depth      int    `yaml:"depth"`
}

type CSCAConfig struct {
	// BundlePath is a PEM file of CSCA certificates
	BundlePath string `yaml:"bundle_path"`
}

type InputsConfig struct {
	RevealLayout string `yaml:"reveal_layout"`
	Majority     int    `yaml:"majority"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		Registry:  RegistryConfig{MaxDepth: registry.DefaultMaxDepth},
		Watchlist: WatchlistConfig{Depth: watchlist.DefaultDepth},
		Inputs:    InputsConfig{RevealLayout: "v2", Majority: inputs.DefaultMajority},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("config unmarshal: %w", err)
		}
	}
	if err := applyEnvOverrides(c); err != nil {
		return nil, err
	}
	return c, c.Validate()
}

func applyEnvOverrides(c *Config) error {
	str := map[string]*string{
		"REGISTRY_SNAPSHOT":     &c.Registry.SnapshotPath,
		"REGISTRY_SNAPSHOT_URL": &c.Registry.SnapshotURL,
		"WATCHLIST_SOURCE":      &c.Watchlist.SourcePath,
		"CSCA_BUNDLE":           &c.CSCA.BundlePath,
		"REVEAL_LAYOUT":         &c.Inputs.RevealLayout,
		"LOG_LEVEL":             &c.Log.Level,
		"LOG_FORMAT":            &c.Log.Format,
	}
	for k, dst := range str {
		if v := os.Getenv(EnvPrefix + k); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"REGISTRY_DEPTH":  &c.Registry.MaxDepth,
		"WATCHLIST_DEPTH": &c.Watchlist.Depth,
		"MAJORITY":        &c.Inputs.Majority,
	}
	for k, dst := range ints {
		if v := os.Getenv(EnvPrefix + k); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, k, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate checks ranges
func (c *Config) Validate() error {
	if c.Registry.MaxDepth < 1 || c.Registry.MaxDepth > 64 {
		return fmt.Errorf("registry max_depth %d out of range 1..64", c.Registry.MaxDepth)
	}
	if c.Watchlist.Depth < 1 || c.Watchlist.Depth > 256 {
		return fmt.Errorf("watchlist depth %d out of range 1..256", c.Watchlist.Depth)
	}
	if c.Inputs.Majority < 0 || c.Inputs.Majority > 99 {
		return fmt.Errorf("majority %d out of range 0..99", c.Inputs.Majority)
	}
	if _, err := inputs.ParseRevealLayout(c.Inputs.RevealLayout); err != nil {
		return err
	}
	return nil
}

// RevealLayout returns the configured reveal layout
func (c *Config) RevealLayout() inputs.RevealLayout {
	l, err := inputs.ParseRevealLayout(c.Inputs.RevealLayout)
	if err != nil {
		return inputs.RevealV2
	}
	return l
}
