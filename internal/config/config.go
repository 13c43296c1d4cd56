package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/leakgate/leakgate/internal/detectors"
	"gopkg.in/yaml.v3"
)

// ErrNoConfig is returned by LoadLocal and LoadGlobal when no file exists.
var ErrNoConfig = errors.New("no config")

// FileConfig is the on-disk YAML configuration shape for leakgate. Pointer
// fields distinguish "unset" from a zero value so CLI, local and global
// layers can be merged.
type FileConfig struct {
	Include         *string `yaml:"include"`
	Exclude         *string `yaml:"exclude"`
	MaxBytes        *int64  `yaml:"max_bytes"`
	Threads         *int    `yaml:"threads"`
	MaxMatches      *int    `yaml:"max_matches"`
	DefaultExcludes *bool   `yaml:"default_excludes"`
	NoColor         *bool   `yaml:"no_color"`
	Policy          *string `yaml:"policy"`

	// Detectors names the built-ins to run; empty runs all of them.
	Detectors []string         `yaml:"detectors"`
	Rules     []detectors.Rule `yaml:"rules"`

	Gitleaks   *GitleaksConfig  `yaml:"gitleaks"`
	Exposure   *ExposureConfig  `yaml:"exposure"`
	Validators *ValidatorConfig `yaml:"validators"`
}

// GitleaksConfig turns on the gitleaks rule set as an extra detector.
type GitleaksConfig struct {
	Enabled *bool `yaml:"enabled"`
	// ConfigPath is a gitleaks TOML rule file. Empty uses the default rules.
	ConfigPath *string `yaml:"config"`
}

// ExposureConfig describes who can read the scanned repository.
type ExposureConfig struct {
	Public               *bool `yaml:"public"`
	ExternalContributors *bool `yaml:"external_contributors"`
}

// ValidatorConfig tunes the validator engine. Durations use time.ParseDuration
// syntax.
type ValidatorConfig struct {
	Timeout     *string `yaml:"timeout"`
	Concurrency *int    `yaml:"concurrency"`
	CacheTTL    *string `yaml:"cache_ttl"`
}

// LoadFile reads a YAML config file from the provided path. Unknown keys are
// rejected and values are range-checked.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LocalNames are the repo-local config file names, in search order.
var LocalNames = []string{".leakgate.yml", ".leakgate.yaml", "leakgate.yml", "leakgate.yaml"}

// LoadLocal searches for a repo-local config file in the given root.
func LoadLocal(repoRoot string) (FileConfig, error) {
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return FileConfig{}, ErrNoConfig
}

// GlobalPath returns the global config location, or "" when no config
// directory can be determined.
func GlobalPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return ""
	}
	return filepath.Join(base, "leakgate", "config.yml")
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	p := GlobalPath()
	if p == "" {
		return FileConfig{}, ErrNoConfig
	}
	if _, err := os.Stat(p); err != nil {
		return FileConfig{}, ErrNoConfig
	}
	return LoadFile(p)
}

// Validate checks numeric ranges and duration syntax.
func (fc FileConfig) Validate() error {
	if fc.MaxBytes != nil && *fc.MaxBytes <= 0 {
		return fmt.Errorf("max_bytes must be positive, got %d", *fc.MaxBytes)
	}
	if fc.Threads != nil && *fc.Threads < 0 {
		return fmt.Errorf("threads must not be negative, got %d", *fc.Threads)
	}
	if fc.MaxMatches != nil && *fc.MaxMatches < 0 {
		return fmt.Errorf("max_matches must not be negative, got %d", *fc.MaxMatches)
	}
	if v := fc.Validators; v != nil {
		if v.Concurrency != nil && *v.Concurrency < 0 {
			return fmt.Errorf("validators.concurrency must not be negative, got %d", *v.Concurrency)
		}
		if _, err := parseDuration(v.Timeout); err != nil {
			return fmt.Errorf("validators.timeout: %w", err)
		}
		if _, err := parseDuration(v.CacheTTL); err != nil {
			return fmt.Errorf("validators.cache_ttl: %w", err)
		}
	}
	if _, err := detectors.CompileRules(fc.Rules); err != nil {
		return err
	}
	return nil
}

// GitleaksEnabled reports whether the gitleaks detector is switched on.
func (fc FileConfig) GitleaksEnabled() bool {
	return fc.Gitleaks != nil && fc.Gitleaks.Enabled != nil && *fc.Gitleaks.Enabled
}

// GitleaksConfigPath returns the rule file path or "".
func (fc FileConfig) GitleaksConfigPath() string {
	if fc.Gitleaks == nil || fc.Gitleaks.ConfigPath == nil {
		return ""
	}
	return *fc.Gitleaks.ConfigPath
}

// ValidatorTimeout returns the configured per-call timeout, zero when unset.
func (fc FileConfig) ValidatorTimeout() time.Duration {
	if fc.Validators == nil {
		return 0
	}
	d, _ := parseDuration(fc.Validators.Timeout)
	return d
}

// ValidatorCacheTTL returns the configured cache TTL, zero when unset.
func (fc FileConfig) ValidatorCacheTTL() time.Duration {
	if fc.Validators == nil {
		return 0
	}
	d, _ := parseDuration(fc.Validators.CacheTTL)
	return d
}

// ValidatorConcurrency returns the configured bound, zero when unset.
func (fc FileConfig) ValidatorConcurrency() int {
	if fc.Validators == nil || fc.Validators.Concurrency == nil {
		return 0
	}
	return *fc.Validators.Concurrency
}

func parseDuration(s *string) (time.Duration, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	return time.ParseDuration(*s)
}
