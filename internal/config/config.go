// Package config loads and validates the optional .devloop YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file at the project root.
const FileName = ".devloop"

// DefaultMaxOutput caps each captured stream of a tool invocation.
const DefaultMaxOutput = 1 << 20 // 1 MB

// rootMarkers identify a project root, checked in order in every directory.
var rootMarkers = []string{FileName, "pyproject.toml", "go.mod"}

// Config holds the parsed .devloop configuration.
// All fields are optional; zero values fall back to the active preset.
type Config struct {
	Version      int          `yaml:"version"`
	Preset       string       `yaml:"preset"`     // python (default) or go
	RawTimeout   string       `yaml:"timeout"`    // e.g. "10m"; empty means no timeout
	RawMaxOutput int          `yaml:"max_output"` // bytes per stream
	Format       TaskConfig   `yaml:"format"`
	Lint         TaskConfig   `yaml:"lint"`
	Test         TestConfig   `yaml:"test"`
	Coverage     TaskConfig   `yaml:"coverage"`
	Sync         TaskConfig   `yaml:"sync"`
	Doctor       DoctorConfig `yaml:"doctor"`
}

// TaskConfig overrides the command line of a single task.
type TaskConfig struct {
	Command []string `yaml:"command"`
}

// TestConfig overrides how the test task is executed.
type TestConfig struct {
	Command     []string `yaml:"command"`
	VerboseArgs []string `yaml:"verbose_args"` // appended when --verbose is set
}

// DoctorConfig overrides the smoke-test check list.
type DoctorConfig struct {
	// ImportCommand is the probe used by import checks. Every "{module}"
	// in an element is replaced with the module name.
	ImportCommand []string      `yaml:"import_command"`
	Checks        []CheckConfig `yaml:"checks"`
}

// CheckConfig is a single smoke-test check. Exactly one of Command or
// Import must be set.
type CheckConfig struct {
	Name    string   `yaml:"name"`
	Command []string `yaml:"command"`
	Import  string   `yaml:"import"`
}

// IsImport reports whether the check probes a library import.
func (c CheckConfig) IsImport() bool {
	return c.Import != ""
}

// Timeout returns the configured timeout, or zero when none is set.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RawTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// ActivePreset returns the preset named by the config, defaulting to python.
// Validate rejects unknown names, so an unknown name here also yields python.
func (c *Config) ActivePreset() Preset {
	if p, ok := LookupPreset(c.Preset); ok {
		return p
	}
	return Python
}

// FormatCommand returns the formatter command line.
func (c *Config) FormatCommand() []string {
	return pick(c.Format.Command, c.ActivePreset().Format)
}

// LintCommand returns the linter command line.
func (c *Config) LintCommand() []string {
	return pick(c.Lint.Command, c.ActivePreset().Lint)
}

// TestCommand returns the test runner command line, with the verbose
// arguments appended when verbose is true.
func (c *Config) TestCommand(verbose bool) []string {
	argv := pick(c.Test.Command, c.ActivePreset().Test)
	if verbose {
		argv = append(argv, pick(c.Test.VerboseArgs, c.ActivePreset().TestVerbose)...)
	}
	return argv
}

// CoverageCommand returns the test-with-coverage command line.
func (c *Config) CoverageCommand() []string {
	return pick(c.Coverage.Command, c.ActivePreset().Coverage)
}

// SyncCommand returns the dependency-sync command line.
func (c *Config) SyncCommand() []string {
	return pick(c.Sync.Command, c.ActivePreset().Sync)
}

// ImportCommand returns the import probe template.
func (c *Config) ImportCommand() []string {
	return pick(c.Doctor.ImportCommand, c.ActivePreset().ImportCommand)
}

// DoctorChecks returns the configured smoke-test checks, falling back to
// the preset list.
func (c *Config) DoctorChecks() []CheckConfig {
	if len(c.Doctor.Checks) > 0 {
		return slices.Clone(c.Doctor.Checks)
	}
	return slices.Clone(c.ActivePreset().Checks)
}

// pick returns a copy of override when set, else of fallback. Copies keep
// callers from appending into preset slices.
func pick(override, fallback []string) []string {
	if len(override) > 0 {
		return slices.Clone(override)
	}
	return slices.Clone(fallback)
}

// Validate reports configuration errors that would otherwise surface only
// when a task runs.
func (c *Config) Validate() error {
	var errs []error
	if c.Preset != "" {
		if _, ok := LookupPreset(c.Preset); !ok {
			errs = append(errs, fmt.Errorf("unknown preset %q (want one of %v)", c.Preset, PresetNames()))
		}
	}
	if c.RawTimeout != "" {
		if d, err := time.ParseDuration(c.RawTimeout); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("invalid timeout %q", c.RawTimeout))
		}
	}
	if c.RawMaxOutput < 0 {
		errs = append(errs, fmt.Errorf("max_output must not be negative, got %d", c.RawMaxOutput))
	}
	for i, check := range c.Doctor.Checks {
		switch {
		case check.Name == "":
			errs = append(errs, fmt.Errorf("doctor.checks[%d]: name is required", i))
		case len(check.Command) > 0 && check.Import != "":
			errs = append(errs, fmt.Errorf("doctor.checks[%d] (%s): set command or import, not both", i, check.Name))
		case len(check.Command) == 0 && check.Import == "":
			errs = append(errs, fmt.Errorf("doctor.checks[%d] (%s): command or import is required", i, check.Name))
		}
	}
	return errors.Join(errs...)
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config *Config
	Root   string // directory holding a root marker; falls back to workspace
	Path   string // config file path, empty when no file was found
}

// Load reads the .devloop file from the project root.
// The root is discovered by walking upward from workspace looking for a
// .devloop, pyproject.toml or go.mod file. If no .devloop file exists, a
// default Config is returned.
func Load(workspace string) (*LoadResult, error) {
	root, err := findRoot(workspace)
	if err != nil {
		root = workspace
	}

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, Root: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &LoadResult{Config: cfg, Root: root, Path: path}, nil
}

// findRoot walks upward from dir looking for a directory containing a
// root marker.
func findRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project root found")
		}
		dir = parent
	}
}
