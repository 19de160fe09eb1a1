package config

import (
	"slices"
	"sort"
)

// Preset is a named default tool chain.
type Preset struct {
	Name          string
	Format        []string
	Lint          []string
	Test          []string
	TestVerbose   []string
	Coverage      []string
	Sync          []string
	ImportCommand []string
	Checks        []CheckConfig
}

// Python drives uv, ruff and pytest.
var Python = Preset{
	Name:          "python",
	Format:        []string{"uv", "run", "ruff", "format", "."},
	Lint:          []string{"uv", "run", "ruff", "check", "."},
	Test:          []string{"uv", "run", "pytest"},
	TestVerbose:   []string{"-v"},
	Coverage:      []string{"uv", "run", "pytest", "--cov"},
	Sync:          []string{"uv", "sync", "--dev"},
	ImportCommand: []string{"uv", "run", "python", "-c", "import {module}"},
	Checks: []CheckConfig{
		{Name: "Python version check", Command: []string{"python", "--version"}},
		{Name: "uv version check", Command: []string{"uv", "--version"}},
		{Name: "Virtual environment check", Command: []string{"which", "python"}},
		{Name: "Polars import", Import: "polars"},
		{Name: "DuckDB import", Import: "duckdb"},
		{Name: "Azure Identity import", Import: "azure.identity"},
		{Name: "Azure Storage Blob import", Import: "azure.storage.blob"},
		{Name: "Ruff version check", Command: []string{"uv", "run", "ruff", "--version"}},
		{Name: "Pytest version check", Command: []string{"uv", "run", "pytest", "--version"}},
		{Name: "Dependencies sync check", Command: []string{"uv", "sync", "--check"}},
	},
}

// Go drives gofumpt, golangci-lint and go test.
var Go = Preset{
	Name:          "go",
	Format:        []string{"gofumpt", "-l", "-w", "."},
	Lint:          []string{"golangci-lint", "run", "./..."},
	Test:          []string{"go", "test", "./..."},
	TestVerbose:   []string{"-v"},
	Coverage:      []string{"go", "test", "-cover", "./..."},
	Sync:          []string{"go", "mod", "tidy"},
	ImportCommand: []string{"go", "list", "-m", "{module}"},
	Checks: []CheckConfig{
		{Name: "Go version check", Command: []string{"go", "version"}},
		{Name: "Go environment check", Command: []string{"go", "env", "GOPATH"}},
		{Name: "Module check", Command: []string{"go", "list", "-m"}},
		{Name: "gofumpt version check", Command: []string{"gofumpt", "--version"}},
		{Name: "golangci-lint version check", Command: []string{"golangci-lint", "--version"}},
		{Name: "Dependencies verify check", Command: []string{"go", "mod", "verify"}},
	},
}

var presets = map[string]Preset{
	Python.Name: Python,
	Go.Name:     Go,
}

// LookupPreset returns the preset with the given name. An empty name
// selects python.
func LookupPreset(name string) (Preset, bool) {
	if name == "" {
		return Python, true
	}
	p, ok := presets[name]
	if !ok {
		return Preset{}, false
	}
	p.Checks = slices.Clone(p.Checks)
	return p, true
}

// PresetNames returns the known preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
