package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blockprotocol/tsbuild/internal/bundler"
	"github.com/blockprotocol/tsbuild/internal/metadata"
	"github.com/blockprotocol/tsbuild/internal/toolchain"
	"github.com/blockprotocol/tsbuild/internal/workspace"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid configuration")

// Target configures the package generated for one bundler target.
type Target struct {
	Target      bundler.Target `yaml:"target"`
	OutDir      string         `yaml:"outDir"`      // Output package directory.
	PackageName string         `yaml:"packageName"` // Written to the "name" field of the descriptor.
}

// Tools holds the command prefixes of the external programs.
type Tools struct {
	Bundler   toolchain.Tool `yaml:"bundler"`
	Formatter toolchain.Tool `yaml:"formatter"`
	// The oldest bundler release known to accept all flags we pass.
	// Empty disables the check.
	MinBundlerVersion string `yaml:"minBundlerVersion"`
}

// Config is the umbrella struct for the serialized build configuration YAML.
// Fields missing from the YAML keep their default values.
type Config struct {
	CrateDir string          `yaml:"crateDir"` // Directory containing Cargo.toml.
	OutDir   string          `yaml:"outDir"`   // Base for relative target outDirs; empty means the config's directory.
	OutName  string          `yaml:"outName"`  // Base name of the generated .wasm/.js files.
	Scope    string          `yaml:"scope"`    // npm scope, without "@".
	Profile  bundler.Profile `yaml:"profile"`
	Targets  []Target        `yaml:"targets"`
	// Metadata is written into every generated descriptor. An empty
	// repository directory is derived from the crate's location in git.
	Metadata metadata.Common `yaml:"metadata"`
	Tools    Tools           `yaml:"tools"`
}

// Default returns the configuration that builds the browser and Node.js
// packages of the type system.
func Default() Config {
	return Config{
		CrateDir: "crate",
		OutName:  "type-system",
		Scope:    "blockprotocol",
		Profile:  bundler.ProfileRelease,
		Targets: []Target{
			{Target: bundler.TargetWeb, OutDir: "dist/web", PackageName: "@blockprotocol/type-system-web"},
			{Target: bundler.TargetNodeJS, OutDir: "dist/node", PackageName: "@blockprotocol/type-system-node"},
		},
		Metadata: metadata.DefaultCommon(),
		Tools: Tools{
			Bundler:           toolchain.Tool{"wasm-pack"},
			Formatter:         toolchain.Tool{"prettier"},
			MinBundlerVersion: "0.10.0",
		},
	}
}

// Decode reads YAML from r on top of the default configuration.
// Unknown fields are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read decodes the configuration file at path without resolving its
// relative paths.
func Read(path string) (Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config %q: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(bs))
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Load reads the configuration file at path. Relative paths inside the file
// are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	return cfg.Resolve(filepath.Dir(path)), nil
}

// Resolve returns a copy of c with relative directories joined to base.
// Relative target output directories are joined to the resolved OutDir.
func (c Config) Resolve(base string) Config {
	c.CrateDir = workspace.Resolve(base, c.CrateDir)
	c.OutDir = workspace.Resolve(base, c.OutDir)
	outBase := c.OutDir
	if outBase == "" {
		outBase = base
	}
	targets := make([]Target, len(c.Targets))
	for i, t := range c.Targets {
		t.OutDir = workspace.Resolve(outBase, t.OutDir)
		targets[i] = t
	}
	c.Targets = targets
	return c
}

func (c Config) Validate() error {
	if c.CrateDir == "" {
		return fmt.Errorf("%w: crateDir is empty", ErrInvalid)
	}
	switch c.Profile {
	case bundler.ProfileRelease, bundler.ProfileDev:
	default:
		return fmt.Errorf("%w: unknown profile %q (want release or dev)", ErrInvalid, c.Profile)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: no targets", ErrInvalid)
	}
	seen := make(map[bundler.Target]bool)
	for _, t := range c.Targets {
		if seen[t.Target] {
			return fmt.Errorf("%w: target %s configured twice", ErrInvalid, t.Target)
		}
		seen[t.Target] = true
		if t.OutDir == "" {
			return fmt.Errorf("%w: target %s has no outDir", ErrInvalid, t.Target)
		}
		if t.PackageName == "" {
			return fmt.Errorf("%w: target %s has no packageName", ErrInvalid, t.Target)
		}
	}
	if err := c.Tools.Bundler.Validate(); err != nil {
		return fmt.Errorf("%w: tools.bundler: %v", ErrInvalid, err)
	}
	if err := c.Tools.Formatter.Validate(); err != nil {
		return fmt.Errorf("%w: tools.formatter: %v", ErrInvalid, err)
	}
	return nil
}

// Select returns the configured targets restricted to names, in configured
// order. An empty names selects all targets.
func (c Config) Select(names []string) ([]Target, error) {
	if len(names) == 0 {
		return c.Targets, nil
	}
	configured := make(map[bundler.Target]bool, len(c.Targets))
	for _, t := range c.Targets {
		configured[t.Target] = true
	}
	want := make(map[bundler.Target]bool)
	for _, n := range names {
		t, err := bundler.ParseTarget(n)
		if err != nil {
			return nil, err
		}
		if !configured[t] {
			return nil, fmt.Errorf("%w: target %s is not configured", ErrInvalid, t)
		}
		want[t] = true
	}
	var out []Target
	for _, t := range c.Targets {
		if want[t.Target] {
			out = append(out, t)
		}
	}
	return out, nil
}
