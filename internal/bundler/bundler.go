// Package bundler drives wasm-pack to compile the type-system crate into an
// npm package for a single target.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blockprotocol/tsbuild/internal/descriptor"
	"github.com/blockprotocol/tsbuild/internal/toolchain"
	"github.com/rs/zerolog/log"
)

var ErrNoDescriptor = errors.New("bundler did not produce a package descriptor")

// Profile selects the cargo profile wasm-pack builds with.
type Profile string

const (
	ProfileRelease Profile = "release"
	ProfileDev     Profile = "dev"
)

// Options are the parameters of a single bundler run.
type Options struct {
	Target   Target
	CrateDir string // Directory containing the crate's Cargo.toml.
	OutDir   string // Output package directory.
	OutName  string // Base name of the generated files (wasm-pack --out-name).
	Scope    string // npm scope without the leading "@".
	Profile  Profile
}

type Bundler struct {
	runner toolchain.Runner
	tool   toolchain.Tool
}

func New(runner toolchain.Runner, tool toolchain.Tool) (*Bundler, error) {
	if err := tool.Validate(); err != nil {
		return nil, fmt.Errorf("bundler: %w", err)
	}
	return &Bundler{runner: runner, tool: tool}, nil
}

// Args returns the wasm-pack arguments for opts. The output directory must
// be absolute since wasm-pack resolves it against the crate directory.
func Args(opts Options) []string {
	args := []string{
		"build",
		"--target", opts.Target.String(),
		"--out-dir", opts.OutDir,
	}
	if opts.OutName != "" {
		args = append(args, "--out-name", opts.OutName)
	}
	if opts.Scope != "" {
		args = append(args, "--scope", opts.Scope)
	}
	switch opts.Profile {
	case ProfileDev:
		args = append(args, "--dev")
	default:
		args = append(args, "--release")
	}
	return append(args, opts.CrateDir)
}

// Build runs the bundler and returns the path of the generated descriptor.
func (b *Bundler) Build(ctx context.Context, opts Options) (string, error) {
	outDir, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return "", fmt.Errorf("resolving output directory: %w", err)
	}
	opts.OutDir = outDir

	log.Info().
		Str("target", opts.Target.String()).
		Str("out_dir", outDir).
		Msg("Building WebAssembly package")
	if _, err := b.runner.Run(ctx, b.tool.Command("", Args(opts)...)); err != nil {
		return "", fmt.Errorf("building %s package: %w", opts.Target, err)
	}

	path := filepath.Join(outDir, descriptor.FileName)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoDescriptor, err)
	}
	return path, nil
}
