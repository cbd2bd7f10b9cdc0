// Package pipeline builds the configured WebAssembly packages one target at
// a time: bundle, patch the descriptor, format the descriptor.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/blockprotocol/tsbuild/internal/bundler"
	"github.com/blockprotocol/tsbuild/internal/config"
	"github.com/blockprotocol/tsbuild/internal/metadata"
	"github.com/rs/zerolog/log"
)

// Bundler builds the package for a single target and returns the path of
// its descriptor.
type Bundler interface {
	Build(ctx context.Context, opts bundler.Options) (string, error)
}

// Formatter rewrites a file in place.
type Formatter interface {
	Format(ctx context.Context, path string) error
}

// Options control a pipeline run.
type Options struct {
	CrateDir   string
	OutName    string
	Scope      string
	Profile    bundler.Profile
	Targets    []config.Target
	SkipFormat bool
}

// OptionsFromConfig returns the options for building the given targets of cfg.
func OptionsFromConfig(cfg config.Config, targets []config.Target) Options {
	return Options{
		CrateDir: cfg.CrateDir,
		OutName:  cfg.OutName,
		Scope:    cfg.Scope,
		Profile:  cfg.Profile,
		Targets:  targets,
	}
}

// Result describes one successfully built package.
type Result struct {
	Target     bundler.Target
	Descriptor string
	Elapsed    time.Duration
}

type Pipeline struct {
	bundler   Bundler
	patcher   *metadata.Patcher
	formatter Formatter
}

func New(b Bundler, p *metadata.Patcher, f Formatter) *Pipeline {
	return &Pipeline{bundler: b, patcher: p, formatter: f}
}

// Run builds the targets in order. It stops at the first failure; packages
// of targets that completed before it are left in place.
func (p *Pipeline) Run(ctx context.Context, opts Options) ([]Result, error) {
	var results []Result
	for _, t := range opts.Targets {
		res, err := p.runTarget(ctx, opts, t)
		if err != nil {
			return results, fmt.Errorf("target %s: %w", t.Target, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (p *Pipeline) runTarget(ctx context.Context, opts Options, t config.Target) (Result, error) {
	started := time.Now()
	path, err := p.bundler.Build(ctx, bundler.Options{
		Target:   t.Target,
		CrateDir: opts.CrateDir,
		OutDir:   t.OutDir,
		OutName:  opts.OutName,
		Scope:    opts.Scope,
		Profile:  opts.Profile,
	})
	if err != nil {
		return Result{}, err
	}

	unique := metadata.Unique(map[string]string{"name": t.PackageName})
	if err := p.patcher.PatchFile(path, unique); err != nil {
		return Result{}, err
	}

	if opts.SkipFormat {
		log.Debug().Str("path", path).Msg("Skipping formatter")
	} else if err := p.formatter.Format(ctx, path); err != nil {
		return Result{}, err
	}

	res := Result{Target: t.Target, Descriptor: path, Elapsed: time.Since(started)}
	log.Info().
		Str("target", t.Target.String()).
		Str("package", t.PackageName).
		Dur("elapsed", res.Elapsed).
		Msg("Package ready")
	return res, nil
}
