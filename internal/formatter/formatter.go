// Package formatter rewrites generated files in the repository's canonical style.
package formatter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/blockprotocol/tsbuild/internal/toolchain"
	"github.com/rs/zerolog/log"
)

// Formatter runs a prettier-compatible command ("<tool> --write <path>").
type Formatter struct {
	runner toolchain.Runner
	tool   toolchain.Tool
	dir    string
}

// New returns a Formatter that runs tool in dir, so that the repository's
// formatter configuration is picked up. An empty dir uses the current directory.
func New(runner toolchain.Runner, tool toolchain.Tool, dir string) (*Formatter, error) {
	if err := tool.Validate(); err != nil {
		return nil, fmt.Errorf("formatter: %w", err)
	}
	return &Formatter{runner: runner, tool: tool, dir: dir}, nil
}

func (f *Formatter) Format(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	if _, err := f.runner.Run(ctx, f.tool.Command(f.dir, "--write", abs)); err != nil {
		return fmt.Errorf("formatting %s: %w", path, err)
	}
	log.Debug().Str("path", abs).Msg("Formatted file")
	return nil
}
