// Package toolchaintest provides a fake toolchain.Runner for tests.
package toolchaintest

import (
	"context"
	"sync"

	"github.com/blockprotocol/tsbuild/internal/toolchain"
)

// Runner records every command it is asked to run. If Handler is set, it
// produces the output and error of each run; otherwise runs succeed with
// no output.
type Runner struct {
	Handler func(cmd toolchain.Command) ([]byte, error)

	mu       sync.Mutex
	commands []toolchain.Command
}

func (r *Runner) Run(ctx context.Context, cmd toolchain.Command) ([]byte, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Handler == nil {
		return nil, nil
	}
	return r.Handler(cmd)
}

// Commands returns the commands run so far, in order.
func (r *Runner) Commands() []toolchain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolchain.Command(nil), r.commands...)
}
