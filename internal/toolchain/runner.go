// Package toolchain runs the external programs the build delegates to.
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cli/safeexec"
	"github.com/rs/zerolog/log"
)

var ErrToolNotFound = errors.New("tool not found")

// Command is a single program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string // Working directory; empty means the current directory.
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// ToolError is returned when a program exits with a non-zero status.
type ToolError struct {
	Command  Command
	ExitCode int
	Output   []byte
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Command, e.ExitCode)
	if out := strings.TrimSpace(string(e.Output)); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// Runner is an interface that wraps executions of external programs.
// It is mostly used as an abstraction layer for testing.
type Runner interface {
	// Run executes cmd and returns its combined stdout and stderr.
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

func NewRunner() Runner {
	return &execRunner{lookPath: safeexec.LookPath}
}

// execRunner is the implementation of the Runner interface that starts
// processes with os/exec.
type execRunner struct {
	lookPath func(string) (string, error)
}

func (r *execRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	path, err := r.lookPath(c.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrToolNotFound, c.Name, err)
	}

	started := time.Now()
	cmd := exec.CommandContext(ctx, path, c.Args...)
	cmd.Dir = c.Dir
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	log.Debug().Str("cmd", c.String()).Str("dir", c.Dir).Msg("Running external tool")
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return output.Bytes(), &ToolError{
			Command:  c,
			ExitCode: exitCode,
			Output:   output.Bytes(),
			Err:      err,
		}
	}
	log.Debug().
		Str("cmd", c.Name).
		Int64("elapsed_ms", time.Since(started).Milliseconds()).
		Msg("External tool finished")
	return output.Bytes(), nil
}
