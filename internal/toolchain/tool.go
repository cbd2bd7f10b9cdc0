package toolchain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"
)

var (
	ErrEmptyTool      = errors.New("empty tool command")
	ErrNoVersion      = errors.New("no version in tool output")
	ErrVersionTooOld  = errors.New("tool version too old")
	ErrInvalidVersion = errors.New("invalid semantic version")
)

// Tool is a configured command prefix such as ["wasm-pack"] or
// ["yarn", "prettier"]. Invocations append their own arguments.
type Tool []string

func (t Tool) Validate() error {
	if len(t) == 0 || strings.TrimSpace(t[0]) == "" {
		return ErrEmptyTool
	}
	return nil
}

// Command returns the invocation of t with args appended.
func (t Tool) Command(dir string, args ...string) Command {
	all := make([]string, 0, len(t)-1+len(args))
	all = append(all, t[1:]...)
	all = append(all, args...)
	return Command{Name: t[0], Args: all, Dir: dir}
}

func (t Tool) String() string {
	return strings.Join(t, " ")
}

var versionRE = regexp.MustCompile(`v?(\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?)`)

// ParseVersion extracts the first semantic version from out
// (e.g. "wasm-pack 0.12.1") in canonical "v" form.
func ParseVersion(out string) (string, error) {
	m := versionRE.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w: %q", ErrNoVersion, strings.TrimSpace(out))
	}
	return "v" + m[1], nil
}

// CheckVersion runs "<tool> --version" and fails unless the reported version
// is at least minVersion. An empty minVersion skips the check.
func CheckVersion(ctx context.Context, r Runner, t Tool, minVersion string) (string, error) {
	if minVersion == "" {
		return "", nil
	}
	if err := t.Validate(); err != nil {
		return "", err
	}
	want := minVersion
	if !strings.HasPrefix(want, "v") {
		want = "v" + want
	}
	if !semver.IsValid(want) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, minVersion)
	}

	out, err := r.Run(ctx, t.Command("", "--version"))
	if err != nil {
		return "", fmt.Errorf("checking version of %s: %w", t, err)
	}
	version, err := ParseVersion(string(out))
	if err != nil {
		return "", fmt.Errorf("checking version of %s: %w", t, err)
	}
	if semver.Compare(version, want) < 0 {
		return version, fmt.Errorf("%w: %s is %s, need at least %s", ErrVersionTooOld, t, version, want)
	}
	log.Debug().Str("tool", t.String()).Str("version", version).Msg("Tool version ok")
	return version, nil
}
