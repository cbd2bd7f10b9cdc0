// Package workspace locates the git repository that contains the crate and
// resolves paths relative to it.
package workspace

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

var (
	ErrNotRepository = errors.New("not inside a git repository")
	ErrOutsideRoot   = errors.New("path is outside the repository")
)

// RepoRoot returns the root of the git work tree containing dir.
func RepoRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return "", fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	if err != nil {
		return "", fmt.Errorf("opening git repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("%w: %s has no work tree: %v", ErrNotRepository, dir, err)
	}
	return wt.Filesystem.Root(), nil
}

// RelDir returns dir relative to root in slash-separated form, as used in
// the "repository.directory" field of package descriptors.
func RelDir(root, dir string) (string, error) {
	root, err := canonical(root)
	if err != nil {
		return "", err
	}
	dir, err = canonical(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOutsideRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s not below %s", ErrOutsideRoot, dir, root)
	}
	return filepath.ToSlash(rel), nil
}

// RepoDir returns the slash-separated path of dir relative to the root of
// its git repository.
func RepoDir(dir string) (string, error) {
	root, err := RepoRoot(dir)
	if err != nil {
		return "", err
	}
	return RelDir(root, dir)
}

// Resolve returns p unchanged if it is absolute, otherwise joined to base.
func Resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func canonical(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}
