package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
)

func initRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if _, err := git.PlainInit(root, false); err != nil {
		t.Fatalf("PlainInit failed: %v", err)
	}
	return root
}

func TestRepoDir(t *testing.T) {
	root := initRepo(t)
	crate := filepath.Join(root, "libs", "@blockprotocol", "type-system")
	if err := os.MkdirAll(crate, 0755); err != nil {
		t.Fatal(err)
	}

	got, err := RepoDir(crate)
	if err != nil {
		t.Fatalf("RepoDir() failed: %v", err)
	}
	if want := "libs/@blockprotocol/type-system"; got != want {
		t.Errorf("RepoDir() = %q, want %q", got, want)
	}
}

func TestRepoDir_Root(t *testing.T) {
	root := initRepo(t)
	got, err := RepoDir(root)
	if err != nil {
		t.Fatalf("RepoDir() failed: %v", err)
	}
	if got != "." {
		t.Errorf("RepoDir() = %q, want %q", got, ".")
	}
}

func TestRepoRoot_NotRepository(t *testing.T) {
	dir := t.TempDir()
	// A temp dir may itself live inside a checkout; only assert when it does not.
	if _, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		t.Skip("temp dir is inside a git repository")
	}
	if _, err := RepoRoot(dir); !errors.Is(err, ErrNotRepository) {
		t.Errorf("RepoRoot() error = %v, want %v", err, ErrNotRepository)
	}
}

func TestRelDir_Outside(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "repo")
	other := filepath.Join(base, "other")
	for _, d := range []string{root, other} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := RelDir(root, other); !errors.Is(err, ErrOutsideRoot) {
		t.Errorf("RelDir() error = %v, want %v", err, ErrOutsideRoot)
	}
}

func TestResolve(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "x")
	tcs := []struct {
		base, p, want string
	}{
		{"/etc", "", ""},
		{"/etc", abs, abs},
		{"cfg", "crate", filepath.Join("cfg", "crate")},
	}
	for _, tc := range tcs {
		if got := Resolve(tc.base, tc.p); got != tc.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tc.base, tc.p, got, tc.want)
		}
	}
}
