package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/blockprotocol/tsbuild/internal/bundler"
	"github.com/blockprotocol/tsbuild/internal/config"
	"github.com/blockprotocol/tsbuild/internal/descriptor"
	"github.com/blockprotocol/tsbuild/internal/toolchain"
	"github.com/blockprotocol/tsbuild/internal/toolchain/toolchaintest"
	"github.com/go-git/go-git/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestListFlag(t *testing.T) {
	var l listFlag
	for _, v := range []string{"web", "nodejs, web", ""} {
		if err := l.Set(v); err != nil {
			t.Fatal(err)
		}
	}
	if diff := cmp.Diff(listFlag{"web", "nodejs", "web"}, l); diff != "" {
		t.Errorf("listFlag mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigureLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.Disabled)

	var buf bytes.Buffer
	if err := configureLogging("warn", "json", &buf); err != nil {
		t.Fatalf("configureLogging() failed: %v", err)
	}
	log.Info().Msg("hidden")
	log.Warn().Str("target", "web").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"target":"web"`) {
		t.Errorf("unexpected log output: %s", out)
	}

	if err := configureLogging("loud", "json", &buf); err == nil {
		t.Errorf("configureLogging() accepted an invalid level")
	}
	if err := configureLogging("info", "xml", &buf); err == nil {
		t.Errorf("configureLogging() accepted an invalid format")
	}
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(Options{CrateDir: "rust", OutDir: "build", Dev: true})
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	crate, _ := filepath.Abs("rust")
	out, _ := filepath.Abs("build")
	if cfg.CrateDir != crate || cfg.Profile != bundler.ProfileDev {
		t.Errorf("flags not applied: crateDir=%q profile=%q", cfg.CrateDir, cfg.Profile)
	}
	if want := filepath.Join(out, "dist", "web"); cfg.Targets[0].OutDir != want {
		t.Errorf("Targets[0].OutDir = %q, want %q", cfg.Targets[0].OutDir, want)
	}

	path := filepath.Join(t.TempDir(), "tsbuild.yml")
	if err := os.WriteFile(path, []byte("targets: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(Options{ConfigFile: path}); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("loadConfig() error = %v, want %v", err, config.ErrInvalid)
	}
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tsbuild.yml")
	if err := os.WriteFile(path, []byte("outDir: pkg\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(Options{ConfigFile: path})
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if want := filepath.Join(dir, "pkg", "dist", "node"); cfg.Targets[1].OutDir != want {
		t.Errorf("Targets[1].OutDir = %q, want %q", cfg.Targets[1].OutDir, want)
	}

	other := t.TempDir()
	cfg, err = loadConfig(Options{ConfigFile: path, OutDir: other})
	if err != nil {
		t.Fatalf("loadConfig() failed: %v", err)
	}
	if want := filepath.Join(other, "dist", "node"); cfg.Targets[1].OutDir != want {
		t.Errorf("Targets[1].OutDir = %q, want %q", cfg.Targets[1].OutDir, want)
	}
}

func TestRepositoryDirectory(t *testing.T) {
	root := t.TempDir()
	if _, err := git.PlainInit(root, false); err != nil {
		t.Fatal(err)
	}
	pkg := filepath.Join(root, "libs", "@blockprotocol", "type-system")
	if err := os.MkdirAll(filepath.Join(pkg, "crate"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.CrateDir = filepath.Join(pkg, "crate")
	cfg.Metadata.Repository.Directory = ""
	if err := repositoryDirectory(&cfg); err != nil {
		t.Fatalf("repositoryDirectory() failed: %v", err)
	}
	if got, want := cfg.Metadata.Repository.Directory, "libs/@blockprotocol/type-system"; got != want {
		t.Errorf("directory = %q, want %q", got, want)
	}

	// A configured directory is kept as is.
	cfg.Metadata.Repository.Directory = "fixed"
	if err := repositoryDirectory(&cfg); err != nil || cfg.Metadata.Repository.Directory != "fixed" {
		t.Errorf("repositoryDirectory() = %v, directory %q; want fixed", err, cfg.Metadata.Repository.Directory)
	}
}

func TestRunPatch(t *testing.T) {
	const input = `{"name": "old", "version": "1.0.0"}`
	tcs := []struct {
		name     string
		args     []string
		file     bool
		wantErr  error
		wantName string
	}{
		{name: "name override", args: []string{"-name", "@scope/x"}, file: true, wantName: "@scope/x"},
		{name: "no name", file: true, wantName: "old"},
		{name: "missing file", args: []string{"-name", "@scope/x"}, wantErr: descriptor.ErrNotFound},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), descriptor.FileName)
			if tc.file {
				if err := os.WriteFile(path, []byte(input), 0644); err != nil {
					t.Fatal(err)
				}
			}
			args := append([]string{"-log-level", "disabled"}, tc.args...)
			err := runPatch(append(args, path))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("runPatch() error = %v, want %v", err, tc.wantErr)
				}
				if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
					t.Errorf("runPatch() created %s", path)
				}
				return
			}
			if err != nil {
				t.Fatalf("runPatch() failed: %v", err)
			}

			obj, err := descriptor.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			wantKeys := []string{"name", "version", "homepage", "repository", "license", "author"}
			if diff := cmp.Diff(wantKeys, obj.Keys()); diff != "" {
				t.Errorf("keys mismatch (-want +got):\n%s", diff)
			}
			if v, _ := obj.Get("name"); !v.Equal(descriptor.String(tc.wantName)) {
				t.Errorf("name = %v, want %q", v.Interface(), tc.wantName)
			}
		})
	}
}

func TestRunPatch_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"a.json", "b.json"}} {
		err := runPatch(append([]string{"-log-level", "disabled"}, args...))
		if err == nil || !strings.Contains(err.Error(), "usage:") {
			t.Errorf("runPatch(%q) error = %v, want usage error", args, err)
		}
	}
}

// fakeTools answers the bundler version probe with version, writes a
// descriptor into --out-dir for builds and accepts formatter runs.
func fakeTools(version string) *toolchaintest.Runner {
	return &toolchaintest.Runner{Handler: func(cmd toolchain.Command) ([]byte, error) {
		if cmd.Name != "wasm-pack" {
			return nil, nil
		}
		if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
			return []byte("wasm-pack " + version + "\n"), nil
		}
		for i := 0; i+1 < len(cmd.Args); i++ {
			if cmd.Args[i] == "--out-dir" {
				dir := cmd.Args[i+1]
				if err := os.MkdirAll(dir, 0755); err != nil {
					return nil, err
				}
				content := `{"name": "type-system", "version": "0.0.1"}`
				return nil, os.WriteFile(filepath.Join(dir, descriptor.FileName), []byte(content), 0644)
			}
		}
		return nil, errors.New("no --out-dir")
	}}
}

func withRunner(t *testing.T, r toolchain.Runner) {
	t.Helper()
	orig := newRunner
	newRunner = func() toolchain.Runner { return r }
	t.Cleanup(func() { newRunner = orig })
}

func TestRunBuild(t *testing.T) {
	runner := fakeTools("0.12.1")
	withRunner(t, runner)
	dir := t.TempDir()

	args := []string{
		"-log-level", "disabled",
		"-crate-dir", filepath.Join(dir, "crate"),
		"-out-dir", filepath.Join(dir, "out"),
		"-target", "web",
	}
	if err := runBuild(context.Background(), args); err != nil {
		t.Fatalf("runBuild() failed: %v", err)
	}

	var names []string
	for _, c := range runner.Commands() {
		names = append(names, c.Name+" "+c.Args[0])
	}
	want := []string{"wasm-pack --version", "wasm-pack build", "prettier --write"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}

	obj, err := descriptor.ReadFile(filepath.Join(dir, "out", "dist", "web", descriptor.FileName))
	if err != nil {
		t.Fatalf("web descriptor: %v", err)
	}
	if v, _ := obj.Get("name"); !v.Equal(descriptor.String("@blockprotocol/type-system-web")) {
		t.Errorf("name = %v", v.Interface())
	}
	if _, err := os.Stat(filepath.Join(dir, "out", "dist", "node")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("nodejs package built although only web was selected")
	}
}

func TestRunBuild_BundlerTooOld(t *testing.T) {
	runner := fakeTools("0.9.1")
	withRunner(t, runner)
	dir := t.TempDir()

	args := []string{"-log-level", "disabled", "-out-dir", dir, "-skip-format"}
	if err := runBuild(context.Background(), args); !errors.Is(err, toolchain.ErrVersionTooOld) {
		t.Fatalf("runBuild() error = %v, want %v", err, toolchain.ErrVersionTooOld)
	}
	if n := len(runner.Commands()); n != 1 {
		t.Errorf("ran %d commands, want only the version probe", n)
	}
}
