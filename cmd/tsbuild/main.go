package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/blockprotocol/tsbuild/internal/bundler"
	"github.com/blockprotocol/tsbuild/internal/config"
	"github.com/blockprotocol/tsbuild/internal/formatter"
	"github.com/blockprotocol/tsbuild/internal/metadata"
	"github.com/blockprotocol/tsbuild/internal/pipeline"
	"github.com/blockprotocol/tsbuild/internal/toolchain"
	"github.com/blockprotocol/tsbuild/internal/workspace"
	"github.com/peterbourgon/ff/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// Version is the application version.
	// It is set at build time via -ldflags "-X main.Version=...".
	Version = "dev"
)

const envPrefix = "TSBUILD"

// newRunner creates the runner for external tools. Replaced in tests.
var newRunner = toolchain.NewRunner

// listFlag collects the values of a repeatable flag. A single value may
// also hold a comma-separated list, which is how ff passes env vars.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

// Options contains program options that can be set via command-line flags or environment variables.
type Options struct {
	ConfigFile string
	CrateDir   string
	OutDir     string
	Targets    listFlag
	SkipFormat bool
	Dev        bool
	LogLevel   string
	LogFormat  string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	args := os.Args[1:]
	cmd := "build"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "build":
		err = runBuild(ctx, args)
	case "patch":
		err = runPatch(args)
	case "version":
		fmt.Println(Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Available commands: build, patch, version\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		log.Error().Err(err).Msg("tsbuild failed")
		os.Exit(1)
	}
}

// configureLogging sets up the global zerolog logger.
func configureLogging(level, format string, out io.Writer) error {
	zlevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(zlevel)

	switch format {
	case "json":
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	case "text":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339})
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen})
	default:
		return fmt.Errorf("invalid log format %q (want console, text or json)", format)
	}
	return nil
}

func addLogFlags(fs *flag.FlagSet, opts *Options) {
	fs.StringVar(&opts.LogLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&opts.LogFormat, "log-format", "console", "Log format (console, text, json)")
}

func parseFlags(fs *flag.FlagSet, args []string, opts *Options) {
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix(envPrefix)); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(2)
	}
	if err := configureLogging(opts.LogLevel, opts.LogFormat, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		os.Exit(2)
	}
}

// loadConfig reads the configuration file if one is given, or uses the
// built-in defaults relative to the working directory. Directory flags are
// relative to the working directory and take precedence over the file.
func loadConfig(opts Options) (config.Config, error) {
	cfg := config.Default()
	var base string
	if opts.ConfigFile != "" {
		c, err := config.Read(opts.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg, base = c, filepath.Dir(opts.ConfigFile)
	}
	if opts.CrateDir != "" {
		dir, err := filepath.Abs(opts.CrateDir)
		if err != nil {
			return config.Config{}, fmt.Errorf("crate dir: %w", err)
		}
		cfg.CrateDir = dir
	}
	if opts.OutDir != "" {
		dir, err := filepath.Abs(opts.OutDir)
		if err != nil {
			return config.Config{}, fmt.Errorf("out dir: %w", err)
		}
		cfg.OutDir = dir
	}
	if opts.Dev {
		cfg.Profile = bundler.ProfileDev
	}
	cfg = cfg.Resolve(base)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// repositoryDirectory fills an empty repository directory from the location
// of the package (the crate's parent directory) inside its git repository.
func repositoryDirectory(cfg *config.Config) error {
	if cfg.Metadata.Repository.Directory != "" {
		return nil
	}
	dir, err := workspace.RepoDir(filepath.Dir(cfg.CrateDir))
	if err != nil {
		return fmt.Errorf("deriving repository directory: %w", err)
	}
	log.Debug().Str("directory", dir).Msg("Derived repository directory")
	cfg.Metadata.Repository.Directory = dir
	return nil
}

func runBuild(ctx context.Context, args []string) error {
	var opts Options
	fs := flag.NewFlagSet("tsbuild build", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to a YAML build configuration. If empty, the built-in two-target configuration is used.")
	fs.StringVar(&opts.CrateDir, "crate-dir", "", "Directory of the type-system crate (overrides the configuration)")
	fs.StringVar(&opts.OutDir, "out-dir", "", "Base directory for relative target output directories (overrides the configuration)")
	fs.Var(&opts.Targets, "target", "Target to build (web or nodejs). Repeatable; defaults to all configured targets.")
	fs.BoolVar(&opts.SkipFormat, "skip-format", false, "Do not run the formatter on generated descriptors")
	fs.BoolVar(&opts.Dev, "dev", false, "Build with the dev profile instead of release")
	addLogFlags(fs, &opts)
	parseFlags(fs, args, &opts)
	log.Debug().Msgf("Using options from flags/env vars: %+v", opts)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	targets, err := cfg.Select(opts.Targets)
	if err != nil {
		return err
	}
	if err := repositoryDirectory(&cfg); err != nil {
		return err
	}

	runner := newRunner()
	if v, err := toolchain.CheckVersion(ctx, runner, cfg.Tools.Bundler, cfg.Tools.MinBundlerVersion); err != nil {
		return err
	} else if v != "" {
		log.Info().Str("tool", cfg.Tools.Bundler.String()).Str("version", v).Msg("Found bundler")
	}

	b, err := bundler.New(runner, cfg.Tools.Bundler)
	if err != nil {
		return err
	}
	f, err := formatter.New(runner, cfg.Tools.Formatter, "")
	if err != nil {
		return err
	}
	p := pipeline.New(b, metadata.NewPatcher(cfg.Metadata), f)

	popts := pipeline.OptionsFromConfig(cfg, targets)
	popts.SkipFormat = opts.SkipFormat
	results, err := p.Run(ctx, popts)
	if err != nil {
		return err
	}
	log.Info().Int("packages", len(results)).Msg("Build complete")
	return nil
}

func runPatch(args []string) error {
	var opts Options
	var name string
	fs := flag.NewFlagSet("tsbuild patch", flag.ExitOnError)
	fs.StringVar(&opts.ConfigFile, "config", "", "Path to a YAML build configuration providing the metadata")
	fs.StringVar(&name, "name", "", "Package name to write into the descriptor")
	addLogFlags(fs, &opts)
	parseFlags(fs, args, &opts)

	if fs.NArg() != 1 {
		return errors.New("usage: tsbuild patch [-name <package>] <path/to/package.json>")
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := repositoryDirectory(&cfg); err != nil {
		return err
	}

	unique := metadata.NewPatch()
	if name != "" {
		unique = metadata.Unique(map[string]string{"name": name})
	}
	return metadata.NewPatcher(cfg.Metadata).PatchFile(fs.Arg(0), unique)
}
