package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"celebi/internal/config"
	"celebi/internal/logging"
	"celebi/pkg/celebi"
)

type cliOptions struct {
	create, destroy, set, get, query bool

	name, key, value, bucket string

	configPath, baseDir, backend, logLevel string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("celebi", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts cliOptions
	boolFlag(fs, &opts.create, "create", "c", "create a database")
	boolFlag(fs, &opts.destroy, "destroy", "d", "destroy a database")
	boolFlag(fs, &opts.set, "set", "s", "set a key in a database")
	boolFlag(fs, &opts.get, "get", "g", "get a key from a database")
	boolFlag(fs, &opts.query, "query", "q", "query a database (requires -bucket)")
	stringFlag(fs, &opts.name, "name", "n", "database name (required)")
	stringFlag(fs, &opts.key, "key", "k", "key to set or get")
	stringFlag(fs, &opts.value, "value", "v", "value to set")
	stringFlag(fs, &opts.bucket, "bucket", "b", "bucket the key is stored in")
	fs.StringVar(&opts.configPath, "config", "", "path to config file")
	fs.StringVar(&opts.baseDir, "base-dir", "", "directory holding databases (overrides config)")
	fs.StringVar(&opts.backend, "backend", "", "primary store backend: file, bolt or memory (overrides config)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level (overrides config)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	// CLI flags override config file values
	if opts.baseDir != "" {
		cfg.Storage.BaseDir = opts.baseDir
	}
	if opts.backend != "" {
		cfg.Storage.Backend = opts.backend
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	cfg.Storage.BaseDir = config.ExpandHome(cfg.Storage.BaseDir)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	logging.Init(stderr, cfg.Logging.Level, cfg.Logging.Format)

	c := &cli{
		opts:   opts,
		stdout: stdout,
		stderr: stderr,
		usage:  fs,
		dbOpts: []celebi.Option{
			celebi.WithBaseDir(cfg.Storage.BaseDir),
			celebi.WithBackend(celebi.Backend(cfg.Storage.Backend)),
		},
	}
	return c.dispatch()
}

func boolFlag(fs *flag.FlagSet, p *bool, name, short, usage string) {
	fs.BoolVar(p, name, false, usage)
	fs.BoolVar(p, short, false, "shorthand for -"+name)
}

func stringFlag(fs *flag.FlagSet, p *string, name, short, usage string) {
	fs.StringVar(p, name, "", usage)
	fs.StringVar(p, short, "", "shorthand for -"+name)
}
