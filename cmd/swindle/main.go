package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/bytecode"
	"github.com/xplshn/swindle/pkg/cli"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/driver"
	"github.com/xplshn/swindle/pkg/util"
)

type options struct {
	output     string
	cache      bool
	trace      bool
	leakCheck  bool
	pedantic   bool
	verbosity  int
	dumpAST    bool
	dumpCode   bool
	showConfig bool
}

func main() {
	app := cli.NewApp("swindle")
	app.Synopsis = "[command] [options] <file>"
	app.Description = "A compiler and virtual machine for the swindle language. Programs are type checked, compiled to bytecode and run on a stack machine with reference counted strings."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/swindle>"
	app.Since = 2025
	app.Default = "run"

	var opts options
	fs := app.FlagSet
	fs.String(&opts.output, "output", "o", "", "Place the compiled program into <file>.", "file")
	fs.Bool(&opts.cache, "cache", "c", false, "Reuse and refresh the compiled program cached next to the source.")
	fs.Bool(&opts.trace, "trace", "", false, "Log every executed instruction.")
	fs.Bool(&opts.leakCheck, "leak-check", "", false, "Fail when heap strings are still live after the program halts.")
	fs.Bool(&opts.pedantic, "pedantic", "", false, "Issue every warning.")
	fs.Count(&opts.verbosity, "verbose", "v", "Increase log verbosity (repeatable).")
	fs.Bool(&opts.dumpAST, "ast", "", false, "With 'dump', print the type-checked tree.")
	fs.Bool(&opts.dumpCode, "bytecode", "", false, "With 'dump', print the disassembled bytecode.")
	fs.Bool(&opts.showConfig, "show-config", "", false, "Print the effective warnings and features before running.")

	cfg := config.NewConfig()
	warningFlags, featureFlags := cfg.SetupFlagGroups(fs)

	// setup resolves the configuration in order: swindle.toml, environment, flags.
	setup := func(path string) error {
		loaded, err := cfg.FindAndLoad(filepath.Dir(path))
		if err != nil {
			return err
		}
		cfg.ApplyEnv()
		cfg.ApplyFlagGroups(warningFlags, featureFlags, fs.Changed)
		if opts.pedantic {
			cfg.SetWarning(config.WarnPedantic, true)
		}
		if fs.Changed("trace") {
			cfg.Trace = opts.trace
		}
		if fs.Changed("leak-check") {
			cfg.LeakCheck = opts.leakCheck
		}
		if fs.Changed("verbose") {
			cfg.Verbosity = opts.verbosity
		}
		if cfg.Trace && cfg.Verbosity < 2 {
			cfg.Verbosity = 2
		}
		util.ConfigureLogging(cfg.Verbosity)
		if loaded != "" {
			util.Logger("main").Infof("loaded %s", loaded)
		}
		if opts.showConfig {
			fmt.Fprint(os.Stderr, cfg.Describe())
		}
		return nil
	}

	oneFile := func(cmd string, args []string) (string, error) {
		if len(args) != 1 {
			return "", fmt.Errorf("%s: expected exactly one input file, got %d", cmd, len(args))
		}
		return args[0], setup(args[0])
	}

	app.AddCommand(&cli.Command{
		Name:     "run",
		Usage:    "<file.sw>",
		Synopsis: "Compile and run a program",
		Action: func(args []string) error {
			path, err := oneFile("run", args)
			if err != nil {
				return err
			}
			src, err := driver.ReadSource(path)
			if err != nil {
				return err
			}
			var prog *bytecode.Program
			if opts.cache {
				prog, _, err = driver.CompileCached(path, src, cfg)
			} else {
				prog, err = driver.Compile(path, src, cfg)
			}
			if err != nil {
				return err
			}
			return driver.Run(prog, os.Stdout, cfg)
		},
	})

	app.AddCommand(&cli.Command{
		Name:     "build",
		Usage:    "<file.sw>",
		Synopsis: "Compile a program to bytecode",
		Action: func(args []string) error {
			path, err := oneFile("build", args)
			if err != nil {
				return err
			}
			src, err := driver.ReadSource(path)
			if err != nil {
				return err
			}
			prog, err := driver.Compile(path, src, cfg)
			if err != nil {
				return err
			}
			out := opts.output
			if out == "" {
				out = driver.CachePath(path)
			}
			return bytecode.Save(out, prog)
		},
	})

	app.AddCommand(&cli.Command{
		Name:     "exec",
		Usage:    "<file.swbc>",
		Synopsis: "Run a compiled program",
		Action: func(args []string) error {
			path, err := oneFile("exec", args)
			if err != nil {
				return err
			}
			prog, err := bytecode.Load(path)
			if err != nil {
				return err
			}
			return driver.Run(prog, os.Stdout, cfg)
		},
	})

	app.AddCommand(&cli.Command{
		Name:     "dump",
		Usage:    "<file.sw>",
		Synopsis: "Print the type-checked tree (--ast) or the bytecode (--bytecode)",
		Action: func(args []string) error {
			path, err := oneFile("dump", args)
			if err != nil {
				return err
			}
			src, err := driver.ReadSource(path)
			if err != nil {
				return err
			}
			if opts.dumpAST || !opts.dumpCode {
				typed, err := driver.Check(path, src, cfg)
				if err != nil {
					return err
				}
				fmt.Print(ast.Dump(typed))
			}
			if opts.dumpCode {
				prog, err := driver.Compile(path, src, cfg)
				if err != nil {
					return err
				}
				fmt.Print(bytecode.Disassemble(prog))
			}
			return nil
		},
	})

	if err := app.Run(os.Args[1:]); err != nil {
		var usage *cli.UsageError
		if !errors.As(err, &usage) {
			util.Report(os.Stderr, err)
		}
		os.Exit(1)
	}
}
