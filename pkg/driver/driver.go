// Package driver strings the compiler phases together: lexer, parser, type checker, renamer,
// bytecode compiler and VM.
package driver

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/swindle/pkg/bytecode"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/lexer"
	"github.com/xplshn/swindle/pkg/parser"
	"github.com/xplshn/swindle/pkg/renamer"
	"github.com/xplshn/swindle/pkg/typeChecker"
	"github.com/xplshn/swindle/pkg/util"
	"github.com/xplshn/swindle/pkg/vm"
)

var log = util.Logger("driver")

// ReadSource reads a source file.
func ReadSource(path string) ([]rune, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read file '%s': %w", path, err)
	}
	return []rune(string(content)), nil
}

// Parse lexes and parses src. name is used in diagnostics.
func Parse(name string, src []rune, cfg *config.Config) (*parser.Program, error) {
	util.SetSourceFiles([]util.SourceFileRecord{{Name: name, Content: src}})

	log.Infof("tokenizing %s", name)
	tokens, err := lexer.NewLexer(src, 0, cfg).Tokenize()
	if err != nil {
		return nil, err
	}

	log.Infof("parsing %d tokens", len(tokens))
	return parser.NewParser(tokens).Parse()
}

// Check parses and type checks src.
func Check(name string, src []rune, cfg *config.Config) (*typeChecker.Program, error) {
	parsed, err := Parse(name, src, cfg)
	if err != nil {
		return nil, err
	}
	log.Infof("type checking %d statements", len(parsed.Body.Stmts))
	return typeChecker.NewTypeChecker(cfg).Check(parsed)
}

// Compile runs every compiler phase on src.
func Compile(name string, src []rune, cfg *config.Config) (*bytecode.Program, error) {
	typed, err := Check(name, src, cfg)
	if err != nil {
		return nil, err
	}

	resolved, slots := renamer.Resolve(typed)
	log.Infof("resolved %d slots", slots)

	prog := bytecode.Compile(resolved, slots)
	prog.SourceHash = bytecode.HashSource(src)
	log.Infof("compiled %d instructions, %d labels, %d strings", len(prog.Code), prog.LabelCount, len(prog.Strings))
	return prog, nil
}

// CachePath is where the compiled form of a source file is cached.
func CachePath(path string) string {
	return strings.TrimSuffix(path, ".sw") + bytecode.Extension
}

// CompileCached reuses the compiled program cached next to path when it was built from src, and
// otherwise compiles src and refreshes the cache. The result reports whether the cache was hit.
func CompileCached(path string, src []rune, cfg *config.Config) (*bytecode.Program, bool, error) {
	cache := CachePath(path)
	prog, ok, err := bytecode.Cached(cache, src)
	if err != nil {
		log.Noticef("ignoring cache: %s", err)
	}
	if ok {
		log.Infof("using cached %s", cache)
		return prog, true, nil
	}

	prog, err = Compile(path, src, cfg)
	if err != nil {
		return nil, false, err
	}
	if err := bytecode.Save(cache, prog); err != nil {
		log.Warningf("could not write cache: %s", err)
	}
	return prog, false, nil
}

// Run executes prog with the VM options from cfg.
func Run(prog *bytecode.Program, out io.Writer, cfg *config.Config) error {
	machine := vm.New(prog, out, vm.WithTrace(cfg.Trace), vm.WithLeakCheck(cfg.LeakCheck))
	return machine.Run()
}
