package driver

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/mdtest"
	"github.com/xplshn/swindle/pkg/util"
	"github.com/xplshn/swindle/pkg/vm"
)

func TestMarkdownCases(t *testing.T) {
	files, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(files) > 0)

	stderr := util.Stderr
	util.Stderr = io.Discard
	defer func() { util.Stderr = stderr }()

	for _, file := range files {
		t.Run(strings.TrimSuffix(filepath.Base(file), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(file)
			be.Err(t, err, nil)
			cases, err := mdtest.Extract(content)
			be.Err(t, err, nil)
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) { runCase(t, file, tc) })
			}
		})
	}
}

func runCase(t *testing.T, file string, tc mdtest.TestCase) {
	cfg := config.NewConfig()
	cfg.LeakCheck = true
	src := []rune(tc.Input)

	var runtimeErr error
	var output bytes.Buffer
	prog, compileErr := Compile(file, src, cfg)
	if compileErr == nil {
		runtimeErr = Run(prog, &output, cfg)
	}

	for _, a := range tc.Assertions {
		switch a.Type {
		case mdtest.AssertCompileError:
			var e *util.Error
			if !errors.As(compileErr, &e) {
				t.Fatalf("%s:%d: expected a compile error, got %v", file, tc.Line, compileErr)
			}
			be.Equal(t, e.Error(), a.Content)

		case mdtest.AssertOutput:
			be.Err(t, compileErr, nil)
			got := strings.TrimRight(output.String(), "\n")
			if diff := cmp.Diff(a.Content, got); diff != "" {
				t.Errorf("%s:%d: output mismatch (-want +got):\n%s", file, tc.Line, diff)
			}

		case mdtest.AssertRuntimeError:
			var rerr *vm.RuntimeError
			if !errors.As(runtimeErr, &rerr) {
				t.Fatalf("%s:%d: expected a runtime error, got %v", file, tc.Line, runtimeErr)
			}
			be.Equal(t, rerr.Msg, a.Content)

		case mdtest.AssertAST:
			typed, err := Check(file, src, cfg)
			be.Err(t, err, nil)
			got := strings.TrimRight(ast.Dump(typed), "\n")
			if diff := cmp.Diff(a.Content, got); diff != "" {
				t.Errorf("%s:%d: tree mismatch (-want +got):\n%s", file, tc.Line, diff)
			}
		}
	}

	if runtimeErr != nil && !expectsRuntimeError(tc) {
		t.Errorf("%s:%d: unexpected runtime error: %v", file, tc.Line, runtimeErr)
	}
}

func expectsRuntimeError(tc mdtest.TestCase) bool {
	for _, a := range tc.Assertions {
		if a.Type == mdtest.AssertRuntimeError {
			return true
		}
	}
	return false
}
