package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/token"
)

func TestErrorString(t *testing.T) {
	err := Errorf(TypeError, token.Token{Line: 3, Column: 7}, "variable '%s' is not declared", "x")
	be.Equal(t, err.Error(), "type error at line 3, column 7: variable 'x' is not declared")

	err = Errorf(LexError, token.Token{Line: 1, Column: 1}, "unterminated string literal")
	be.Equal(t, err.Error(), "lexer error at line 1, column 1: unterminated string literal")
}

func TestReportShowsSourceLine(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{Name: "main.sw", Content: []rune("int x = 1;\nbool y = x;\n")}})
	defer SetSourceFiles(nil)

	var buf bytes.Buffer
	err := fmt.Errorf("compiling: %w", Errorf(TypeError, token.Token{Line: 2, Column: 1, Len: 4}, "mismatch"))
	Report(&buf, err)
	be.Equal(t, buf.String(), "main.sw:2:1: type error: mismatch\n  bool y = x;\n  ^~~~\n")
}

func TestReportPlainError(t *testing.T) {
	var buf bytes.Buffer
	Report(&buf, errors.New("no input files"))
	be.Equal(t, buf.String(), "swindle: error: no input files\n")
}

func TestWarnRespectsConfig(t *testing.T) {
	var buf bytes.Buffer
	old := Stderr
	Stderr = &buf
	defer func() { Stderr = old }()

	cfg := config.NewConfig()
	tok := token.Token{Line: 1, Column: 5, FileIndex: -1}
	Warn(cfg, config.WarnShadow, tok, "declaration of '%s' shadows an outer variable", "x")
	be.Equal(t, buf.String(), "<input>:1:5: warning: declaration of 'x' shadows an outer variable [-Wshadow]\n")

	buf.Reset()
	cfg.SetWarning(config.WarnShadow, false)
	Warn(cfg, config.WarnShadow, tok, "ignored")
	be.Equal(t, buf.Len(), 0)
}
