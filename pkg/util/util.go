package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/token"
	"golang.org/x/term"
)

// Kind identifies the compilation phase that produced an Error.
type Kind int

const (
	LexError Kind = iota
	SyntaxError
	TypeError
)

func (k Kind) String() string {
	switch k {
	case LexError:
		return "lexer"
	case SyntaxError:
		return "syntax"
	case TypeError:
		return "type"
	}
	return "unknown"
}

// Error is a compile-time diagnostic anchored to a token.
type Error struct {
	Kind Kind
	Tok  token.Token
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error at line %d, column %d: %s", e.Kind, e.Tok.Line, e.Tok.Column, e.Msg)
}

func Errorf(kind Kind, tok token.Token, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// Stderr receives diagnostics. Tests swap it for a buffer.
var Stderr io.Writer = os.Stderr

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

func colorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(w io.Writer, code, s string) string {
	if !colorize(w) {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "<input>", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(w io.Writer, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	lines := strings.Split(string(sourceFiles[tok.FileIndex].Content), "\n")
	if tok.Line > len(lines) {
		return
	}
	fmt.Fprintf(w, "  %s\n", lines[tok.Line-1])

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", max(tok.Column-1, 0)), paint(w, "32", caret))
}

// Report prints err to w. Positioned errors get the file location and the offending source line.
func Report(w io.Writer, err error) {
	var e *Error
	if !errors.As(err, &e) {
		fmt.Fprintf(w, "swindle: %s %v\n", paint(w, "31", "error:"), err)
		return
	}
	filename, line, col := findFileAndLine(e.Tok)
	fmt.Fprintf(w, "%s:%d:%d: %s %s\n", filename, line, col, paint(w, "31", e.Kind.String()+" error:"), e.Msg)
	printErrorLine(w, e.Tok)
}

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	filename, line, col := findFileAndLine(tok)
	fmt.Fprintf(Stderr, "%s:%d:%d: %s ", filename, line, col, paint(Stderr, "33", "warning:"))
	fmt.Fprintf(Stderr, format, args...)
	fmt.Fprintf(Stderr, " [-W%s]\n", cfg.Warnings[wt].Name)
	printErrorLine(Stderr, tok)
}
