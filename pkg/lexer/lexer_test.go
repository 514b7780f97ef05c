package lexer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nalgeon/be"
	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/token"
	"github.com/xplshn/swindle/pkg/util"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	tokens, err := NewLexer([]rune(src), 0, config.NewConfig()).Tokenize()
	be.Err(t, err, nil)
	return tokens
}

func types(tokens []token.Token) []token.Type {
	var out []token.Type
	for _, tok := range tokens {
		out = append(out, tok.Type)
	}
	return out
}

func TestKeywordsAndOperators(t *testing.T) {
	tokens := lex(t, "writeln write int x = 3 == 4 != 5 <= >= < > ; { } ( ) + - * / % $ not and or elif")
	want := []token.Type{
		token.Writeln, token.Write, token.IntKeyword, token.Ident, token.Eq, token.Number, token.EqEq,
		token.Number, token.Neq, token.Number, token.Lte, token.Gte, token.Lt, token.Gt, token.Semi,
		token.LBrace, token.RBrace, token.LParen, token.RParen, token.Plus, token.Minus, token.Star,
		token.Slash, token.Rem, token.Dollar, token.Not, token.And, token.Or, token.Elif, token.EOF,
	}
	if diff := cmp.Diff(want, types(tokens)); diff != "" {
		t.Errorf("token types mismatch (-want +got):\n%s", diff)
	}
	be.Equal(t, tokens[3].Value, "x")
	be.Equal(t, tokens[5].Value, "3")
}

func TestPositions(t *testing.T) {
	tokens := lex(t, "int x = 1;\n  writeln x;")
	be.Equal(t, tokens[0].Line, 1)
	be.Equal(t, tokens[0].Column, 1)
	be.Equal(t, tokens[0].Len, 3)
	be.Equal(t, tokens[5].Type, token.Writeln)
	be.Equal(t, tokens[5].Line, 2)
	be.Equal(t, tokens[5].Column, 3)
	be.Equal(t, tokens[5].Len, 7)
}

func TestStringEscapes(t *testing.T) {
	tokens := lex(t, `"a\"b\\c\td\ne"`)
	be.Equal(t, tokens[0].Type, token.String)
	be.Equal(t, tokens[0].Value, "a\"b\\c\td\ne")
}

func TestUnknownEscapeWarns(t *testing.T) {
	var buf bytes.Buffer
	old := util.Stderr
	util.Stderr = &buf
	defer func() { util.Stderr = old }()

	tokens := lex(t, `"a\qb"`)
	be.Equal(t, tokens[0].Value, `a\qb`)
	be.True(t, bytes.Contains(buf.Bytes(), []byte("[-Wunknown-escape]")))
}

func TestComments(t *testing.T) {
	tokens := lex(t, "int x = 1; // trailing\n// whole line\nwriteln x;")
	be.Equal(t, len(tokens), 9)
	be.Equal(t, tokens[5].Type, token.Writeln)
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		src  string
		msg  string
		line int
		col  int
	}{
		{`writeln "abc`, "unterminated string literal", 1, 9},
		{"int x = 12ab;", "malformed integer literal: 12ab", 1, 9},
		{"int x = 99999999999999999999;", "integer literal out of range: 99999999999999999999", 1, 9},
		{"int x = 9223372036854775809;", "integer literal out of range: 9223372036854775809", 1, 9},
		{"int x = 1;\nx ! 2", "unexpected character: '!'", 2, 3},
		{"@", "unexpected character: '@'", 1, 1},
	}
	for _, test := range tests {
		t.Run(test.src, func(t *testing.T) {
			_, err := NewLexer([]rune(test.src), 0, config.NewConfig()).Tokenize()
			var lexErr *util.Error
			be.True(t, errors.As(err, &lexErr))
			be.Equal(t, lexErr.Kind, util.LexError)
			be.Equal(t, lexErr.Msg, test.msg)
			be.Equal(t, lexErr.Tok.Line, test.line)
			be.Equal(t, lexErr.Tok.Column, test.col)
		})
	}
}

func TestDisabledFeatures(t *testing.T) {
	cfg := config.NewConfig()
	cfg.SetFeature(config.FeatStringify, false)
	_, err := NewLexer([]rune("writeln $1;"), 0, cfg).Tokenize()
	be.True(t, err != nil)

	cfg.SetFeature(config.FeatComments, false)
	tokens, err := NewLexer([]rune("// nope"), 0, cfg).Tokenize()
	be.Err(t, err, nil)
	be.Equal(t, types(tokens), []token.Type{token.Slash, token.Slash, token.Ident, token.EOF})
}
