package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/swindle/pkg/config"
	"github.com/xplshn/swindle/pkg/token"
	"github.com/xplshn/swindle/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize lexes the whole input. The last token is always EOF.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()
	startPos, startCol, startLine := l.pos, l.column, l.line

	if l.isAtEnd() {
		return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
	}

	ch := l.peek()
	if unicode.IsLetter(ch) || ch == '_' {
		l.advance()
		return l.identifierOrKeyword(startPos, startCol, startLine), nil
	}
	if unicode.IsDigit(ch) {
		return l.numberLiteral(startPos, startCol, startLine)
	}

	l.advance()
	switch ch {
	case '(': return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
	case ')': return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
	case '{': return l.makeToken(token.LBrace, "", startPos, startCol, startLine), nil
	case '}': return l.makeToken(token.RBrace, "", startPos, startCol, startLine), nil
	case ';': return l.makeToken(token.Semi, "", startPos, startCol, startLine), nil
	case '+': return l.makeToken(token.Plus, "", startPos, startCol, startLine), nil
	case '-': return l.makeToken(token.Minus, "", startPos, startCol, startLine), nil
	case '*': return l.makeToken(token.Star, "", startPos, startCol, startLine), nil
	case '/': return l.makeToken(token.Slash, "", startPos, startCol, startLine), nil
	case '=': return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine), nil
	case '<': return l.matchThen('=', token.Lte, token.Lt, startPos, startCol, startLine), nil
	case '>': return l.matchThen('=', token.Gte, token.Gt, startPos, startCol, startLine), nil
	case '!':
		if l.match('=') {
			return l.makeToken(token.Neq, "", startPos, startCol, startLine), nil
		}
	case '%':
		if l.cfg.IsFeatureEnabled(config.FeatRemainder) {
			return l.makeToken(token.Rem, "", startPos, startCol, startLine), nil
		}
		return token.Token{}, util.Errorf(util.LexError, l.makeToken(token.Rem, "", startPos, startCol, startLine),
			"the '%%' operator is disabled (use -Fremainder)")
	case '$':
		if l.cfg.IsFeatureEnabled(config.FeatStringify) {
			return l.makeToken(token.Dollar, "", startPos, startCol, startLine), nil
		}
		return token.Token{}, util.Errorf(util.LexError, l.makeToken(token.Dollar, "", startPos, startCol, startLine),
			"the '$' operator is disabled (use -Fstringify)")
	case '"':
		return l.stringLiteral(startPos, startCol, startLine)
	}

	return token.Token{}, util.Errorf(util.LexError, l.makeToken(token.EOF, "", startPos, startCol, startLine),
		"unexpected character: '%c'", ch)
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) matchThen(expected rune, then, otherwise token.Type, startPos, startCol, startLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(then, "", startPos, startCol, startLine)
	}
	return l.makeToken(otherwise, "", startPos, startCol, startLine)
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			if l.peekNext() != '/' || !l.cfg.IsFeatureEnabled(config.FeatComments) {
				return
			}
			for !l.isAtEnd() && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		return l.makeToken(tokType, "", startPos, startCol, startLine)
	}
	return l.makeToken(token.Ident, value, startPos, startCol, startLine)
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	for unicode.IsDigit(l.peek()) {
		l.advance()
	}
	// 12abc is one malformed literal, not a number followed by an identifier.
	for unicode.IsLetter(l.peek()) || l.peek() == '_' {
		l.advance()
	}

	valueStr := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Number, valueStr, startPos, startCol, startLine)
	// Literals go up to 2^63 so that the minimum int can be written as a negated literal; the
	// parser rejects 2^63 anywhere else.
	val, err := strconv.ParseUint(valueStr, 10, 64)
	if e, ok := err.(*strconv.NumError); (ok && e.Err == strconv.ErrRange) || (err == nil && val > 1<<63) {
		return tok, util.Errorf(util.LexError, tok, "integer literal out of range: %s", valueStr)
	}
	if err != nil {
		return tok, util.Errorf(util.LexError, tok, "malformed integer literal: %s", valueStr)
	}
	tok.Value = strconv.FormatUint(val, 10)
	return tok, nil
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) (token.Token, error) {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine), nil
		}
		if c == '\n' {
			break
		}
		l.advance()
		if c == '\\' && l.cfg.IsFeatureEnabled(config.FeatEscapes) {
			if err := l.decodeEscape(&sb, startPos, startCol, startLine); err != nil {
				return token.Token{}, err
			}
			continue
		}
		sb.WriteRune(c)
	}
	return token.Token{}, util.Errorf(util.LexError, l.makeToken(token.String, "", startPos, startCol, startLine),
		"unterminated string literal")
}

func (l *Lexer) decodeEscape(sb *strings.Builder, startPos, startCol, startLine int) error {
	if l.isAtEnd() {
		return util.Errorf(util.LexError, l.makeToken(token.String, "", startPos, startCol, startLine),
			"unterminated string literal")
	}
	escStart, escCol := l.pos-1, l.column-1
	c := l.advance()
	switch c {
	case 'n':
		sb.WriteRune('\n')
	case 't':
		sb.WriteRune('\t')
	case '"':
		sb.WriteRune('"')
	case '\\':
		sb.WriteRune('\\')
	default:
		util.Warn(l.cfg, config.WarnUnknownEscape, l.makeToken(token.String, "", escStart, escCol, l.line),
			"unrecognized escape sequence '\\%c'", c)
		sb.WriteRune('\\')
		sb.WriteRune(c)
	}
	return nil
}
