package parser

import (
	"math"
	"strconv"

	"github.com/xplshn/swindle/pkg/ast"
	"github.com/xplshn/swindle/pkg/token"
	"github.com/xplshn/swindle/pkg/util"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
}

// bailout unwinds the recursive descent on the first syntax error.
type bailout struct{ err *util.Error }

// NewParser creates and initializes a new Parser from a token stream ending in EOF
func NewParser(tokens []token.Token) *Parser {
	p := &Parser{tokens: tokens, pos: 0}
	if len(tokens) > 0 {
		p.current = p.tokens[0]
	}
	return p
}

// Parse builds the untyped tree. Only the first syntax error is reported.
func (p *Parser) Parse() (prog *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			prog, err = nil, b.err
		}
	}()

	body := p.parseStmts(token.EOF)
	p.expect(token.EOF, "expected end of file")
	return &Program{Body: body}, nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens) {
		p.previous = p.current
		p.pos++
		if p.pos < len(p.tokens) {
			p.current = p.tokens[p.pos]
		}
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if !p.check(tokType) {
		p.fail(p.current, "%s, found %s", message, p.current.Describe())
	}
	tok := p.current
	p.advance()
	return tok
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	panic(bailout{util.Errorf(util.SyntaxError, tok, format, args...)})
}

// parseStmts reads statements up to (not including) end. Statements are separated by ';', which
// may be left out after a statement that ends with '}'.
func (p *Parser) parseStmts(end token.Type) Body {
	var body Body
	for !p.check(end) && !p.check(token.EOF) {
		body.Stmts = append(body.Stmts, p.parseStmt())
		if p.match(token.Semi) || p.check(end) || p.check(token.EOF) || p.previous.Type == token.RBrace {
			continue
		}
		p.fail(p.current, "expected ';' after statement, found %s", p.current.Describe())
	}
	return body
}

func (p *Parser) parseStmt() Stmt {
	tok := p.current
	switch {
	case tok.Type.IsTypeKeyword():
		p.advance()
		name := p.expect(token.Ident, "expected variable name after '"+tok.Type.String()+"'")
		p.expect(token.Eq, "expected '=' in declaration of '"+name.Value+"'")
		return &Declare{Type: declaredType(tok.Type), Var: name.Value, Init: p.parseExpr(), Tag: tok}
	case p.match(token.Write):
		return &Write{Value: p.parseExpr(), Tag: tok}
	case p.match(token.Writeln):
		return &Write{Value: p.parseExpr(), Newline: true, Tag: tok}
	case p.match(token.Break):
		return &Break{Tag: tok}
	case p.match(token.Continue):
		return &Continue{Tag: tok}
	}
	return &ExprStmt{Expr: p.parseExpr(), Tag: tok}
}

func declaredType(t token.Type) ast.Type {
	switch t {
	case token.IntKeyword:
		return ast.TypeInt
	case token.StringKeyword:
		return ast.TypeString
	case token.BoolKeyword:
		return ast.TypeBool
	}
	return ast.TypeUnit
}

func (p *Parser) parseExpr() Expr {
	if p.check(token.Ident) && p.peek().Type == token.Eq {
		name := p.current.Value
		p.advance()
		p.advance()
		return &Assign{Var: name, Value: p.parseExpr()}
	}
	return p.parseBinary(ast.LevelOr)
}

var binaryOps = map[token.Type]ast.BinaryOp{
	token.Or: ast.OpOr, token.And: ast.OpAnd,
	token.EqEq: ast.OpEq, token.Neq: ast.OpNeq,
	token.Lt: ast.OpLt, token.Lte: ast.OpLte, token.Gt: ast.OpGt, token.Gte: ast.OpGte,
	token.Plus: ast.OpAdd, token.Minus: ast.OpSub,
	token.Star: ast.OpMul, token.Slash: ast.OpDiv, token.Rem: ast.OpRem,
}

// parseBinary parses one rung of the precedence chain; every rung is left-associative.
func (p *Parser) parseBinary(level ast.Level) Expr {
	if level > ast.LevelMultiplicative {
		return p.parseUnary()
	}
	left := p.parseBinary(level + 1)
	for {
		op, ok := binaryOps[p.current.Type]
		if !ok || op.Level() != level {
			return left
		}
		p.advance()
		left = &Binary{Op: op, Left: left, Right: p.parseBinary(level + 1)}
	}
}

// minIntMagnitude is the one literal that is only valid directly after a '-'.
const minIntMagnitude = "9223372036854775808"

func (p *Parser) parseUnary() Expr {
	switch {
	case p.match(token.Minus):
		if p.check(token.Number) && p.current.Value == minIntMagnitude {
			p.advance()
			return &IntLit{Value: math.MinInt64}
		}
		return &Unary{Op: ast.OpNegate, Operand: p.parseUnary()}
	case p.match(token.Not):
		return &Unary{Op: ast.OpNot, Operand: p.parseUnary()}
	case p.match(token.Dollar):
		return &Unary{Op: ast.OpStringify, Operand: p.parseUnary()}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.current
	switch tok.Type {
	case token.Number:
		p.advance()
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			p.fail(tok, "integer literal out of range: %s", tok.Value)
		}
		return &IntLit{Value: val}
	case token.String:
		p.advance()
		return &StringLit{Value: tok.Value}
	case token.True, token.False:
		p.advance()
		return &BoolLit{Value: tok.Type == token.True}
	case token.Ident:
		p.advance()
		return &Variable{Name: tok.Value}
	case token.LParen:
		p.advance()
		if p.match(token.RParen) {
			return &UnitLit{}
		}
		inner := p.parseExpr()
		p.expect(token.RParen, "expected ')'")
		return inner
	case token.LBrace:
		return &Block{Body: p.parseBlock()}
	case token.If:
		return p.parseIf()
	case token.While:
		p.advance()
		cond := p.parseExpr()
		return &While{Cond: cond, Body: p.parseBlock()}
	}
	p.fail(tok, "unexpected %s, expected an expression", tok.Describe())
	return nil
}

func (p *Parser) parseIf() Expr {
	p.expect(token.If, "expected 'if'")
	node := &If{}
	for {
		cond := p.parseExpr()
		node.Arms = append(node.Arms, Arm{Cond: cond, Body: p.parseBlock()})
		if !p.match(token.Elif) {
			break
		}
	}
	if p.match(token.Else) {
		body := p.parseBlock()
		node.Else = &body
	}
	return node
}

func (p *Parser) parseBlock() Body {
	p.expect(token.LBrace, "expected '{'")
	body := p.parseStmts(token.RBrace)
	p.expect(token.RBrace, "expected '}'")
	return body
}
