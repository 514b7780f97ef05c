package token

import "fmt"

type Type int

const (
	EOF Type = iota
	Ident
	Number
	String

	// Keywords
	IntKeyword
	StringKeyword
	BoolKeyword
	UnitKeyword
	True
	False
	Write
	Writeln
	And
	Or
	Not
	If
	Elif
	Else
	While
	Break
	Continue

	// Operators
	Eq
	EqEq
	Neq
	Lt
	Lte
	Gt
	Gte
	Plus
	Minus
	Star
	Slash
	Rem
	Dollar

	// Punctuation
	Semi
	LBrace
	RBrace
	LParen
	RParen
)

var KeywordMap = map[string]Type{
	"int":      IntKeyword,
	"string":   StringKeyword,
	"bool":     BoolKeyword,
	"unit":     UnitKeyword,
	"true":     True,
	"false":    False,
	"write":    Write,
	"writeln":  Writeln,
	"and":      And,
	"or":       Or,
	"not":      Not,
	"if":       If,
	"elif":     Elif,
	"else":     Else,
	"while":    While,
	"break":    Break,
	"continue": Continue,
}

var symbols = map[Type]string{
	EOF: "end of file", Ident: "identifier", Number: "number", String: "string literal",
	Eq: "=", EqEq: "==", Neq: "!=", Lt: "<", Lte: "<=", Gt: ">", Gte: ">=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Rem: "%", Dollar: "$",
	Semi: ";", LBrace: "{", RBrace: "}", LParen: "(", RParen: ")",
}

// Reverse mapping from Type to the keyword string
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range symbols {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsTypeKeyword reports whether t names one of the four value types.
func (t Type) IsTypeKeyword() bool { return t >= IntKeyword && t <= UnitKeyword }

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}

// Describe renders the token the way diagnostics quote it.
func (t Token) Describe() string {
	switch t.Type {
	case Ident, Number:
		return fmt.Sprintf("'%s'", t.Value)
	case String:
		return fmt.Sprintf("%q", t.Value)
	case EOF:
		return t.Type.String()
	}
	return fmt.Sprintf("'%s'", t.Type)
}
