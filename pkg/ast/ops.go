package ast

type BinaryOp int

const (
	OpOr BinaryOp = iota
	OpAnd
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
)

// Level is a rung of the precedence chain, loosest first.
type Level int

const (
	LevelOr Level = iota
	LevelAnd
	LevelComparison
	LevelAdditive
	LevelMultiplicative
)

var binaryOps = [...]struct {
	symbol string
	level  Level
}{
	OpOr:  {"or", LevelOr},
	OpAnd: {"and", LevelAnd},
	OpEq:  {"==", LevelComparison},
	OpNeq: {"!=", LevelComparison},
	OpLt:  {"<", LevelComparison},
	OpLte: {"<=", LevelComparison},
	OpGt:  {">", LevelComparison},
	OpGte: {">=", LevelComparison},
	OpAdd: {"+", LevelAdditive},
	OpSub: {"-", LevelAdditive},
	OpMul: {"*", LevelMultiplicative},
	OpDiv: {"/", LevelMultiplicative},
	OpRem: {"%", LevelMultiplicative},
}

func (op BinaryOp) String() string { return binaryOps[op].symbol }
func (op BinaryOp) Level() Level   { return binaryOps[op].level }

// IsEquality reports whether op is == or !=, the only operators defined on every type.
func (op BinaryOp) IsEquality() bool { return op == OpEq || op == OpNeq }

// IsOrdering reports whether op is one of the integer orderings.
func (op BinaryOp) IsOrdering() bool { return op >= OpLt && op <= OpGte }

type UnaryOp int

const (
	OpNegate UnaryOp = iota
	OpNot
	OpStringify
)

func (op UnaryOp) String() string {
	switch op {
	case OpNegate:
		return "-"
	case OpNot:
		return "not"
	case OpStringify:
		return "$"
	}
	return "?"
}
