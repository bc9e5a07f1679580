package formula

import (
	"strconv"
	"strings"
)

// Op is an arithmetic operator.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpFloorDiv
	OpMod
	OpPow
	OpNeg
	OpPos
)

var opText = map[Op]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpFloorDiv: "//",
	OpMod: "%", OpPow: "**", OpNeg: "-", OpPos: "+",
}

func (o Op) String() string { return opText[o] }

// Expr is a parsed expression: one of Number, Variable, Unary, Binary.
type Expr interface {
	String() string
	expr()
}

// Number is a numeric literal.
type Number struct{ Value float64 }

// Variable is a reference to a namespace key.
type Variable struct{ Name string }

// Unary is a signed operand.
type Unary struct {
	Op      Op
	Operand Expr
}

// Binary is a two-operand operation.
type Binary struct {
	Op          Op
	Left, Right Expr
}

func (Number) expr()   {}
func (Variable) expr() {}
func (Unary) expr()    {}
func (Binary) expr()   {}

func (n Number) String() string   { return strconv.FormatFloat(n.Value, 'g', -1, 64) }
func (v Variable) String() string { return v.Name }
func (u Unary) String() string    { return u.Op.String() + u.Operand.String() }
func (b Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func collectVariables(e Expr, seen map[string]bool) {
	switch n := e.(type) {
	case Variable:
		seen[n.Name] = true
	case Unary:
		collectVariables(n.Operand, seen)
	case Binary:
		collectVariables(n.Left, seen)
		collectVariables(n.Right, seen)
	}
}

// Normalize strips the leading '=' and collapses whitespace so formulas
// that differ only in spacing compare equal.
func Normalize(src string) string {
	return strings.Join(strings.Fields(strip(src)), " ")
}
