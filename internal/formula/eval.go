package formula

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// decimalRe matches a plain decimal number. Hex floats, "inf", "nan" and
// thousands separators are not numbers here.
var decimalRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Evaluate computes expr against ns. It reports false when the formula
// does not parse, references an unknown or non-numeric symbol, divides by
// zero or produces a non-finite value. It never panics.
func Evaluate(expr string, ns map[string]string) (float64, bool) {
	v, err := Diagnose(expr, ns)
	return v, err == nil
}

// Diagnose is Evaluate with the failure reason. The returned error wraps
// one of the package's sentinel errors.
func Diagnose(expr string, ns map[string]string) (float64, error) {
	s := strip(expr)
	if s == "" {
		return 0, ErrEmpty
	}
	if decimalRe.MatchString(s) {
		return parseNumber(s)
	}
	e, err := Parse(s)
	if err != nil {
		return 0, err
	}
	return Eval(e, ns)
}

// Eval computes a parsed expression against ns.
func Eval(e Expr, ns map[string]string) (float64, error) {
	switch n := e.(type) {
	case Number:
		return finite(n.Value)
	case Variable:
		raw, ok := ns[n.Name]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUndefined, n.Name)
		}
		v, err := parseNumber(strings.TrimSpace(raw))
		if err != nil {
			return 0, fmt.Errorf("%s=%q: %w", n.Name, raw, err)
		}
		return v, nil
	case Unary:
		v, err := Eval(n.Operand, ns)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case OpNeg:
			return -v, nil
		case OpPos:
			return v, nil
		}
		return 0, fmt.Errorf("%w: unary %s", ErrSyntax, n.Op)
	case Binary:
		l, err := Eval(n.Left, ns)
		if err != nil {
			return 0, err
		}
		r, err := Eval(n.Right, ns)
		if err != nil {
			return 0, err
		}
		return apply(n.Op, l, r)
	}
	return 0, fmt.Errorf("%w: unknown node %T", ErrSyntax, e)
}

func apply(op Op, l, r float64) (float64, error) {
	switch op {
	case OpAdd:
		return finite(l + r)
	case OpSub:
		return finite(l - r)
	case OpMul:
		return finite(l * r)
	case OpDiv:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return finite(l / r)
	case OpFloorDiv:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		return finite(math.Floor(l / r))
	case OpMod:
		if r == 0 {
			return 0, ErrDivisionByZero
		}
		// Result takes the sign of the divisor.
		m := math.Mod(l, r)
		if m != 0 && (m < 0) != (r < 0) {
			m += r
		}
		return finite(m)
	case OpPow:
		if l == 0 && r < 0 {
			return 0, ErrDivisionByZero
		}
		return finite(math.Pow(l, r))
	}
	return 0, fmt.Errorf("%w: binary %s", ErrSyntax, op)
}

func parseNumber(s string) (float64, error) {
	if !decimalRe.MatchString(s) {
		return 0, ErrNotNumeric
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range literals parse to ±Inf with an error.
		return 0, ErrNonFinite
	}
	return finite(v)
}

func finite(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNonFinite
	}
	return v, nil
}
