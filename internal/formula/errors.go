package formula

import "errors"

// Reasons an expression has no value. Evaluate folds all of them into a
// false result; Diagnose returns them for reporting.
var (
	ErrEmpty          = errors.New("empty formula")
	ErrSyntax         = errors.New("syntax error")
	ErrTooDeep        = errors.New("formula nested too deeply")
	ErrUndefined      = errors.New("undefined symbol")
	ErrNotNumeric     = errors.New("symbol is not numeric")
	ErrDivisionByZero = errors.New("division by zero")
	ErrNonFinite      = errors.New("result is not finite")
)
