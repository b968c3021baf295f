package interpreter

import (
	"math"

	"github.com/dustin/go-humanize"

	"loom/bytecode"
	"loom/diag"
	"loom/runtime/value"
	"loom/source"
	"loom/token"
)

// evalBinary evaluates every binary operator except "is"/"isnt", which the
// caller handles separately since their right-hand side names a type
// rather than a value (spec.md §6.4).
func evalBinary(span source.Span, op token.Token, left, right value.Value) value.Value {
	switch op.Kind {
	case token.PLUS:
		return evalAdd(span, left, right)
	case token.MINUS:
		return numeric(span, "-", left, right, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case token.STAR:
		return numeric(span, "*", left, right, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case token.SLASH:
		return evalDivide(span, left, right)
	case token.PERCENT:
		return evalModulo(span, left, right)
	case token.EQ_EQ:
		return value.Equal(left, right)
	case token.BANG_EQ:
		return !value.Equal(left, right)
	case token.LESS:
		return compare(span, left, right) < 0
	case token.LESS_EQ:
		return compare(span, left, right) <= 0
	case token.GREATER:
		return compare(span, left, right) > 0
	case token.GREATER_EQ:
		return compare(span, left, right) >= 0
	}
	panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "unsupported binary operator '%s'", op.Lexeme))
}

// EvalBinaryOp applies an arithmetic or comparison operator named by a
// bytecode opcode rather than a token, so the VM's OP_ADD/OP_SUBTRACT/...
// handlers share exactly the same numeric coercion, string concatenation,
// and comparison rules as the tree-walk interpreter's evalBinary.
func EvalBinaryOp(span source.Span, op bytecode.Opcode, left, right value.Value) value.Value {
	switch op {
	case bytecode.OP_ADD:
		return evalAdd(span, left, right)
	case bytecode.OP_SUBTRACT:
		return numeric(span, "-", left, right, func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	case bytecode.OP_MULTIPLY:
		return numeric(span, "*", left, right, func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	case bytecode.OP_DIVIDE:
		return evalDivide(span, left, right)
	case bytecode.OP_MODULO:
		return evalModulo(span, left, right)
	case bytecode.OP_EQUAL:
		return value.Equal(left, right)
	case bytecode.OP_NOT_EQUAL:
		return !value.Equal(left, right)
	case bytecode.OP_LESS:
		return compare(span, left, right) < 0
	case bytecode.OP_LESS_EQUAL:
		return compare(span, left, right) <= 0
	case bytecode.OP_GREATER:
		return compare(span, left, right) > 0
	case bytecode.OP_GREATER_EQUAL:
		return compare(span, left, right) >= 0
	}
	panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "unsupported binary opcode %s", op))
}

// EvalNegate implements unary "-", shared with the VM's OP_NEGATE handler.
func EvalNegate(span source.Span, v value.Value) value.Value {
	switch n := v.(type) {
	case int64:
		return -n
	case float64:
		return -n
	}
	panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "unary '-' requires a numeric operand, got %s", value.TypeName(v)))
}

func evalAdd(span source.Span, left, right value.Value) value.Value {
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "cannot add string and %s", value.TypeName(right)))
		}
		return ls + rs
	}
	return numeric(span, "+", left, right, func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
}

func evalDivide(span source.Span, left, right value.Value) value.Value {
	if li, lok := left.(int64); lok {
		if ri, rok := right.(int64); rok {
			if ri == 0 {
				panic(newRuntimeError(span, diag.CodeDivisionByZero, "division by zero"))
			}
			if li == math.MinInt64 && ri == -1 {
				panic(newRuntimeError(span, diag.CodeIntegerOverflow, "integer overflow: %s / -1 does not fit in a 64-bit int", humanize.Comma(li)))
			}
			return li / ri
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "'/' requires numeric operands, got %s and %s", value.TypeName(left), value.TypeName(right)))
	}
	if rf == 0 {
		panic(newRuntimeError(span, diag.CodeDivisionByZero, "division by zero"))
	}
	return lf / rf
}

func evalModulo(span source.Span, left, right value.Value) value.Value {
	li, lok := left.(int64)
	ri, rok := right.(int64)
	if !lok || !rok {
		panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "'%%' requires int operands, got %s and %s", value.TypeName(left), value.TypeName(right)))
	}
	if ri == 0 {
		panic(newRuntimeError(span, diag.CodeDivisionByZero, "division by zero"))
	}
	return li % ri
}

func numeric(span source.Span, opName string, left, right value.Value, intOp func(a, b int64) int64, floatOp func(a, b float64) float64) value.Value {
	if li, lok := left.(int64); lok {
		if ri, rok := right.(int64); rok {
			result := intOp(li, ri)
			if intOverflowed(opName, li, ri, result) {
				panic(newRuntimeError(span, diag.CodeIntegerOverflow, "integer overflow computing %s %s %s", humanize.Comma(li), opName, humanize.Comma(ri)))
			}
			return result
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "'%s' requires numeric operands, got %s and %s", opName, value.TypeName(left), value.TypeName(right)))
	}
	return floatOp(lf, rf)
}

// intOverflowed reports whether applying opName to a and b and getting
// result back disagrees with true int64 arithmetic (the operation
// overflowed), catching the
// wraparound cases Go's own +/-/* silently produce (spec.md's "integer
// arithmetic overflow panics" invariant).
func intOverflowed(opName string, a, b, result int64) bool {
	switch opName {
	case "+":
		return (b > 0 && result < a) || (b < 0 && result > a)
	case "-":
		return (b < 0 && result < a) || (b > 0 && result > a)
	case "*":
		if a == 0 || b == 0 {
			return false
		}
		if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return true
		}
		return result/b != a
	}
	return false
}

func toFloat(v value.Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func compare(span source.Span, left, right value.Value) int {
	if ls, ok := left.(string); ok {
		rs, ok := right.(string)
		if !ok {
			panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "cannot compare string and %s", value.TypeName(right)))
		}
		switch {
		case ls < rs:
			return -1
		case ls > rs:
			return 1
		default:
			return 0
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "cannot compare %s and %s", value.TypeName(left), value.TypeName(right)))
	}
	switch {
	case lf < rf:
		return -1
	case lf > rf:
		return 1
	default:
		return 0
	}
}
