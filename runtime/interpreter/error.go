package interpreter

import (
	"fmt"

	"loom/diag"
	"loom/source"
)

// RuntimeError is the struct for all runtime errors raised while
// tree-walking, following the teacher's per-package error-struct
// convention (informatter-nilan/interpreter/error.go).
type RuntimeError struct {
	Span    source.Span
	Code    diag.Code
	Message string
}

func newRuntimeError(span source.Span, code diag.Code, format string, args ...any) RuntimeError {
	return RuntimeError{Span: span, Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewRuntimeError is the exported form of newRuntimeError, used by the
// bytecode VM so both execution strategies raise the identical
// RuntimeError/diag.Code shape for the same fault.
func NewRuntimeError(span source.Span, code diag.Code, format string, args ...any) RuntimeError {
	return newRuntimeError(span, code, format, args...)
}

func (e RuntimeError) Error() string {
	return fmt.Sprintf("💥 Loom Runtime error [%s]: %s", e.Code, e.Message)
}

// Diagnostic converts the RuntimeError into the shared diag.Diagnostic type.
func (e RuntimeError) Diagnostic() diag.Diagnostic {
	return diag.New(e.Code, diag.SeverityError, e.Span, e.Message)
}

// returnSignal, breakSignal, and continueSignal are panicked to unwind the
// Go call stack back to the nearest enclosing loop/function, mirroring the
// teacher's panic/recover control-flow style (informatter-nilan's
// VisitBlockStmt/Interpret use the same pattern for error propagation).
type returnSignal struct{ value any }
type breakSignal struct{}
type continueSignal struct{}
