package parser

import (
	"fmt"

	"loom/diag"
	"loom/source"
)

// SyntaxError is the struct for all syntax errors raised during parsing,
// following the teacher's per-package error-struct convention.
type SyntaxError struct {
	Span    source.Span
	Code    diag.Code
	Message string
}

func newSyntaxError(span source.Span, code diag.Code, format string, args ...any) SyntaxError {
	return SyntaxError{Span: span, Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("💥 Loom Syntax error [%s]: %s", e.Code, e.Message)
}

// Diagnostic converts the SyntaxError into the shared diag.Diagnostic type.
func (e SyntaxError) Diagnostic() diag.Diagnostic {
	return diag.New(e.Code, diag.SeverityError, e.Span, e.Message)
}
