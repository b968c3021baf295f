package interpreter

import (
	"loom/diag"
	"loom/token"
)

// binding pairs a value with whether it was declared with "var" (mutable)
// or "let" (immutable) — spec.md §4.3.
type binding struct {
	value   any
	mutable bool
}

// Environment is a chain of nested, lexically scoped variable maps,
// generalizing the teacher's single flat Environment
// (informatter-nilan/interpreter/environment.go) into the parent-linked
// scope chain block-scoping requires.
type Environment struct {
	parent *Environment
	values map[string]*binding
}

// NewEnvironment returns a root environment with no parent.
func NewEnvironment() *Environment {
	return &Environment{values: make(map[string]*binding)}
}

// NewNestedEnvironment returns a child scope of parent.
func NewNestedEnvironment(parent *Environment) *Environment {
	return &Environment{parent: parent, values: make(map[string]*binding)}
}

// Define introduces a new binding in the current (innermost) scope.
func (e *Environment) Define(name string, value any, mutable bool) {
	e.values[name] = &binding{value: value, mutable: mutable}
}

// Get resolves name by walking outward through enclosing scopes.
func (e *Environment) Get(name token.Token) (any, error) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.values[name.Lexeme]; ok {
			return b.value, nil
		}
	}
	return nil, newRuntimeError(name.Span, diag.CodeUndefinedName, "undefined name '%s'", name.Lexeme)
}

// Lookup resolves name without requiring a token, for callers (like
// module export collection) that only have a bare string. It never
// raises a diagnostic; ok is false when name is unbound anywhere in the
// scope chain.
func (e *Environment) Lookup(name string) (any, bool) {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.values[name]; ok {
			return b.value, true
		}
	}
	return nil, false
}

// Assign updates an existing binding, failing if it is immutable or
// undefined (spec.md §4.3 "reassignment of an immutable binding is an
// error").
func (e *Environment) Assign(name token.Token, value any) error {
	for env := e; env != nil; env = env.parent {
		if b, ok := env.values[name.Lexeme]; ok {
			if !b.mutable {
				return newRuntimeError(name.Span, diag.CodeImmutableAssign, "cannot assign to immutable binding '%s'", name.Lexeme)
			}
			b.value = value
			return nil
		}
	}
	return newRuntimeError(name.Span, diag.CodeUndefinedName, "undefined name '%s'", name.Lexeme)
}
