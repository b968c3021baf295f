// patterns.go contains every pattern AST node used by match arms and
// tuple-destructuring let bindings (spec.md §3.3).
package ast

import (
	"loom/source"
	"loom/token"
)

// WildcardPattern ("_") matches anything and binds nothing. A match's
// terminal arm must use this pattern (spec.md §3.3 invariant).
type WildcardPattern struct{ Sp source.Span }

func (p *WildcardPattern) Span() source.Span     { return p.Sp }
func (p *WildcardPattern) Accept(v PatternVisitor) any { return v.VisitWildcardPattern(p) }

// BindingPattern matches anything and binds it to Name.
type BindingPattern struct {
	Name token.Token
	Sp   source.Span
}

func (p *BindingPattern) Span() source.Span     { return p.Sp }
func (p *BindingPattern) Accept(v PatternVisitor) any { return v.VisitBindingPattern(p) }

// LiteralPattern matches a scalar literal value exactly.
type LiteralPattern struct {
	Value any
	Sp    source.Span
}

func (p *LiteralPattern) Span() source.Span     { return p.Sp }
func (p *LiteralPattern) Accept(v PatternVisitor) any { return v.VisitLiteralPattern(p) }

// TuplePattern destructures a tuple value, matching each element against a
// nested pattern.
type TuplePattern struct {
	Elements []Pattern
	Sp       source.Span
}

func (p *TuplePattern) Span() source.Span     { return p.Sp }
func (p *TuplePattern) Accept(v PatternVisitor) any { return v.VisitTuplePattern(p) }

// VariantPattern matches a tagged-variant value by tag, optionally
// destructuring the payload tuple into nested patterns, e.g. "some(x)".
type VariantPattern struct {
	Tag    token.Token
	Fields []Pattern
	Sp     source.Span
}

func (p *VariantPattern) Span() source.Span     { return p.Sp }
func (p *VariantPattern) Accept(v PatternVisitor) any { return v.VisitVariantPattern(p) }
