// module.go defines the top-level Module AST node: an ordered sequence of
// top-level items (spec.md §3.3).
package ast

import "loom/source"

// Module is the root AST node for one compiled source file: an ordered
// sequence of top-level items (imports, type definitions, extension
// blocks, function definitions, variable bindings, statements).
type Module struct {
	Path  string
	Items []Stmt
	Sp    source.Span
}

func (m *Module) Span() source.Span { return m.Sp }
