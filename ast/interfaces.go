// Package ast defines the abstract syntax tree produced by the parser:
// node variants with spans (spec.md §3.3), following the teacher's visitor
// design so that the analyzer, compiler, and tree-walk interpreter can each
// operate on the tree without the node types knowing about any of them.
package ast

import "loom/source"

// Node is implemented by every AST node (expression, statement, or
// pattern). Every node carries a non-empty span (spec.md §3.3 invariant).
type Node interface {
	Span() source.Span
}

// ExpressionVisitor is the interface for operating on all Expression AST
// nodes. Each Visit method corresponds to a distinct Expression variant
// from spec.md §3.3.
type ExpressionVisitor interface {
	VisitLiteral(e *Literal) any
	VisitIdentifier(e *Identifier) any
	VisitUnary(e *Unary) any
	VisitBinary(e *Binary) any
	VisitLogical(e *Logical) any
	VisitGrouping(e *Grouping) any
	VisitAssign(e *Assign) any
	VisitFieldAccess(e *FieldAccess) any
	VisitIndex(e *Index) any
	VisitCall(e *Call) any
	VisitTupleLiteral(e *TupleLiteral) any
	VisitListLiteral(e *ListLiteral) any
	VisitMapLiteral(e *MapLiteral) any
	VisitRange(e *RangeExpr) any
	VisitStructLiteral(e *StructLiteral) any
	VisitVariantLiteral(e *VariantLiteral) any
	VisitFuncLiteral(e *FuncLiteral) any
	VisitIfExpr(e *IfExpr) any
	VisitMatchExpr(e *MatchExpr) any
	VisitStringInterp(e *StringInterp) any
}

// StmtVisitor is the interface for operating on all Statement AST nodes.
type StmtVisitor interface {
	VisitExpressionStmt(s *ExpressionStmt) any
	VisitLetStmt(s *LetStmt) any
	VisitReassignStmt(s *ReassignStmt) any
	VisitBlockStmt(s *BlockStmt) any
	VisitIfStmt(s *IfStmt) any
	VisitWhileStmt(s *WhileStmt) any
	VisitForStmt(s *ForStmt) any
	VisitMatchStmt(s *MatchStmt) any
	VisitWhenStmt(s *WhenStmt) any
	VisitReturnStmt(s *ReturnStmt) any
	VisitBreakStmt(s *BreakStmt) any
	VisitContinueStmt(s *ContinueStmt) any
	VisitFuncDecl(s *FuncDecl) any
	VisitTypeDecl(s *TypeDecl) any
	VisitExtendDecl(s *ExtendDecl) any
	VisitImportStmt(s *ImportStmt) any
}

// Expression is the base interface for every expression node.
type Expression interface {
	Node
	Accept(v ExpressionVisitor) any
}

// Stmt is the base interface for every statement node.
type Stmt interface {
	Node
	Accept(v StmtVisitor) any
}

// PatternVisitor operates on every Pattern variant (spec.md §3.3).
type PatternVisitor interface {
	VisitWildcardPattern(p *WildcardPattern) any
	VisitBindingPattern(p *BindingPattern) any
	VisitLiteralPattern(p *LiteralPattern) any
	VisitTuplePattern(p *TuplePattern) any
	VisitVariantPattern(p *VariantPattern) any
}

// Pattern is the base interface for every pattern node.
type Pattern interface {
	Node
	Accept(v PatternVisitor) any
}
