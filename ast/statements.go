// statements.go contains every statement AST node (spec.md §3.3). A
// statement node does not itself produce a value (except via its nested
// expressions).
package ast

import (
	"loom/source"
	"loom/token"
)

// ExpressionStmt is a statement consisting of a single expression, whose
// result is discarded.
type ExpressionStmt struct {
	Expression Expression
	Sp         source.Span
}

func (s *ExpressionStmt) Span() source.Span    { return s.Sp }
func (s *ExpressionStmt) Accept(v StmtVisitor) any { return v.VisitExpressionStmt(s) }

// LetTarget is either a single name or a tuple-destructuring pattern on the
// left-hand side of a let/var binding (spec.md §3.3 "tuple destructuring").
type LetTarget struct {
	Name  token.Token // set when this is a single binding
	Names []token.Token // set when this is a tuple destructure
}

// LetStmt represents a let/var binding. Mutable distinguishes `var` (may be
// reassigned) from `let` (immutable — spec.md §4.3 "reassignment of an
// immutable binding is an error"). Every LetStmt has a non-nil Value
// (spec.md §3.3 invariant: no uninitialized bindings).
type LetStmt struct {
	Target   LetTarget
	TypeName string // optional annotation, advisory only
	Value    Expression
	Mutable  bool
	Public   bool
	Sp       source.Span
}

func (s *LetStmt) Span() source.Span    { return s.Sp }
func (s *LetStmt) Accept(v StmtVisitor) any { return v.VisitLetStmt(s) }

// ReassignStmt represents assigning to an existing mutable binding, field,
// or index as a standalone statement (the expression form, ast.Assign, is
// used in e.g. `while` conditions; this variant is the top-level statement
// produced by the parser for bare `target = value` lines).
type ReassignStmt struct {
	Target Expression
	Value  Expression
	Sp     source.Span
}

func (s *ReassignStmt) Span() source.Span    { return s.Sp }
func (s *ReassignStmt) Accept(v StmtVisitor) any { return v.VisitReassignStmt(s) }

// BlockStmt is a sequence of statements executed in a new nested scope.
type BlockStmt struct {
	Statements []Stmt
	Sp         source.Span
}

func (s *BlockStmt) Span() source.Span    { return s.Sp }
func (s *BlockStmt) Accept(v StmtVisitor) any { return v.VisitBlockStmt(s) }

// IfStmt represents an if/else-if/else statement chain.
type IfStmt struct {
	Condition Expression
	Then      Stmt
	Else      Stmt // nil, another *IfStmt (else-if), or a *BlockStmt
	Sp        source.Span
}

func (s *IfStmt) Span() source.Span    { return s.Sp }
func (s *IfStmt) Accept(v StmtVisitor) any { return v.VisitIfStmt(s) }

// WhileStmt represents a while loop.
type WhileStmt struct {
	Condition Expression
	Body      Stmt
	Sp        source.Span
}

func (s *WhileStmt) Span() source.Span    { return s.Sp }
func (s *WhileStmt) Accept(v StmtVisitor) any { return v.VisitWhileStmt(s) }

// ForStmt represents "for x in iterable { body }" — the iterable may be a
// range, list, or mapping expression (spec.md §4.4 "iter-init"/"iter-next").
type ForStmt struct {
	Var      token.Token
	Iterable Expression
	Body     Stmt
	Sp       source.Span
}

func (s *ForStmt) Span() source.Span    { return s.Sp }
func (s *ForStmt) Accept(v StmtVisitor) any { return v.VisitForStmt(s) }

// MatchStmt represents a match statement: every arm's Body is a Stmt.
// spec.md §3.3 requires a terminal wildcard arm for well-formedness.
type MatchStmt struct {
	Scrutinee Expression
	Arms      []MatchArm
	Sp        source.Span
}

func (s *MatchStmt) Span() source.Span    { return s.Sp }
func (s *MatchStmt) Accept(v StmtVisitor) any { return v.VisitMatchStmt(s) }

// WhenBinding is one `name = expr` clause of a `when` statement.
type WhenBinding struct {
	Name token.Token
	Expr Expression
}

// WhenStmt represents `when a = exprA, b = exprB { S } else { E }`. The
// parser keeps it as this node and does not rewrite it into nested
// tagged-variant matches; the interpreter evaluates it directly, and the
// compiler lowers each binding to OP_WHEN_BIND plus a conditional jump.
type WhenStmt struct {
	Bindings []WhenBinding
	Then     *BlockStmt
	Else     *BlockStmt // optional
	Sp       source.Span
}

func (s *WhenStmt) Span() source.Span    { return s.Sp }
func (s *WhenStmt) Accept(v StmtVisitor) any { return v.VisitWhenStmt(s) }

// ReturnStmt represents "return expr" (expr optional, defaulting to unit).
type ReturnStmt struct {
	Value Expression // nil means unit
	Sp    source.Span
}

func (s *ReturnStmt) Span() source.Span    { return s.Sp }
func (s *ReturnStmt) Accept(v StmtVisitor) any { return v.VisitReturnStmt(s) }

// BreakStmt represents "break".
type BreakStmt struct{ Sp source.Span }

func (s *BreakStmt) Span() source.Span    { return s.Sp }
func (s *BreakStmt) Accept(v StmtVisitor) any { return v.VisitBreakStmt(s) }

// ContinueStmt represents "continue".
type ContinueStmt struct{ Sp source.Span }

func (s *ContinueStmt) Span() source.Span    { return s.Sp }
func (s *ContinueStmt) Accept(v StmtVisitor) any { return v.VisitContinueStmt(s) }

// FuncDecl represents a named top-level (or nested) function definition.
type FuncDecl struct {
	Name   token.Token
	Params []Param
	Body   *BlockStmt
	Public bool
	Sp     source.Span
}

func (s *FuncDecl) Span() source.Span    { return s.Sp }
func (s *FuncDecl) Accept(v StmtVisitor) any { return v.VisitFuncDecl(s) }

// FieldDecl is one field of a struct schema.
type FieldDecl struct {
	Name     token.Token
	TypeName string
	Mutable  bool
}

// VariantCaseDecl is one case of a tagged-variant type definition, e.g.
// "some(v)" or "none".
type VariantCaseDecl struct {
	Tag    token.Token
	Fields []string // payload field type names, positional
}

// TypeKind distinguishes a struct schema from a tagged-variant (sum) type
// definition (spec.md §3.3 "type definition").
type TypeKind int

const (
	TypeStruct TypeKind = iota
	TypeVariant
)

// TypeDecl represents "Name has { fields… methods… }" (struct) or a
// tagged-variant definition such as "Opt = some(v) | none".
type TypeDecl struct {
	Kind     TypeKind
	Name     token.Token
	Fields   []FieldDecl       // TypeStruct only
	Cases    []VariantCaseDecl // TypeVariant only
	Methods  []*FuncDecl
	Public   bool
	Sp       source.Span
}

func (s *TypeDecl) Span() source.Span    { return s.Sp }
func (s *TypeDecl) Accept(v StmtVisitor) any { return v.VisitTypeDecl(s) }

// ExtendDecl represents "Name does { methods… }", adding methods to an
// existing schema (spec.md §4.2 "extension parsing").
type ExtendDecl struct {
	TypeName token.Token
	Methods  []*FuncDecl
	Sp       source.Span
}

func (s *ExtendDecl) Span() source.Span    { return s.Sp }
func (s *ExtendDecl) Accept(v StmtVisitor) any { return v.VisitExtendDecl(s) }

// ImportStmt represents "use path" or "use path as alias".
type ImportStmt struct {
	Path  token.Token
	Alias string // empty when no "as" clause
	Sp    source.Span
}

func (s *ImportStmt) Span() source.Span    { return s.Sp }
func (s *ImportStmt) Accept(v StmtVisitor) any { return v.VisitImportStmt(s) }
