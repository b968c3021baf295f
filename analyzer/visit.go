package analyzer

import (
	"loom/ast"
	"loom/diag"
)

// visitStmt dispatches a statement through the ast.StmtVisitor interface,
// implemented below, so every statement kind gets its checks without a
// giant manual type switch.
func (a *Analyzer) visitStmt(s ast.Stmt) { s.Accept(a) }

func (a *Analyzer) visitExpr(e ast.Expression) { e.Accept(a) }

func (a *Analyzer) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	a.visitExpr(s.Expression)
	return nil
}

func (a *Analyzer) VisitLetStmt(s *ast.LetStmt) any {
	a.visitExpr(s.Value)
	if s.Target.Name.Lexeme != "" {
		a.declare(s.Target.Name, s.Mutable)
		return nil
	}
	for _, n := range s.Target.Names {
		a.declare(n, s.Mutable)
	}
	return nil
}

func (a *Analyzer) VisitReassignStmt(s *ast.ReassignStmt) any {
	a.visitExpr(s.Value)
	a.checkAssignTarget(s.Target)
	return nil
}

// checkAssignTarget verifies that an identifier assignment target names a
// mutable binding (spec.md §4.3 "assignments target mutable bindings
// only"). Field/index targets are checked at their own expression depth,
// since their receiver expression is itself just read, not assigned.
func (a *Analyzer) checkAssignTarget(target ast.Expression) {
	switch t := target.(type) {
	case *ast.Identifier:
		a.resolve(t.Name)
		if b, ok := a.lookup(t.Name.Lexeme); ok && !b.mutable {
			a.diags.Errorf(diag.CodeImmutableAssign, t.Sp, "cannot assign to immutable binding '%s'", t.Name.Lexeme)
		}
	case *ast.FieldAccess:
		a.visitExpr(t.Target)
	case *ast.Index:
		a.visitExpr(t.Target)
		a.visitExpr(t.Idx)
	}
}

func (a *Analyzer) VisitBlockStmt(s *ast.BlockStmt) any {
	a.pushScope(scopeBlock)
	for _, stmt := range s.Statements {
		a.visitStmt(stmt)
	}
	a.popScope()
	return nil
}

func (a *Analyzer) VisitIfStmt(s *ast.IfStmt) any {
	a.visitExpr(s.Condition)
	a.visitStmt(s.Then)
	if s.Else != nil {
		a.visitStmt(s.Else)
	}
	return nil
}

func (a *Analyzer) VisitWhileStmt(s *ast.WhileStmt) any {
	a.visitExpr(s.Condition)
	a.loopDepth++
	a.visitStmt(s.Body)
	a.loopDepth--
	return nil
}

func (a *Analyzer) VisitForStmt(s *ast.ForStmt) any {
	a.visitExpr(s.Iterable)
	a.pushScope(scopeBlock)
	a.declare(s.Var, false)
	a.loopDepth++
	a.visitStmt(s.Body)
	a.loopDepth--
	a.popScope()
	return nil
}

func (a *Analyzer) VisitMatchStmt(s *ast.MatchStmt) any {
	a.visitExpr(s.Scrutinee)
	a.checkExhaustive(s.Arms)
	for _, arm := range s.Arms {
		a.pushScope(scopeBlock)
		a.declarePattern(arm.Pattern)
		if arm.Guard != nil {
			a.visitExpr(arm.Guard)
		}
		a.visitStmt(arm.Body.(ast.Stmt))
		a.popScope()
	}
	return nil
}

// checkExhaustive enforces spec.md §4.3's "match without a terminal
// wildcard arm is an error": the last arm must be a bare wildcard.
func (a *Analyzer) checkExhaustive(arms []ast.MatchArm) {
	if len(arms) == 0 {
		return
	}
	last := arms[len(arms)-1]
	if _, ok := last.Pattern.(*ast.WildcardPattern); !ok || last.Guard != nil {
		a.diags.Errorf(diag.CodeNonExhaustiveMatch, last.Pattern.Span(), "match must end with an unguarded wildcard arm")
	}
}

func (a *Analyzer) declarePattern(p ast.Pattern) {
	switch pat := p.(type) {
	case *ast.BindingPattern:
		a.declare(pat.Name, false)
	case *ast.TuplePattern:
		for _, sub := range pat.Elements {
			a.declarePattern(sub)
		}
	case *ast.VariantPattern:
		for _, sub := range pat.Fields {
			a.declarePattern(sub)
		}
	}
}

func (a *Analyzer) VisitWhenStmt(s *ast.WhenStmt) any {
	a.pushScope(scopeBlock)
	for _, b := range s.Bindings {
		a.visitExpr(b.Expr)
		a.declare(b.Name, false)
	}
	a.visitStmt(s.Then)
	a.popScope()
	if s.Else != nil {
		a.visitStmt(s.Else)
	}
	return nil
}

func (a *Analyzer) VisitReturnStmt(s *ast.ReturnStmt) any {
	if a.funcDepth == 0 {
		a.diags.Errorf(diag.CodeReturnOutsideFn, s.Sp, "'return' outside a function")
	}
	if s.Value != nil {
		a.visitExpr(s.Value)
	}
	return nil
}

func (a *Analyzer) VisitBreakStmt(s *ast.BreakStmt) any {
	if a.loopDepth == 0 {
		a.diags.Errorf(diag.CodeBreakOutsideLoop, s.Sp, "'break' outside a loop")
	}
	return nil
}

func (a *Analyzer) VisitContinueStmt(s *ast.ContinueStmt) any {
	if a.loopDepth == 0 {
		a.diags.Errorf(diag.CodeBreakOutsideLoop, s.Sp, "'continue' outside a loop")
	}
	return nil
}

func (a *Analyzer) VisitFuncDecl(s *ast.FuncDecl) any {
	a.declare(s.Name, false)
	a.pushScope(scopeBlock)
	for _, p := range s.Params {
		a.declare(p.Name, true)
	}
	a.funcDepth++
	for _, stmt := range s.Body.Statements {
		a.visitStmt(stmt)
	}
	a.funcDepth--
	a.popScope()
	return nil
}

func (a *Analyzer) VisitTypeDecl(s *ast.TypeDecl) any {
	a.pushScope(scopeBlock)
	for _, m := range s.Methods {
		a.visitMethod(m)
	}
	a.popScope()
	return nil
}

func (a *Analyzer) VisitExtendDecl(s *ast.ExtendDecl) any {
	a.pushScope(scopeBlock)
	for _, m := range s.Methods {
		a.visitMethod(m)
	}
	a.popScope()
	return nil
}

func (a *Analyzer) visitMethod(m *ast.FuncDecl) {
	a.pushScope(scopeBlock)
	for _, p := range m.Params {
		a.declare(p.Name, true)
	}
	a.funcDepth++
	for _, stmt := range m.Body.Statements {
		a.visitStmt(stmt)
	}
	a.funcDepth--
	a.popScope()
}

func (a *Analyzer) VisitImportStmt(s *ast.ImportStmt) any { return nil }

// --- expressions ---------------------------------------------------------

func (a *Analyzer) VisitLiteral(e *ast.Literal) any { return nil }

func (a *Analyzer) VisitStringInterp(e *ast.StringInterp) any {
	for _, expr := range e.Exprs {
		a.visitExpr(expr)
	}
	return nil
}

func (a *Analyzer) VisitIdentifier(e *ast.Identifier) any {
	a.resolve(e.Name)
	return nil
}

func (a *Analyzer) VisitUnary(e *ast.Unary) any {
	a.visitExpr(e.Right)
	return nil
}

func (a *Analyzer) VisitBinary(e *ast.Binary) any {
	a.visitExpr(e.Left)
	a.visitExpr(e.Right)
	return nil
}

func (a *Analyzer) VisitLogical(e *ast.Logical) any {
	a.visitExpr(e.Left)
	a.visitExpr(e.Right)
	return nil
}

func (a *Analyzer) VisitGrouping(e *ast.Grouping) any {
	a.visitExpr(e.Expression)
	return nil
}

func (a *Analyzer) VisitAssign(e *ast.Assign) any {
	a.visitExpr(e.Value)
	a.checkAssignTarget(e.Target)
	return nil
}

func (a *Analyzer) VisitFieldAccess(e *ast.FieldAccess) any {
	a.visitExpr(e.Target)
	return nil
}

func (a *Analyzer) VisitIndex(e *ast.Index) any {
	a.visitExpr(e.Target)
	a.visitExpr(e.Idx)
	return nil
}

func (a *Analyzer) VisitCall(e *ast.Call) any {
	a.visitExpr(e.Callee)
	for _, arg := range e.Args {
		a.visitExpr(arg)
	}
	return nil
}

func (a *Analyzer) VisitTupleLiteral(e *ast.TupleLiteral) any {
	for _, el := range e.Elements {
		a.visitExpr(el)
	}
	return nil
}

func (a *Analyzer) VisitListLiteral(e *ast.ListLiteral) any {
	for _, el := range e.Elements {
		a.visitExpr(el)
	}
	return nil
}

func (a *Analyzer) VisitMapLiteral(e *ast.MapLiteral) any {
	for _, entry := range e.Entries {
		a.visitExpr(entry.Key)
		a.visitExpr(entry.Value)
	}
	return nil
}

func (a *Analyzer) VisitRange(e *ast.RangeExpr) any {
	a.visitExpr(e.Start)
	a.visitExpr(e.End)
	return nil
}

func (a *Analyzer) VisitStructLiteral(e *ast.StructLiteral) any {
	if e.Base != nil {
		a.visitExpr(e.Base)
	}
	for _, f := range e.Fields {
		a.visitExpr(f.Value)
	}
	return nil
}

func (a *Analyzer) VisitVariantLiteral(e *ast.VariantLiteral) any {
	for _, arg := range e.Args {
		a.visitExpr(arg)
	}
	return nil
}

func (a *Analyzer) VisitFuncLiteral(e *ast.FuncLiteral) any {
	a.pushScope(scopeBlock)
	for _, p := range e.Params {
		a.declare(p.Name, true)
	}
	a.funcDepth++
	for _, stmt := range e.Body.Statements {
		a.visitStmt(stmt)
	}
	a.funcDepth--
	a.popScope()
	return nil
}

func (a *Analyzer) VisitIfExpr(e *ast.IfExpr) any {
	a.visitExpr(e.Condition)
	a.visitExpr(e.Then)
	a.visitExpr(e.Else)
	return nil
}

func (a *Analyzer) VisitMatchExpr(e *ast.MatchExpr) any {
	a.visitExpr(e.Scrutinee)
	a.checkExhaustive(e.Arms)
	for _, arm := range e.Arms {
		a.pushScope(scopeBlock)
		a.declarePattern(arm.Pattern)
		if arm.Guard != nil {
			a.visitExpr(arm.Guard)
		}
		a.visitExpr(arm.Body.(ast.Expression))
		a.popScope()
	}
	return nil
}
