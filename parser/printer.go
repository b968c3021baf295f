package parser

import (
	"fmt"
	"os"

	"github.com/segmentio/encoding/json"

	"loom/ast"
)

const (
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// astPrinter implements ast.ExpressionVisitor, ast.StmtVisitor, and
// ast.PatternVisitor, building a JSON-friendly map/slice representation of
// the tree, following the teacher's astPrinter in parser/printer.go
// generalized from Nilan's smaller node set to Loom's full grammar
// (expressions, statements, and patterns all need a visitor here, where
// the teacher only ever printed expressions and a handful of statements).
type astPrinter struct{}

func (p astPrinter) VisitLiteral(e *ast.Literal) any { return e.Value }

func (p astPrinter) VisitStringInterp(e *ast.StringInterp) any {
	exprs := make([]any, len(e.Exprs))
	for i, x := range e.Exprs {
		exprs[i] = x.Accept(p)
	}
	return map[string]any{"type": "StringInterp", "parts": e.Parts, "exprs": exprs, "raw": e.Raw, "multi": e.Multi}
}

func (p astPrinter) VisitIdentifier(e *ast.Identifier) any {
	return map[string]any{"type": "Identifier", "name": e.Name.Lexeme}
}

func (p astPrinter) VisitUnary(e *ast.Unary) any {
	return map[string]any{"type": "Unary", "operator": e.Operator.Lexeme, "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitBinary(e *ast.Binary) any {
	return map[string]any{"type": "Binary", "operator": e.Operator.Lexeme, "left": e.Left.Accept(p), "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitLogical(e *ast.Logical) any {
	return map[string]any{"type": "Logical", "operator": e.Operator.Lexeme, "left": e.Left.Accept(p), "right": e.Right.Accept(p)}
}

func (p astPrinter) VisitGrouping(e *ast.Grouping) any {
	return map[string]any{"type": "Grouping", "expression": e.Expression.Accept(p)}
}

func (p astPrinter) VisitAssign(e *ast.Assign) any {
	return map[string]any{"type": "Assign", "target": e.Target.Accept(p), "value": e.Value.Accept(p)}
}

func (p astPrinter) VisitFieldAccess(e *ast.FieldAccess) any {
	return map[string]any{"type": "FieldAccess", "target": e.Target.Accept(p), "field": e.Field.Lexeme}
}

func (p astPrinter) VisitIndex(e *ast.Index) any {
	return map[string]any{"type": "Index", "target": e.Target.Accept(p), "index": e.Idx.Accept(p)}
}

func (p astPrinter) VisitCall(e *ast.Call) any {
	return map[string]any{"type": "Call", "callee": e.Callee.Accept(p), "args": exprList(p, e.Args)}
}

func (p astPrinter) VisitTupleLiteral(e *ast.TupleLiteral) any {
	return map[string]any{"type": "TupleLiteral", "elements": exprList(p, e.Elements)}
}

func (p astPrinter) VisitListLiteral(e *ast.ListLiteral) any {
	return map[string]any{"type": "ListLiteral", "elements": exprList(p, e.Elements)}
}

func (p astPrinter) VisitMapLiteral(e *ast.MapLiteral) any {
	entries := make([]any, len(e.Entries))
	for i, entry := range e.Entries {
		entries[i] = map[string]any{"key": entry.Key.Accept(p), "value": entry.Value.Accept(p)}
	}
	return map[string]any{"type": "MapLiteral", "entries": entries}
}

func (p astPrinter) VisitRange(e *ast.RangeExpr) any {
	return map[string]any{"type": "Range", "start": e.Start.Accept(p), "end": e.End.Accept(p), "inclusive": e.Inclusive}
}

func (p astPrinter) VisitStructLiteral(e *ast.StructLiteral) any {
	fields := make([]any, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = map[string]any{"name": f.Name.Lexeme, "value": f.Value.Accept(p)}
	}
	out := map[string]any{"type": "StructLiteral", "typeName": e.TypeName.Lexeme, "fields": fields}
	if e.Base != nil {
		out["base"] = e.Base.Accept(p)
	}
	return out
}

func (p astPrinter) VisitVariantLiteral(e *ast.VariantLiteral) any {
	return map[string]any{"type": "VariantLiteral", "typeName": e.TypeName.Lexeme, "tag": e.Tag.Lexeme, "args": exprList(p, e.Args)}
}

func (p astPrinter) VisitFuncLiteral(e *ast.FuncLiteral) any {
	return map[string]any{"type": "FuncLiteral", "params": paramList(e.Params), "body": e.Body.Accept(p)}
}

func (p astPrinter) VisitIfExpr(e *ast.IfExpr) any {
	return map[string]any{"type": "IfExpr", "condition": e.Condition.Accept(p), "then": e.Then.Accept(p), "else": e.Else.Accept(p)}
}

func (p astPrinter) VisitMatchExpr(e *ast.MatchExpr) any {
	return map[string]any{"type": "MatchExpr", "scrutinee": e.Scrutinee.Accept(p), "arms": armList(p, e.Arms)}
}

func (p astPrinter) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	return map[string]any{"type": "ExpressionStmt", "expression": s.Expression.Accept(p)}
}

func (p astPrinter) VisitLetStmt(s *ast.LetStmt) any {
	out := map[string]any{"type": "LetStmt", "mutable": s.Mutable, "public": s.Public, "value": s.Value.Accept(p)}
	if s.Target.Name.Lexeme != "" {
		out["name"] = s.Target.Name.Lexeme
	} else {
		names := make([]string, len(s.Target.Names))
		for i, n := range s.Target.Names {
			names[i] = n.Lexeme
		}
		out["names"] = names
	}
	return out
}

func (p astPrinter) VisitReassignStmt(s *ast.ReassignStmt) any {
	return map[string]any{"type": "ReassignStmt", "target": s.Target.Accept(p), "value": s.Value.Accept(p)}
}

func (p astPrinter) VisitBlockStmt(s *ast.BlockStmt) any {
	stmts := make([]any, len(s.Statements))
	for i, stmt := range s.Statements {
		stmts[i] = stmt.Accept(p)
	}
	return map[string]any{"type": "BlockStmt", "statements": stmts}
}

func (p astPrinter) VisitIfStmt(s *ast.IfStmt) any {
	out := map[string]any{"type": "IfStmt", "condition": s.Condition.Accept(p), "then": s.Then.Accept(p)}
	if s.Else != nil {
		out["else"] = s.Else.Accept(p)
	}
	return out
}

func (p astPrinter) VisitWhileStmt(s *ast.WhileStmt) any {
	return map[string]any{"type": "WhileStmt", "condition": s.Condition.Accept(p), "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitForStmt(s *ast.ForStmt) any {
	return map[string]any{"type": "ForStmt", "var": s.Var.Lexeme, "iterable": s.Iterable.Accept(p), "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitMatchStmt(s *ast.MatchStmt) any {
	return map[string]any{"type": "MatchStmt", "scrutinee": s.Scrutinee.Accept(p), "arms": armList(p, s.Arms)}
}

func (p astPrinter) VisitWhenStmt(s *ast.WhenStmt) any {
	bindings := make([]any, len(s.Bindings))
	for i, b := range s.Bindings {
		bindings[i] = map[string]any{"name": b.Name.Lexeme, "expr": b.Expr.Accept(p)}
	}
	out := map[string]any{"type": "WhenStmt", "bindings": bindings, "then": s.Then.Accept(p)}
	if s.Else != nil {
		out["else"] = s.Else.Accept(p)
	}
	return out
}

func (p astPrinter) VisitReturnStmt(s *ast.ReturnStmt) any {
	out := map[string]any{"type": "ReturnStmt"}
	if s.Value != nil {
		out["value"] = s.Value.Accept(p)
	}
	return out
}

func (p astPrinter) VisitBreakStmt(s *ast.BreakStmt) any       { return map[string]any{"type": "BreakStmt"} }
func (p astPrinter) VisitContinueStmt(s *ast.ContinueStmt) any { return map[string]any{"type": "ContinueStmt"} }

func (p astPrinter) VisitFuncDecl(s *ast.FuncDecl) any {
	return map[string]any{"type": "FuncDecl", "name": s.Name.Lexeme, "params": paramList(s.Params), "public": s.Public, "body": s.Body.Accept(p)}
}

func (p astPrinter) VisitTypeDecl(s *ast.TypeDecl) any {
	out := map[string]any{"type": "TypeDecl", "name": s.Name.Lexeme, "public": s.Public}
	switch s.Kind {
	case ast.TypeStruct:
		fields := make([]any, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = map[string]any{"name": f.Name.Lexeme, "typeName": f.TypeName, "mutable": f.Mutable}
		}
		out["kind"] = "struct"
		out["fields"] = fields
	case ast.TypeVariant:
		cases := make([]any, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = map[string]any{"tag": c.Tag.Lexeme, "fields": c.Fields}
		}
		out["kind"] = "variant"
		out["cases"] = cases
	}
	methods := make([]any, len(s.Methods))
	for i, m := range s.Methods {
		methods[i] = m.Accept(p)
	}
	out["methods"] = methods
	return out
}

func (p astPrinter) VisitExtendDecl(s *ast.ExtendDecl) any {
	methods := make([]any, len(s.Methods))
	for i, m := range s.Methods {
		methods[i] = m.Accept(p)
	}
	return map[string]any{"type": "ExtendDecl", "typeName": s.TypeName.Lexeme, "methods": methods}
}

func (p astPrinter) VisitImportStmt(s *ast.ImportStmt) any {
	return map[string]any{"type": "ImportStmt", "path": s.Path.Lexeme, "alias": s.Alias}
}

func (p astPrinter) VisitWildcardPattern(pat *ast.WildcardPattern) any {
	return map[string]any{"type": "WildcardPattern"}
}

func (p astPrinter) VisitBindingPattern(pat *ast.BindingPattern) any {
	return map[string]any{"type": "BindingPattern", "name": pat.Name.Lexeme}
}

func (p astPrinter) VisitLiteralPattern(pat *ast.LiteralPattern) any {
	return map[string]any{"type": "LiteralPattern", "value": pat.Value}
}

func (p astPrinter) VisitTuplePattern(pat *ast.TuplePattern) any {
	elements := make([]any, len(pat.Elements))
	for i, el := range pat.Elements {
		elements[i] = el.Accept(p)
	}
	return map[string]any{"type": "TuplePattern", "elements": elements}
}

func (p astPrinter) VisitVariantPattern(pat *ast.VariantPattern) any {
	fields := make([]any, len(pat.Fields))
	for i, f := range pat.Fields {
		fields[i] = f.Accept(p)
	}
	return map[string]any{"type": "VariantPattern", "tag": pat.Tag.Lexeme, "fields": fields}
}

func exprList(p astPrinter, exprs []ast.Expression) []any {
	out := make([]any, len(exprs))
	for i, e := range exprs {
		out[i] = e.Accept(p)
	}
	return out
}

func paramList(params []ast.Param) []any {
	out := make([]any, len(params))
	for i, param := range params {
		out[i] = map[string]any{"name": param.Name.Lexeme, "typeName": param.TypeName}
	}
	return out
}

func armList(p astPrinter, arms []ast.MatchArm) []any {
	out := make([]any, len(arms))
	for i, arm := range arms {
		entry := map[string]any{"pattern": arm.Pattern.Accept(p), "body": bodyVisitor{p}.Accept(arm.Body)}
		if arm.Guard != nil {
			entry["guard"] = arm.Guard.Accept(p)
		}
		out[i] = entry
	}
	return out
}

// bodyVisitor lets armList call Accept on a MatchArm's Body (an
// ast.Expression for a MatchExpr arm, an ast.Stmt for a MatchStmt arm)
// without knowing which at the call site: Node.Accept isn't part of the
// Node interface itself, only Expression's and Stmt's, so we dispatch on
// the concrete type once here instead of duplicating armList per caller.
type bodyVisitor struct{ p astPrinter }

func (b bodyVisitor) Accept(body ast.Node) any {
	switch n := body.(type) {
	case ast.Expression:
		return n.Accept(b.p)
	case ast.Stmt:
		return n.Accept(b.p)
	}
	return nil
}

// PrintASTJSON converts a module into a prettified JSON string using
// segmentio/encoding/json (spec.md §6.1 "ast" subcommand), swapped in for
// encoding/json because it is a hot path when a golden-file harness shells
// out to this binary repeatedly, the same justification Consensys-go-corset
// has for using it in its own CLI tooling.
func PrintASTJSON(mod *ast.Module) (string, error) {
	printer := astPrinter{}
	items := make([]any, len(mod.Items))
	for i, item := range mod.Items {
		items[i] = item.Accept(printer)
	}
	tree := map[string]any{"path": mod.Path, "items": items}
	bytes, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// PrintAST writes the module's AST as colorized JSON to stdout, following
// the teacher's PrintASTJSON console presentation.
func PrintAST(mod *ast.Module) error {
	s, err := PrintASTJSON(mod)
	if err != nil {
		return err
	}
	fmt.Println(colorYellow + "----- AST JSON -----")
	fmt.Println(colorYellow + s)
	fmt.Println(colorYellow + "-----" + colorReset)
	return nil
}

// WriteASTJSONToFile writes the module's AST JSON to path, following the
// teacher's WriteASTJSONToFile.
func WriteASTJSONToFile(mod *ast.Module, path string) error {
	s, err := PrintASTJSON(mod)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating AST file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		return fmt.Errorf("error writing AST to file: %w", err)
	}
	return nil
}
