package parser

import (
	"testing"

	"loom/ast"
	"loom/diag"
	"loom/lexer"
	"loom/source"
)

func parseSrc(t *testing.T, text string) (*ast.Module, *diag.Bag) {
	t.Helper()
	src := source.New("test.loom", text)
	toks, lexDiags := lexer.New(src).Scan()
	if lexDiags.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexDiags.All())
	}
	return New(src.Name(), toks).Parse()
}

func TestParseLetAndArithmetic(t *testing.T) {
	mod, diags := parseSrc(t, "let x = 2 + 3 * 4\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	if len(mod.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(mod.Items))
	}
	let, ok := mod.Items[0].(*ast.LetStmt)
	if !ok {
		t.Fatalf("expected *ast.LetStmt, got %T", mod.Items[0])
	}
	if let.Mutable {
		t.Fatalf("'let' binding should be immutable")
	}
	bin, ok := let.Value.(*ast.Binary)
	if !ok {
		t.Fatalf("expected top-level Binary for '+', got %T", let.Value)
	}
	if bin.Operator.Lexeme != "+" {
		t.Fatalf("expected '+' at the top of the precedence tree, got %q", bin.Operator.Lexeme)
	}
}

func TestParseIfElseStatement(t *testing.T) {
	mod, diags := parseSrc(t, "if x < 10 { print(x) } else { print(0) }\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	ifStmt, ok := mod.Items[0].(*ast.IfStmt)
	if !ok {
		t.Fatalf("expected *ast.IfStmt, got %T", mod.Items[0])
	}
	if ifStmt.Else == nil {
		t.Fatalf("expected an else branch")
	}
}

func TestParseMatchRequiresWildcardArm(t *testing.T) {
	_, diags := parseSrc(t, "match x { 1: print(1) }\n")
	if !diags.HasErrors() {
		t.Fatalf("expected a non-exhaustive-match diagnostic")
	}
	found := false
	for _, d := range diags.All() {
		if d.Code == diag.CodeNonExhaustiveMatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected code %s among diagnostics, got %v", diag.CodeNonExhaustiveMatch, diags.All())
	}
}

func TestParseMatchWithWildcardArm(t *testing.T) {
	mod, diags := parseSrc(t, "match x { 1: print(1) _: print(0) }\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	m, ok := mod.Items[0].(*ast.MatchStmt)
	if !ok {
		t.Fatalf("expected *ast.MatchStmt, got %T", mod.Items[0])
	}
	if len(m.Arms) != 2 {
		t.Fatalf("expected 2 arms, got %d", len(m.Arms))
	}
}

func TestParseStructLiteral(t *testing.T) {
	mod, diags := parseSrc(t, "let p = Point { x: 1, y: 2 }\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	let := mod.Items[0].(*ast.LetStmt)
	sl, ok := let.Value.(*ast.StructLiteral)
	if !ok {
		t.Fatalf("expected *ast.StructLiteral, got %T", let.Value)
	}
	if len(sl.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(sl.Fields))
	}
}

func TestParseStringInterpolation(t *testing.T) {
	mod, diags := parseSrc(t, `let s = "hello {name}!"` + "\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	let := mod.Items[0].(*ast.LetStmt)
	interp, ok := let.Value.(*ast.StringInterp)
	if !ok {
		t.Fatalf("expected *ast.StringInterp, got %T", let.Value)
	}
	if len(interp.Exprs) != 1 {
		t.Fatalf("expected 1 interpolation slot, got %d", len(interp.Exprs))
	}
	if _, ok := interp.Exprs[0].(*ast.Identifier); !ok {
		t.Fatalf("expected interpolation slot to be an Identifier, got %T", interp.Exprs[0])
	}
}

func TestParseFunctionDeclaration(t *testing.T) {
	mod, diags := parseSrc(t, "func add(a, b) { return a + b }\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	fd, ok := mod.Items[0].(*ast.FuncDecl)
	if !ok {
		t.Fatalf("expected *ast.FuncDecl, got %T", mod.Items[0])
	}
	if len(fd.Params) != 2 {
		t.Fatalf("expected 2 params, got %d", len(fd.Params))
	}
	if len(fd.Body.Statements) != 1 {
		t.Fatalf("expected 1 statement in body, got %d", len(fd.Body.Statements))
	}
}

func TestParseWhenDesugarSurfaceForm(t *testing.T) {
	mod, diags := parseSrc(t, "when v = maybeValue() { print(v) } else { print(0) }\n")
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.All())
	}
	ws, ok := mod.Items[0].(*ast.WhenStmt)
	if !ok {
		t.Fatalf("expected *ast.WhenStmt, got %T", mod.Items[0])
	}
	if len(ws.Bindings) != 1 || ws.Else == nil {
		t.Fatalf("expected 1 binding and an else block")
	}
}

func TestParseRecoversAfterSyntaxError(t *testing.T) {
	mod, diags := parseSrc(t, "let = \nlet y = 1\n")
	if !diags.HasErrors() {
		t.Fatalf("expected a diagnostic for the malformed first binding")
	}
	found := false
	for _, item := range mod.Items {
		if let, ok := item.(*ast.LetStmt); ok && let.Target.Name.Lexeme == "y" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected parser to recover and still parse 'let y = 1'")
	}
}
