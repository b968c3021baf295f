package analyzer

import (
	"strings"
	"testing"

	"loom/diag"
	"loom/lexer"
	"loom/parser"
	"loom/source"
)

func parseOk(t *testing.T, text string) *diag.Bag {
	t.Helper()
	src := source.New("test.loom", text)
	toks, lexDiags := lexer.New(src).Scan()
	if lexDiags.HasErrors() {
		t.Fatalf("unexpected lex errors: %v", lexDiags.All())
	}
	mod, parseDiags := parser.New(src.Name(), toks).Parse()
	if parseDiags.HasErrors() {
		t.Fatalf("unexpected parse errors: %v", parseDiags.All())
	}
	return Analyze(mod)
}

func hasCode(bag *diag.Bag, code diag.Code) bool {
	for _, d := range bag.All() {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestAnalyzeUndefinedNameSuggestsNearestMatch(t *testing.T) {
	bag := parseOk(t, "let total = 1\nprint(totl)\n")
	if !hasCode(bag, diag.CodeUndefinedName) {
		t.Fatalf("expected an undefined-name diagnostic, got %v", bag.All())
	}
	found := false
	for _, d := range bag.All() {
		if d.Code == diag.CodeUndefinedName && strings.Contains(d.Help, "total") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected suggestion mentioning 'total', got %v", bag.All())
	}
}

func TestAnalyzeShadowingWarns(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"let x = 1",
		"if x == 1 {",
		"    let x = 2",
		"    print(x)",
		"}",
	}, "\n")+"\n")
	if !hasCode(bag, diag.CodeShadowing) {
		t.Fatalf("expected a shadowing warning, got %v", bag.All())
	}
}

func TestAnalyzeImmutableReassignmentErrors(t *testing.T) {
	bag := parseOk(t, "let x = 1\nx = 2\n")
	if !hasCode(bag, diag.CodeImmutableAssign) {
		t.Fatalf("expected an immutable-assign error, got %v", bag.All())
	}
}

func TestAnalyzeMutableReassignmentIsClean(t *testing.T) {
	bag := parseOk(t, "var x = 1\nx = 2\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestAnalyzeBreakOutsideLoopErrors(t *testing.T) {
	bag := parseOk(t, "break\n")
	if !hasCode(bag, diag.CodeBreakOutsideLoop) {
		t.Fatalf("expected a break-outside-loop error, got %v", bag.All())
	}
}

func TestAnalyzeBreakInsideLoopIsClean(t *testing.T) {
	bag := parseOk(t, "while 1 < 2 {\n    break\n}\n")
	if hasCode(bag, diag.CodeBreakOutsideLoop) {
		t.Fatalf("did not expect a break-outside-loop error, got %v", bag.All())
	}
}

func TestAnalyzeReturnOutsideFunctionErrors(t *testing.T) {
	bag := parseOk(t, "return 1\n")
	if !hasCode(bag, diag.CodeReturnOutsideFn) {
		t.Fatalf("expected a return-outside-function error, got %v", bag.All())
	}
}

func TestAnalyzeReturnInsideFunctionIsClean(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"func identity(x) {",
		"    return x",
		"}",
		"print(identity(1))",
	}, "\n")+"\n")
	if hasCode(bag, diag.CodeReturnOutsideFn) {
		t.Fatalf("did not expect a return-outside-function error, got %v", bag.All())
	}
}

func TestAnalyzeFunctionParametersResolve(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"func add(a, b) {",
		"    return a + b",
		"}",
		"print(add(1, 2))",
	}, "\n")+"\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestAnalyzeStructMethodSelfResolves(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"Point has {",
		"    x, y",
		"    func sum(self) { return self.x + self.y }",
		"}",
		"let p = Point { x: 1, y: 2 }",
		"print(p.sum())",
	}, "\n")+"\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestAnalyzeVariantTagsResolveAsConstructors(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"Opt = some(v) or none",
		"let a = some(5)",
		"match a {",
		"    some(v): print(v)",
		"    _: print(0)",
		"}",
	}, "\n")+"\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestAnalyzeForLoopVariableResolves(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"for i in 0..3 {",
		"    print(i)",
		"}",
	}, "\n")+"\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestAnalyzeWhenBindingResolves(t *testing.T) {
	bag := parseOk(t, strings.Join([]string{
		"Opt = some(v) or none",
		"func lookup() { return some(42) }",
		"when v = lookup() {",
		"    print(v)",
		"} else {",
		"    print(-1)",
		"}",
	}, "\n")+"\n")
	if bag.HasErrors() {
		t.Fatalf("expected no errors, got %v", bag.All())
	}
}

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"total", "totl", 1},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
