package interpreter

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"loom/lexer"
	"loom/parser"
	"loom/source"
)

// run lexes, parses, and interprets text end to end, returning everything
// printed via the "print" builtin, one call per line.
func run(t *testing.T, text string) []string {
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

	var out []string
	log := logrus.NewEntry(logrus.New())
	interp := New(log)
	interp.Stdout = func(s string) { out = append(out, s) }
	if err := interp.Run(mod); err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return out
}

func TestInterpretArithmeticPrecedence(t *testing.T) {
	out := run(t, "let x = 2 + 3 * 4\nprint(x)\n")
	if len(out) != 1 || out[0] != "14" {
		t.Fatalf("expected [\"14\"], got %v", out)
	}
}

func TestInterpretIfElse(t *testing.T) {
	out := run(t, "if 1 < 2 { print(\"yes\") } else { print(\"no\") }\n")
	if len(out) != 1 || out[0] != "yes" {
		t.Fatalf("expected [\"yes\"], got %v", out)
	}
}

func TestInterpretWhileLoopWithBreak(t *testing.T) {
	out := run(t, strings.Join([]string{
		"var i = 0",
		"while i < 10 {",
		"    if i == 3 { break }",
		"    print(i)",
		"    i = i + 1",
		"}",
	}, "\n")+"\n")
	if len(out) != 3 || out[0] != "0" || out[1] != "1" || out[2] != "2" {
		t.Fatalf("expected [0 1 2], got %v", out)
	}
}

func TestInterpretRecursiveFactorial(t *testing.T) {
	out := run(t, strings.Join([]string{
		"func factorial(n) {",
		"    if n == 0 { return 1 }",
		"    return n * factorial(n - 1)",
		"}",
		"print(factorial(5))",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "120" {
		t.Fatalf("expected [\"120\"], got %v", out)
	}
}

func TestInterpretStructConstructionAndFieldAccess(t *testing.T) {
	out := run(t, strings.Join([]string{
		"Point has { x, y }",
		"let p = Point { x: 1, y: 2 }",
		"print(p.x + p.y)",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "3" {
		t.Fatalf("expected [\"3\"], got %v", out)
	}
}

func TestInterpretStructMethodDispatch(t *testing.T) {
	out := run(t, strings.Join([]string{
		"Point has {",
		"    x, y",
		"    func sum(self) { return self.x + self.y }",
		"}",
		"let p = Point { x: 4, y: 5 }",
		"print(p.sum())",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "9" {
		t.Fatalf("expected [\"9\"], got %v", out)
	}
}

func TestInterpretVariantConstructionAndMatch(t *testing.T) {
	out := run(t, strings.Join([]string{
		"Opt = some(v) or none",
		"let a = some(5)",
		"match a {",
		"    some(v): print(v)",
		"    _: print(0)",
		"}",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "5" {
		t.Fatalf("expected [\"5\"], got %v", out)
	}
}

func TestInterpretOptionCombinatorMap(t *testing.T) {
	out := run(t, strings.Join([]string{
		"Opt = some(v) or none",
		"let a = some(5)",
		"let b = a.map(func(v) { return v * 2 })",
		"match b {",
		"    some(v): print(v)",
		"    _: print(-1)",
		"}",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "10" {
		t.Fatalf("expected [\"10\"], got %v", out)
	}
}

func TestInterpretListBuiltinMethods(t *testing.T) {
	out := run(t, strings.Join([]string{
		"let xs = [3, 1, 2]",
		"print(xs.sorted())",
		"print(xs.len())",
	}, "\n")+"\n")
	if len(out) != 2 || out[0] != "[1, 2, 3]" || out[1] != "3" {
		t.Fatalf("expected [\"[1, 2, 3]\" \"3\"], got %v", out)
	}
}

func TestInterpretImmutableAssignmentFails(t *testing.T) {
	src := source.New("test.loom", "let x = 1\nx = 2\n")
	toks, _ := lexer.New(src).Scan()
	mod, _ := parser.New(src.Name(), toks).Parse()
	interp := New(logrus.NewEntry(logrus.New()))
	err := interp.Run(mod)
	if err == nil {
		t.Fatalf("expected an error reassigning an immutable binding")
	}
	if !strings.Contains(err.Error(), "immutable") {
		t.Fatalf("expected an immutable-assign error, got %v", err)
	}
}

func TestInterpretForLoopOverRange(t *testing.T) {
	out := run(t, strings.Join([]string{
		"for i in 0..3 {",
		"    print(i)",
		"}",
	}, "\n")+"\n")
	if len(out) != 3 || out[0] != "0" || out[1] != "1" || out[2] != "2" {
		t.Fatalf("expected [0 1 2], got %v", out)
	}
}

func TestInterpretWhenDesugaring(t *testing.T) {
	out := run(t, strings.Join([]string{
		"Opt = some(v) or none",
		"func lookup() { return some(42) }",
		"when v = lookup() {",
		"    print(v)",
		"} else {",
		"    print(-1)",
		"}",
	}, "\n")+"\n")
	if len(out) != 1 || out[0] != "42" {
		t.Fatalf("expected [\"42\"], got %v", out)
	}
}
