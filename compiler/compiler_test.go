package compiler

import (
	"testing"

	"loom/bytecode"
	"loom/lexer"
	"loom/parser"
	"loom/source"
)

func compileOk(t *testing.T, text string) *bytecode.Program {
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
	prog, diags := Compile(mod)
	if diags.HasErrors() {
		t.Fatalf("unexpected compile errors: %v", diags.All())
	}
	return prog
}

func countOp(ins bytecode.Instructions, op bytecode.Opcode) int {
	count := 0
	ip := 0
	for ip < len(ins) {
		cur := bytecode.Opcode(ins[ip])
		if cur == op {
			count++
		}
		def, err := bytecode.Get(cur)
		if err != nil {
			break
		}
		_, width := bytecode.ReadOperands(def, ins[ip+1:])
		ip += 1 + width
	}
	return count
}

func TestCompileArithmeticEmitsExpectedOps(t *testing.T) {
	prog := compileOk(t, "let x = 1 + 2 * 3\nprint(x)\n")
	if countOp(prog.Main.Instructions, bytecode.OP_ADD) != 1 {
		t.Fatalf("expected exactly one OP_ADD, got instructions: %v", prog.Main.Instructions)
	}
	if countOp(prog.Main.Instructions, bytecode.OP_MULTIPLY) != 1 {
		t.Fatalf("expected exactly one OP_MULTIPLY")
	}
}

func TestCompileFunctionRegistersGlobal(t *testing.T) {
	prog := compileOk(t, "func add(a, b) {\n    return a + b\n}\nprint(add(1, 2))\n")
	if len(prog.Functions) != 1 {
		t.Fatalf("expected one compiled function, got %d", len(prog.Functions))
	}
	if prog.Functions[0].Arity != 2 {
		t.Fatalf("expected arity 2, got %d", prog.Functions[0].Arity)
	}
	if countOp(prog.Main.Instructions, bytecode.OP_DEFINE_GLOBAL) != 1 {
		t.Fatalf("expected add to be defined as a global")
	}
}

func TestCompileSelfTailCallEmitsTailCallOp(t *testing.T) {
	prog := compileOk(t, strings_join(
		"func loop(n, acc) {",
		"    if n == 0 {",
		"        return acc",
		"    }",
		"    return loop(n - 1, acc + n)",
		"}",
		"print(loop(5, 0))",
	))
	if len(prog.Functions) != 1 {
		t.Fatalf("expected one compiled function, got %d", len(prog.Functions))
	}
	fn := prog.Functions[0]
	if !fn.IsTailSelf {
		t.Fatalf("expected loop's self-recursive return to be marked IsTailSelf")
	}
	if countOp(fn.Instructions, bytecode.OP_TAIL_CALL) != 1 {
		t.Fatalf("expected exactly one OP_TAIL_CALL, got instructions: %v", fn.Instructions)
	}
}

func TestCompileClosureCapturesOuterLocal(t *testing.T) {
	prog := compileOk(t, strings_join(
		"func counter() {",
		"    var n = 0",
		"    func bump() {",
		"        n = n + 1",
		"        return n",
		"    }",
		"    return bump",
		"}",
		"let c = counter()",
		"print(c())",
	))
	if len(prog.Functions) < 2 {
		t.Fatalf("expected counter and its nested bump to both compile, got %d functions", len(prog.Functions))
	}
	var bump *bytecode.FunctionProto
	for _, fn := range prog.Functions {
		if fn.Name == "bump" {
			bump = fn
		}
	}
	if bump == nil {
		t.Fatalf("expected a compiled function named bump")
	}
	if len(bump.Captures) != 1 {
		t.Fatalf("expected bump to capture exactly one upvalue, got %d", len(bump.Captures))
	}
}

func TestCompileStructLiteralRegistersFieldList(t *testing.T) {
	prog := compileOk(t, strings_join(
		"Point has { x, y }",
		"let p = Point { x: 1, y: 2 }",
		"print(p.x)",
	))
	if len(prog.Structs) != 1 || prog.Structs[0].Name != "Point" {
		t.Fatalf("expected a registered Point struct schema, got %v", prog.Structs)
	}
	if countOp(prog.Main.Instructions, bytecode.OP_BUILD_STRUCT) != 1 {
		t.Fatalf("expected exactly one OP_BUILD_STRUCT")
	}
	if len(prog.FieldLists) != 1 || len(prog.FieldLists[0]) != 2 {
		t.Fatalf("expected one field list of length 2, got %v", prog.FieldLists)
	}
}

func TestCompileVariantTagBuildsVariant(t *testing.T) {
	prog := compileOk(t, strings_join(
		"Opt = some(v) or none",
		"let a = some(5)",
		"match a {",
		"    some(v): print(v)",
		"    _: print(0)",
		"}",
	))
	if len(prog.Variants) != 1 || prog.Variants[0].Name != "Opt" {
		t.Fatalf("expected a registered Opt variant schema, got %v", prog.Variants)
	}
	if countOp(prog.Main.Instructions, bytecode.OP_BUILD_VARIANT) != 1 {
		t.Fatalf("expected exactly one OP_BUILD_VARIANT")
	}
	if countOp(prog.Main.Instructions, bytecode.OP_MATCH_PATTERN) != 2 {
		t.Fatalf("expected one OP_MATCH_PATTERN per arm (2 total)")
	}
}

func TestCompileMethodRegistersOnTypeTable(t *testing.T) {
	prog := compileOk(t, strings_join(
		"Point has {",
		"    x, y",
		"    func sum(self) { return self.x + self.y }",
		"}",
		"let p = Point { x: 1, y: 2 }",
		"print(p.sum())",
	))
	table, ok := prog.Methods["Point"]
	if !ok {
		t.Fatalf("expected a method table for Point")
	}
	sum, ok := table["sum"]
	if !ok {
		t.Fatalf("expected a 'sum' method on Point")
	}
	if !sum.IsMethod || sum.Arity != 0 {
		t.Fatalf("expected sum to be a zero-arity method (self stripped), got arity %d, isMethod %v", sum.Arity, sum.IsMethod)
	}
}

func TestCompileForLoopUsesIterOpcodes(t *testing.T) {
	prog := compileOk(t, strings_join(
		"for i in 0..3 {",
		"    print(i)",
		"}",
	))
	if countOp(prog.Main.Instructions, bytecode.OP_ITER_INIT) != 1 {
		t.Fatalf("expected one OP_ITER_INIT")
	}
	if countOp(prog.Main.Instructions, bytecode.OP_ITER_NEXT) != 1 {
		t.Fatalf("expected one OP_ITER_NEXT")
	}
}

func TestCompileDestructuringLetUsesGetIndex(t *testing.T) {
	prog := compileOk(t, strings_join(
		"let (a, b) = (1, 2)",
		"print(a + b)",
	))
	if countOp(prog.Main.Instructions, bytecode.OP_GET_INDEX) != 2 {
		t.Fatalf("expected two OP_GET_INDEX for a two-element destructure")
	}
}

func strings_join(lines ...string) string {
	out := ""
	for _, l := range lines {
		out += l + "\n"
	}
	return out
}
