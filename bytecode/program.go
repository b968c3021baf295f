package bytecode

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// CaptureSource distinguishes whether a closure's captured variable comes
// from the enclosing function's locals or from one of its own upvalues
// (spec.md §7 "capture descriptors").
type CaptureSource int

const (
	CaptureFromLocal CaptureSource = iota
	CaptureFromUpvalue
)

// CaptureDescriptor records how a MAKE_CLOSURE instruction should populate
// one upvalue slot of the closure it builds.
type CaptureDescriptor struct {
	Source CaptureSource
	Index  int
}

// FunctionProto is the compiled form of one function (named, anonymous, or
// method): its instruction stream, the number of local slots it needs, its
// arity, and the capture descriptors consumed when a closure over it is
// constructed.
type FunctionProto struct {
	Name         string
	Arity        int
	NumLocals    int
	Instructions Instructions
	Captures     []CaptureDescriptor
	IsTailSelf   bool // true if the compiler emitted at least one OP_TAIL_CALL in this body

	// IsMethod marks a function compiled from a "func f(self) {...}"
	// receiver method: local slot 0 ("self") is filled from the calling
	// closure's Captured[0] rather than from the caller's argument list.
	IsMethod bool

	// BoxedLocals records which local slots were captured by a nested
	// closure (bits-and-blooms/bitset, set by the compiler whenever a
	// nested function resolves one of this function's locals as an
	// upvalue): the VM stores those slots as *value.Cell from
	// declaration onward instead of a bare value, so a closure that
	// outlives this call still observes later mutations.
	BoxedLocals *bitset.BitSet
}

// StructSchema describes one struct type's field layout, used by
// OP_BUILD_STRUCT/OP_SPREAD_UPDATE/OP_GET_FIELD to resolve field names to
// slot positions without a runtime map lookup.
type StructSchema struct {
	Name   string
	Fields []string
}

// VariantSchema describes one tagged-variant type's case layout.
type VariantSchema struct {
	Name  string
	Cases map[string]int // tag -> payload arity

	// CaseOrder preserves declaration order (Cases, being a map, does
	// not), so the VM can infer success/failure combinator tags with the
	// same "first two declared cases" fallback the tree-walk interpreter
	// uses when a variant doesn't follow the some/none or ok/err
	// convention.
	CaseOrder []string
}

// Program is the fully compiled, self-contained unit the VM executes: a
// constant pool, a function table, and type schemas, plus a top-level
// "main" instruction stream (spec.md §7).
type Program struct {
	Constants     []any
	NameConstants []string
	Functions     []*FunctionProto
	Structs       []*StructSchema
	Variants      []*VariantSchema
	Main          *FunctionProto

	// Methods maps a struct/variant type name to its user-defined method
	// table (declared in a "has" body or attached via "does"), keyed by
	// method name.
	Methods map[string]map[string]*FunctionProto

	// FieldLists holds the field-name lists referenced by OP_BUILD_STRUCT's
	// second operand and OP_SPREAD_UPDATE's only operand: the names, in the exact
	// order their values are pushed onto the stack.
	FieldLists [][]string

	// ClosureDescs holds the capture-descriptor lists referenced by
	// OP_MAKE_CLOSURE's second operand.
	ClosureDescs [][]CaptureDescriptor
}

// NewProgram returns an empty Program ready for the compiler to populate.
func NewProgram() *Program {
	return &Program{Main: &FunctionProto{Name: "<main>"}, Methods: make(map[string]map[string]*FunctionProto)}
}

// Disassemble renders every function in the program as human-readable
// instruction listings (spec.md §7 "emit-bytecode" diagnostic surface).
func (p *Program) Disassemble() string {
	var b strings.Builder
	b.WriteString(disassembleFunction("<main>", p.Main, p))
	for _, fn := range p.Functions {
		b.WriteString(disassembleFunction(fn.Name, fn, p))
	}
	return b.String()
}

func disassembleFunction(name string, fn *FunctionProto, p *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	ip := 0
	for ip < len(fn.Instructions) {
		op := Opcode(fn.Instructions[ip])
		def, err := Get(op)
		if err != nil {
			fmt.Fprintf(&b, "%04d ERROR: %s\n", ip, err)
			ip++
			continue
		}
		operands, width := ReadOperands(def, fn.Instructions[ip+1:])
		fmt.Fprintf(&b, "%04d %s", ip, def.Name)
		for _, o := range operands {
			fmt.Fprintf(&b, " %d", o)
		}
		if op == OP_CONSTANT && len(operands) == 1 && operands[0] < len(p.Constants) {
			fmt.Fprintf(&b, "  ; %v", p.Constants[operands[0]])
		}
		if (op == OP_GET_GLOBAL || op == OP_SET_GLOBAL || op == OP_DEFINE_GLOBAL || op == OP_GET_FIELD || op == OP_SET_FIELD) &&
			len(operands) >= 1 && operands[0] < len(p.NameConstants) {
			fmt.Fprintf(&b, "  ; %s", p.NameConstants[operands[0]])
		}
		b.WriteString("\n")
		ip += 1 + width
	}
	return b.String()
}
