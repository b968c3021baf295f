// Package bytecode defines the instruction set, constant pool, and program
// representation produced by the compiler and executed by the VM
// (spec.md §7). Instructions are fixed-width-operand, BigEndian-encoded
// byte sequences, following the teacher compiler's encoding scheme
// generalized from a single opcode to the full instruction set the
// language requires.
package bytecode

import (
	"encoding/binary"
	"fmt"
)

// Opcode identifies a single VM instruction.
type Opcode byte

// Instructions is a flat, appendable byte-encoded instruction stream.
type Instructions []byte

const (
	OP_CONSTANT Opcode = iota // operand: constant-pool index (2 bytes)
	OP_NULL
	OP_TRUE
	OP_FALSE
	OP_POP
	OP_DUP // duplicates the top of the operand stack

	// Arithmetic and comparison.
	OP_ADD
	OP_SUBTRACT
	OP_MULTIPLY
	OP_DIVIDE
	OP_MODULO
	OP_NEGATE
	OP_NOT
	OP_EQUAL
	OP_NOT_EQUAL
	OP_LESS
	OP_LESS_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL
	OP_AND
	OP_OR
	OP_TYPE_TEST // operand: type-name-constant index (2 bytes); pops a value, pushes whether its runtime type name matches

	// Locals, globals, upvalues. Each function frame owns a locals array
	// sized to FunctionProto.NumLocals, separate from the operand stack
	// (so a destructuring let or a captured-and-boxed slot can be
	// rewritten without disturbing stack-relative addressing elsewhere).
	// OP_SET_* pop the value being stored; callers that need the stored
	// value to remain available (e.g. assignment as an expression) follow
	// a set with the matching get.
	OP_GET_LOCAL    // operand: slot index (2 bytes); pushes locals[slot]
	OP_SET_LOCAL    // operand: slot index (2 bytes); pops TOS into locals[slot]
	OP_GET_GLOBAL   // operand: name-constant index (2 bytes)
	OP_SET_GLOBAL   // operand: name-constant index (2 bytes); pops TOS
	OP_DEFINE_GLOBAL // operand: name-constant index (2 bytes); pops TOS
	OP_GET_UPVALUE  // operand: upvalue index (2 bytes)
	OP_SET_UPVALUE  // operand: upvalue index (2 bytes); pops TOS

	// Control flow. Jump targets are absolute instruction offsets, not
	// relative displacements, so the compiler can patch a forward jump's
	// operand once it knows where the jump should land.
	OP_JUMP          // operand: absolute instruction offset (2 bytes)
	OP_JUMP_IF_FALSE // operand: absolute instruction offset (2 bytes); pops the condition
	OP_LOOP          // operand: absolute instruction offset (2 bytes), jumps backward

	// Functions and calls.
	OP_MAKE_CLOSURE // operands: index into Program.Functions (2 bytes), index into Program.ClosureDescs (2 bytes)
	OP_CALL         // operand: argument count (2 bytes)
	OP_TAIL_CALL    // operand: argument count (2 bytes); self-recursive tail position only
	OP_RETURN

	// Composite values.
	OP_BUILD_LIST   // operand: element count (2 bytes)
	OP_BUILD_MAP    // operand: entry count (2 bytes)
	OP_BUILD_TUPLE  // operand: element count (2 bytes)
	OP_BUILD_RANGE  // operand: inclusive flag (2 bytes, 0 or 1)
	OP_BUILD_STRUCT // operands: index into Program.Structs (2 bytes), index into Program.FieldLists (2 bytes)
	OP_BUILD_VARIANT // operands: index into Program.Variants (2 bytes), tag-name-constant index (2 bytes), arg count (2 bytes)
	OP_SPREAD_UPDATE // operand: index into Program.FieldLists (2 bytes); stack: base struct, then field values in that order

	// Field/index/member access.
	OP_GET_FIELD // operand: name-constant index (2 bytes)
	OP_SET_FIELD // operand: name-constant index (2 bytes)
	OP_GET_INDEX
	OP_SET_INDEX

	// Iteration.
	OP_ITER_INIT
	OP_ITER_NEXT // operand: absolute instruction offset to jump to when exhausted (2 bytes)

	// String interpolation assembly.
	OP_CONCAT // operand: fragment count (2 bytes)

	// Pattern matching support. OP_MATCH_PATTERN delegates to the same
	// recursive matcher the tree-walk interpreter uses, operating directly
	// on the arm's *ast.Pattern (held in the constant pool), so the two
	// execution strategies can never disagree on what matches: pops the
	// scrutinee, and on success writes ordered bindings starting at the
	// given local slot and pushes true; on failure pushes false and
	// touches no locals.
	OP_MATCH_PATTERN // operands: pattern-constant index (2 bytes), first-binding-slot (2 bytes)

	// OP_WHEN_BIND implements a single "when" clause binding (spec.md §4.3
	// "when v = expr"): pops a scrutinee, which must be a variant; if its
	// tag is that variant type's success tag, pushes its payload (or null
	// for a zero-arity case) followed by true; otherwise pushes only
	// false. Mirrors the tree-walk interpreter's VisitWhenStmt exactly, so
	// the two strategies can't disagree about what counts as success.
	OP_WHEN_BIND

	OP_THROW
	OP_END
)

var opcodeNames = map[Opcode]string{
	OP_CONSTANT: "OP_CONSTANT", OP_NULL: "OP_NULL", OP_TRUE: "OP_TRUE", OP_FALSE: "OP_FALSE",
	OP_POP: "OP_POP", OP_DUP: "OP_DUP", OP_ADD: "OP_ADD", OP_SUBTRACT: "OP_SUBTRACT", OP_MULTIPLY: "OP_MULTIPLY",
	OP_DIVIDE: "OP_DIVIDE", OP_MODULO: "OP_MODULO", OP_NEGATE: "OP_NEGATE", OP_NOT: "OP_NOT",
	OP_EQUAL: "OP_EQUAL", OP_NOT_EQUAL: "OP_NOT_EQUAL", OP_LESS: "OP_LESS", OP_LESS_EQUAL: "OP_LESS_EQUAL",
	OP_GREATER: "OP_GREATER", OP_GREATER_EQUAL: "OP_GREATER_EQUAL", OP_AND: "OP_AND", OP_OR: "OP_OR",
	OP_TYPE_TEST: "OP_TYPE_TEST",
	OP_GET_LOCAL: "OP_GET_LOCAL", OP_SET_LOCAL: "OP_SET_LOCAL", OP_GET_GLOBAL: "OP_GET_GLOBAL",
	OP_SET_GLOBAL: "OP_SET_GLOBAL", OP_DEFINE_GLOBAL: "OP_DEFINE_GLOBAL", OP_GET_UPVALUE: "OP_GET_UPVALUE",
	OP_SET_UPVALUE: "OP_SET_UPVALUE", OP_JUMP: "OP_JUMP", OP_JUMP_IF_FALSE: "OP_JUMP_IF_FALSE",
	OP_LOOP: "OP_LOOP", OP_MAKE_CLOSURE: "OP_MAKE_CLOSURE", OP_CALL: "OP_CALL", OP_TAIL_CALL: "OP_TAIL_CALL",
	OP_RETURN: "OP_RETURN", OP_BUILD_LIST: "OP_BUILD_LIST", OP_BUILD_MAP: "OP_BUILD_MAP",
	OP_BUILD_TUPLE: "OP_BUILD_TUPLE", OP_BUILD_RANGE: "OP_BUILD_RANGE", OP_BUILD_STRUCT: "OP_BUILD_STRUCT",
	OP_BUILD_VARIANT: "OP_BUILD_VARIANT", OP_SPREAD_UPDATE: "OP_SPREAD_UPDATE", OP_GET_FIELD: "OP_GET_FIELD",
	OP_SET_FIELD: "OP_SET_FIELD", OP_GET_INDEX: "OP_GET_INDEX", OP_SET_INDEX: "OP_SET_INDEX",
	OP_ITER_INIT: "OP_ITER_INIT", OP_ITER_NEXT: "OP_ITER_NEXT", OP_CONCAT: "OP_CONCAT",
	OP_MATCH_PATTERN: "OP_MATCH_PATTERN", OP_WHEN_BIND: "OP_WHEN_BIND",
	OP_THROW: "OP_THROW", OP_END: "OP_END",
}

// OpCodeDefinition describes an opcode's mnemonic and the byte width of
// each of its operands, following the teacher's compiler/code.go scheme.
type OpCodeDefinition struct {
	Name          string
	OperandWidths []int
}

var definitions = buildDefinitions()

func buildDefinitions() map[Opcode]*OpCodeDefinition {
	zero := []int{}
	one := []int{2}
	two := []int{2, 2}
	three := []int{2, 2, 2}

	defs := map[Opcode]*OpCodeDefinition{
		OP_CONSTANT: {"OP_CONSTANT", one},
		OP_NULL:     {"OP_NULL", zero},
		OP_TRUE:     {"OP_TRUE", zero},
		OP_FALSE:    {"OP_FALSE", zero},
		OP_POP:      {"OP_POP", zero},
		OP_DUP:      {"OP_DUP", zero},

		OP_ADD: {"OP_ADD", zero}, OP_SUBTRACT: {"OP_SUBTRACT", zero},
		OP_MULTIPLY: {"OP_MULTIPLY", zero}, OP_DIVIDE: {"OP_DIVIDE", zero},
		OP_MODULO: {"OP_MODULO", zero}, OP_NEGATE: {"OP_NEGATE", zero}, OP_NOT: {"OP_NOT", zero},
		OP_EQUAL: {"OP_EQUAL", zero}, OP_NOT_EQUAL: {"OP_NOT_EQUAL", zero},
		OP_LESS: {"OP_LESS", zero}, OP_LESS_EQUAL: {"OP_LESS_EQUAL", zero},
		OP_GREATER: {"OP_GREATER", zero}, OP_GREATER_EQUAL: {"OP_GREATER_EQUAL", zero},
		OP_AND: {"OP_AND", zero}, OP_OR: {"OP_OR", zero},
		OP_TYPE_TEST: {"OP_TYPE_TEST", one},

		OP_GET_LOCAL: {"OP_GET_LOCAL", one}, OP_SET_LOCAL: {"OP_SET_LOCAL", one},
		OP_GET_GLOBAL: {"OP_GET_GLOBAL", one}, OP_SET_GLOBAL: {"OP_SET_GLOBAL", one},
		OP_DEFINE_GLOBAL: {"OP_DEFINE_GLOBAL", one},
		OP_GET_UPVALUE:   {"OP_GET_UPVALUE", one}, OP_SET_UPVALUE: {"OP_SET_UPVALUE", one},

		OP_JUMP: {"OP_JUMP", one}, OP_JUMP_IF_FALSE: {"OP_JUMP_IF_FALSE", one}, OP_LOOP: {"OP_LOOP", one},

		OP_MAKE_CLOSURE: {"OP_MAKE_CLOSURE", two},
		OP_CALL:         {"OP_CALL", one}, OP_TAIL_CALL: {"OP_TAIL_CALL", one}, OP_RETURN: {"OP_RETURN", zero},

		OP_BUILD_LIST: {"OP_BUILD_LIST", one}, OP_BUILD_MAP: {"OP_BUILD_MAP", one},
		OP_BUILD_TUPLE: {"OP_BUILD_TUPLE", one}, OP_BUILD_RANGE: {"OP_BUILD_RANGE", one},
		OP_BUILD_STRUCT: {"OP_BUILD_STRUCT", two}, OP_BUILD_VARIANT: {"OP_BUILD_VARIANT", three},
		OP_SPREAD_UPDATE: {"OP_SPREAD_UPDATE", one},

		OP_GET_FIELD: {"OP_GET_FIELD", one}, OP_SET_FIELD: {"OP_SET_FIELD", one},
		OP_GET_INDEX: {"OP_GET_INDEX", zero}, OP_SET_INDEX: {"OP_SET_INDEX", zero},

		OP_ITER_INIT: {"OP_ITER_INIT", zero}, OP_ITER_NEXT: {"OP_ITER_NEXT", one},

		OP_CONCAT: {"OP_CONCAT", one},

		OP_MATCH_PATTERN: {"OP_MATCH_PATTERN", two},
		OP_WHEN_BIND:     {"OP_WHEN_BIND", zero},

		OP_THROW: {"OP_THROW", zero}, OP_END: {"OP_END", zero},
	}
	return defs
}

// Get returns the definition for an opcode, or an error if unknown.
func Get(op Opcode) (*OpCodeDefinition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("bytecode: opcode %d undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes an opcode and its BigEndian-encoded operands
// into a byte slice, following the teacher's MakeInstruction scheme
// generalized to multi-operand instructions.
func AssembleInstruction(op Opcode, operands ...int) ([]byte, error) {
	def, err := Get(op)
	if err != nil {
		return nil, err
	}
	length := 1
	for _, w := range def.OperandWidths {
		length += w
	}
	instr := make([]byte, length)
	instr[0] = byte(op)
	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instr[offset:], uint16(operand))
		}
		offset += width
	}
	return instr, nil
}

// ReadOperands decodes the operands of one instruction starting at ins[0],
// returning the decoded operand values and the total byte width consumed
// (including the opcode byte).
func ReadOperands(def *OpCodeDefinition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0
	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(binary.BigEndian.Uint16(ins[offset:]))
		}
		offset += width
	}
	return operands, offset
}

// DisassembleInstruction renders a single instruction (opcode byte plus
// its operand bytes) as human-readable text.
func DisassembleInstruction(ins Instructions) (string, error) {
	op := Opcode(ins[0])
	def, err := Get(op)
	if err != nil {
		return "", err
	}
	operands, _ := ReadOperands(def, ins[1:])
	if len(operands) == 0 {
		return def.Name, nil
	}
	out := def.Name
	for _, o := range operands {
		out += fmt.Sprintf(" %d", o)
	}
	return out, nil
}

func (op Opcode) String() string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}
