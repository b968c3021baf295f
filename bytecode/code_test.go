package bytecode

import "testing"

func TestAssembleInstruction(t *testing.T) {
	tests := []struct {
		op       Opcode
		operands []int
		expected []byte
	}{
		{OP_CONSTANT, []int{65534}, []byte{byte(OP_CONSTANT), 255, 254}},
		{OP_ADD, nil, []byte{byte(OP_ADD)}},
		{OP_BUILD_STRUCT, []int{1, 3}, []byte{byte(OP_BUILD_STRUCT), 0, 1, 0, 3}},
	}
	for _, tt := range tests {
		got, err := AssembleInstruction(tt.op, tt.operands...)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != len(tt.expected) {
			t.Fatalf("instruction length mismatch: got %d, want %d", len(got), len(tt.expected))
		}
		for i := range got {
			if got[i] != tt.expected[i] {
				t.Fatalf("byte %d mismatch: got %d, want %d", i, got[i], tt.expected[i])
			}
		}
	}
}

func TestReadOperands(t *testing.T) {
	instr, err := AssembleInstruction(OP_GET_LOCAL, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def, _ := Get(OP_GET_LOCAL)
	operands, width := ReadOperands(def, Instructions(instr[1:]))
	if width != 2 {
		t.Fatalf("expected width 2, got %d", width)
	}
	if operands[0] != 3 {
		t.Fatalf("expected operand 3, got %d", operands[0])
	}
}

func TestDisassembleInstruction(t *testing.T) {
	instr, _ := AssembleInstruction(OP_CONSTANT, 2)
	out, err := DisassembleInstruction(Instructions(instr))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "OP_CONSTANT 2" {
		t.Fatalf("unexpected disassembly: %q", out)
	}
}

func TestProgramDisassembleIncludesConstantAnnotation(t *testing.T) {
	p := NewProgram()
	p.Constants = append(p.Constants, int64(42))
	instr, _ := AssembleInstruction(OP_CONSTANT, 0)
	endInstr, _ := AssembleInstruction(OP_END)
	p.Main.Instructions = append(Instructions(instr), Instructions(endInstr)...)

	out := p.Disassemble()
	if !contains(out, "; 42") {
		t.Fatalf("expected disassembly to annotate the constant value, got:\n%s", out)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && indexOf(haystack, needle) >= 0
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
