package vm

import (
	"loom/bytecode"
	"loom/runtime/value"
)

// Frame is one call's activation record: its proto, instruction pointer,
// and locals array, plus the closure it was called through (nil only for
// the top-level "main" frame, which never captures anything).
type Frame struct {
	proto   *bytecode.FunctionProto
	ip      int
	locals  []value.Value
	closure *value.Closure
}

// getLocal and setLocal are the single chokepoint for local-slot access,
// transparently unwrapping a boxed slot (*value.Cell) so a closure that
// captured this slot observes the same mutations the owning frame makes
// (spec.md §4.5 "closures capture by reference"). A bare, unboxed slot is
// read/written directly.
func getLocal(locals []value.Value, slot int) value.Value {
	if cell, ok := locals[slot].(*value.Cell); ok {
		return cell.Value
	}
	return locals[slot]
}

func setLocal(locals []value.Value, slot int, v value.Value) {
	if cell, ok := locals[slot].(*value.Cell); ok {
		cell.Value = v
		return
	}
	locals[slot] = v
}

// bindFrameLocals allocates a fresh locals array for proto, pre-boxing
// every slot BoxedLocals marks as closure-captured, then binds "self"
// (for a method, from the calling closure's first capture) and the
// positional arguments. OP_CALL uses this to build a new Frame; OP_TAIL_CALL
// uses it to rebuild the current frame's locals in place without growing
// the Go call stack (the self-tail-call optimization the compiler assumes).
func bindFrameLocals(proto *bytecode.FunctionProto, closure *value.Closure, args []value.Value) []value.Value {
	locals := make([]value.Value, proto.NumLocals)
	if proto.BoxedLocals != nil {
		for i := 0; i < proto.NumLocals; i++ {
			if proto.BoxedLocals.Test(uint(i)) {
				locals[i] = &value.Cell{}
			}
		}
	}
	start := 0
	if proto.IsMethod {
		setLocal(locals, 0, closure.Captured[0].Value)
		start = 1
	}
	for idx, a := range args {
		setLocal(locals, start+idx, a)
	}
	return locals
}
