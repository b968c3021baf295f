package compiler

import (
	"loom/ast"
	"loom/bytecode"
)

// compileStmt dispatches s through the ast.StmtVisitor interface,
// implemented below, mirroring the tree-walk interpreter's exec/eval split
// one opcode stream at a time instead of one Go call frame at a time.
func (c *Compiler) compileStmt(s ast.Stmt) { s.Accept(c) }

func (c *Compiler) compileExpr(e ast.Expression) { e.Accept(c) }

func (c *Compiler) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	c.compileExpr(s.Expression)
	c.emit(bytecode.OP_POP)
	return nil
}

func (c *Compiler) VisitLetStmt(s *ast.LetStmt) any {
	if s.Target.Name.Lexeme != "" {
		c.compileExpr(s.Value)
		slot := c.declareLocal(s.Target.Name.Lexeme)
		c.emit(bytecode.OP_SET_LOCAL, slot)
		c.markInitialized()
		return nil
	}
	// Tuple destructure: evaluate once, then peel elements off the tuple
	// left to right, re-duplicating it for every name but the last so the
	// tuple itself never needs a slot of its own.
	c.compileExpr(s.Value)
	names := s.Target.Names
	for idx, name := range names {
		last := idx == len(names)-1
		if !last {
			c.emit(bytecode.OP_DUP)
		}
		c.emit(bytecode.OP_CONSTANT, c.constant(int64(idx)))
		c.emit(bytecode.OP_GET_INDEX)
		slot := c.declareLocal(name.Lexeme)
		c.emit(bytecode.OP_SET_LOCAL, slot)
		c.markInitialized()
	}
	return nil
}

func (c *Compiler) VisitReassignStmt(s *ast.ReassignStmt) any {
	c.compileAssign(s.Target, s.Value)
	c.emit(bytecode.OP_POP)
	return nil
}

// compileAssign emits value, then the target's write, leaving the assigned
// value on the stack (spec.md §4.3 assignment-as-expression): this mirrors
// the interpreter's VisitAssign, which evaluates Value before re-evaluating
// the target's receiver expressions, so side effects run in the same order.
func (c *Compiler) compileAssign(target ast.Expression, value ast.Expression) {
	c.compileExpr(value)
	switch t := target.(type) {
	case *ast.Identifier:
		c.emit(bytecode.OP_DUP)
		c.assignIdentifier(t)
	case *ast.FieldAccess:
		c.compileExpr(t.Target)
		c.emit(bytecode.OP_SET_FIELD, c.nameConstant(t.Field.Lexeme))
	case *ast.Index:
		c.compileExpr(t.Target)
		c.compileExpr(t.Idx)
		c.emit(bytecode.OP_SET_INDEX)
	}
}

func (c *Compiler) assignIdentifier(id *ast.Identifier) {
	if slot, ok := resolveLocal(c.fs, id.Name.Lexeme); ok {
		c.emit(bytecode.OP_SET_LOCAL, slot)
		return
	}
	if idx, ok := c.resolveUpvalue(c.fs, id.Name.Lexeme); ok {
		c.emit(bytecode.OP_SET_UPVALUE, idx)
		return
	}
	c.emit(bytecode.OP_SET_GLOBAL, c.nameConstant(id.Name.Lexeme))
}

func (c *Compiler) VisitBlockStmt(s *ast.BlockStmt) any {
	c.beginScope()
	for _, stmt := range s.Statements {
		c.compileStmt(stmt)
	}
	c.endScope()
	return nil
}

func (c *Compiler) VisitIfStmt(s *ast.IfStmt) any {
	c.compileExpr(s.Condition)
	thenJump := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
	c.compileStmt(s.Then)
	elseJump := c.emit(bytecode.OP_JUMP, 0)
	c.patchJumpTarget(thenJump)
	if s.Else != nil {
		c.compileStmt(s.Else)
	}
	c.patchJumpTarget(elseJump)
	return nil
}

func (c *Compiler) VisitWhileStmt(s *ast.WhileStmt) any {
	loopStart := len(c.fs.proto.Instructions)
	c.compileExpr(s.Condition)
	exitJump := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)

	c.fs.loops = append(c.fs.loops, &loopCtx{continueTarget: loopStart})
	c.compileStmt(s.Body)
	loop := c.fs.loops[len(c.fs.loops)-1]
	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]

	c.emit(bytecode.OP_LOOP, loopStart)
	c.patchJumpTarget(exitJump)
	for _, pos := range loop.breakJumps {
		c.patchJumpTarget(pos)
	}
	return nil
}

// VisitForStmt compiles "for x in iterable { body }" to an ITER_INIT/
// ITER_NEXT pair (spec.md §4.4): OP_ITER_INIT leaves a cursor value on the
// stack for the duration of the loop, which OP_ITER_NEXT consumes on each
// pass, either producing the next element or jumping past the loop once
// the source is exhausted.
func (c *Compiler) VisitForStmt(s *ast.ForStmt) any {
	c.compileExpr(s.Iterable)
	c.emit(bytecode.OP_ITER_INIT)

	c.beginScope()
	loopStart := len(c.fs.proto.Instructions)
	exhausted := c.emit(bytecode.OP_ITER_NEXT, 0)

	slot := c.declareLocal(s.Var.Lexeme)
	c.emit(bytecode.OP_SET_LOCAL, slot)
	c.markInitialized()

	c.fs.loops = append(c.fs.loops, &loopCtx{continueTarget: loopStart})
	c.compileStmt(s.Body)
	loop := c.fs.loops[len(c.fs.loops)-1]
	c.fs.loops = c.fs.loops[:len(c.fs.loops)-1]

	c.emit(bytecode.OP_LOOP, loopStart)
	// Both the natural exhausted-exit and an explicit break land here, so
	// either way the cursor is popped before the loop's scope closes.
	c.patchJumpTarget(exhausted)
	for _, pos := range loop.breakJumps {
		c.patchJumpTarget(pos)
	}
	c.emit(bytecode.OP_POP) // drop the cursor
	c.endScope()
	return nil
}

func (c *Compiler) VisitMatchStmt(s *ast.MatchStmt) any {
	c.compileExpr(s.Scrutinee)
	scrutineeSlot := c.declareLocal("<match-scrutinee>")
	c.emit(bytecode.OP_SET_LOCAL, scrutineeSlot)
	c.markInitialized()

	var endJumps []int
	for _, arm := range s.Arms {
		c.beginScope()
		c.emit(bytecode.OP_GET_LOCAL, scrutineeSlot)
		names := ast.PatternBindingNames(arm.Pattern)
		firstSlot := c.reserveBindingSlots(names)
		c.emit(bytecode.OP_MATCH_PATTERN, c.constant(arm.Pattern), firstSlot)
		noMatch := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)

		if arm.Guard != nil {
			c.compileExpr(arm.Guard)
			guardFail := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
			c.compileStmt(arm.Body.(ast.Stmt))
			endJumps = append(endJumps, c.emit(bytecode.OP_JUMP, 0))
			c.patchJumpTarget(guardFail)
		} else {
			c.compileStmt(arm.Body.(ast.Stmt))
			endJumps = append(endJumps, c.emit(bytecode.OP_JUMP, 0))
		}
		c.patchJumpTarget(noMatch)
		c.endScope()
	}
	for _, pos := range endJumps {
		c.patchJumpTarget(pos)
	}
	return nil
}

// reserveBindingSlots declares one local per pattern binding name, in
// order, and returns the slot of the first (the rest are contiguous): this
// is the layout OP_MATCH_PATTERN's VM handler assumes when it writes
// successful bindings.
func (c *Compiler) reserveBindingSlots(names []string) int {
	first := -1
	for _, n := range names {
		slot := c.declareLocal(n)
		c.markInitialized()
		if first == -1 {
			first = slot
		}
	}
	if first == -1 {
		return c.fs.nextSlot
	}
	return first
}

func (c *Compiler) VisitWhenStmt(s *ast.WhenStmt) any {
	c.beginScope()
	var failJumps []int
	for _, b := range s.Bindings {
		c.compileExpr(b.Expr)
		c.emit(bytecode.OP_WHEN_BIND)
		failJumps = append(failJumps, c.emit(bytecode.OP_JUMP_IF_FALSE, 0))
		slot := c.declareLocal(b.Name.Lexeme)
		c.emit(bytecode.OP_SET_LOCAL, slot)
		c.markInitialized()
	}
	c.compileStmt(s.Then)
	end := c.emit(bytecode.OP_JUMP, 0)
	for _, pos := range failJumps {
		c.patchJumpTarget(pos)
	}
	if s.Else != nil {
		c.compileStmt(s.Else)
	}
	c.patchJumpTarget(end)
	c.endScope()
	return nil
}

func (c *Compiler) VisitReturnStmt(s *ast.ReturnStmt) any {
	if s.Value != nil {
		if c.compileTailCallIfEligible(s.Value) {
			return nil
		}
		c.compileExpr(s.Value)
	} else {
		c.emit(bytecode.OP_NULL)
	}
	c.emit(bytecode.OP_RETURN)
	return nil
}

// compileTailCallIfEligible implements the self-tail-call-only TCO
// decision: a `return f(args)` where f is literally this function's own
// name compiles to OP_TAIL_CALL, which reuses the current frame instead of
// pushing a new one. Any other tail position (a different callee, a
// non-call expression) falls through to ordinary evaluation + OP_RETURN.
func (c *Compiler) compileTailCallIfEligible(expr ast.Expression) bool {
	call, ok := expr.(*ast.Call)
	if !ok {
		return false
	}
	id, ok := call.Callee.(*ast.Identifier)
	if !ok || c.fs.proto.IsMethod || c.fs.proto.Name == "" || id.Name.Lexeme != c.fs.proto.Name {
		return false
	}
	if _, isLocal := resolveLocal(c.fs, id.Name.Lexeme); isLocal {
		return false // shadowed by a local binding; not actually self-recursion
	}
	for _, arg := range call.Args {
		c.compileExpr(arg)
	}
	c.emit(bytecode.OP_TAIL_CALL, len(call.Args))
	c.fs.proto.IsTailSelf = true
	return true
}

func (c *Compiler) VisitBreakStmt(s *ast.BreakStmt) any {
	loop := c.fs.loops[len(c.fs.loops)-1]
	loop.breakJumps = append(loop.breakJumps, c.emit(bytecode.OP_JUMP, 0))
	return nil
}

func (c *Compiler) VisitContinueStmt(s *ast.ContinueStmt) any {
	loop := c.fs.loops[len(c.fs.loops)-1]
	c.emit(bytecode.OP_LOOP, loop.continueTarget)
	return nil
}

// VisitFuncDecl only ever fires for a FuncDecl nested inside a block body:
// top-level declarations are compiled up front by registerCallables and
// skipped when Compile walks mod.Items. A nested "func f(...) {...}"
// behaves like a named closure literal bound in the enclosing scope,
// mirroring the interpreter's VisitFuncDecl (which defines it in whatever
// environment is current when the statement executes).
func (c *Compiler) VisitFuncDecl(s *ast.FuncDecl) any {
	// Reserve and initialize the binding before compiling the body, not
	// after, so a self-recursive call inside the body resolves to this
	// local through resolveUpvalue instead of falling through to a global
	// lookup. Matches the interpreter defining the name in the current
	// environment before the closure's first call ever runs.
	slot := c.declareLocal(s.Name.Lexeme)
	c.markInitialized()
	proto := c.compileFunction(s, false)
	fnIdx := len(c.prog.Functions)
	c.prog.Functions = append(c.prog.Functions, proto)
	descIdx := len(c.prog.ClosureDescs)
	c.prog.ClosureDescs = append(c.prog.ClosureDescs, proto.Captures)
	c.emit(bytecode.OP_MAKE_CLOSURE, fnIdx, descIdx)
	c.emit(bytecode.OP_SET_LOCAL, slot)
	return nil
}
func (c *Compiler) VisitTypeDecl(s *ast.TypeDecl) any { return nil } // handled by registerSchemas/registerCallables
func (c *Compiler) VisitExtendDecl(s *ast.ExtendDecl) any { return nil }
func (c *Compiler) VisitImportStmt(s *ast.ImportStmt) any { return nil } // resolved by the module loader, not the compiler
