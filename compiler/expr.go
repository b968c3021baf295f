package compiler

import (
	"loom/ast"
	"loom/bytecode"
	"loom/token"
)

func (c *Compiler) VisitLiteral(e *ast.Literal) any {
	switch e.Value.(type) {
	case nil:
		c.emit(bytecode.OP_NULL)
	case bool:
		if e.Value.(bool) {
			c.emit(bytecode.OP_TRUE)
		} else {
			c.emit(bytecode.OP_FALSE)
		}
	default:
		c.emit(bytecode.OP_CONSTANT, c.constant(e.Value))
	}
	return nil
}

// VisitStringInterp compiles "prefix{expr}suffix" style interpolation:
// Parts always holds one more fragment than Exprs has expressions (a
// fragment, then an expr, alternating, ending in a fragment), so pushing
// them in that order and folding with OP_CONCAT reproduces the source text
// with every slot's value substituted in, left to right.
func (c *Compiler) VisitStringInterp(e *ast.StringInterp) any {
	count := 0
	for i, part := range e.Parts {
		c.emit(bytecode.OP_CONSTANT, c.constant(part))
		count++
		if i < len(e.Exprs) {
			c.compileExpr(e.Exprs[i])
			count++
		}
	}
	c.emit(bytecode.OP_CONCAT, count)
	return nil
}

func (c *Compiler) VisitIdentifier(e *ast.Identifier) any {
	c.resolveIdentifier(e.Name)
	return nil
}

var unaryOps = map[token.Kind]bytecode.Opcode{
	token.MINUS: bytecode.OP_NEGATE,
	token.BANG:  bytecode.OP_NOT,
	token.NOT:   bytecode.OP_NOT,
}

func (c *Compiler) VisitUnary(e *ast.Unary) any {
	c.compileExpr(e.Right)
	c.emit(unaryOps[e.Operator.Kind])
	return nil
}

var binaryOps = map[token.Kind]bytecode.Opcode{
	token.PLUS: bytecode.OP_ADD, token.MINUS: bytecode.OP_SUBTRACT,
	token.STAR: bytecode.OP_MULTIPLY, token.SLASH: bytecode.OP_DIVIDE,
	token.PERCENT: bytecode.OP_MODULO,
	token.EQ_EQ:   bytecode.OP_EQUAL, token.BANG_EQ: bytecode.OP_NOT_EQUAL,
	token.LESS: bytecode.OP_LESS, token.LESS_EQ: bytecode.OP_LESS_EQUAL,
	token.GREATER: bytecode.OP_GREATER, token.GREATER_EQ: bytecode.OP_GREATER_EQUAL,
}

// VisitBinary compiles an ordinary binary operator, except "is"/"isnt"
// (spec.md §6.4), whose right-hand side names a type rather than
// evaluating to a value, mirroring the interpreter's evalTypeTest special
// case.
func (c *Compiler) VisitBinary(e *ast.Binary) any {
	c.compileExpr(e.Left)
	if e.Operator.Kind == token.IS || e.Operator.Kind == token.ISNT {
		typeName := e.Right.(*ast.Identifier).Name.Lexeme
		c.emit(bytecode.OP_TYPE_TEST, c.nameConstant(typeName))
		if e.Operator.Kind == token.ISNT {
			c.emit(bytecode.OP_NOT)
		}
		return nil
	}
	c.compileExpr(e.Right)
	c.emit(binaryOps[e.Operator.Kind])
	return nil
}

// VisitLogical compiles "&&"/"and" and "||"/"or" with short-circuit jumps,
// mirroring the interpreter's VisitLogical rather than using the eager
// OP_AND/OP_OR opcodes.
func (c *Compiler) VisitLogical(e *ast.Logical) any {
	c.compileExpr(e.Left)
	switch e.Operator.Kind {
	case token.AND, token.AMP_AMP:
		skip := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
		c.compileExpr(e.Right)
		c.emit(bytecode.OP_NOT) // double negation: the result is Truthy(right)
		c.emit(bytecode.OP_NOT)
		truthify := c.emit(bytecode.OP_JUMP, 0)
		c.patchJumpTarget(skip)
		c.emit(bytecode.OP_FALSE)
		c.patchJumpTarget(truthify)
	default: // OR, PIPE_PIPE
		skip := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
		c.emit(bytecode.OP_TRUE)
		truthify := c.emit(bytecode.OP_JUMP, 0)
		c.patchJumpTarget(skip)
		c.compileExpr(e.Right)
		c.emit(bytecode.OP_NOT)
		c.emit(bytecode.OP_NOT)
		c.patchJumpTarget(truthify)
	}
	return nil
}

func (c *Compiler) VisitGrouping(e *ast.Grouping) any {
	c.compileExpr(e.Expression)
	return nil
}

func (c *Compiler) VisitAssign(e *ast.Assign) any {
	c.compileAssign(e.Target, e.Value)
	return nil
}

func (c *Compiler) VisitFieldAccess(e *ast.FieldAccess) any {
	c.compileExpr(e.Target)
	c.emit(bytecode.OP_GET_FIELD, c.nameConstant(e.Field.Lexeme))
	return nil
}

func (c *Compiler) VisitIndex(e *ast.Index) any {
	c.compileExpr(e.Target)
	c.compileExpr(e.Idx)
	c.emit(bytecode.OP_GET_INDEX)
	return nil
}

// VisitCall handles three callee shapes: a bare zero/n-ary variant tag used
// as a constructor (spec.md §4.4 "tags double as constructors"), a method
// call (FieldAccess callee — compiled generically, since VisitFieldAccess
// already emits the OP_GET_FIELD that synthesizes a bound method closure
// when the field isn't plain struct data), and an ordinary call.
func (c *Compiler) VisitCall(e *ast.Call) any {
	if id, ok := e.Callee.(*ast.Identifier); ok {
		if c.compileTagConstructor(e, id) {
			return nil
		}
	}
	c.compileExpr(e.Callee)
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	c.emit(bytecode.OP_CALL, len(e.Args))
	return nil
}

func (c *Compiler) compileTagConstructor(call *ast.Call, id *ast.Identifier) bool {
	owner, tagged := c.tagOwner[id.Name.Lexeme]
	if !tagged {
		return false
	}
	if _, ok := resolveLocal(c.fs, id.Name.Lexeme); ok {
		return false
	}
	if _, ok := c.resolveUpvalue(c.fs, id.Name.Lexeme); ok {
		return false
	}
	if c.globals[id.Name.Lexeme] {
		return false
	}
	for _, arg := range call.Args {
		c.compileExpr(arg)
	}
	c.emit(bytecode.OP_BUILD_VARIANT, c.variantIndex[owner], c.nameConstant(id.Name.Lexeme), len(call.Args))
	return true
}

func (c *Compiler) VisitTupleLiteral(e *ast.TupleLiteral) any {
	for _, el := range e.Elements {
		c.compileExpr(el)
	}
	c.emit(bytecode.OP_BUILD_TUPLE, len(e.Elements))
	return nil
}

func (c *Compiler) VisitListLiteral(e *ast.ListLiteral) any {
	for _, el := range e.Elements {
		c.compileExpr(el)
	}
	c.emit(bytecode.OP_BUILD_LIST, len(e.Elements))
	return nil
}

func (c *Compiler) VisitMapLiteral(e *ast.MapLiteral) any {
	for _, entry := range e.Entries {
		c.compileExpr(entry.Key)
		c.compileExpr(entry.Value)
	}
	c.emit(bytecode.OP_BUILD_MAP, len(e.Entries))
	return nil
}

func (c *Compiler) VisitRange(e *ast.RangeExpr) any {
	c.compileExpr(e.Start)
	c.compileExpr(e.End)
	inclusive := 0
	if e.Inclusive {
		inclusive = 1
	}
	c.emit(bytecode.OP_BUILD_RANGE, inclusive)
	return nil
}

func (c *Compiler) VisitStructLiteral(e *ast.StructLiteral) any {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Name.Lexeme
	}
	if e.Base != nil {
		c.compileExpr(e.Base)
		for _, f := range e.Fields {
			c.compileExpr(f.Value)
		}
		c.emit(bytecode.OP_SPREAD_UPDATE, c.fieldList(names))
		return nil
	}
	for _, f := range e.Fields {
		c.compileExpr(f.Value)
	}
	structIdx := c.structIndex[e.TypeName.Lexeme]
	c.emit(bytecode.OP_BUILD_STRUCT, structIdx, c.fieldList(names))
	return nil
}

func (c *Compiler) fieldList(names []string) int {
	c.prog.FieldLists = append(c.prog.FieldLists, names)
	return len(c.prog.FieldLists) - 1
}

func (c *Compiler) VisitVariantLiteral(e *ast.VariantLiteral) any {
	for _, arg := range e.Args {
		c.compileExpr(arg)
	}
	typeName := e.TypeName.Lexeme
	if typeName == "" {
		typeName = c.tagOwner[e.Tag.Lexeme]
	}
	c.emit(bytecode.OP_BUILD_VARIANT, c.variantIndex[typeName], c.nameConstant(e.Tag.Lexeme), len(e.Args))
	return nil
}

// VisitFuncLiteral compiles an anonymous function body into its own
// FunctionProto, then emits the MAKE_CLOSURE that instantiates it over the
// current environment's captured variables at the point the literal is
// evaluated (spec.md §4.5 "closures capture by reference").
func (c *Compiler) VisitFuncLiteral(e *ast.FuncLiteral) any {
	fd := &ast.FuncDecl{Name: token.Token{Lexeme: "<anonymous>"}, Params: e.Params, Body: e.Body, Sp: e.Sp}
	proto := c.compileFunction(fd, false)
	fnIdx := len(c.prog.Functions)
	c.prog.Functions = append(c.prog.Functions, proto)
	descIdx := len(c.prog.ClosureDescs)
	c.prog.ClosureDescs = append(c.prog.ClosureDescs, proto.Captures)
	c.emit(bytecode.OP_MAKE_CLOSURE, fnIdx, descIdx)
	return nil
}

func (c *Compiler) VisitIfExpr(e *ast.IfExpr) any {
	c.compileExpr(e.Condition)
	thenJump := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
	c.compileExpr(e.Then)
	elseJump := c.emit(bytecode.OP_JUMP, 0)
	c.patchJumpTarget(thenJump)
	c.compileExpr(e.Else)
	c.patchJumpTarget(elseJump)
	return nil
}

func (c *Compiler) VisitMatchExpr(e *ast.MatchExpr) any {
	c.compileExpr(e.Scrutinee)
	scrutineeSlot := c.declareLocal("<match-scrutinee>")
	c.emit(bytecode.OP_SET_LOCAL, scrutineeSlot)
	c.markInitialized()

	var endJumps []int
	for _, arm := range e.Arms {
		c.beginScope()
		c.emit(bytecode.OP_GET_LOCAL, scrutineeSlot)
		names := ast.PatternBindingNames(arm.Pattern)
		firstSlot := c.reserveBindingSlots(names)
		c.emit(bytecode.OP_MATCH_PATTERN, c.constant(arm.Pattern), firstSlot)
		noMatch := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)

		if arm.Guard != nil {
			c.compileExpr(arm.Guard)
			guardFail := c.emit(bytecode.OP_JUMP_IF_FALSE, 0)
			c.compileExpr(arm.Body.(ast.Expression))
			endJumps = append(endJumps, c.emit(bytecode.OP_JUMP, 0))
			c.patchJumpTarget(guardFail)
		} else {
			c.compileExpr(arm.Body.(ast.Expression))
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
