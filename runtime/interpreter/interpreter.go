// Package interpreter implements the tree-walk execution strategy over
// the AST (spec.md §8). It must remain observably equivalent to the
// bytecode VM (runtime/vm): same bindings, same output, same errors,
// module for module — only the bytecode VM is allowed to apply
// self-tail-call optimization, since equivalence is judged on output and
// bindings rather than Go call-stack depth.
package interpreter

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"loom/ast"
	"loom/diag"
	"loom/runtime/builtins"
	"loom/runtime/value"
	"loom/source"
	"loom/token"
)

// maxCallDepth bounds nested invokeClosure frames (spec.md's documented
// call-stack limit). runtime/vm.maxCallDepth mirrors this value so a
// program that isn't tail-recursive hits the same limit under either
// execution strategy.
const maxCallDepth = 8192

// Interpreter is a tree-walk evaluator over a Module AST.
type Interpreter struct {
	global *Environment
	env    *Environment
	module *ast.Module

	structs  map[string]*structInfo
	variants map[string]*variantInfo
	tagOwner map[string]string // bare tag -> owning variant type name

	// callDepth counts nested invokeClosure frames so runaway (non-tail)
	// recursion panics with a recursion-limit error instead of exhausting
	// the Go goroutine stack. The tree-walk interpreter never applies
	// tail-call optimization (spec.md reserves that to the bytecode VM),
	// so a tail-recursive Loom function that the VM runs in constant
	// stack space can still legitimately hit this limit here.
	callDepth int

	Stdout func(string)
	log    *logrus.Entry

	// Importer resolves a module import path to its already-loaded
	// export namespace. runtime.Runtime sets this to its
	// runtime/module.Loader before Run executes a module that might
	// contain "use" statements (spec.md §4.7); left nil, an import
	// statement is a runtime error rather than a silent no-op.
	Importer func(path string) (*value.Module, error)
}

// funcImpl is the concrete payload behind value.InterpFunc.Impl.
type funcImpl struct {
	params     []ast.Param
	body       *ast.BlockStmt
	closureEnv *Environment
	self       string // non-empty for methods; binds the receiver under this name
}

// New returns an Interpreter with a fresh global scope and the standard
// built-in globals registered (print, len, range, panic, type_of).
func New(log *logrus.Entry) *Interpreter {
	i := &Interpreter{
		global:   NewEnvironment(),
		structs:  make(map[string]*structInfo),
		variants: make(map[string]*variantInfo),
		tagOwner: make(map[string]string),
		Stdout:   func(s string) { fmt.Println(s) },
		log:      log,
	}
	i.env = i.global
	i.registerGlobals()
	return i
}

func (i *Interpreter) registerGlobals() {
	for name, closure := range builtins.Globals(func(s string) { i.Stdout(s) }, func(msg string) error {
		return newRuntimeError(source.Span{}, diag.CodeExplicitPanic, "%s", msg)
	}) {
		i.global.Define(name, closure, false)
	}
}

// Run executes every top-level item of mod in sequence. Declarations
// (types, functions, imports) are hoisted into scope in a first pass so
// forward references between top-level functions/types resolve, matching
// the teacher's "declare before execute" ordering concern
// (informatter-nilan's ASTCompiler tracks `initialized` similarly).
func (i *Interpreter) Run(mod *ast.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if re, ok := r.(RuntimeError); ok {
				err = re
				return
			}
			if rs, ok := r.(returnSignal); ok {
				_ = rs
				return
			}
			panic(r)
		}
	}()

	i.module = mod
	i.hoistDeclarations(mod.Items)
	for _, stmt := range mod.Items {
		switch stmt.(type) {
		case *ast.TypeDecl, *ast.ExtendDecl, *ast.FuncDecl, *ast.ImportStmt:
			continue // already handled by hoistDeclarations
		}
		i.exec(stmt)
	}
	return nil
}

func (i *Interpreter) hoistDeclarations(items []ast.Stmt) {
	for _, item := range items {
		if td, ok := item.(*ast.TypeDecl); ok {
			i.declareType(td)
		}
	}
	for _, item := range items {
		switch s := item.(type) {
		case *ast.ExtendDecl:
			i.declareExtend(s)
		case *ast.FuncDecl:
			i.declareFunc(s)
		case *ast.ImportStmt:
			i.VisitImportStmt(s)
		}
	}
}

func (i *Interpreter) declareType(td *ast.TypeDecl) {
	switch td.Kind {
	case ast.TypeStruct:
		fields := make([]string, len(td.Fields))
		for idx, f := range td.Fields {
			fields[idx] = f.Name.Lexeme
		}
		info := &structInfo{schema: &value.StructSchema{Name: td.Name.Lexeme, Fields: fields}, methods: make(map[string]*value.Closure)}
		i.structs[td.Name.Lexeme] = info
		for _, m := range td.Methods {
			info.methods[m.Name.Lexeme] = i.makeClosure(m, i.global, "self")
		}
	case ast.TypeVariant:
		cases := make(map[string]int)
		var names []string
		for _, c := range td.Cases {
			cases[c.Tag.Lexeme] = len(c.Fields)
			names = append(names, c.Tag.Lexeme)
			i.tagOwner[c.Tag.Lexeme] = td.Name.Lexeme
		}
		ok, errTag := inferOkErrTags(names)
		info := &variantInfo{
			schema:  &value.VariantSchema{Name: td.Name.Lexeme, Cases: cases},
			methods: make(map[string]*value.Closure),
			okTag:   ok, errTag: errTag,
		}
		i.variants[td.Name.Lexeme] = info
	}
}

func (i *Interpreter) declareExtend(ed *ast.ExtendDecl) {
	typeName := ed.TypeName.Lexeme
	if info, ok := i.structs[typeName]; ok {
		for _, m := range ed.Methods {
			info.methods[m.Name.Lexeme] = i.makeClosure(m, i.global, "self")
		}
		return
	}
	if info, ok := i.variants[typeName]; ok {
		for _, m := range ed.Methods {
			info.methods[m.Name.Lexeme] = i.makeClosure(m, i.global, "self")
		}
	}
}

func (i *Interpreter) declareFunc(fd *ast.FuncDecl) {
	i.global.Define(fd.Name.Lexeme, i.makeClosure(fd, i.global, ""), false)
}

// makeClosure builds a Closure from a declared function. For a method
// (self non-empty), the declared receiver parameter ("func sum(self) {...}")
// is bound separately on each call rather than counted among the ordinary
// arguments, so it is stripped from the parameter list used for arity and
// positional binding.
func (i *Interpreter) makeClosure(fd *ast.FuncDecl, env *Environment, self string) *value.Closure {
	params := fd.Params
	if self != "" && len(params) > 0 && params[0].Name.Lexeme == self {
		params = params[1:]
	}
	impl := &funcImpl{params: params, body: fd.Body, closureEnv: env, self: self}
	return &value.Closure{Name: fd.Name.Lexeme, Arity: len(params), Interp: &value.InterpFunc{Impl: impl}}
}

// --- statement execution -------------------------------------------------

func (i *Interpreter) exec(stmt ast.Stmt) {
	stmt.Accept(i)
}

func (i *Interpreter) VisitExpressionStmt(s *ast.ExpressionStmt) any {
	i.eval(s.Expression)
	return nil
}

func (i *Interpreter) VisitLetStmt(s *ast.LetStmt) any {
	v := i.eval(s.Value)
	if s.Target.Name.Lexeme != "" {
		i.env.Define(s.Target.Name.Lexeme, v, s.Mutable)
		return nil
	}
	tup, ok := v.(*value.Tuple)
	if !ok || len(tup.Elements) != len(s.Target.Names) {
		panic(newRuntimeError(s.Sp, diag.CodeNonExhaustiveValue, "cannot destructure a non-matching tuple"))
	}
	for idx, name := range s.Target.Names {
		i.env.Define(name.Lexeme, tup.Elements[idx], s.Mutable)
	}
	return nil
}

func (i *Interpreter) VisitReassignStmt(s *ast.ReassignStmt) any {
	v := i.eval(s.Value)
	i.assignTo(s.Target, v)
	return nil
}

func (i *Interpreter) assignTo(target ast.Expression, v value.Value) {
	switch t := target.(type) {
	case *ast.Identifier:
		if err := i.env.Assign(t.Name, v); err != nil {
			panic(err)
		}
	case *ast.FieldAccess:
		recv := i.eval(t.Target)
		st, ok := recv.(*value.Struct)
		if !ok {
			panic(newRuntimeError(t.Sp, diag.CodeUnsupportedMethod, "cannot assign a field on a %s", value.TypeName(recv)))
		}
		st.Values[t.Field.Lexeme] = v
	case *ast.Index:
		recv := i.eval(t.Target)
		idx := i.eval(t.Idx)
		i.setIndex(t.Sp, recv, idx, v)
	default:
		panic(newRuntimeError(target.Span(), diag.CodeExpectedToken, "invalid assignment target"))
	}
}

func (i *Interpreter) setIndex(span source.Span, recv, idx, v value.Value) {
	switch r := recv.(type) {
	case *value.List:
		n, ok := idx.(int64)
		if !ok || n < 0 || int(n) >= len(r.Elements) {
			panic(newRuntimeError(span, diag.CodeIndexOutOfRange, "list index out of range"))
		}
		r.Elements[n] = v
	case *value.Mapping:
		k, ok := idx.(string)
		if !ok {
			panic(newRuntimeError(span, diag.CodeKeyNotFound, "mapping key must be a string"))
		}
		r.Set(k, v)
	default:
		panic(RuntimeError{Code: diag.CodeUnsupportedMethod, Message: fmt.Sprintf("cannot index-assign a %s", value.TypeName(recv))})
	}
}

func (i *Interpreter) VisitBlockStmt(s *ast.BlockStmt) any {
	previous := i.env
	i.env = NewNestedEnvironment(previous)
	defer func() { i.env = previous }()
	for _, stmt := range s.Statements {
		i.exec(stmt)
	}
	return nil
}

func (i *Interpreter) VisitIfStmt(s *ast.IfStmt) any {
	if value.Truthy(i.eval(s.Condition)) {
		i.exec(s.Then)
	} else if s.Else != nil {
		i.exec(s.Else)
	}
	return nil
}

func (i *Interpreter) VisitWhileStmt(s *ast.WhileStmt) any {
	for value.Truthy(i.eval(s.Condition)) {
		if i.runLoopBody(s.Body) {
			break
		}
	}
	return nil
}

// runLoopBody executes one loop iteration's body, absorbing a continue
// signal and reporting whether a break signal was seen.
func (i *Interpreter) runLoopBody(body ast.Stmt) (broke bool) {
	defer func() {
		if r := recover(); r != nil {
			switch r.(type) {
			case breakSignal:
				broke = true
			case continueSignal:
				// absorbed; loop continues
			default:
				panic(r)
			}
		}
	}()
	i.exec(body)
	return false
}

func (i *Interpreter) VisitForStmt(s *ast.ForStmt) any {
	iterable := i.eval(s.Iterable)
	previous := i.env
	loopEnv := NewNestedEnvironment(previous)
	i.env = loopEnv
	defer func() { i.env = previous }()

	step := func(v value.Value) bool {
		loopEnv.Define(s.Var.Lexeme, v, false)
		return i.runLoopBody(s.Body)
	}

	switch it := iterable.(type) {
	case *value.Range:
		end := it.End
		if it.Inclusive {
			end++
		}
		for n := it.Start; n < end; n++ {
			if step(n) {
				return nil
			}
		}
	case *value.List:
		for _, e := range it.Elements {
			if step(e) {
				return nil
			}
		}
	case *value.Mapping:
		for _, k := range it.Keys() {
			if step(k) {
				return nil
			}
		}
	default:
		panic(newRuntimeError(s.Sp, diag.CodeUnsupportedMethod, "%s is not iterable", value.TypeName(iterable)))
	}
	return nil
}

func (i *Interpreter) VisitMatchStmt(s *ast.MatchStmt) any {
	scrutinee := i.eval(s.Scrutinee)
	for _, arm := range s.Arms {
		bindings, ok := i.matchPattern(arm.Pattern, scrutinee)
		if !ok {
			continue
		}
		previous := i.env
		i.env = NewNestedEnvironment(previous)
		for name, v := range bindings {
			i.env.Define(name, v, false)
		}
		if arm.Guard != nil && !value.Truthy(i.eval(arm.Guard)) {
			i.env = previous
			continue
		}
		i.exec(arm.Body.(ast.Stmt))
		i.env = previous
		return nil
	}
	panic(newRuntimeError(s.Sp, diag.CodeNonExhaustiveValue, "no match arm matched value %s", value.Inspect(scrutinee)))
}

func (i *Interpreter) VisitWhenStmt(s *ast.WhenStmt) any {
	previous := i.env
	i.env = NewNestedEnvironment(previous)
	defer func() { i.env = previous }()

	for _, b := range s.Bindings {
		v := i.eval(b.Expr)
		variant, ok := v.(*value.Variant)
		if !ok {
			panic(newRuntimeError(b.Expr.Span(), diag.CodeNonExhaustiveValue, "'when' binding must evaluate to a variant value"))
		}
		info := i.variantInfoFor(variant.Schema.Name)
		if variant.Tag != info.okTag {
			if s.Else != nil {
				i.exec(s.Else)
			}
			return nil
		}
		bound := b.Name.Lexeme
		if len(variant.Payload) > 0 {
			i.env.Define(bound, variant.Payload[0], false)
		} else {
			i.env.Define(bound, nil, false)
		}
	}
	i.exec(s.Then)
	return nil
}

func (i *Interpreter) variantInfoFor(name string) *variantInfo {
	if info, ok := i.variants[name]; ok {
		return info
	}
	return &variantInfo{okTag: "some"}
}

func (i *Interpreter) VisitReturnStmt(s *ast.ReturnStmt) any {
	var v value.Value
	if s.Value != nil {
		v = i.eval(s.Value)
	}
	panic(returnSignal{value: v})
}

func (i *Interpreter) VisitBreakStmt(s *ast.BreakStmt) any    { panic(breakSignal{}) }
func (i *Interpreter) VisitContinueStmt(s *ast.ContinueStmt) any { panic(continueSignal{}) }

func (i *Interpreter) VisitFuncDecl(s *ast.FuncDecl) any {
	i.env.Define(s.Name.Lexeme, i.makeClosure(s, i.env, ""), false)
	return nil
}

func (i *Interpreter) VisitTypeDecl(s *ast.TypeDecl) any {
	i.declareType(s)
	return nil
}

func (i *Interpreter) VisitExtendDecl(s *ast.ExtendDecl) any {
	i.declareExtend(s)
	return nil
}

func (i *Interpreter) VisitImportStmt(s *ast.ImportStmt) any {
	if i.Importer == nil {
		panic(newRuntimeError(s.Sp, diag.CodeFileNotFound, "module imports are not available in this context"))
	}
	mod, err := i.Importer(s.Path.Lexeme)
	if err != nil {
		panic(newRuntimeError(s.Sp, diag.CodeFileNotFound, "%s", err.Error()))
	}
	name := s.Alias
	if name == "" {
		name = moduleBindingName(s.Path.Lexeme)
	}
	i.env.Define(name, mod, false)
	return nil
}

// Exports collects the public top-level bindings of an already-Run
// module into a name-to-value mapping (spec.md §4.7 "collect public
// bindings into the exports mapping"; §4.3 "names beginning with an
// underscore are always private regardless of marker"). Built-in names
// never appear here since they live outside mod.Items entirely.
func (i *Interpreter) Exports() map[string]value.Value {
	exports := make(map[string]value.Value)
	collect := func(name string) {
		if name == "" || strings.HasPrefix(name, "_") {
			return
		}
		if v, ok := i.global.Lookup(name); ok {
			exports[name] = v
		}
	}
	for _, item := range i.module.Items {
		switch s := item.(type) {
		case *ast.LetStmt:
			if !s.Public {
				continue
			}
			if s.Target.Name.Lexeme != "" {
				collect(s.Target.Name.Lexeme)
			} else {
				for _, n := range s.Target.Names {
					collect(n.Lexeme)
				}
			}
		case *ast.FuncDecl:
			if s.Public {
				collect(s.Name.Lexeme)
			}
		}
	}
	return exports
}

// moduleBindingName derives the default local name for an unaliased
// "use path" import: the last path segment, minus a trailing ".loom"
// extension (spec.md §4.7 "use path as alias" — alias is optional).
func moduleBindingName(path string) string {
	name := path
	if idx := strings.LastIndexByte(name, '/'); idx != -1 {
		name = name[idx+1:]
	}
	name = strings.TrimSuffix(name, ".loom")
	return name
}

// --- expression evaluation ------------------------------------------------

func (i *Interpreter) eval(e ast.Expression) value.Value {
	return e.Accept(i)
}

func (i *Interpreter) VisitLiteral(e *ast.Literal) any { return e.Value }

func (i *Interpreter) VisitStringInterp(e *ast.StringInterp) any {
	out := e.Parts[0]
	for idx, expr := range e.Exprs {
		out += value.Inspect(i.eval(expr))
		out += e.Parts[idx+1]
	}
	return out
}

func (i *Interpreter) VisitIdentifier(e *ast.Identifier) any {
	if v, err := i.env.Get(e.Name); err == nil {
		return v
	}
	if owner, ok := i.tagOwner[e.Name.Lexeme]; ok {
		info := i.variants[owner]
		if info.schema.Cases[e.Name.Lexeme] == 0 {
			return &value.Variant{Schema: info.schema, Tag: e.Name.Lexeme}
		}
	}
	panic(newRuntimeError(e.Sp, diag.CodeUndefinedName, "undefined name '%s'", e.Name.Lexeme))
}

func (i *Interpreter) VisitUnary(e *ast.Unary) any {
	right := i.eval(e.Right)
	switch e.Operator.Kind {
	case token.MINUS:
		switch r := right.(type) {
		case int64:
			return -r
		case float64:
			return -r
		}
		panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "unary '-' requires a numeric operand, got %s", value.TypeName(right)))
	case token.BANG, token.NOT:
		return !value.Truthy(right)
	}
	panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "unsupported unary operator '%s'", e.Operator.Lexeme))
}

func (i *Interpreter) VisitBinary(e *ast.Binary) any {
	left := i.eval(e.Left)
	if e.Operator.Kind == token.IS || e.Operator.Kind == token.ISNT {
		return i.evalTypeTest(e, left)
	}
	right := i.eval(e.Right)
	return evalBinary(e.Sp, e.Operator, left, right)
}

// evalTypeTest implements "x is Type" / "x isnt Type" (spec.md §6.4): the
// right-hand side names a type rather than evaluating to a value, so it is
// read directly off the identifier instead of going through eval.
func (i *Interpreter) evalTypeTest(e *ast.Binary, left value.Value) value.Value {
	id, ok := e.Right.(*ast.Identifier)
	if !ok {
		panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "right-hand side of '%s' must name a type", e.Operator.Lexeme))
	}
	matches := value.TypeName(left) == id.Name.Lexeme
	if e.Operator.Kind == token.ISNT {
		return !matches
	}
	return matches
}

func (i *Interpreter) VisitLogical(e *ast.Logical) any {
	left := i.eval(e.Left)
	switch e.Operator.Kind {
	case token.AND, token.AMP_AMP:
		if !value.Truthy(left) {
			return false
		}
		return value.Truthy(i.eval(e.Right))
	default: // OR, PIPE_PIPE
		if value.Truthy(left) {
			return true
		}
		return value.Truthy(i.eval(e.Right))
	}
}

func (i *Interpreter) VisitGrouping(e *ast.Grouping) any { return i.eval(e.Expression) }

func (i *Interpreter) VisitAssign(e *ast.Assign) any {
	v := i.eval(e.Value)
	i.assignTo(e.Target, v)
	return v
}

func (i *Interpreter) VisitFieldAccess(e *ast.FieldAccess) any {
	recv := i.eval(e.Target)
	switch r := recv.(type) {
	case *value.Struct:
		if v, ok := r.Get(e.Field.Lexeme); ok {
			return v
		}
	case *value.Module:
		if v, ok := r.Exports[e.Field.Lexeme]; ok {
			return v
		}
	}
	panic(newRuntimeError(e.Sp, diag.CodeUnknownMember, "%s has no field '%s'", value.TypeName(recv), e.Field.Lexeme))
}

func (i *Interpreter) VisitIndex(e *ast.Index) any {
	recv := i.eval(e.Target)
	idx := i.eval(e.Idx)
	switch r := recv.(type) {
	case *value.List:
		n, ok := idx.(int64)
		if !ok || n < 0 || int(n) >= len(r.Elements) {
			panic(newRuntimeError(e.Sp, diag.CodeIndexOutOfRange, "list index out of range"))
		}
		return r.Elements[n]
	case *value.Mapping:
		k, ok := idx.(string)
		if !ok {
			panic(newRuntimeError(e.Sp, diag.CodeKeyNotFound, "mapping key must be a string"))
		}
		v, found := r.Get(k)
		if !found {
			panic(newRuntimeError(e.Sp, diag.CodeKeyNotFound, "key %q not found", k))
		}
		return v
	case *value.Tuple:
		n, ok := idx.(int64)
		if !ok || n < 0 || int(n) >= len(r.Elements) {
			panic(newRuntimeError(e.Sp, diag.CodeIndexOutOfRange, "tuple index out of range"))
		}
		return r.Elements[n]
	}
	panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "%s is not indexable", value.TypeName(recv)))
}

func (i *Interpreter) VisitCall(e *ast.Call) any {
	if fa, ok := e.Callee.(*ast.FieldAccess); ok {
		return i.callMethod(e, fa)
	}
	if id, ok := e.Callee.(*ast.Identifier); ok {
		if owner, tagged := i.tagOwner[id.Name.Lexeme]; tagged {
			if _, boundAsVar := i.lookupNoPanic(id.Name); !boundAsVar {
				return i.buildVariant(e, owner, id.Name.Lexeme)
			}
		}
	}
	callee := i.eval(e.Callee)
	args := i.evalArgs(e.Args)
	return i.callValue(e.Sp, callee, args)
}

func (i *Interpreter) lookupNoPanic(name token.Token) (value.Value, bool) {
	v, err := i.env.Get(name)
	return v, err == nil
}

func (i *Interpreter) buildVariant(e *ast.Call, ownerName, tag string) value.Value {
	info := i.variants[ownerName]
	args := i.evalArgs(e.Args)
	if len(args) != info.schema.Cases[tag] {
		panic(newRuntimeError(e.Sp, diag.CodeArgCountMismatch, "variant case '%s' expects %d argument(s), got %d", tag, info.schema.Cases[tag], len(args)))
	}
	return &value.Variant{Schema: info.schema, Tag: tag, Payload: args}
}

func (i *Interpreter) evalArgs(exprs []ast.Expression) []value.Value {
	args := make([]value.Value, len(exprs))
	for idx, a := range exprs {
		args[idx] = i.eval(a)
	}
	return args
}

func (i *Interpreter) callMethod(call *ast.Call, fa *ast.FieldAccess) value.Value {
	recv := i.eval(fa.Target)
	args := i.evalArgs(call.Args)
	method := fa.Field.Lexeme

	if st, ok := recv.(*value.Struct); ok {
		if info, ok := i.structs[st.Schema.Name]; ok {
			if closure, ok := info.methods[method]; ok {
				return i.invokeClosure(call.Sp, closure, recv, args)
			}
		}
	}
	if vr, ok := recv.(*value.Variant); ok {
		if info, ok := i.variants[vr.Schema.Name]; ok {
			if closure, ok := info.methods[method]; ok {
				return i.invokeClosure(call.Sp, closure, recv, args)
			}
			result, handled, err := builtins.VariantCombinator(vr, info.okTag, info.errTag, method, args, i.invokeAsCallback)
			if handled {
				if err != nil {
					panic(newRuntimeError(call.Sp, diag.CodeUnsupportedMethod, "%s", err))
				}
				return result
			}
		}
	}
	result, handled, err := builtins.Dispatch(value.TypeName(recv), recv, method, args)
	if handled {
		if err != nil {
			panic(newRuntimeError(call.Sp, diag.CodeUnsupportedMethod, "%s", err))
		}
		return result
	}
	panic(newRuntimeError(call.Sp, diag.CodeUnsupportedMethod, "%s has no method '%s'", value.TypeName(recv), method))
}

func (i *Interpreter) invokeAsCallback(fn value.Value, args []value.Value) (value.Value, error) {
	closure, ok := fn.(*value.Closure)
	if !ok {
		return nil, fmt.Errorf("expected a function value")
	}
	var result value.Value
	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				if re, ok := r.(RuntimeError); ok {
					callErr = re
					return
				}
				panic(r)
			}
		}()
		result = i.invokeClosure(source.Span{}, closure, nil, args)
	}()
	return result, callErr
}

func (i *Interpreter) callValue(span source.Span, callee value.Value, args []value.Value) value.Value {
	closure, ok := callee.(*value.Closure)
	if !ok {
		panic(newRuntimeError(span, diag.CodeNotCallable, "%s is not callable", value.TypeName(callee)))
	}
	return i.invokeClosure(span, closure, nil, args)
}

func (i *Interpreter) invokeClosure(span source.Span, closure *value.Closure, receiver value.Value, args []value.Value) (result value.Value) {
	if closure.Native != nil {
		v, err := closure.Native(args)
		if err != nil {
			if re, ok := err.(RuntimeError); ok {
				panic(re)
			}
			panic(newRuntimeError(span, diag.CodeUnsupportedMethod, "%s", err.Error()))
		}
		return v
	}
	impl := closure.Interp.Impl.(*funcImpl)
	if closure.Arity >= 0 && len(args) != closure.Arity {
		panic(newRuntimeError(span, diag.CodeArgCountMismatch, "function '%s' expects %d argument(s), got %d", closure.Name, closure.Arity, len(args)))
	}
	if i.callDepth >= maxCallDepth {
		panic(newRuntimeError(span, diag.CodeRecursionLimit, "call stack exceeded the limit of %s frames", humanize.Comma(int64(maxCallDepth))))
	}
	i.callDepth++

	callEnv := NewNestedEnvironment(impl.closureEnv)
	if impl.self != "" {
		callEnv.Define(impl.self, receiver, false)
	}
	for idx, p := range impl.params {
		callEnv.Define(p.Name.Lexeme, args[idx], true)
	}

	previousEnv := i.env
	i.env = callEnv
	defer func() {
		i.env = previousEnv
		i.callDepth--
		if r := recover(); r != nil {
			if rs, ok := r.(returnSignal); ok {
				result = rs.value
				return
			}
			panic(r)
		}
	}()
	for _, stmt := range impl.body.Statements {
		i.exec(stmt)
	}
	return nil
}

func (i *Interpreter) VisitTupleLiteral(e *ast.TupleLiteral) any {
	return &value.Tuple{Elements: i.evalArgs(e.Elements)}
}

func (i *Interpreter) VisitListLiteral(e *ast.ListLiteral) any {
	return &value.List{Elements: i.evalArgs(e.Elements)}
}

func (i *Interpreter) VisitMapLiteral(e *ast.MapLiteral) any {
	m := value.NewMapping()
	for _, entry := range e.Entries {
		k := i.eval(entry.Key)
		key, ok := k.(string)
		if !ok {
			panic(newRuntimeError(e.Sp, diag.CodeKeyNotFound, "mapping keys must be strings"))
		}
		m.Set(key, i.eval(entry.Value))
	}
	return m
}

func (i *Interpreter) VisitRange(e *ast.RangeExpr) any {
	start, ok1 := i.eval(e.Start).(int64)
	end, ok2 := i.eval(e.End).(int64)
	if !ok1 || !ok2 {
		panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "range bounds must be int"))
	}
	return &value.Range{Start: start, End: end, Inclusive: e.Inclusive}
}

func (i *Interpreter) VisitStructLiteral(e *ast.StructLiteral) any {
	info, ok := i.structs[e.TypeName.Lexeme]
	if !ok {
		panic(newRuntimeError(e.Sp, diag.CodeUndefinedName, "undefined type '%s'", e.TypeName.Lexeme))
	}
	values := make(map[string]value.Value, len(info.schema.Fields))
	if e.Base != nil {
		base, ok := i.eval(e.Base).(*value.Struct)
		if !ok || base.Schema != info.schema {
			panic(newRuntimeError(e.Sp, diag.CodeUnsupportedMethod, "spread base must be a %s value", e.TypeName.Lexeme))
		}
		for k, v := range base.Values {
			values[k] = v
		}
	}
	for _, f := range e.Fields {
		values[f.Name.Lexeme] = i.eval(f.Value)
	}
	return &value.Struct{Schema: info.schema, Values: values}
}

func (i *Interpreter) VisitVariantLiteral(e *ast.VariantLiteral) any {
	info, ok := i.variants[e.TypeName.Lexeme]
	if !ok {
		panic(newRuntimeError(e.Sp, diag.CodeUndefinedName, "undefined type '%s'", e.TypeName.Lexeme))
	}
	return &value.Variant{Schema: info.schema, Tag: e.Tag.Lexeme, Payload: i.evalArgs(e.Args)}
}

func (i *Interpreter) VisitFuncLiteral(e *ast.FuncLiteral) any {
	impl := &funcImpl{params: e.Params, body: e.Body, closureEnv: i.env}
	return &value.Closure{Name: "<anonymous>", Arity: len(e.Params), Interp: &value.InterpFunc{Impl: impl}}
}

func (i *Interpreter) VisitIfExpr(e *ast.IfExpr) any {
	if value.Truthy(i.eval(e.Condition)) {
		return i.eval(e.Then)
	}
	return i.eval(e.Else)
}

func (i *Interpreter) VisitMatchExpr(e *ast.MatchExpr) any {
	scrutinee := i.eval(e.Scrutinee)
	for _, arm := range e.Arms {
		bindings, ok := i.matchPattern(arm.Pattern, scrutinee)
		if !ok {
			continue
		}
		previous := i.env
		i.env = NewNestedEnvironment(previous)
		for name, v := range bindings {
			i.env.Define(name, v, false)
		}
		if arm.Guard != nil && !value.Truthy(i.eval(arm.Guard)) {
			i.env = previous
			continue
		}
		result := i.eval(arm.Body.(ast.Expression))
		i.env = previous
		return result
	}
	panic(newRuntimeError(e.Sp, diag.CodeNonExhaustiveValue, "no match arm matched value %s", value.Inspect(scrutinee)))
}
