// Package runtime wires the pipeline stages (lex, parse, analyze, compile,
// interpret/VM) and the module loader into one entry point a CLI or test
// harness can call (spec.md §7 "runtime"). It mirrors the teacher's own
// main.go/cmd_*.go split of "build the pieces, then drive them from one
// place" but collects that wiring into an importable package instead of
// package main, so cmd/loom and the test suite both reuse it.
package runtime

import (
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"loom/analyzer"
	"loom/ast"
	"loom/bytecode"
	"loom/compiler"
	"loom/diag"
	"loom/lexer"
	"loom/parser"
	"loom/runtime/interpreter"
	"loom/runtime/module"
	"loom/runtime/value"
	"loom/runtime/vm"
	"loom/source"
)

// Runtime owns one session's logger, import cache, and stdout sink.
// Every Run/RunCompiled call is independent (fresh Interpreter/VM state),
// but they share the Runtime's module Loader so repeated imports of the
// same file across many calls (a REPL session, a batch of golden tests)
// only execute that file once.
type Runtime struct {
	SessionID uuid.UUID
	Stdout    func(string)

	log    *logrus.Logger
	loader *module.Loader
}

// New returns a Runtime rooted at baseDir (used to resolve relative "use"
// paths), logging structured fields through log (if nil, a discard
// logger is used — tests and one-shot CLI invocations don't need log
// output on by default).
func New(baseDir string, log *logrus.Logger) (*Runtime, error) {
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}
	rt := &Runtime{
		SessionID: uuid.New(),
		Stdout:    func(s string) { fmt.Println(s) },
		log:       log,
	}
	loader, err := module.NewLoader(baseDir, rt.runImportedModule, 64)
	if err != nil {
		return nil, err
	}
	rt.loader = loader
	return rt, nil
}

func (rt *Runtime) entry() *logrus.Entry {
	return rt.log.WithField("session", rt.SessionID.String())
}

// Compile runs the lex/parse/analyze stages over text, returning the
// parsed module and every diagnostic accumulated along the way. Run,
// RunCompiled and Disassemble take an already-parsed module; callers run
// Compile first.
func (rt *Runtime) Compile(path, text string) (*ast.Module, *diag.Bag) {
	src := source.New(path, text)
	lex := lexer.New(src)
	tokens, lexDiags := lex.Scan()

	p := parser.New(path, tokens)
	mod, parseDiags := p.Parse()

	bag := &diag.Bag{}
	bag.Extend(lexDiags)
	bag.Extend(parseDiags)
	bag.Extend(analyzer.Analyze(mod))
	return mod, bag
}

// Run tree-walk-interprets mod, wiring the Runtime's module loader so any
// "use" statement inside it resolves against the same cache every other
// call on this Runtime shares.
func (rt *Runtime) Run(mod *ast.Module) error {
	interp := interpreter.New(rt.entry())
	interp.Stdout = rt.Stdout
	interp.Importer = rt.loader.Load
	rt.log.WithFields(logrus.Fields{"session": rt.SessionID.String(), "path": mod.Path}).Debug("interpreting module")
	return interp.Run(mod)
}

// RunCompiled compiles mod to bytecode and executes it on the VM. A
// module containing "use" statements cannot run this way: the compiler's
// VisitImportStmt is a deliberate no-op (compiler/stmt.go), so compiling
// such a module silently drops the import rather than honoring it. Callers
// that need import support should call Run instead.
func (rt *Runtime) RunCompiled(mod *ast.Module) error {
	prog, diags := compiler.Compile(mod)
	if diags.HasErrors() {
		return fmt.Errorf("compile failed: %d error(s)", len(diags.All()))
	}
	m := vm.New(rt.entry())
	m.Stdout = rt.Stdout
	rt.log.WithFields(logrus.Fields{"session": rt.SessionID.String(), "path": mod.Path}).Debug("running compiled module")
	return m.Run(prog)
}

// Disassemble compiles mod and renders its bytecode listing, for the
// "emit" CLI subcommand.
func (rt *Runtime) Disassemble(mod *ast.Module) (*bytecode.Program, *diag.Bag, string) {
	prog, diags := compiler.Compile(mod)
	if diags.HasErrors() {
		return prog, diags, ""
	}
	return prog, diags, prog.Disassemble()
}

// runImportedModule is the module.Run callback passed to the Loader: a
// fresh child Interpreter so an imported module's own top-level state
// never leaks into its importer's environment (spec.md §4.7 "each module
// runs in its own top-level scope").
func (rt *Runtime) runImportedModule(mod *ast.Module) (map[string]value.Value, error) {
	child := interpreter.New(rt.entry())
	child.Stdout = rt.Stdout
	child.Importer = rt.loader.Load
	if err := child.Run(mod); err != nil {
		return nil, err
	}
	return child.Exports(), nil
}
