// Package analyzer implements the semantic analysis stage (spec.md §4.3):
// name resolution, mutability checks, shadowing warnings, loop/function
// context checks, match exhaustiveness, and visibility rules. It produces
// diagnostics only — it never panics and never blocks the compiler or
// interpreter from running, following the accumulate-and-continue
// philosophy of every other pipeline stage (spec.md §7).
package analyzer

import (
	"loom/ast"
	"loom/diag"
	"loom/source"
	"loom/token"
)

// scopeKind distinguishes the module's top level from a nested block. It is
// recorded on each scope but not consulted: declare detects shadowing by
// looking only at the scopes enclosing the current one.
type scopeKind int

const (
	scopeModule scopeKind = iota
	scopeBlock
)

type binding struct {
	mutable bool
	span    source.Span
}

type scope struct {
	kind   scopeKind
	names  map[string]binding
}

// Analyzer walks a Module AST accumulating diagnostics into a diag.Bag.
type Analyzer struct {
	diags     *diag.Bag
	scopes    []*scope
	loopDepth int
	funcDepth int

	// topLevel collects every top-level name (let/var/func/type) so forward
	// references between top-level declarations resolve regardless of
	// declaration order, mirroring the interpreter's own hoisting pass.
	topLevel map[string]binding
}

// New returns an Analyzer ready to walk a single module.
func New() *Analyzer {
	return &Analyzer{
		diags:    &diag.Bag{},
		topLevel: make(map[string]binding),
	}
}

// Analyze walks mod and returns the accumulated diagnostics.
func Analyze(mod *ast.Module) *diag.Bag {
	a := New()
	a.collectTopLevel(mod.Items)
	a.pushScope(scopeModule)
	for _, stmt := range mod.Items {
		a.visitStmt(stmt)
	}
	a.popScope()
	return a.diags
}

func (a *Analyzer) collectTopLevel(items []ast.Stmt) {
	for _, item := range items {
		switch s := item.(type) {
		case *ast.FuncDecl:
			a.defineTopLevel(s.Name.Lexeme, false, s.Sp)
		case *ast.LetStmt:
			if s.Target.Name.Lexeme != "" {
				a.defineTopLevel(s.Target.Name.Lexeme, s.Mutable, s.Sp)
			}
			for _, n := range s.Target.Names {
				a.defineTopLevel(n.Lexeme, s.Mutable, s.Sp)
			}
		case *ast.TypeDecl:
			a.defineTopLevel(s.Name.Lexeme, false, s.Sp)
			for _, c := range s.Cases {
				a.defineTopLevel(c.Tag.Lexeme, false, s.Sp)
			}
		}
	}
}

func (a *Analyzer) defineTopLevel(name string, mutable bool, span source.Span) {
	if name == "" || name == "_" {
		return
	}
	a.topLevel[name] = binding{mutable: mutable, span: span}
}

func (a *Analyzer) pushScope(kind scopeKind) {
	a.scopes = append(a.scopes, &scope{kind: kind, names: make(map[string]binding)})
}

func (a *Analyzer) popScope() {
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *Analyzer) current() *scope { return a.scopes[len(a.scopes)-1] }

// declare introduces name in the innermost scope, warning if it shadows a
// binding from an enclosing scope (spec.md §4.3 "shadowing").
func (a *Analyzer) declare(name token.Token, mutable bool) {
	if name.Lexeme == "" || name.Lexeme == "_" {
		return
	}
	for idx := len(a.scopes) - 2; idx >= 0; idx-- {
		if _, ok := a.scopes[idx].names[name.Lexeme]; ok {
			a.diags.Warnf(diag.CodeShadowing, name.Span, "'%s' shadows a binding from an enclosing scope", name.Lexeme)
			break
		}
	}
	a.current().names[name.Lexeme] = binding{mutable: mutable, span: name.Span}
}

// lookup resolves name by walking the scope stack outward, then the
// top-level table, then the native globals installed by builtins.Globals,
// reporting whether it is mutable.
func (a *Analyzer) lookup(name string) (binding, bool) {
	for idx := len(a.scopes) - 1; idx >= 0; idx-- {
		if b, ok := a.scopes[idx].names[name]; ok {
			return b, true
		}
	}
	if b, ok := a.topLevel[name]; ok {
		return b, true
	}
	switch name {
	case "print", "len", "range", "type_of", "panic":
		return binding{}, true
	}
	return binding{}, false
}

// resolve checks that name refers to a known binding, reporting an
// undefined-name diagnostic with a nearest-match suggestion if not
// (spec.md §4.3 "bounded edit distance").
func (a *Analyzer) resolve(name token.Token) {
	if name.Lexeme == "" || name.Lexeme == "_" {
		return
	}
	if _, ok := a.lookup(name.Lexeme); ok {
		return
	}
	if suggestion := a.suggest(name.Lexeme); suggestion != "" {
		a.diags.Add(diag.New(diag.CodeUndefinedName, diag.SeverityError, name.Span, "undefined name '"+name.Lexeme+"'").
			WithHelp("did you mean '" + suggestion + "'?"))
		return
	}
	a.diags.Errorf(diag.CodeUndefinedName, name.Span, "undefined name '%s'", name.Lexeme)
}

// suggest finds the closest known name to target by Levenshtein distance,
// within a threshold that grows with identifier length (capped at 3).
func (a *Analyzer) suggest(target string) string {
	threshold := len(target)/3 + 1
	if threshold > 3 {
		threshold = 3
	}
	best := ""
	bestDist := threshold + 1

	consider := func(name string) {
		d := levenshtein(target, name)
		if d <= threshold && d < bestDist {
			best = name
			bestDist = d
		}
	}
	for idx := len(a.scopes) - 1; idx >= 0; idx-- {
		for name := range a.scopes[idx].names {
			consider(name)
		}
	}
	for name := range a.topLevel {
		consider(name)
	}
	return best
}

// levenshtein computes the classic edit-distance metric with a single
// rolling row; no third-party dependency fits this self-contained
// O(len(a)*len(b)) algorithm better than 30 lines of plain Go (see
// DESIGN.md).
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
