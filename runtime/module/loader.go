// Package module implements spec.md §4.7's import resolution: loading a
// "use" path's source file, running it once, and caching its exported
// bindings for every later importer. The cache itself is generalized from
// parser/cache.go's in-memory, evict-nothing map (that one keyed by
// interpolation-fragment text rather than file path) to a bounded
// github.com/hashicorp/golang-lru/v2 cache, the same library
// playbymail-ottomap reaches for to cache hydrated records, so embedding a
// Loom runtime in a long-lived process (a test harness running many
// programs, a REPL that repeatedly imports scratch files) can't leak one
// cache entry per import forever.
package module

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"loom/analyzer"
	"loom/ast"
	"loom/diag"
	"loom/lexer"
	"loom/parser"
	"loom/runtime/value"
	"loom/source"
)

// Run executes an already-parsed module (typically against a fresh child
// Interpreter) and returns its collected exports. runtime.Runtime supplies
// this as a thin wrapper over Interpreter.Run + Interpreter.Exports.
//
// Compiled (bytecode) execution never needs a Run implementation here:
// VisitImportStmt has no bytecode lowering (compiler/stmt.go), so a
// compiled program can never reach an import, and module loading always
// happens through the tree-walk front end.
type Run func(mod *ast.Module) (map[string]value.Value, error)

// Loader resolves "use" paths to cached export namespaces, detecting
// import cycles via an in-progress stack (spec.md §4.7 "a cycle is a
// module error, not a panic").
type Loader struct {
	baseDir string
	run     Run
	cache   *lru.Cache[string, map[string]value.Value]
	stack   []string
}

// NewLoader returns a Loader that resolves relative import paths against
// baseDir and executes each module's parsed AST via run. cacheSize bounds
// how many distinct modules' exports are retained at once.
func NewLoader(baseDir string, run Run, cacheSize int) (*Loader, error) {
	cache, err := lru.New[string, map[string]value.Value](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("module: creating cache: %w", err)
	}
	return &Loader{baseDir: baseDir, run: run, cache: cache}, nil
}

// Load resolves path (relative to baseDir, with a ".loom" extension
// assumed if the path has none) to its export namespace, running the
// module the first time and serving the cache afterward.
func (l *Loader) Load(path string) (*value.Module, error) {
	resolved := l.resolve(path)

	if exports, ok := l.cache.Get(resolved); ok {
		return &value.Module{Path: path, Exports: exports}, nil
	}
	for _, inProgress := range l.stack {
		if inProgress == resolved {
			return nil, fmt.Errorf("circular import: %s", cycleTrail(l.stack, resolved))
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading module %q: %w", path, err)
	}

	mod, bag, err := parseModule(resolved, string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing module %q: %w", path, err)
	}
	if bag.HasErrors() {
		return nil, fmt.Errorf("module %q failed to parse: %d error(s)", path, len(bag.All()))
	}

	l.stack = append(l.stack, resolved)
	exports, runErr := l.run(mod)
	l.stack = l.stack[:len(l.stack)-1]
	if runErr != nil {
		return nil, fmt.Errorf("running module %q: %w", path, runErr)
	}

	l.cache.Add(resolved, exports)
	return &value.Module{Path: path, Exports: exports}, nil
}

func (l *Loader) resolve(path string) string {
	full := path
	if !filepath.IsAbs(full) {
		full = filepath.Join(l.baseDir, full)
	}
	if filepath.Ext(full) == "" {
		full += ".loom"
	}
	return filepath.Clean(full)
}

func cycleTrail(stack []string, closing string) string {
	trail := append(append([]string{}, stack...), closing)
	out := trail[0]
	for _, p := range trail[1:] {
		out += " -> " + p
	}
	return out
}

// parseModule lexes, parses, and semantically analyzes a module's source
// text, mirroring the compile-pipeline sequence cmd/loom's "check"
// subcommand runs over a top-level file.
func parseModule(path, text string) (*ast.Module, *diag.Bag, error) {
	src := source.New(path, text)
	lex := lexer.New(src)
	tokens, lexDiags := lex.Scan()

	p := parser.New(path, tokens)
	mod, parseDiags := p.Parse()

	bag := &diag.Bag{}
	bag.Extend(lexDiags)
	bag.Extend(parseDiags)
	bag.Extend(analyzer.Analyze(mod))
	return mod, bag, nil
}
