package interpreter

import (
	"loom/ast"
	"loom/runtime/value"
)

// matchPattern tests v against pattern, returning the bindings it
// introduces and whether it matched. A failed match returns (nil, false)
// and must not leave any bindings behind.
func (i *Interpreter) matchPattern(pattern ast.Pattern, v value.Value) (map[string]value.Value, bool) {
	return MatchPattern(pattern, v)
}

// MatchPattern is the free-function form of matchPattern: structural
// pattern matching touches no interpreter state, so the bytecode VM's
// OP_MATCH_PATTERN handler calls this directly to guarantee the two
// execution strategies can never disagree about what matches.
func MatchPattern(pattern ast.Pattern, v value.Value) (map[string]value.Value, bool) {
	switch p := pattern.(type) {
	case *ast.WildcardPattern:
		return map[string]value.Value{}, true

	case *ast.BindingPattern:
		return map[string]value.Value{p.Name.Lexeme: v}, true

	case *ast.LiteralPattern:
		if value.Equal(p.Value, v) {
			return map[string]value.Value{}, true
		}
		return nil, false

	case *ast.TuplePattern:
		tup, ok := v.(*value.Tuple)
		if !ok || len(tup.Elements) != len(p.Elements) {
			return nil, false
		}
		bindings := map[string]value.Value{}
		for idx, sub := range p.Elements {
			b, ok := MatchPattern(sub, tup.Elements[idx])
			if !ok {
				return nil, false
			}
			for k, val := range b {
				bindings[k] = val
			}
		}
		return bindings, true

	case *ast.VariantPattern:
		variant, ok := v.(*value.Variant)
		if !ok || variant.Tag != p.Tag.Lexeme || len(variant.Payload) != len(p.Fields) {
			return nil, false
		}
		bindings := map[string]value.Value{}
		for idx, sub := range p.Fields {
			b, ok := MatchPattern(sub, variant.Payload[idx])
			if !ok {
				return nil, false
			}
			for k, val := range b {
				bindings[k] = val
			}
		}
		return bindings, true
	}
	return nil, false
}
