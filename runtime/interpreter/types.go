package interpreter

import "loom/runtime/value"

// structInfo bundles a struct type's field schema with its declared and
// extended methods (spec.md §4.2 "Name has {...}" / "Name does {...}").
type structInfo struct {
	schema  *value.StructSchema
	methods map[string]*value.Closure
}

// variantInfo bundles a tagged-variant type's schema, its methods, and
// the inferred "success"/"failure" tags used by the sum-type combinators
// (map/then/or/or_else/map_err/each/filter, builtins.VariantCombinator).
type variantInfo struct {
	schema  *value.VariantSchema
	methods map[string]*value.Closure
	okTag   string
	errTag  string
}

// inferOkErrTags guesses which case represents success/failure for the
// generic combinators, recognizing the conventional "some"/"none" and
// "ok"/"err" case names and otherwise falling back to the first two
// declared cases in source order.
func inferOkErrTags(names []string) (ok, err string) {
	return InferOkErrTags(names)
}

// InferOkErrTags is the free-function form of inferOkErrTags, exported so
// the bytecode VM can infer the same success/failure case names from a
// bytecode.VariantSchema without duplicating the heuristic.
func InferOkErrTags(names []string) (ok, err string) {
	has := func(n string) bool {
		for _, c := range names {
			if c == n {
				return true
			}
		}
		return false
	}
	switch {
	case has("some") && has("none"):
		return "some", "none"
	case has("ok") && has("err"):
		return "ok", "err"
	case len(names) >= 2:
		return names[0], names[1]
	case len(names) == 1:
		return names[0], ""
	default:
		return "", ""
	}
}
