package builtins

import (
	"fmt"

	"loom/runtime/value"
)

// Invoke calls a Value as a function; the interpreter and VM each pass
// their own call mechanism in here so these combinators stay agnostic to
// execution strategy.
type Invoke func(fn value.Value, args []value.Value) (value.Value, error)

// VariantCombinator implements the sum-type combinators available on any
// tagged-variant value acting as an option/result (spec.md §9): map,
// then, or, or_else, map_err, each, filter. okTag/errTag name the
// "success" and "failure" cases of the variant's schema (e.g. "some"/
// "none" for option, "ok"/"err" for result); for a variant with only one
// case, that case is okTag and errTag is empty, so the combinators still
// run (map_err, for instance, returns the value unchanged).
func VariantCombinator(v *value.Variant, okTag, errTag string, method string, args []value.Value, call Invoke) (result value.Value, ok bool, err error) {
	switch method {
	case "map":
		if len(args) != 1 {
			return nil, true, arityError("map", 1, len(args))
		}
		if v.Tag != okTag {
			return v, true, nil
		}
		mapped, callErr := call(args[0], v.Payload)
		if callErr != nil {
			return nil, true, callErr
		}
		return &value.Variant{Schema: v.Schema, Tag: okTag, Payload: []value.Value{mapped}}, true, nil

	case "then":
		if len(args) != 1 {
			return nil, true, arityError("then", 1, len(args))
		}
		if v.Tag != okTag {
			return v, true, nil
		}
		next, callErr := call(args[0], v.Payload)
		if callErr != nil {
			return nil, true, callErr
		}
		nv, isVariant := next.(*value.Variant)
		if !isVariant {
			return nil, true, fmt.Errorf("then: callback must return a %s value", v.Schema.Name)
		}
		return nv, true, nil

	case "or":
		if len(args) != 1 {
			return nil, true, arityError("or", 1, len(args))
		}
		if v.Tag == okTag {
			return v, true, nil
		}
		return args[0], true, nil

	case "or_else":
		if len(args) != 1 {
			return nil, true, arityError("or_else", 1, len(args))
		}
		if v.Tag == okTag {
			return v, true, nil
		}
		alt, callErr := call(args[0], v.Payload)
		if callErr != nil {
			return nil, true, callErr
		}
		return alt, true, nil

	case "map_err":
		if len(args) != 1 {
			return nil, true, arityError("map_err", 1, len(args))
		}
		if errTag == "" || v.Tag != errTag {
			return v, true, nil
		}
		mapped, callErr := call(args[0], v.Payload)
		if callErr != nil {
			return nil, true, callErr
		}
		return &value.Variant{Schema: v.Schema, Tag: errTag, Payload: []value.Value{mapped}}, true, nil

	case "each":
		if len(args) != 1 {
			return nil, true, arityError("each", 1, len(args))
		}
		if v.Tag == okTag {
			if _, callErr := call(args[0], v.Payload); callErr != nil {
				return nil, true, callErr
			}
		}
		return nil, true, nil

	case "filter":
		if len(args) != 1 {
			return nil, true, arityError("filter", 1, len(args))
		}
		if v.Tag != okTag {
			return v, true, nil
		}
		kept, callErr := call(args[0], v.Payload)
		if callErr != nil {
			return nil, true, callErr
		}
		if !value.Truthy(kept) {
			return &value.Variant{Schema: v.Schema, Tag: "none"}, true, nil
		}
		return v, true, nil

	case "isOk":
		return v.Tag == okTag, true, nil

	case "unwrap":
		if v.Tag != okTag {
			return nil, true, fmt.Errorf("unwrap: called on %s variant tagged '%s'", v.Schema.Name, v.Tag)
		}
		if len(v.Payload) == 0 {
			return nil, true, nil
		}
		return v.Payload[0], true, nil
	}
	return nil, false, nil
}
