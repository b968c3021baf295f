// Package builtins implements the type-indexed method registry for
// primitive and composite values (spec.md §9 "built-in methods"): int,
// float, bool, string, list, mapping, tuple, range, plus the sum-type
// combinators (map/then/or/or_else/map_err/each/filter) used on tagged
// variants acting as option/result values.
package builtins

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"loom/runtime/value"
)

// MethodFunc is a built-in method implementation.
type MethodFunc func(recv value.Value, args []value.Value) (value.Value, error)

type registry map[string]map[string]MethodFunc

var methods = registry{
	"int":     intMethods(),
	"float":   floatMethods(),
	"string":  stringMethods(),
	"bool":    boolMethods(),
	"list":    listMethods(),
	"mapping": mappingMethods(),
	"tuple":   tupleMethods(),
	"range":   rangeMethods(),
}

// Dispatch looks up and invokes a built-in method by the runtime type
// name of recv. ok is false when no built-in method of that name exists
// for that type (the caller should then fall back to checking a
// struct/extend method table).
func Dispatch(typeName string, recv value.Value, method string, args []value.Value) (result value.Value, ok bool, err error) {
	table, found := methods[typeName]
	if !found {
		return nil, false, nil
	}
	fn, found := table[method]
	if !found {
		// Sum-type combinators are shared across every user-defined
		// tagged-variant type, so they are dispatched separately by the
		// interpreter/VM once a value resolves to *value.Variant; see
		// VariantCombinator.
		return nil, false, nil
	}
	v, e := fn(recv, args)
	return v, true, e
}

func arityError(method string, want, got int) error {
	return fmt.Errorf("method '%s' expects %d argument(s), got %d", method, want, got)
}

func intMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"toFloat": func(recv value.Value, args []value.Value) (value.Value, error) {
			return float64(recv.(int64)), nil
		},
		"toString": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strconv.FormatInt(recv.(int64), 10), nil
		},
		"abs": func(recv value.Value, args []value.Value) (value.Value, error) {
			n := recv.(int64)
			if n < 0 {
				return -n, nil
			}
			return n, nil
		},
	}
}

func floatMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"toInt": func(recv value.Value, args []value.Value) (value.Value, error) {
			return int64(recv.(float64)), nil
		},
		"toString": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strconv.FormatFloat(recv.(float64), 'g', -1, 64), nil
		},
		"round": func(recv value.Value, args []value.Value) (value.Value, error) {
			f := recv.(float64)
			if f < 0 {
				return int64(f - 0.5), nil
			}
			return int64(f + 0.5), nil
		},
	}
}

func boolMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"toString": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strconv.FormatBool(recv.(bool)), nil
		},
	}
}

func stringMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"len": func(recv value.Value, args []value.Value) (value.Value, error) {
			return int64(len([]rune(recv.(string)))), nil
		},
		"upper": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strings.ToUpper(recv.(string)), nil
		},
		"lower": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strings.ToLower(recv.(string)), nil
		},
		"trim": func(recv value.Value, args []value.Value) (value.Value, error) {
			return strings.TrimSpace(recv.(string)), nil
		},
		"split": func(recv value.Value, args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, arityError("split", 1, len(args))
			}
			sep, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("split: separator must be a string")
			}
			parts := strings.Split(recv.(string), sep)
			elems := make([]value.Value, len(parts))
			for i, p := range parts {
				elems[i] = p
			}
			return &value.List{Elements: elems}, nil
		},
		"contains": func(recv value.Value, args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, arityError("contains", 1, len(args))
			}
			sub, _ := args[0].(string)
			return strings.Contains(recv.(string), sub), nil
		},
		"toInt": func(recv value.Value, args []value.Value) (value.Value, error) {
			n, err := strconv.ParseInt(strings.TrimSpace(recv.(string)), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as int", recv.(string))
			}
			return n, nil
		},
	}
}

func listMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"len": func(recv value.Value, args []value.Value) (value.Value, error) {
			return int64(len(recv.(*value.List).Elements)), nil
		},
		"push": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			l.Elements = append(l.Elements, args...)
			return l, nil
		},
		"pop": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			if len(l.Elements) == 0 {
				return nil, fmt.Errorf("pop: list is empty")
			}
			last := l.Elements[len(l.Elements)-1]
			l.Elements = l.Elements[:len(l.Elements)-1]
			return last, nil
		},
		"first": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			if len(l.Elements) == 0 {
				return nil, fmt.Errorf("first: list is empty")
			}
			return l.Elements[0], nil
		},
		"last": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			if len(l.Elements) == 0 {
				return nil, fmt.Errorf("last: list is empty")
			}
			return l.Elements[len(l.Elements)-1], nil
		},
		"reverse": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			out := make([]value.Value, len(l.Elements))
			for i, e := range l.Elements {
				out[len(out)-1-i] = e
			}
			return &value.List{Elements: out}, nil
		},
		"sorted": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			out := append([]value.Value{}, l.Elements...)
			sort.SliceStable(out, func(i, j int) bool { return lessValue(out[i], out[j]) })
			return &value.List{Elements: out}, nil
		},
		"copy": func(recv value.Value, args []value.Value) (value.Value, error) {
			l := recv.(*value.List)
			out := append([]value.Value{}, l.Elements...)
			return &value.List{Elements: out}, nil
		},
	}
}

func lessValue(a, b value.Value) bool {
	switch av := a.(type) {
	case int64:
		bv, _ := b.(int64)
		return av < bv
	case float64:
		bv, _ := b.(float64)
		return av < bv
	case string:
		bv, _ := b.(string)
		return av < bv
	default:
		return false
	}
}

func mappingMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"len": func(recv value.Value, args []value.Value) (value.Value, error) {
			return int64(recv.(*value.Mapping).Len()), nil
		},
		"keys": func(recv value.Value, args []value.Value) (value.Value, error) {
			m := recv.(*value.Mapping)
			elems := make([]value.Value, len(m.Keys()))
			for i, k := range m.Keys() {
				elems[i] = k
			}
			return &value.List{Elements: elems}, nil
		},
		"values": func(recv value.Value, args []value.Value) (value.Value, error) {
			m := recv.(*value.Mapping)
			elems := make([]value.Value, 0, m.Len())
			for _, k := range m.Keys() {
				v, _ := m.Get(k)
				elems = append(elems, v)
			}
			return &value.List{Elements: elems}, nil
		},
		"has": func(recv value.Value, args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, arityError("has", 1, len(args))
			}
			key, _ := args[0].(string)
			_, ok := recv.(*value.Mapping).Get(key)
			return ok, nil
		},
		"remove": func(recv value.Value, args []value.Value) (value.Value, error) {
			if len(args) != 1 {
				return nil, arityError("remove", 1, len(args))
			}
			key, _ := args[0].(string)
			recv.(*value.Mapping).Delete(key)
			return nil, nil
		},
	}
}

func tupleMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"len": func(recv value.Value, args []value.Value) (value.Value, error) {
			return int64(len(recv.(*value.Tuple).Elements)), nil
		},
	}
}

func rangeMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"toList": func(recv value.Value, args []value.Value) (value.Value, error) {
			r := recv.(*value.Range)
			var elems []value.Value
			end := r.End
			if r.Inclusive {
				end++
			}
			for i := r.Start; i < end; i++ {
				elems = append(elems, i)
			}
			return &value.List{Elements: elems}, nil
		},
		"len": func(recv value.Value, args []value.Value) (value.Value, error) {
			r := recv.(*value.Range)
			n := r.End - r.Start
			if r.Inclusive {
				n++
			}
			if n < 0 {
				n = 0
			}
			return n, nil
		},
	}
}
