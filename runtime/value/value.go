// Package value defines the runtime value representation shared by the
// tree-walk interpreter and the bytecode VM (spec.md §8), so that both
// execution strategies operate over identical data and can be compared
// for the equivalence property asserted in the test suite.
//
// Scalars (Int, Float, Bool, unit) are plain Go values. Composite values
// (List, Mapping, Struct, Variant, Closure, Range, Module) are always
// represented behind a pointer, so aliasing/mutation semantics match
// spec.md's reference-value rules without any manual refcounting: Go's
// garbage collector already gives us exactly the heap lifetime the spec
// asks for, and hand-rolling reference counts on top of a GC'd runtime
// would just race the collector for no benefit.
package value

import (
	"fmt"
	"strings"
)

// Value is any runtime value. Scalars are int64, float64, bool, or nil
// (unit). Everything else is one of the pointer types below.
type Value any

// List is a mutable, growable sequence.
type List struct {
	Elements []Value
}

// Mapping is an insertion-ordered string-keyed map (spec.md §8 "mapping
// iteration order matches insertion order").
type Mapping struct {
	keys   []string
	values map[string]Value
}

// NewMapping returns an empty Mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Value)}
}

// Get returns the value for key and whether it was present.
func (m *Mapping) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Set inserts or updates key, preserving first-insertion order.
func (m *Mapping) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key if present.
func (m *Mapping) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (m *Mapping) Keys() []string { return m.keys }

// Len returns the number of entries.
func (m *Mapping) Len() int { return len(m.keys) }

// Tuple is a fixed-size, heterogeneous, immutable sequence.
type Tuple struct {
	Elements []Value
}

// StructSchema describes a struct type's declared field order, shared
// across all instances of that type.
type StructSchema struct {
	Name   string
	Fields []string
}

// Struct is an instance of a user-defined struct type.
type Struct struct {
	Schema *StructSchema
	Values map[string]Value
}

// Get returns a field's value.
func (s *Struct) Get(field string) (Value, bool) {
	v, ok := s.Values[field]
	return v, ok
}

// VariantSchema describes a tagged-variant (sum) type's cases.
type VariantSchema struct {
	Name  string
	Cases map[string]int // tag -> payload arity
}

// Variant is an instance of a tagged-variant value: a tag plus a
// positional payload tuple (possibly empty).
type Variant struct {
	Schema  *VariantSchema
	Tag     string
	Payload []Value
}

// Range is a half-open or inclusive integer range, lazily iterable.
type Range struct {
	Start, End int64
	Inclusive  bool
}

// Closure is a callable value: a compiled-or-interpreted function proto
// plus the upvalue cells it captured at creation time (spec.md §7
// "closures via capture descriptors").
type Closure struct {
	Name     string
	Arity    int
	Captured []*Cell

	// Exactly one of Native, Interp, or Compiled is set, depending on
	// which execution strategy produced this Closure.
	Native   func(args []Value) (Value, error)
	Interp   *InterpFunc
	Compiled *CompiledFunc
}

// Cell is a heap-allocated, shared mutable variable slot used to
// implement closures that capture an outer local by reference.
type Cell struct {
	Value Value
}

// InterpFunc is the AST-interpreter representation of a function body;
// concrete fields live in the interpreter package to avoid an import
// cycle, so this is intentionally opaque here.
type InterpFunc struct {
	Impl any
}

// CompiledFunc is the bytecode-VM representation of a function proto;
// concrete fields live in the bytecode package.
type CompiledFunc struct {
	Impl any
}

// Module is a fully evaluated module's exported namespace.
type Module struct {
	Path    string
	Exports map[string]Value
}

// TypeName returns the runtime type name used in diagnostics and the
// "is"/"isnt" type-test operators (spec.md §6.4).
func TypeName(v Value) string {
	switch vv := v.(type) {
	case nil:
		return "unit"
	case int64:
		return "int"
	case float64:
		return "float"
	case bool:
		return "bool"
	case string:
		return "string"
	case *List:
		return "list"
	case *Mapping:
		return "mapping"
	case *Tuple:
		return "tuple"
	case *Struct:
		return vv.Schema.Name
	case *Variant:
		return vv.Schema.Name
	case *Range:
		return "range"
	case *Closure:
		return "function"
	case *Module:
		return "module"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// Truthy implements the language's truthiness rule: everything is truthy
// except false and unit (spec.md §6.4).
func Truthy(v Value) bool {
	switch vv := v.(type) {
	case nil:
		return false
	case bool:
		return vv
	default:
		return true
	}
}

// Equal implements structural (component-wise) equality, per spec.md's
// mandate that list/mapping/tuple/struct/variant equality compares
// contents rather than identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case nil:
		return b == nil
	case *List:
		bv, ok := b.(*List)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Tuple:
		bv, ok := b.(*Tuple)
		if !ok || len(av.Elements) != len(bv.Elements) {
			return false
		}
		for i := range av.Elements {
			if !Equal(av.Elements[i], bv.Elements[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv, ok := b.(*Mapping)
		if !ok || av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.keys {
			bval, ok := bv.Get(k)
			if !ok || !Equal(av.values[k], bval) {
				return false
			}
		}
		return true
	case *Struct:
		bv, ok := b.(*Struct)
		if !ok || av.Schema != bv.Schema {
			return false
		}
		for _, f := range av.Schema.Fields {
			if !Equal(av.Values[f], bv.Values[f]) {
				return false
			}
		}
		return true
	case *Variant:
		bv, ok := b.(*Variant)
		if !ok || av.Schema != bv.Schema || av.Tag != bv.Tag || len(av.Payload) != len(bv.Payload) {
			return false
		}
		for i := range av.Payload {
			if !Equal(av.Payload[i], bv.Payload[i]) {
				return false
			}
		}
		return true
	case *Range:
		bv, ok := b.(*Range)
		return ok && av.Start == bv.Start && av.End == bv.End && av.Inclusive == bv.Inclusive
	default:
		return a == b
	}
}

// Inspect renders a value for printing/debugging (the "print" builtin and
// REPL echo).
func Inspect(v Value) string {
	switch vv := v.(type) {
	case nil:
		return "unit"
	case int64:
		return fmt.Sprintf("%d", vv)
	case float64:
		return fmt.Sprintf("%g", vv)
	case bool:
		return fmt.Sprintf("%t", vv)
	case string:
		return vv
	case *List:
		parts := make([]string, len(vv.Elements))
		for i, e := range vv.Elements {
			parts[i] = InspectQuoted(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Tuple:
		parts := make([]string, len(vv.Elements))
		for i, e := range vv.Elements {
			parts[i] = InspectQuoted(e)
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Mapping:
		parts := make([]string, 0, vv.Len())
		for _, k := range vv.Keys() {
			val, _ := vv.Get(k)
			parts = append(parts, fmt.Sprintf("%q: %s", k, InspectQuoted(val)))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Struct:
		parts := make([]string, len(vv.Schema.Fields))
		for i, f := range vv.Schema.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f, InspectQuoted(vv.Values[f]))
		}
		return fmt.Sprintf("%s { %s }", vv.Schema.Name, strings.Join(parts, ", "))
	case *Variant:
		if len(vv.Payload) == 0 {
			return vv.Tag
		}
		parts := make([]string, len(vv.Payload))
		for i, e := range vv.Payload {
			parts[i] = InspectQuoted(e)
		}
		return fmt.Sprintf("%s(%s)", vv.Tag, strings.Join(parts, ", "))
	case *Range:
		op := ".."
		if vv.Inclusive {
			op = "..="
		}
		return fmt.Sprintf("%d%s%d", vv.Start, op, vv.End)
	case *Closure:
		return fmt.Sprintf("<function %s>", vv.Name)
	case *Module:
		return fmt.Sprintf("<module %s>", vv.Path)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// InspectQuoted is Inspect but renders strings with surrounding quotes,
// used for nested elements inside lists/tuples/mappings/structs.
func InspectQuoted(v Value) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return Inspect(v)
}
