// Copyright 2026 The Rule Engine Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package value implements the tagged-union Value that flows through the
// fact store, the GRL AST's literals, and expression evaluation (§3 "Fact").
package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cast"
)

// Kind is the tag of a Value's dynamic type.
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	Array
	Object
	// Undefined is the evaluation-time sentinel (§4.2): the result of an
	// operation that has no value (e.g. integer division by zero). It never
	// appears inside a fact tree; it only flows through expression
	// evaluation.
	Undefined
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	case Undefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// Value is an immutable, copy-by-value JSON-shaped leaf or container.
// Array and Object hold their elements by value (Go slices/maps are
// reference types, so Clone performs a deep copy when mutation is possible).
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func NullValue() Value         { return Value{kind: Null} }
func UndefinedValue() Value    { return Value{kind: Undefined} }
func NewBool(b bool) Value     { return Value{kind: Bool, b: b} }
func NewInt(i int64) Value     { return Value{kind: Int, i: i} }
func NewFloat(f float64) Value { return Value{kind: Float, f: f} }
func NewString(s string) Value { return Value{kind: String, s: s} }

func NewArray(items []Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: Array, arr: cp}
}

func NewObject(fields map[string]Value) Value {
	cp := make(map[string]Value, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Value{kind: Object, obj: cp}
}

func (v Value) Kind() Kind        { return v.kind }
func (v Value) IsUndefined() bool { return v.kind == Undefined }
func (v Value) IsNull() bool      { return v.kind == Null }

func (v Value) Bool() bool    { return v.b }
func (v Value) Int() int64    { return v.i }
func (v Value) Float() float64 { return v.f }
func (v Value) String() string {
	if v.kind == String {
		return v.s
	}
	return fmt.Sprintf("%v", v.Raw())
}

// Array returns a defensive copy of the element slice.
func (v Value) Array() []Value {
	cp := make([]Value, len(v.arr))
	copy(cp, v.arr)
	return cp
}

// Object returns a defensive copy of the field map.
func (v Value) Object() map[string]Value {
	cp := make(map[string]Value, len(v.obj))
	for k, val := range v.obj {
		cp[k] = val
	}
	return cp
}

// AsFloat promotes ints and floats to float64; used by arithmetic
// promotion (§4.2). ok is false for non-numeric kinds.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case Int:
		return float64(v.i), true
	case Float:
		return v.f, true
	default:
		return 0, false
	}
}

// AsInt64 coerces via spf13/cast, the same coercion library the teacher
// depends on for scalar bind-variable conversion (engine.go's
// bindingsToExprs). Used only where the spec calls for permissive numeric
// coercion, never for comparisons across incompatible kinds.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case Int:
		return v.i, true
	case Float:
		i, err := cast.ToInt64E(v.f)
		return i, err == nil
	default:
		return 0, false
	}
}

// Raw converts a Value back into a plain interface{} tree, suitable for
// json.Marshal.
func (v Value) Raw() interface{} {
	switch v.kind {
	case Null, Undefined:
		return nil
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	case Array:
		out := make([]interface{}, len(v.arr))
		for i, e := range v.arr {
			out[i] = e.Raw()
		}
		return out
	case Object:
		out := make(map[string]interface{}, len(v.obj))
		for k, e := range v.obj {
			out[k] = e.Raw()
		}
		return out
	default:
		return nil
	}
}

// DeepClone recursively copies an Array/Object tree so the result shares no
// backing storage with v. NewArray/NewObject already copy one level (the
// re-rooting-along-the-spine idiom §9 calls for on assignment); DeepClone is
// the stronger guarantee needed when branching a whole fact tree into a
// what-if timeline.
func DeepClone(v Value) Value {
	switch v.kind {
	case Array:
		items := make([]Value, len(v.arr))
		for i, e := range v.arr {
			items[i] = DeepClone(e)
		}
		return Value{kind: Array, arr: items}
	case Object:
		fields := make(map[string]Value, len(v.obj))
		for k, e := range v.obj {
			fields[k] = DeepClone(e)
		}
		return Value{kind: Object, obj: fields}
	default:
		return v
	}
}

// Depth returns the maximum nesting depth of v, counting the root as depth 1.
func Depth(v Value) int {
	switch v.kind {
	case Array:
		max := 0
		for _, e := range v.arr {
			if d := Depth(e); d > max {
				max = d
			}
		}
		return max + 1
	case Object:
		max := 0
		for _, e := range v.obj {
			if d := Depth(e); d > max {
				max = d
			}
		}
		return max + 1
	default:
		return 1
	}
}

// Equal implements the deep equality the spec relies on in two places: I3
// ("a fired action that produces the identical value ... is a no-op") and
// the engine-equivalence/idempotence testable properties (§8). Arrays
// compare in order (§9 open question (a): assumed ordered).
func Equal(a, b Value) bool {
	if a.kind == Undefined || b.kind == Undefined {
		// Undefined never participates in fact-tree equality; it should
		// never reach here from a committed fact, but treat it as
		// non-equal to anything, including another Undefined, matching
		// NaN-like semantics used for division-by-zero results (§4.2).
		return false
	}
	return cmp.Equal(a.Raw(), b.Raw())
}

// FromJSON decodes a JSON document into a Value tree, distinguishing
// integers from floats by the presence of a decimal point or exponent
// (matching the GRL lexer's own int/float distinction, §4.1), via
// json.Decoder.UseNumber rather than the default float64-for-everything
// unmarshal.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return fromRaw(raw), nil
}

func fromRaw(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return NullValue()
	case bool:
		return NewBool(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return NewInt(i)
		}
		f, _ := t.Float64()
		return NewFloat(f)
	case string:
		return NewString(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			items[i] = fromRaw(e)
		}
		return NewArray(items)
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			fields[k] = fromRaw(e)
		}
		return NewObject(fields)
	default:
		return NullValue()
	}
}

// ToJSON marshals a Value tree back to canonical JSON, with object keys
// sorted for deterministic output (used by fact.Store.ToJSON and by
// recorder.HostSink's final-facts payload).
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(sortedRaw(v))
}

// sortedRaw produces a deterministic interface{} tree (map keys don't
// affect json.Marshal ordering in Go, which already sorts map[string]any
// keys, but we route object values through an ordered structure here for
// clarity when embedded in event payloads).
func sortedRaw(v Value) interface{} {
	if v.kind != Object {
		return v.Raw()
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		out[k] = sortedRaw(v.obj[k])
	}
	return out
}
