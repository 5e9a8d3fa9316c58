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

// Package registry declares the built-in function surface the core
// consumes from its host (§6 "Built-in function registry (consumed)").
// The core neither knows nor embeds specific implementations: it only
// depends on declared arity and argument kinds at parse time, and calls
// through Invoke at evaluation time.
package registry

import "github.com/KSD-CO/rule-engine-postgres-sub001/value"

// ArgKind classifies whether a FnCall argument position expects a scalar
// expression or a bare fact path (§4.1 "Arity and argument kinds (scalar vs
// path) are validated").
type ArgKind int

const (
	ArgScalar ArgKind = iota
	ArgPath
)

// FuncSpec is one registry entry: `name → (arity, kinds, invoker)` (§6).
type FuncSpec struct {
	Name string
	// Arity is the required argument count, or -1 for variadic functions.
	Arity int
	Kinds []ArgKind
	// Invoke must be pure with respect to the fact tree: it may read the
	// resolved argument values but must never mutate the store (§6
	// "Invokers must be pure with respect to the fact tree").
	Invoke func(args []value.Value) (value.Value, error)
}

// Registry resolves function names to specs. The parser calls Lookup to
// reject unknown names and check arity and argument kinds (§4.1); the AST
// keeps only the name, and evaluation calls Lookup again to get Invoke.
type Registry interface {
	Lookup(name string) (FuncSpec, bool)
}

// Map is a trivial Registry backed by a map literal, convenient for hosts
// and tests alike.
type Map map[string]FuncSpec

func (m Map) Lookup(name string) (FuncSpec, bool) {
	spec, ok := m[name]
	return spec, ok
}
