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

// Package fact implements the in-memory hierarchical fact tree (§2 "Fact
// Store", §3 "Fact"): a JSON-shaped key/value tree supporting dotted-path
// reads and writes.
package fact

import (
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// Store is the exclusively-owned, mutable fact tree for one engine
// invocation (§5 "Ownership"). It is never shared across goroutines; a host
// running concurrent invocations must give each its own Store.
type Store struct {
	root value.Value
}

// New creates a Store rooted at the given object value. Passing a
// non-Object root is allowed (degenerate trees are legal) but dotted-path
// writes below the root will coerce intermediate nodes to objects/arrays as
// needed.
func New(root value.Value) *Store {
	return &Store{root: root}
}

// NewEmpty creates a Store with an empty root object.
func NewEmpty() *Store {
	return &Store{root: value.NewObject(nil)}
}

// FromJSON builds a Store from a JSON document (typically the host's
// initial facts, §6 "Input/Output format").
func FromJSON(data []byte) (*Store, error) {
	v, err := value.FromJSON(data)
	if err != nil {
		return nil, err
	}
	return &Store{root: v}, nil
}

// ToJSON serializes the current fact tree back to JSON.
func (s *Store) ToJSON() ([]byte, error) {
	return value.ToJSON(s.root)
}

// Root returns the current root value (read-only borrow; callers must not
// mutate the returned Value's backing slices/maps in place).
func (s *Store) Root() value.Value {
	return s.root
}

// Get resolves a dotted path. A path that does not exist, or that walks
// through a leaf of the wrong shape (e.g. indexing into a scalar), resolves
// to Null rather than an error (§3 invariant I2: "a missing path evaluates
// to null").
func (s *Store) Get(path Path) value.Value {
	return get(s.root, path)
}

// GetRaw parses raw and resolves it; a malformed path is itself treated as
// "missing" at evaluation time (I2), not a hard failure, since rule
// conditions over facts must stay robust against absent data (§7).
func (s *Store) GetRaw(raw string) value.Value {
	p, err := ParsePath(raw)
	if err != nil {
		return value.NullValue()
	}
	return s.Get(p)
}

func get(node value.Value, path Path) value.Value {
	if len(path) == 0 {
		return node
	}
	seg := path[0]
	if seg.IsIndex {
		if node.Kind() != value.Array {
			return value.NullValue()
		}
		arr := node.Array()
		if seg.Index < 0 || seg.Index >= len(arr) {
			return value.NullValue()
		}
		return get(arr[seg.Index], path[1:])
	}
	if node.Kind() != value.Object {
		return value.NullValue()
	}
	obj := node.Object()
	child, ok := obj[seg.Key]
	if !ok {
		return value.NullValue()
	}
	return get(child, path[1:])
}

// Set writes newVal at path, creating intermediate objects/arrays as
// needed, and reports whether the leaf actually changed under deep equality
// (§3 invariant I3: an identical write is a no-op and must not count as
// "changed" for fixpoint termination). Re-rooting allocates new
// object/array nodes only along the mutated spine (§9 "Dynamic JSON
// facts"); sibling subtrees are shared with the previous root.
func (s *Store) Set(path Path, newVal value.Value) (changed bool, err error) {
	if len(path) == 0 {
		return false, &PathError{Message: "cannot assign to the root"}
	}
	newRoot, changed, err := set(s.root, path, newVal)
	if err != nil {
		return false, err
	}
	if changed {
		s.root = newRoot
	}
	return changed, nil
}

func set(node value.Value, path Path, newVal value.Value) (value.Value, bool, error) {
	if len(path) == 0 {
		if value.Equal(node, newVal) {
			return node, false, nil
		}
		return newVal, true, nil
	}

	seg := path[0]
	if seg.IsIndex {
		var arr []value.Value
		if node.Kind() == value.Array {
			arr = node.Array()
		}
		for len(arr) <= seg.Index {
			arr = append(arr, value.NullValue())
		}
		child, changed, err := set(arr[seg.Index], path[1:], newVal)
		if err != nil {
			return value.Value{}, false, err
		}
		if !changed {
			return node, false, nil
		}
		arr[seg.Index] = child
		return value.NewArray(arr), true, nil
	}

	var obj map[string]value.Value
	if node.Kind() == value.Object {
		obj = node.Object()
	} else {
		obj = map[string]value.Value{}
	}
	child, changed, err := set(obj[seg.Key], path[1:], newVal)
	if err != nil {
		return value.Value{}, false, err
	}
	if !changed {
		return node, false, nil
	}
	obj[seg.Key] = child
	return value.NewObject(obj), true, nil
}

// Clone returns a Store whose fact tree shares no storage with s, used to
// branch a session into a what-if timeline (SPEC_FULL "What-if branching").
func (s *Store) Clone() *Store {
	return &Store{root: value.DeepClone(s.root)}
}

// SizeBytes approximates the fact tree's JSON-encoded size, used to enforce
// the max_facts_bytes resource bound (§5).
func (s *Store) SizeBytes() (int64, error) {
	b, err := s.ToJSON()
	if err != nil {
		return 0, err
	}
	return int64(len(b)), nil
}

// Depth returns the fact tree's maximum nesting depth, used to enforce the
// max_depth resource bound (§5).
func (s *Store) Depth() int {
	return value.Depth(s.root)
}
