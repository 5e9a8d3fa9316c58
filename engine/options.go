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

// Package engine implements the forward-chaining fixpoint evaluator (§4.3)
// shared by the RETE engine's equivalence contract (§4.4): both live
// behind the Options/Result shape defined here so the root façade can pick
// either implementation interchangeably.
package engine

import (
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/recorder"
)

// DefaultMaxIterationsPerRule is the §4.3 step-3 fixpoint guarantee:
// max_iterations = 10_000 * rule_count, used when Options.MaxIterations is
// left at zero.
const DefaultMaxIterationsPerRule = 10_000

// Options are the per-invocation resource bounds and cancellation hook
// (§5 "Resource bounds", "Cancellation"). A zero Options is valid: every
// bound falls back to a generous default and Cancel is never polled.
type Options struct {
	// MaxIterations caps the number of fixpoint passes. Zero means
	// DefaultMaxIterationsPerRule * rule_count.
	MaxIterations int64
	// MaxFactsBytes caps fact.Store.SizeBytes after each mutation. Zero
	// means unbounded.
	MaxFactsBytes int64
	// MaxDepth caps fact.Store.Depth after each mutation. Zero means
	// unbounded.
	MaxDepth int
	// Cancel is polled at each firing boundary (§5 "Cancellation"); a
	// nil Cancel is never polled. On a true result the engine stops,
	// finalizes the session as cancelled, and returns the partially
	// mutated fact tree.
	Cancel func() bool
	// Now supplies wall-clock nanoseconds for recorder timestamps. The
	// core has no ambient clock (§1); a nil Now makes every recorded
	// timestamp zero.
	Now func() int64
}

func (o Options) now() int64 {
	if o.Now == nil {
		return 0
	}
	return o.Now()
}

func (o Options) cancelled() bool {
	return o.Cancel != nil && o.Cancel()
}

// Clock and IsCancelled are the exported forms of now()/cancelled(), for
// other engine implementations in sibling packages (package rete) that
// share this Options/Result contract (§4.4 "Equivalence requirement").
func (o Options) Clock() int64     { return o.now() }
func (o Options) IsCancelled() bool { return o.cancelled() }

// Result is what both RunFC and (by contract) the RETE engine return.
type Result struct {
	Store   *fact.Store
	Firings int
	Status  recorder.Status
}
