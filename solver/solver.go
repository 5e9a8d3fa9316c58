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

// Package solver implements the backward chaining goal solver (§2
// component 5, §4.5): a depth-first, goal-directed prover that selects
// rules by their actions rather than their conditions, treating each
// candidate's `when` clause as a set of sub-goals.
package solver

import (
	"fmt"

	"github.com/mitchellh/hashstructure"

	"github.com/KSD-CO/rule-engine-postgres-sub001/engine"
	"github.com/KSD-CO/rule-engine-postgres-sub001/eval"
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
	"github.com/KSD-CO/rule-engine-postgres-sub001/value"
)

// DefaultMaxDepth bounds recursion when no explicit depth budget is given,
// a backstop independent of the cycle-detection memo (§5 "max_depth").
const DefaultMaxDepth = 1000

// Step records one rule used in a proof (§4.5 "Output"): the rule's name,
// the fact values its `when` clause read at the moment of the proof
// (mirroring the RETE Activation's own binding snapshot, §4.4), and the
// sub-proofs — if any — of its `when` clause's atomic conjuncts that
// themselves required further rule selection.
type Step struct {
	Rule     string
	Binding  map[string]interface{}
	Children []*Step
}

// Result is §4.5's `{ provable, proof, unresolved }` output.
type Result struct {
	Provable   bool
	Proof      []*Step
	Unresolved []string
}

// Flatten returns every Step in the proof tree in root-first, depth-first
// order — e.g. a three-rule production chain flattens to three Steps, one
// per rule, matching the "three-step proof trace" scenario (§8 scenario 5).
func (r *Result) Flatten() []*Step {
	var out []*Step
	var walk func([]*Step)
	walk = func(steps []*Step) {
		for _, s := range steps {
			out = append(out, s)
			walk(s.Children)
		}
	}
	walk(r.Proof)
	return out
}

type proofStatus int

const (
	statusUnresolved proofStatus = iota
	statusProven
	statusFailed
)

type memoEntry struct {
	status     proofStatus
	step       *Step
	unresolved []string
}

// Query attempts to prove goal against facts using rs's rules as
// producers, returning a structured proof or the set of atoms that could
// not be resolved (§4.5 "Output").
func Query(rs *grl.Ruleset, store *fact.Store, goal grl.Expr, reg registry.Registry) (*Result, error) {
	rules := engine.SortedRules(rs)
	s := &searcher{
		rules:    rules,
		store:    store,
		reg:      reg,
		memo:     map[string]*memoEntry{},
		visiting: map[string]bool{},
		maxDepth: DefaultMaxDepth,
	}
	proven, steps, unresolved := s.prove(goal, 0)
	return &Result{Provable: proven, Proof: steps, Unresolved: unresolved}, nil
}

// CanProve is the boolean projection of Query (§6 "can_prove").
func CanProve(rs *grl.Ruleset, store *fact.Store, goal grl.Expr, reg registry.Registry) (bool, error) {
	res, err := Query(rs, store, goal, reg)
	if err != nil {
		return false, err
	}
	return res.Provable, nil
}

type searcher struct {
	rules    []*grl.Rule
	store    *fact.Store
	reg      registry.Registry
	memo     map[string]*memoEntry
	visiting map[string]bool
	maxDepth int
}

// prove proves e, handling And/Or/Not structurally and deferring atomic
// leaves (comparisons, bare paths, function calls) to proveAtomic.
// Disjunctions try operands in order and keep the first success — §4.5
// "the first successful proof is returned; no backtracking past a
// completed proof" applies at every level, not just the top goal.
func (s *searcher) prove(e grl.Expr, depth int) (bool, []*Step, []string) {
	if depth > s.maxDepth {
		return false, nil, []string{"max proof depth exceeded at " + grl.DescribeExpr(e)}
	}
	switch n := e.(type) {
	case *grl.Logical:
		if n.Op == grl.OpOr {
			var unresolved []string
			for _, operand := range n.Operands {
				proven, steps, unres := s.prove(operand, depth+1)
				if proven {
					return true, steps, nil
				}
				unresolved = append(unresolved, unres...)
			}
			return false, nil, unresolved
		}
		var steps []*Step
		var unresolved []string
		for _, operand := range n.Operands {
			proven, childSteps, unres := s.prove(operand, depth+1)
			if !proven {
				return false, nil, append(unresolved, unres...)
			}
			steps = append(steps, childSteps...)
		}
		return true, steps, unresolved
	case *grl.Unary:
		// Negation is evaluated directly against the current facts; there
		// is no sensible rule-production search "through" a `not` (§4.5
		// only backward-chains positive atomic comparisons).
		if eval.Bool(n, s.store, s.reg) {
			return true, nil, nil
		}
		return false, nil, []string{grl.DescribeExpr(n)}
	default:
		return s.proveAtomic(e, depth)
	}
}

func (s *searcher) proveAtomic(atom grl.Expr, depth int) (bool, []*Step, []string) {
	sig, err := signature(atom, s.store, s.reg)
	if err != nil {
		return false, nil, []string{grl.DescribeExpr(atom) + ": " + err.Error()}
	}

	if entry, ok := s.memo[sig]; ok {
		switch entry.status {
		case statusProven:
			if entry.step == nil {
				// Proven directly against the facts: no production step.
				return true, nil, nil
			}
			return true, []*Step{entry.step}, nil
		case statusFailed:
			return false, nil, entry.unresolved
		}
	}
	if s.visiting[sig] {
		// A goal that depends on itself can be neither proven nor
		// disproven by this search; surface it as unresolved rather than
		// treating the cycle as failure (§9 "Goal solver memoisation").
		return false, nil, []string{"cycle: " + grl.DescribeExpr(atom)}
	}

	// Already true against the given facts, no production needed.
	if eval.Bool(atom, s.store, s.reg) {
		s.memo[sig] = &memoEntry{status: statusProven}
		return true, nil, nil
	}

	bin, ok := atom.(*grl.Binary)
	if !ok || !bin.Op.IsComparison() {
		s.memo[sig] = &memoEntry{status: statusFailed, unresolved: []string{grl.DescribeExpr(atom)}}
		return false, nil, []string{grl.DescribeExpr(atom)}
	}
	pathRef, ok := bin.Left.(*grl.PathRef)
	if !ok {
		unresolved := []string{grl.DescribeExpr(atom) + ": goal must compare a fact path to a literal"}
		s.memo[sig] = &memoEntry{status: statusFailed, unresolved: unresolved}
		return false, nil, unresolved
	}
	required := eval.Eval(bin.Right, s.store, s.reg)

	s.visiting[sig] = true
	defer delete(s.visiting, sig)

	var unresolved []string
	for _, rule := range s.rules {
		action := producingAction(rule, pathRef.Path, bin.Op, required, s.store, s.reg)
		if action == nil {
			continue
		}
		proven, childSteps, unres := s.prove(rule.When, depth+1)
		if !proven {
			unresolved = append(unresolved, unres...)
			continue
		}
		step := &Step{Rule: rule.Name, Binding: bindingSnapshot(rule, s.store), Children: childSteps}
		s.memo[sig] = &memoEntry{status: statusProven, step: step}
		return true, []*Step{step}, nil
	}
	if unresolved == nil {
		unresolved = []string{grl.DescribeExpr(atom)}
	}
	s.memo[sig] = &memoEntry{status: statusFailed, unresolved: unresolved}
	return false, nil, unresolved
}

// producingAction returns the action within rule that assigns goalPath a
// value satisfying `goalPath op required`, or nil. The match itself is
// expressed by re-running the comparison operator's own evaluation
// semantics (§4.2) over two literals — the action's evaluated RHS and the
// goal's required value — rather than re-implementing `==`/`<`/etc. here.
func producingAction(rule *grl.Rule, goalPath fact.Path, op grl.BinaryOp, required value.Value, store *fact.Store, reg registry.Registry) *grl.Action {
	for _, action := range rule.Then {
		if action.Path.String() != goalPath.String() {
			continue
		}
		actionVal := eval.Eval(action.Value, store, reg)
		synthetic := &grl.Binary{
			Op:    op,
			Left:  &grl.Literal{Value: actionVal},
			Right: &grl.Literal{Value: required},
		}
		if eval.Bool(synthetic, store, reg) {
			return action
		}
	}
	return nil
}

func bindingSnapshot(rule *grl.Rule, store *fact.Store) map[string]interface{} {
	binding := make(map[string]interface{})
	for _, p := range eval.ReferencedPaths(rule.When) {
		binding[p.String()] = store.Get(p).Raw()
	}
	return binding
}

// signature computes the goal-signature backward chaining memoizes and
// cuts cycles on (§9 "Goal solver memoisation"): the fact path, comparison
// operator, and required value, hashed via mitchellh/hashstructure the
// same way the RETE engine fingerprints activations (§4.4 step 4).
func signature(atom grl.Expr, store *fact.Store, reg registry.Registry) (string, error) {
	bin, ok := atom.(*grl.Binary)
	if !ok {
		return grl.DescribeExpr(atom), nil
	}
	pathRef, ok := bin.Left.(*grl.PathRef)
	if !ok {
		return grl.DescribeExpr(atom), nil
	}
	required := eval.Eval(bin.Right, store, reg)
	h, err := hashstructure.Hash(struct {
		Path     string
		Op       grl.BinaryOp
		Required interface{}
	}{Path: pathRef.Path.String(), Op: bin.Op, Required: required.Raw()}, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#%x", pathRef.Path.String(), h), nil
}
