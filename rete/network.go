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

// Package rete implements the discrimination network engine (§2 component
// 4, §4.4): alpha nodes filter atomic conditions, beta nodes join them
// left-deep into a rule's conjunction, and terminal nodes enqueue
// activations into a conflict set ordered by (salience desc, sequence
// asc). It is built fresh per invocation and offers the same observable
// contract as the forward-chaining engine in package engine — the two
// must agree by deep equality on any (rules, facts) pair within budget
// (§4.4 "Equivalence requirement").
//
// Network nodes live in parallel slices addressed by integer index (§9
// "RETE network"), so activations and join edges reference nodes by index
// rather than by pointer — there is no node-knows-its-parent back-
// reference to manage.
package rete

import (
	"github.com/KSD-CO/rule-engine-postgres-sub001/eval"
	"github.com/KSD-CO/rule-engine-postgres-sub001/fact"
	"github.com/KSD-CO/rule-engine-postgres-sub001/grl"
	"github.com/KSD-CO/rule-engine-postgres-sub001/registry"
)

// alphaNode filters a single atomic condition — a comparison, a negation,
// a bare path, or a function call, anything that is not itself a Logical
// And/Or (§4.4 "Alpha memory. One alpha node per atomic condition"). Built-
// in function results are treated as opaque and simply re-evaluated
// whenever any path they reference changes (§9 open question (c)); there is
// no separate indexing of a function's return value.
type alphaNode struct {
	cond      grl.Expr
	key       string     // grl.DescribeExpr(cond); dedupe key shared across rules
	paths     []fact.Path // ReferencedPaths(cond); drives incremental re-evaluation
	satisfied bool
}

// betaNode joins a left partial match (an earlier alpha or beta node in the
// same conjunction) with one more alpha node. Conjunctions are built left-
// deep (§4.4 "Beta memory"): the first two atoms of a rule's `when`
// (flattened into AND-only chains, see dnf.go) form the first beta node,
// each subsequent atom adds one more beta node on top.
type betaNode struct {
	left      int // index into net.alphas if leftIsAlpha, else net.betas
	leftAlpha bool
	right     int // index into net.alphas
	satisfied bool
}

// terminalNode is one per rule. roots holds, for each disjunct of the
// rule's `when` (after distributing AND over OR into disjunctive normal
// form), the index of that disjunct's top node — the last beta node of its
// conjunction, or directly an alpha node index if the conjunction has a
// single atom. A terminal is satisfied when any root is (§9 open question
// (b): disjunctions merge into one activation, never one per disjunct).
type terminalNode struct {
	rule      *grl.Rule
	roots     []chainRoot
	paths     []fact.Path // union of every atom's referenced paths, for dependency indexing
	satisfied bool
}

type chainRoot struct {
	isAlpha bool
	index   int
}

// Network is the compiled discrimination network for one ruleset,
// constructed fresh per invocation (§5 "Ownership": "constructed fresh per
// invocation and owned likewise; caching compiled networks ... is a
// permitted optimisation").
type Network struct {
	rules     []*grl.Rule // salience desc, parse order asc (engine.SortedRules)
	alphas    []*alphaNode
	betas     []*betaNode
	terminals []*terminalNode
	pathIndex map[string][]int // fact.Path.String() -> alpha node indices reading it
	reg       registry.Registry
}

// Build compiles rules into a fresh Network. rules must already be ordered
// by engine.SortedRules so terminal index order — and therefore initial
// activation sequence — matches the forward engine's scan order.
func Build(rules []*grl.Rule, reg registry.Registry) *Network {
	net := &Network{rules: rules, reg: reg, pathIndex: map[string][]int{}}
	alphaByKey := map[string]int{}

	for _, rule := range rules {
		disjuncts := flattenDNF(rule.When)
		term := &terminalNode{rule: rule}
		seenPath := map[string]bool{}

		for _, conjunct := range disjuncts {
			var root chainRoot
			for i, atom := range conjunct {
				idx := net.internAlpha(atom, alphaByKey)
				for _, p := range net.alphas[idx].paths {
					key := p.String()
					if !seenPath[key] {
						seenPath[key] = true
						term.paths = append(term.paths, p)
					}
				}
				if i == 0 {
					root = chainRoot{isAlpha: true, index: idx}
					continue
				}
				betaIdx := len(net.betas)
				net.betas = append(net.betas, &betaNode{
					left:      root.index,
					leftAlpha: root.isAlpha,
					right:     idx,
				})
				root = chainRoot{isAlpha: false, index: betaIdx}
			}
			term.roots = append(term.roots, root)
		}

		termIdx := len(net.terminals)
		net.terminals = append(net.terminals, term)
		_ = termIdx
	}

	for idx, a := range net.alphas {
		for _, p := range a.paths {
			key := p.String()
			net.pathIndex[key] = append(net.pathIndex[key], idx)
		}
	}
	return net
}

func (net *Network) internAlpha(atom grl.Expr, byKey map[string]int) int {
	key := grl.DescribeExpr(atom)
	if idx, ok := byKey[key]; ok {
		return idx
	}
	idx := len(net.alphas)
	net.alphas = append(net.alphas, &alphaNode{
		cond:  atom,
		key:   key,
		paths: eval.ReferencedPaths(atom),
	})
	byKey[key] = idx
	return idx
}

// EvaluateAll re-evaluates every alpha node from scratch against store and
// recomputes every beta/terminal satisfaction flag. Used once at session
// start (§4.4 step 1: "Insert every fact path into the network").
func (net *Network) EvaluateAll(store *fact.Store) {
	for _, a := range net.alphas {
		a.satisfied = eval.Bool(a.cond, store, net.reg)
	}
	net.recomputeBetasAndTerminals()
}

// Touch re-evaluates only the alpha nodes that read any of changedPaths,
// then recomputes beta/terminal satisfaction (§4.4 step 3: "Each action
// mutation is fed back to the network as a retract-then-assert of the
// affected path; α and β memories update incrementally"). Terminal
// satisfaction recomputation itself is a cheap pass over the (small, rule-
// sized) beta/terminal arrays rather than a further incremental join —
// the single shared fact tree gives every rule at most one binding, so
// there is no combinatorial join work left to amortize once the touched
// alpha nodes are known.
func (net *Network) Touch(store *fact.Store, changedPaths []fact.Path) {
	touched := map[int]bool{}
	for _, p := range changedPaths {
		for _, idx := range net.pathIndex[p.String()] {
			touched[idx] = true
		}
	}
	for idx := range touched {
		a := net.alphas[idx]
		a.satisfied = eval.Bool(a.cond, store, net.reg)
	}
	net.recomputeBetasAndTerminals()
}

func (net *Network) recomputeBetasAndTerminals() {
	for _, b := range net.betas {
		leftSat := false
		if b.leftAlpha {
			leftSat = net.alphas[b.left].satisfied
		} else {
			leftSat = net.betas[b.left].satisfied
		}
		b.satisfied = leftSat && net.alphas[b.right].satisfied
	}
	for _, t := range net.terminals {
		sat := false
		for _, r := range t.roots {
			if r.isAlpha {
				sat = sat || net.alphas[r.index].satisfied
			} else {
				sat = sat || net.betas[r.index].satisfied
			}
			if sat {
				break
			}
		}
		t.satisfied = sat
	}
}
